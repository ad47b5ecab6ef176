// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"errors"
	"fmt"
)

var (
	// ErrQueueClosed is returned when attempting to operate on a closed queue.
	ErrQueueClosed = errors.New("queue is closed")

	// ErrQueueEmpty is returned when attempting to dequeue from an empty queue in non-blocking mode.
	ErrQueueEmpty = errors.New("queue is empty")

	// ErrFinalEventSent is returned when enqueueing to a topic that already carried a final event.
	ErrFinalEventSent = errors.New("final event already sent")

	// ErrConsumerClosed is returned when attempting to consume from a closed consumer.
	ErrConsumerClosed = errors.New("consumer is closed")
)

// NoTaskQueueError represents an error when a task queue is not found.
type NoTaskQueueError struct {
	TaskID string
}

// Error returns the error message.
func (e *NoTaskQueueError) Error() string {
	return fmt.Sprintf("no task queue found for task ID: %s", e.TaskID)
}

// Is implements error matching for NoTaskQueueError.
func (e *NoTaskQueueError) Is(target error) bool {
	_, ok := target.(*NoTaskQueueError)
	return ok
}

// TaskQueueExistsError represents an error when trying to create a task queue that already exists.
type TaskQueueExistsError struct {
	TaskID string
}

// Error returns the error message.
func (e *TaskQueueExistsError) Error() string {
	return fmt.Sprintf("task queue already exists for task ID: %s", e.TaskID)
}

// Is implements error matching for TaskQueueExistsError.
func (e *TaskQueueExistsError) Is(target error) bool {
	_, ok := target.(*TaskQueueExistsError)
	return ok
}
