// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"fmt"

	"github.com/go-a2a/a2a-ollama"
)

// UnknownTaskError represents a write to a task that was never created.
type UnknownTaskError struct {
	TaskID string
}

// NewUnknownTaskError creates a new UnknownTaskError.
func NewUnknownTaskError(taskID string) *UnknownTaskError {
	return &UnknownTaskError{TaskID: taskID}
}

// Error returns the error message.
func (e *UnknownTaskError) Error() string {
	return fmt.Sprintf("task %s does not exist", e.TaskID)
}

// TaskAlreadyTerminalError represents a write to a task that already reached a terminal state.
type TaskAlreadyTerminalError struct {
	TaskID string
	State  a2a.TaskState
}

// NewTaskAlreadyTerminalError creates a new TaskAlreadyTerminalError.
func NewTaskAlreadyTerminalError(taskID string, state a2a.TaskState) *TaskAlreadyTerminalError {
	return &TaskAlreadyTerminalError{
		TaskID: taskID,
		State:  state,
	}
}

// Error returns the error message.
func (e *TaskAlreadyTerminalError) Error() string {
	return fmt.Sprintf("task %s in state %s cannot be updated", e.TaskID, e.State)
}

// InvalidTransitionError represents a state change the task state machine forbids.
type InvalidTransitionError struct {
	TaskID string
	From   a2a.TaskState
	To     a2a.TaskState
}

// NewInvalidTransitionError creates a new InvalidTransitionError.
func NewInvalidTransitionError(taskID string, from, to a2a.TaskState) *InvalidTransitionError {
	return &InvalidTransitionError{
		TaskID: taskID,
		From:   from,
		To:     to,
	}
}

// Error returns the error message.
func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("task %s cannot move from %s to %s", e.TaskID, e.From, e.To)
}

// TaskUpdaterError represents an error from the task updater.
type TaskUpdaterError struct {
	Operation string
	TaskID    string
	Err       error
}

// NewTaskUpdaterError creates a new TaskUpdaterError.
func NewTaskUpdaterError(operation, taskID string, err error) *TaskUpdaterError {
	return &TaskUpdaterError{
		Operation: operation,
		TaskID:    taskID,
		Err:       err,
	}
}

// Error returns the error message.
func (e *TaskUpdaterError) Error() string {
	return fmt.Sprintf("task updater %s operation failed for task %s: %v", e.Operation, e.TaskID, e.Err)
}

// Unwrap returns the underlying error.
func (e *TaskUpdaterError) Unwrap() error {
	return e.Err
}
