// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"context"
	"time"
)

// QueueManager defines the interface for managing the event topics of tasks.
// A topic fans every enqueued event out to the queues tapped from it.
type QueueManager interface {
	// Create registers a topic for the given task ID and returns its first tap.
	// Returns TaskQueueExistsError if the topic already exists.
	Create(taskID string) (*EventQueue, error)

	// Tap returns a new queue receiving every future event of the topic, and
	// any event buffered while the topic had no taps.
	// Returns NoTaskQueueError if the topic does not exist.
	Tap(taskID string) (*EventQueue, error)

	// Release detaches and closes a queue returned by Create or Tap.
	Release(taskID string, queue *EventQueue)

	// Enqueue delivers ev to every tap of the topic.
	// Returns NoTaskQueueError for unknown or retired topics and
	// ErrFinalEventSent once the topic carried a final event.
	Enqueue(ctx context.Context, taskID string, ev *Event) error

	// Get returns a snapshot of the topic for the given task ID.
	Get(taskID string) (QueueInfo, bool)

	// Close closes and removes the topic for the given task ID.
	// Returns NoTaskQueueError if the topic does not exist.
	Close(taskID string) error

	// Exists checks if a topic exists for the given task ID.
	Exists(taskID string) bool

	// List returns all task IDs that have topics.
	List() []string

	// Count returns the number of topics managed by this manager.
	Count() int

	// CloseAll closes all topics managed by this manager.
	CloseAll() error

	// Sweep retires topics whose final event has waited undelivered for
	// longer than maxAge, and returns how many were retired.
	Sweep(maxAge time.Duration) int
}

// QueueInfo holds information about a topic.
type QueueInfo struct {
	TaskID    string
	Taps      int
	Pending   int
	Final     bool
	CreatedAt time.Time
}
