// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package event provides the per-task event queues that carry status updates
// from a detached worker to the subscribers of a task.
//
// A task's queues are grouped under a topic owned by a [QueueManager]. Every
// subscriber taps the topic and reads its own unbounded [EventQueue] through
// an [EventConsumer]. Once a final event has been enqueued the topic accepts
// nothing more and is retired after handing that event to its subscribers.
package event

import (
	"github.com/go-a2a/a2a-ollama"
)

// Event is the unit carried by event queues.
type Event = a2a.TaskStatusUpdateEvent

// NewStatusEvent returns a status-update event for taskID.
func NewStatusEvent(taskID string, status a2a.TaskStatus, final bool) *Event {
	return &Event{
		ID:     taskID,
		Status: status,
		Final:  final,
	}
}
