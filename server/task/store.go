// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package task holds the task store shared by the synchronous and streaming
// execution paths, and the state-machine checks applied on every write.
package task

import (
	"context"

	"github.com/go-a2a/a2a-ollama"
)

// TaskStore defines the interface for task storage operations.
//
// Implementations must return deep copies: a caller never mutates a stored
// task directly. All writes go through [TaskStore.Upsert] and
// [TaskStore.SetStatusAndArtifacts].
type TaskStore interface {
	// Upsert returns the task stored under id, creating it in the submitted
	// state with initial as its first history entry when absent.
	// An existing task is returned unchanged.
	Upsert(ctx context.Context, id, sessionID string, initial *a2a.Message) (*a2a.Task, error)

	// Get retrieves a task by its ID.
	// Returns a2a.TaskNotFoundError if the task doesn't exist.
	Get(ctx context.Context, id string) (*a2a.Task, error)

	// SetStatusAndArtifacts atomically replaces the task's status and artifacts.
	// Returns UnknownTaskError if id was never upserted, TaskAlreadyTerminalError
	// if the task is terminal, and InvalidTransitionError for illegal moves.
	SetStatusAndArtifacts(ctx context.Context, id string, state a2a.TaskState, message *a2a.Message, artifacts []a2a.Artifact) (*a2a.Task, error)

	// List returns the tasks of sessionID ordered by ID.
	// If sessionID is empty, all tasks are returned.
	List(ctx context.Context, sessionID string) ([]*a2a.Task, error)

	// Len returns the number of stored tasks.
	Len() int
}
