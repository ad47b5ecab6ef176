// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-a2a/a2a-ollama"
)

// Publisher delivers status-update events to the subscribers of a task.
type Publisher interface {
	Enqueue(ctx context.Context, taskID string, ev *a2a.TaskStatusUpdateEvent) error
}

// TaskUpdater writes a task's terminal result to the store and then, when a
// [Publisher] is set, announces it as a final status-update event.
type TaskUpdater struct {
	taskID    string
	store     TaskStore
	publisher Publisher
	logger    *slog.Logger
}

// NewTaskUpdater creates a new TaskUpdater for taskID.
// The publisher may be nil for callers that have no subscribers.
func NewTaskUpdater(taskID string, store TaskStore, publisher Publisher, logger *slog.Logger) *TaskUpdater {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskUpdater{
		taskID:    taskID,
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// TaskID returns the task ID this updater is associated with.
func (u *TaskUpdater) TaskID() string {
	return u.taskID
}

// Complete finishes the task in the completed state with text as its result.
func (u *TaskUpdater) Complete(ctx context.Context, text string) (*a2a.Task, error) {
	return u.Finish(ctx, a2a.TaskStateCompleted, text)
}

// Fail finishes the task in the failed state with text as its result.
func (u *TaskUpdater) Fail(ctx context.Context, text string) (*a2a.Task, error) {
	return u.Finish(ctx, a2a.TaskStateFailed, text)
}

// Finish writes state together with an agent message and a single artifact
// holding text.
//
// If the task is already terminal the write is dropped, logged, and the stored
// task is returned: the first terminal result wins. The final event always
// carries the status that is actually stored.
func (u *TaskUpdater) Finish(ctx context.Context, state a2a.TaskState, text string) (*a2a.Task, error) {
	msg := a2a.NewTextMessage(a2a.RoleAgent, text)
	artifacts := []a2a.Artifact{a2a.NewTextArtifact(text)}

	t, err := u.store.SetStatusAndArtifacts(ctx, u.taskID, state, msg, artifacts)
	if err != nil {
		var terminalErr *TaskAlreadyTerminalError
		if !errors.As(err, &terminalErr) {
			return nil, NewTaskUpdaterError("finish", u.taskID, err)
		}
		u.logger.WarnContext(ctx, "ignoring update of terminal task",
			"task_id", u.taskID, "state", terminalErr.State, "dropped_state", state)

		if t, err = u.store.Get(ctx, u.taskID); err != nil {
			return nil, NewTaskUpdaterError("finish", u.taskID, err)
		}
	}

	if u.publisher == nil {
		return t, nil
	}

	ev := &a2a.TaskStatusUpdateEvent{
		ID:     t.ID,
		Status: t.Status.Clone(),
		Final:  true,
	}
	if err := u.publisher.Enqueue(ctx, u.taskID, ev); err != nil {
		return t, NewTaskUpdaterError("publish", u.taskID, err)
	}
	return t, nil
}
