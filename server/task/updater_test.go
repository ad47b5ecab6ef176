// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	gocmp "github.com/google/go-cmp/cmp"

	"github.com/go-a2a/a2a-ollama"
	"github.com/go-a2a/a2a-ollama/server/task"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*a2a.TaskStatusUpdateEvent
	err    error
}

func (p *recordingPublisher) Enqueue(_ context.Context, _ string, ev *a2a.TaskStatusUpdateEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func TestTaskUpdaterFinish(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		finish    func(ctx context.Context, u *task.TaskUpdater) (*a2a.Task, error)
		wantState a2a.TaskState
		wantText  string
	}{
		"complete": {
			finish: func(ctx context.Context, u *task.TaskUpdater) (*a2a.Task, error) {
				return u.Complete(ctx, "Ollama streaming: hi")
			},
			wantState: a2a.TaskStateCompleted,
			wantText:  "Ollama streaming: hi",
		},
		"fail": {
			finish: func(ctx context.Context, u *task.TaskUpdater) (*a2a.Task, error) {
				return u.Fail(ctx, "Ollama streaming failed.")
			},
			wantState: a2a.TaskStateFailed,
			wantText:  "Ollama streaming failed.",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := t.Context()
			store := task.NewInMemoryTaskStore()
			if _, err := store.Upsert(ctx, "t1", "", a2a.NewTextMessage(a2a.RoleUser, "q")); err != nil {
				t.Fatalf("Upsert: %v", err)
			}
			pub := &recordingPublisher{}

			got, err := tt.finish(ctx, task.NewTaskUpdater("t1", store, pub, nil))
			if err != nil {
				t.Fatalf("finish: %v", err)
			}
			if got.Status.State != tt.wantState {
				t.Errorf("state = %s, want %s", got.Status.State, tt.wantState)
			}
			if len(got.Artifacts) != 1 || got.Artifacts[0].Text() != tt.wantText {
				t.Errorf("artifacts = %+v, want one artifact %q", got.Artifacts, tt.wantText)
			}
			if text := got.Status.Message.Text(); text != tt.wantText {
				t.Errorf("status message = %q, want %q", text, tt.wantText)
			}

			want := []*a2a.TaskStatusUpdateEvent{{
				ID:     "t1",
				Status: got.Status,
				Final:  true,
			}}
			if diff := gocmp.Diff(want, pub.events); diff != "" {
				t.Errorf("events: (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTaskUpdaterFinishTerminalTask(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	store := task.NewInMemoryTaskStore()
	if _, err := store.Upsert(ctx, "t1", "", nil); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	first, err := task.NewTaskUpdater("t1", store, nil, nil).Complete(ctx, "first")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	pub := &recordingPublisher{}
	got, err := task.NewTaskUpdater("t1", store, pub, nil).Fail(ctx, "second")
	if err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if diff := gocmp.Diff(first, got); diff != "" {
		t.Errorf("stored task changed: (-want +got):\n%s", diff)
	}
	if len(pub.events) != 1 || pub.events[0].Status.State != a2a.TaskStateCompleted {
		t.Errorf("events = %v, want one completed final event", pub.events)
	}
}

func TestTaskUpdaterFinishUnknownTask(t *testing.T) {
	t.Parallel()

	_, err := task.NewTaskUpdater("ghost", task.NewInMemoryTaskStore(), nil, nil).Complete(t.Context(), "x")

	var unknownErr *task.UnknownTaskError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("error = %v, want UnknownTaskError", err)
	}
}

func TestTaskUpdaterPublishError(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	store := task.NewInMemoryTaskStore()
	if _, err := store.Upsert(ctx, "t1", "", nil); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	boom := errors.New("queue gone")

	got, err := task.NewTaskUpdater("t1", store, &recordingPublisher{err: boom}, nil).Complete(ctx, "x")
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want %v", err, boom)
	}
	if got == nil || got.Status.State != a2a.TaskStateCompleted {
		t.Errorf("task = %v, want completed task despite publish error", got)
	}
}
