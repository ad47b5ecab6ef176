// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-a2a/a2a-ollama"
	"github.com/go-a2a/a2a-ollama/internal/worker"
	"github.com/go-a2a/a2a-ollama/server"
	"github.com/go-a2a/a2a-ollama/server/event"
	"github.com/go-a2a/a2a-ollama/server/task"
)

func newTaskManager(t *testing.T, work server.WorkFunc) *server.AgentTaskManager {
	t.Helper()

	store := task.NewInMemoryTaskStore()
	workers := worker.New(0, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := workers.Wait(ctx); err != nil {
			t.Errorf("Wait: %v", err)
		}
	})
	return server.NewAgentTaskManager(
		store,
		server.NewExecutor(store),
		server.NewCoordinator(store, event.NewInMemoryQueueManager(), workers),
		work,
	)
}

func rpcCode(err error) int {
	var rpcErr *a2a.JSONRPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Code
	}
	return a2a.RPCError(err).Code
}

func TestOnSendTaskSession(t *testing.T) {
	t.Parallel()

	tm := newTaskManager(t, answer("4", true, nil))

	got, err := tm.OnSendTask(t.Context(), &a2a.TaskSendParams{
		ID:      "t1",
		Message: *a2a.NewTextMessage(a2a.RoleUser, "2+2"),
	})
	if err != nil {
		t.Fatalf("OnSendTask: %v", err)
	}
	if got.SessionID == "" {
		t.Error("session id not generated")
	}

	got, err = tm.OnSendTask(t.Context(), &a2a.TaskSendParams{
		ID:        "t2",
		SessionID: "s1",
		Message:   *a2a.NewTextMessage(a2a.RoleUser, "2+2"),
	})
	if err != nil {
		t.Fatalf("OnSendTask: %v", err)
	}
	if got.SessionID != "s1" {
		t.Errorf("SessionID = %q, want s1", got.SessionID)
	}
}

func TestOnSendTaskHistoryLength(t *testing.T) {
	t.Parallel()

	tm := newTaskManager(t, answer("4", true, nil))
	params := &a2a.TaskSendParams{
		ID:      "t1",
		Message: *a2a.NewTextMessage(a2a.RoleUser, "2+2"),
	}
	full, err := tm.OnSendTask(t.Context(), params)
	if err != nil {
		t.Fatalf("OnSendTask: %v", err)
	}
	if len(full.History) != 2 {
		t.Fatalf("history len = %d, want 2", len(full.History))
	}

	one := 1
	got, err := tm.OnGetTask(t.Context(), &a2a.TaskQueryParams{ID: "t1", HistoryLength: &one})
	if err != nil {
		t.Fatalf("OnGetTask: %v", err)
	}
	if len(got.History) != 1 || got.History[0].Role != a2a.RoleAgent {
		t.Errorf("trimmed history = %+v", got.History)
	}

	// Trimming a response never touches the stored task.
	got, err = tm.OnGetTask(t.Context(), &a2a.TaskQueryParams{ID: "t1"})
	if err != nil {
		t.Fatalf("OnGetTask: %v", err)
	}
	if len(got.History) != 2 {
		t.Errorf("stored history len = %d, want 2", len(got.History))
	}
}

func TestTaskManagerErrors(t *testing.T) {
	t.Parallel()

	tm := newTaskManager(t, answer("4", true, nil))
	if _, err := tm.OnSendTask(t.Context(), &a2a.TaskSendParams{
		ID:      "known",
		Message: *a2a.NewTextMessage(a2a.RoleUser, "hi"),
	}); err != nil {
		t.Fatalf("OnSendTask: %v", err)
	}

	tests := map[string]struct {
		call     func(ctx context.Context) error
		wantCode int
	}{
		"send without text": {
			call: func(ctx context.Context) error {
				_, err := tm.OnSendTask(ctx, &a2a.TaskSendParams{ID: "t1", Message: a2a.Message{Role: a2a.RoleUser}})
				return err
			},
			wantCode: a2a.InvalidParamsErrorCode,
		},
		"subscribe with unsupported mode": {
			call: func(ctx context.Context) error {
				_, err := tm.OnSendTaskSubscribe(ctx, &a2a.TaskSendParams{
					ID:                  "t1",
					Message:             *a2a.NewTextMessage(a2a.RoleUser, "hi"),
					AcceptedOutputModes: []string{"audio/wav"},
				})
				return err
			},
			wantCode: a2a.ContentTypeNotSupportedErrorCode,
		},
		"get without id": {
			call: func(ctx context.Context) error {
				_, err := tm.OnGetTask(ctx, &a2a.TaskQueryParams{})
				return err
			},
			wantCode: a2a.InvalidParamsErrorCode,
		},
		"get unknown": {
			call: func(ctx context.Context) error {
				_, err := tm.OnGetTask(ctx, &a2a.TaskQueryParams{ID: "missing"})
				return err
			},
			wantCode: a2a.TaskNotFoundErrorCode,
		},
		"cancel known": {
			call: func(ctx context.Context) error {
				_, err := tm.OnCancelTask(ctx, &a2a.TaskIDParams{ID: "known"})
				return err
			},
			wantCode: a2a.TaskNotCancelableErrorCode,
		},
		"cancel unknown": {
			call: func(ctx context.Context) error {
				_, err := tm.OnCancelTask(ctx, &a2a.TaskIDParams{ID: "missing"})
				return err
			},
			wantCode: a2a.TaskNotFoundErrorCode,
		},
		"resubscribe unknown": {
			call: func(ctx context.Context) error {
				_, err := tm.OnResubscribeToTask(ctx, &a2a.TaskQueryParams{ID: "missing"})
				return err
			},
			wantCode: a2a.TaskNotFoundErrorCode,
		},
		"set push notification": {
			call: func(ctx context.Context) error {
				return tm.OnSetTaskPushNotification(ctx, &a2a.TaskIDParams{ID: "known"})
			},
			wantCode: a2a.PushNotificationNotSupportedErrorCode,
		},
		"get push notification": {
			call: func(ctx context.Context) error {
				return tm.OnGetTaskPushNotification(ctx, &a2a.TaskIDParams{ID: "known"})
			},
			wantCode: a2a.PushNotificationNotSupportedErrorCode,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := tt.call(t.Context())
			if err == nil {
				t.Fatal("expected error")
			}
			if got := rpcCode(err); got != tt.wantCode {
				t.Errorf("code = %d, want %d (%v)", got, tt.wantCode, err)
			}
		})
	}
}
