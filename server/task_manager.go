// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-a2a/a2a-ollama"
	"github.com/go-a2a/a2a-ollama/internal/telemetry"
	"github.com/go-a2a/a2a-ollama/server/task"
)

// TaskManager is the interface that task managers must implement.
// It binds the A2A task methods to task execution.
type TaskManager interface {
	// OnSendTask runs a task to completion.
	OnSendTask(ctx context.Context, params *a2a.TaskSendParams) (*a2a.Task, error)

	// OnSendTaskSubscribe starts a task and returns the sequence of its status updates.
	OnSendTaskSubscribe(ctx context.Context, params *a2a.TaskSendParams) (iter.Seq2[*a2a.TaskStatusUpdateEvent, error], error)

	// OnGetTask retrieves a task.
	OnGetTask(ctx context.Context, params *a2a.TaskQueryParams) (*a2a.Task, error)

	// OnCancelTask cancels a task.
	OnCancelTask(ctx context.Context, params *a2a.TaskIDParams) (*a2a.Task, error)

	// OnResubscribeToTask returns the sequence of a task's remaining status updates.
	OnResubscribeToTask(ctx context.Context, params *a2a.TaskQueryParams) (iter.Seq2[*a2a.TaskStatusUpdateEvent, error], error)

	// OnSetTaskPushNotification configures push notification for a task.
	OnSetTaskPushNotification(ctx context.Context, params *a2a.TaskIDParams) error

	// OnGetTaskPushNotification retrieves push notification configuration for a task.
	OnGetTaskPushNotification(ctx context.Context, params *a2a.TaskIDParams) error
}

// AgentTaskManager is the [TaskManager] of the agent: tasks are answered by a
// single [WorkFunc], synchronously through an [Executor] or on a detached
// worker through a [Coordinator].
type AgentTaskManager struct {
	store       task.TaskStore
	executor    *Executor
	coordinator *Coordinator
	work        WorkFunc

	// Logger is the logger for the task manager.
	Logger *slog.Logger

	// Tracer is the tracer for the task manager.
	Tracer trace.Tracer
}

var _ TaskManager = (*AgentTaskManager)(nil)

// NewAgentTaskManager creates a new AgentTaskManager.
func NewAgentTaskManager(store task.TaskStore, executor *Executor, coordinator *Coordinator, work WorkFunc) *AgentTaskManager {
	return &AgentTaskManager{
		store:       store,
		executor:    executor,
		coordinator: coordinator,
		work:        work,
		Logger:      slog.Default(),
		Tracer:      telemetry.Tracer(),
	}
}

// WithLogger sets the logger for the AgentTaskManager.
func (tm *AgentTaskManager) WithLogger(logger *slog.Logger) *AgentTaskManager {
	tm.Logger = logger
	return tm
}

// WithTracer sets the tracer for the AgentTaskManager.
func (tm *AgentTaskManager) WithTracer(tracer trace.Tracer) *AgentTaskManager {
	tm.Tracer = tracer
	return tm
}

func (tm *AgentTaskManager) start(ctx context.Context, name, taskID string) (context.Context, trace.Span) {
	return tm.Tracer.Start(ctx, "a2a.task_manager."+name,
		trace.WithAttributes(telemetry.TaskIDKey.String(taskID)))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// prepare validates params and fills in a session ID when absent.
func (tm *AgentTaskManager) prepare(params *a2a.TaskSendParams) error {
	if err := params.Validate(); err != nil {
		return a2a.NewInvalidParamsError().WithData(err.Error())
	}
	if len(params.AcceptedOutputModes) > 0 && !slices.Contains(params.AcceptedOutputModes, a2a.ModeText) {
		return a2a.NewContentTypeNotSupportedError()
	}
	if params.SessionID == "" {
		params.SessionID = uuid.NewString()
	}
	return nil
}

// OnSendTask implements [TaskManager].
func (tm *AgentTaskManager) OnSendTask(ctx context.Context, params *a2a.TaskSendParams) (t *a2a.Task, err error) {
	ctx, span := tm.start(ctx, "OnSendTask", params.ID)
	defer func() { endSpan(span, err) }()

	if err := tm.prepare(params); err != nil {
		return nil, err
	}

	t, err = tm.executor.Run(ctx, params.ID, params.SessionID, &params.Message, tm.work)
	if err != nil {
		tm.Logger.ErrorContext(ctx, "task failed", "task_id", params.ID, "error", err)
		return nil, err
	}
	if params.HistoryLength != nil {
		t.TrimHistory(*params.HistoryLength)
	}
	return t, nil
}

// OnSendTaskSubscribe implements [TaskManager].
func (tm *AgentTaskManager) OnSendTaskSubscribe(ctx context.Context, params *a2a.TaskSendParams) (seq iter.Seq2[*a2a.TaskStatusUpdateEvent, error], err error) {
	ctx, span := tm.start(ctx, "OnSendTaskSubscribe", params.ID)
	defer func() { endSpan(span, err) }()

	if err := tm.prepare(params); err != nil {
		return nil, err
	}

	seq, err = tm.coordinator.Subscribe(ctx, params.ID, params.SessionID, &params.Message, tm.work)
	if err != nil {
		tm.Logger.ErrorContext(ctx, "task subscription failed", "task_id", params.ID, "error", err)
		return nil, err
	}
	tm.Logger.InfoContext(ctx, "task subscribed", "task_id", params.ID)
	return seq, nil
}

// OnGetTask implements [TaskManager].
func (tm *AgentTaskManager) OnGetTask(ctx context.Context, params *a2a.TaskQueryParams) (t *a2a.Task, err error) {
	ctx, span := tm.start(ctx, "OnGetTask", params.ID)
	defer func() { endSpan(span, err) }()

	if params.ID == "" {
		return nil, a2a.NewInvalidParamsError().WithData("task ID cannot be empty")
	}

	t, err = tm.store.Get(ctx, params.ID)
	if err != nil {
		tm.Logger.InfoContext(ctx, "task not found", "task_id", params.ID)
		return nil, err
	}
	if params.HistoryLength != nil {
		t.TrimHistory(*params.HistoryLength)
	}

	tm.Logger.InfoContext(ctx, "task retrieved", "task_id", params.ID, "state", t.Status.State)
	return t, nil
}

// OnCancelTask implements [TaskManager].
// Running work cannot be interrupted, so every known task is reported as not cancelable.
func (tm *AgentTaskManager) OnCancelTask(ctx context.Context, params *a2a.TaskIDParams) (_ *a2a.Task, err error) {
	ctx, span := tm.start(ctx, "OnCancelTask", params.ID)
	defer func() { endSpan(span, err) }()

	t, err := tm.store.Get(ctx, params.ID)
	if err != nil {
		return nil, err
	}

	tm.Logger.InfoContext(ctx, "task cannot be canceled", "task_id", params.ID, "state", t.Status.State)
	return nil, a2a.NewTaskNotCancelableError().WithData(fmt.Sprintf("task %s is %s", t.ID, t.Status.State))
}

// OnResubscribeToTask implements [TaskManager].
func (tm *AgentTaskManager) OnResubscribeToTask(ctx context.Context, params *a2a.TaskQueryParams) (seq iter.Seq2[*a2a.TaskStatusUpdateEvent, error], err error) {
	ctx, span := tm.start(ctx, "OnResubscribeToTask", params.ID)
	defer func() { endSpan(span, err) }()

	return tm.coordinator.Resubscribe(ctx, params.ID)
}

// OnSetTaskPushNotification implements [TaskManager].
func (tm *AgentTaskManager) OnSetTaskPushNotification(ctx context.Context, params *a2a.TaskIDParams) error {
	return a2a.NewPushNotificationNotSupportedError()
}

// OnGetTaskPushNotification implements [TaskManager].
func (tm *AgentTaskManager) OnGetTaskPushNotification(ctx context.Context, params *a2a.TaskIDParams) error {
	return a2a.NewPushNotificationNotSupportedError()
}
