// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/go-a2a/a2a-ollama"
	"github.com/go-a2a/a2a-ollama/internal/telemetry"
	"github.com/go-a2a/a2a-ollama/server/task"
)

// WorkFunc produces the response text for a user query.
// A false second result signals that no response could be produced.
type WorkFunc func(ctx context.Context, text string) (string, bool)

// Templates are the texts written into finished tasks.
type Templates struct {
	// SyncPrefix precedes the work result of a synchronous task.
	SyncPrefix string
	// SyncFailure is the result of a synchronous task that got no response.
	SyncFailure string
	// SyncFailureState is the terminal state of a synchronous task that got no response.
	SyncFailureState a2a.TaskState
	// StreamPrefix precedes the work result of a streaming task.
	StreamPrefix string
	// StreamFailure is the result of a streaming task that got no response.
	StreamFailure string
}

// DefaultTemplates returns the templates of the Ollama agent.
func DefaultTemplates() Templates {
	return Templates{
		SyncPrefix:       "Ollama says: ",
		SyncFailure:      "Failed to get response from Ollama.",
		SyncFailureState: a2a.TaskStateCompleted,
		StreamPrefix:     "Ollama streaming: ",
		StreamFailure:    "Ollama streaming failed.",
	}
}

// TaskOption configures an [Executor] or a [Coordinator].
type TaskOption func(*taskConfig)

type taskConfig struct {
	logger    *slog.Logger
	tracer    trace.Tracer
	metrics   *telemetry.Metrics
	templates Templates
}

func newTaskConfig(opts []TaskOption) taskConfig {
	c := taskConfig{
		logger:    slog.Default(),
		tracer:    telemetry.Tracer(),
		templates: DefaultTemplates(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.metrics == nil {
		c.metrics = telemetry.NewMetrics(nil)
	}
	return c
}

// WithTaskLogger sets the [*slog.Logger] of task execution.
func WithTaskLogger(logger *slog.Logger) TaskOption {
	return func(c *taskConfig) {
		c.logger = logger
	}
}

// WithTaskTracer sets the [trace.Tracer] of task execution.
func WithTaskTracer(tracer trace.Tracer) TaskOption {
	return func(c *taskConfig) {
		c.tracer = tracer
	}
}

// WithTaskMetrics sets the metric instruments of task execution.
func WithTaskMetrics(metrics *telemetry.Metrics) TaskOption {
	return func(c *taskConfig) {
		c.metrics = metrics
	}
}

// WithTemplates sets the result texts of finished tasks.
func WithTemplates(templates Templates) TaskOption {
	return func(c *taskConfig) {
		c.templates = templates
	}
}

// call runs fn and records its duration. A panic in fn is logged and
// reported as an absent response.
func (c *taskConfig) call(ctx context.Context, taskID string, fn WorkFunc, text string) (value string, ok bool) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			c.logger.ErrorContext(ctx, "work function panicked", "task_id", taskID, "panic", r)
			value, ok = "", false
		}
		c.metrics.WorkDone(ctx, time.Since(start), ok)
	}()
	return fn(ctx, text)
}

// Executor runs a task to completion within the caller's request.
type Executor struct {
	store task.TaskStore
	taskConfig
}

// NewExecutor creates a new Executor writing to store.
func NewExecutor(store task.TaskStore, opts ...TaskOption) *Executor {
	return &Executor{
		store:      store,
		taskConfig: newTaskConfig(opts),
	}
}

// Run creates the task if needed, calls fn exactly once with the text of msg
// and records its result as the task's terminal state. A new task keeps a
// copy of msg as its first history entry.
//
// If the task had already finished, the stored result is returned unchanged.
func (e *Executor) Run(ctx context.Context, taskID, sessionID string, msg *a2a.Message, fn WorkFunc) (*a2a.Task, error) {
	ctx, span := e.tracer.Start(ctx, "a2a.executor.Run",
		trace.WithAttributes(telemetry.TaskIDKey.String(taskID)))
	defer span.End()

	if _, err := e.store.Upsert(ctx, taskID, sessionID, msg); err != nil {
		return nil, err
	}
	e.metrics.TaskStarted(ctx, telemetry.ModeSync)

	value, ok := e.call(ctx, taskID, fn, msg.Text())

	state, text := a2a.TaskStateCompleted, e.templates.SyncPrefix+value
	if !ok {
		state, text = e.templates.SyncFailureState, e.templates.SyncFailure
	}

	t, err := task.NewTaskUpdater(taskID, e.store, nil, e.logger).Finish(ctx, state, text)
	if err != nil {
		return nil, err
	}
	e.metrics.TaskFinished(ctx, telemetry.ModeSync, string(t.Status.State))

	e.logger.InfoContext(ctx, "task finished", "task_id", taskID, "state", t.Status.State, "mode", telemetry.ModeSync)
	return t, nil
}
