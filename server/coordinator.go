// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"errors"
	"iter"

	"go.opentelemetry.io/otel/trace"

	"github.com/go-a2a/a2a-ollama"
	"github.com/go-a2a/a2a-ollama/internal/telemetry"
	"github.com/go-a2a/a2a-ollama/internal/worker"
	"github.com/go-a2a/a2a-ollama/server/event"
	"github.com/go-a2a/a2a-ollama/server/task"
)

// Coordinator runs tasks on detached workers and streams their status
// updates to subscribers.
type Coordinator struct {
	store   task.TaskStore
	queues  event.QueueManager
	workers *worker.Group
	taskConfig
}

// NewCoordinator creates a new Coordinator.
func NewCoordinator(store task.TaskStore, queues event.QueueManager, workers *worker.Group, opts ...TaskOption) *Coordinator {
	return &Coordinator{
		store:      store,
		queues:     queues,
		workers:    workers,
		taskConfig: newTaskConfig(opts),
	}
}

// Subscribe creates the task if needed, starts a worker calling fn with the
// text of msg and returns the sequence of the task's status updates.
//
// The sequence is lazy and single-pass. It ends after the final event, or
// yields ctx.Err() when ctx is done. The worker keeps running when the
// subscriber goes away. Callers must range over the sequence to release
// the subscription.
//
// If another subscriber is already streaming the task, the caller joins
// that stream and no new worker is started. A task that has already
// finished yields its stored status as a single final event.
func (c *Coordinator) Subscribe(ctx context.Context, taskID, sessionID string, msg *a2a.Message, fn WorkFunc) (iter.Seq2[*a2a.TaskStatusUpdateEvent, error], error) {
	ctx, span := c.tracer.Start(ctx, "a2a.coordinator.Subscribe",
		trace.WithAttributes(telemetry.TaskIDKey.String(taskID)))
	defer span.End()

	t, err := c.store.Upsert(ctx, taskID, sessionID, msg)
	if err != nil {
		return nil, err
	}
	if t.IsTerminal() {
		c.logger.InfoContext(ctx, "replaying finished task", "task_id", taskID, "state", t.Status.State)
		return replay(t), nil
	}

	q, err := c.queues.Create(taskID)
	if err != nil {
		if !errors.Is(err, &event.TaskQueueExistsError{}) {
			return nil, err
		}
		c.logger.InfoContext(ctx, "joining running stream", "task_id", taskID)
		if q, err = c.queues.Tap(taskID); err != nil {
			return nil, err
		}
		return c.consume(ctx, taskID, q), nil
	}

	// a stream that ended after Upsert has already stored the terminal status
	if cur, err := c.store.Get(ctx, taskID); err == nil && cur.IsTerminal() {
		if err := c.publish(ctx, taskID, event.NewStatusEvent(cur.ID, cur.Status, true)); err != nil {
			c.queues.Release(taskID, q)
			_ = c.queues.Close(taskID)
			return nil, err
		}
		return c.consume(ctx, taskID, q), nil
	}

	text := msg.Text()
	seq := c.consume(ctx, taskID, q)
	if err := c.workers.Go(ctx, "stream:"+taskID, func(wctx context.Context) {
		c.work(wctx, taskID, text, fn)
	}); err != nil {
		c.queues.Release(taskID, q)
		_ = c.queues.Close(taskID)
		return nil, err
	}
	c.metrics.TaskStarted(ctx, telemetry.ModeStream)

	return seq, nil
}

// work calls fn and publishes the task's terminal status.
func (c *Coordinator) work(ctx context.Context, taskID, userText string, fn WorkFunc) {
	value, ok := c.call(ctx, taskID, fn, userText)
	updater := task.NewTaskUpdater(taskID, c.store, publisherFunc(c.publish), c.logger)

	var (
		t   *a2a.Task
		err error
	)
	if ok {
		t, err = updater.Complete(ctx, c.templates.StreamPrefix+value)
	} else {
		t, err = updater.Fail(ctx, c.templates.StreamFailure)
	}
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to finish streaming task", "task_id", taskID, "error", err)
	}
	if t != nil {
		c.metrics.TaskFinished(ctx, telemetry.ModeStream, string(t.Status.State))
		c.logger.InfoContext(ctx, "task finished", "task_id", taskID, "state", t.Status.State, "mode", telemetry.ModeStream)
	}
}

func (c *Coordinator) publish(ctx context.Context, taskID string, ev *a2a.TaskStatusUpdateEvent) error {
	if err := c.queues.Enqueue(ctx, taskID, ev); err != nil {
		return err
	}
	c.metrics.EventEnqueued(ctx)
	return nil
}

// Resubscribe attaches to the status updates of a task.
//
// A task streamed right now yields its future events. A finished task whose
// stream is gone yields a single final event built from its stored status.
// Any other task is reported as a2a.TaskNotFoundError.
func (c *Coordinator) Resubscribe(ctx context.Context, taskID string) (iter.Seq2[*a2a.TaskStatusUpdateEvent, error], error) {
	ctx, span := c.tracer.Start(ctx, "a2a.coordinator.Resubscribe",
		trace.WithAttributes(telemetry.TaskIDKey.String(taskID)))
	defer span.End()

	q, err := c.queues.Tap(taskID)
	if err == nil {
		return c.consume(ctx, taskID, q), nil
	}
	if !errors.Is(err, &event.NoTaskQueueError{}) {
		return nil, err
	}

	t, err := c.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !t.IsTerminal() {
		return nil, a2a.TaskNotFoundError{TaskID: taskID}
	}

	return replay(t), nil
}

// replay returns a sequence holding the final event of the finished task t.
func replay(t *a2a.Task) iter.Seq2[*a2a.TaskStatusUpdateEvent, error] {
	final := event.NewStatusEvent(t.ID, t.Status, true)
	return func(yield func(*a2a.TaskStatusUpdateEvent, error) bool) {
		yield(final, nil)
	}
}

func (c *Coordinator) consume(ctx context.Context, taskID string, q *event.EventQueue) iter.Seq2[*a2a.TaskStatusUpdateEvent, error] {
	consumer := event.NewEventConsumer(q, func() { c.queues.Release(taskID, q) })
	events := consumer.ConsumeAll(ctx)

	return func(yield func(*a2a.TaskStatusUpdateEvent, error) bool) {
		c.metrics.StreamOpened(ctx)
		defer c.metrics.StreamClosed(ctx)

		for ev, err := range events {
			if !yield(ev, err) {
				return
			}
		}
	}
}

// publisherFunc adapts a function to [task.Publisher].
type publisherFunc func(ctx context.Context, taskID string, ev *a2a.TaskStatusUpdateEvent) error

func (f publisherFunc) Enqueue(ctx context.Context, taskID string, ev *a2a.TaskStatusUpdateEvent) error {
	return f(ctx, taskID, ev)
}
