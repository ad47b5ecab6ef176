// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry holds the OpenTelemetry instruments of the agent.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName is the name under which tracers and meters are obtained.
const InstrumentationName = "github.com/go-a2a/a2a-ollama"

// Attribute keys.
const (
	TaskIDKey  = attribute.Key("a2a.task_id")
	MethodKey  = attribute.Key("a2a.method")
	ModeKey    = attribute.Key("a2a.mode")
	StateKey   = attribute.Key("a2a.state")
	OutcomeKey = attribute.Key("a2a.outcome")
)

// Execution modes.
const (
	ModeSync   = "sync"
	ModeStream = "stream"
)

// Tracer returns the tracer of the agent from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// Metrics groups the metric instruments of the agent.
type Metrics struct {
	tasksStarted   metric.Int64Counter
	tasksFinished  metric.Int64Counter
	eventsEnqueued metric.Int64Counter
	openStreams    metric.Int64UpDownCounter
	workDuration   metric.Float64Histogram
}

// NewMetrics creates the instruments on m. Instruments that cannot be created
// are reported through [otel.Handle] and replaced by no-ops.
// A nil m uses the meter of the global provider.
func NewMetrics(m metric.Meter) *Metrics {
	if m == nil {
		m = otel.Meter(InstrumentationName)
	}

	var (
		ms  Metrics
		err error
	)

	ms.tasksStarted, err = m.Int64Counter("a2a.tasks.started",
		metric.WithDescription("Count of started tasks"),
	)
	if err != nil {
		otel.Handle(err)
		ms.tasksStarted = noop.Int64Counter{}
	}

	ms.tasksFinished, err = m.Int64Counter("a2a.tasks.finished",
		metric.WithDescription("Count of tasks that reached a terminal state"),
	)
	if err != nil {
		otel.Handle(err)
		ms.tasksFinished = noop.Int64Counter{}
	}

	ms.eventsEnqueued, err = m.Int64Counter("a2a.events.enqueued",
		metric.WithDescription("Count of status-update events published"),
	)
	if err != nil {
		otel.Handle(err)
		ms.eventsEnqueued = noop.Int64Counter{}
	}

	ms.openStreams, err = m.Int64UpDownCounter("a2a.streams.open",
		metric.WithDescription("Number of open event streams"),
	)
	if err != nil {
		otel.Handle(err)
		ms.openStreams = noop.Int64UpDownCounter{}
	}

	ms.workDuration, err = m.Float64Histogram("a2a.work.duration",
		metric.WithDescription("Latency of the work function"),
		metric.WithUnit("s"),
	)
	if err != nil {
		otel.Handle(err)
		ms.workDuration = noop.Float64Histogram{}
	}

	return &ms
}

// TaskStarted records the start of a task in mode.
func (m *Metrics) TaskStarted(ctx context.Context, mode string) {
	m.tasksStarted.Add(ctx, 1, metric.WithAttributes(ModeKey.String(mode)))
}

// TaskFinished records a task reaching state.
func (m *Metrics) TaskFinished(ctx context.Context, mode, state string) {
	m.tasksFinished.Add(ctx, 1, metric.WithAttributes(ModeKey.String(mode), StateKey.String(state)))
}

// EventEnqueued records a published status-update event.
func (m *Metrics) EventEnqueued(ctx context.Context) {
	m.eventsEnqueued.Add(ctx, 1)
}

// StreamOpened records a subscriber attaching to a task.
func (m *Metrics) StreamOpened(ctx context.Context) {
	m.openStreams.Add(ctx, 1)
}

// StreamClosed records a subscriber detaching from a task.
func (m *Metrics) StreamClosed(ctx context.Context) {
	m.openStreams.Add(ctx, -1)
}

// WorkDone records the latency of one work-function call and whether it produced a value.
func (m *Metrics) WorkDone(ctx context.Context, d time.Duration, ok bool) {
	outcome := "value"
	if !ok {
		outcome = "absent"
	}
	m.workDuration.Record(ctx, d.Seconds(), metric.WithAttributes(OutcomeKey.String(outcome)))
}
