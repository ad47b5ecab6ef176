// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric/noop"
)

func TestMetricsWithNoopMeter(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	m := NewMetrics(noop.NewMeterProvider().Meter("test"))

	m.TaskStarted(ctx, ModeSync)
	m.TaskFinished(ctx, ModeSync, "completed")
	m.EventEnqueued(ctx)
	m.StreamOpened(ctx)
	m.StreamClosed(ctx)
	m.WorkDone(ctx, time.Millisecond, false)
}

func TestMetricsWithGlobalMeter(t *testing.T) {
	t.Parallel()

	if NewMetrics(nil) == nil {
		t.Fatal("NewMetrics(nil) = nil")
	}
	if Tracer() == nil {
		t.Fatal("Tracer() = nil")
	}
}
