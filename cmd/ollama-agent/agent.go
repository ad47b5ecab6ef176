// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/go-a2a/a2a-ollama"
	"github.com/go-a2a/a2a-ollama/config"
	"github.com/go-a2a/a2a-ollama/internal/telemetry"
	"github.com/go-a2a/a2a-ollama/internal/worker"
	"github.com/go-a2a/a2a-ollama/llm"
	"github.com/go-a2a/a2a-ollama/server"
	"github.com/go-a2a/a2a-ollama/server/event"
	"github.com/go-a2a/a2a-ollama/server/task"
)

// agent owns the long-lived pieces behind the HTTP handler.
type agent struct {
	handler http.Handler
	store   *task.InMemoryTaskStore
	queues  *event.InMemoryQueueManager
	workers *worker.Group
	logger  *slog.Logger
}

func newAgent(cfg *config.Config, gen llm.Generator, logger *slog.Logger) (*agent, error) {
	store := task.NewInMemoryTaskStore(task.WithStoreLogger(logger))
	queues := event.NewInMemoryQueueManager(event.WithManagerLogger(logger))
	workers := worker.New(cfg.Task.MaxWorkers, logger)

	opts := []server.TaskOption{
		server.WithTaskLogger(logger),
		server.WithTaskMetrics(telemetry.NewMetrics(nil)),
		server.WithTemplates(cfg.Templates()),
	}
	tm := server.NewAgentTaskManager(
		store,
		server.NewExecutor(store, opts...),
		server.NewCoordinator(store, queues, workers, opts...),
		llm.WorkFunc(gen, logger, cfg.Backend.Timeout),
	).WithLogger(logger)

	srv, err := server.NewServer(cfg.AgentCard(), tm,
		server.WithEndpoint(cfg.Server.Endpoint),
		server.WithLogger(logger),
		server.WithMaxRequestBytes(cfg.Server.MaxRequestBytes),
	)
	if err != nil {
		return nil, err
	}

	handler, err := wrapHandler(srv, cfg.Server.Gzip)
	if err != nil {
		return nil, err
	}

	return &agent{
		handler: handler,
		store:   store,
		queues:  queues,
		workers: workers,
		logger:  logger,
	}, nil
}

// wrapHandler adds response compression, leaving event streams untouched,
// and accepts HTTP/2 without TLS.
func wrapHandler(h http.Handler, gzip bool) (http.Handler, error) {
	if gzip {
		wrap, err := gzhttp.NewWrapper(
			gzhttp.MinSize(1024),
			gzhttp.ExceptContentTypes([]string{a2a.ContentTypeEventStream}),
		)
		if err != nil {
			return nil, fmt.Errorf("gzip handler: %w", err)
		}
		h = wrap(h)
	}
	return h2c.NewHandler(h, &http2.Server{}), nil
}

// sweepLoop periodically drops finished streams older than maxAge.
func (a *agent) sweepLoop(ctx context.Context, maxAge time.Duration) {
	interval := max(maxAge/2, time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.queues.Sweep(maxAge); n > 0 {
				a.logger.DebugContext(ctx, "swept finished streams", "count", n, "tasks", a.store.Len())
			}
		}
	}
}

// close waits for running tasks and releases every open stream.
func (a *agent) close(ctx context.Context) error {
	var errs []error
	if err := a.workers.Wait(ctx); err != nil {
		errs = append(errs, fmt.Errorf("wait for tasks: %w", err))
	}
	if err := a.queues.CloseAll(); err != nil {
		errs = append(errs, fmt.Errorf("close streams: %w", err))
	}
	return errors.Join(errs...)
}
