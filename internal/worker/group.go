// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package worker runs detached background workers.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrGroupClosed is returned by [Group.Go] once [Group.Wait] has been called.
var ErrGroupClosed = errors.New("worker group is closed")

// Group runs workers that outlive the request that started them.
//
// Go never blocks the caller. When a limit is set, workers beyond it wait in
// their own goroutine for a free slot.
type Group struct {
	sem    chan struct{}
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
	active atomic.Int64
}

// New returns a Group running at most limit workers at once.
// A limit of zero or less means no limit.
func New(limit int, logger *slog.Logger) *Group {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Group{logger: logger}
	if limit > 0 {
		g.sem = make(chan struct{}, limit)
	}
	return g
}

// Go starts fn in a new goroutine.
//
// fn receives a context that carries the values of ctx but is never canceled
// with it. A panic in fn is recovered and logged.
func (g *Group) Go(ctx context.Context, name string, fn func(ctx context.Context)) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return ErrGroupClosed
	}

	wctx := context.WithoutCancel(ctx)
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()

		if g.sem != nil {
			g.sem <- struct{}{}
			defer func() { <-g.sem }()
		}

		g.active.Add(1)
		defer g.active.Add(-1)

		defer func() {
			if r := recover(); r != nil {
				g.logger.ErrorContext(wctx, "worker panicked", "worker", name, "panic", fmt.Sprint(r))
			}
		}()

		fn(wctx)
	}()

	return nil
}

// Active returns the number of workers currently running.
func (g *Group) Active() int {
	return int(g.active.Load())
}

// Wait stops accepting new workers and blocks until every started worker
// returns or ctx is done.
func (g *Group) Wait(ctx context.Context) error {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for %d workers: %w", g.Active(), ctx.Err())
	}
}
