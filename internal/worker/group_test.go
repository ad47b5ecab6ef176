// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type ctxKey struct{}

func TestGroupDetachesContext(t *testing.T) {
	t.Parallel()

	g := New(0, nil)
	parent, cancel := context.WithCancel(context.WithValue(t.Context(), ctxKey{}, "v"))

	started := make(chan struct{})
	result := make(chan error, 1)
	if err := g.Go(parent, "detached", func(ctx context.Context) {
		close(started)
		time.Sleep(20 * time.Millisecond)
		if ctx.Value(ctxKey{}) != "v" {
			result <- errors.New("context value lost")
			return
		}
		result <- ctx.Err()
	}); err != nil {
		t.Fatalf("Go: %v", err)
	}

	<-started
	cancel()

	if err := <-result; err != nil {
		t.Errorf("worker context error = %v, want nil", err)
	}
}

func TestGroupLimit(t *testing.T) {
	t.Parallel()

	g := New(2, nil)
	var running, peak atomic.Int64

	for range 6 {
		if err := g.Go(t.Context(), "limited", func(context.Context) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
		}); err != nil {
			t.Fatalf("Go: %v", err)
		}
	}

	if err := g.Wait(t.Context()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if got := peak.Load(); got > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", got)
	}
}

func TestGroupRecoversPanic(t *testing.T) {
	t.Parallel()

	g := New(0, nil)
	if err := g.Go(t.Context(), "panicky", func(context.Context) {
		panic("boom")
	}); err != nil {
		t.Fatalf("Go: %v", err)
	}
	if err := g.Wait(t.Context()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestGroupWaitClosesGroup(t *testing.T) {
	t.Parallel()

	g := New(0, nil)
	if err := g.Wait(t.Context()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if err := g.Go(t.Context(), "late", func(context.Context) {}); !errors.Is(err, ErrGroupClosed) {
		t.Errorf("Go after Wait error = %v, want ErrGroupClosed", err)
	}
}

func TestGroupWaitTimeout(t *testing.T) {
	t.Parallel()

	g := New(0, nil)
	release := make(chan struct{})
	defer close(release)
	if err := g.Go(t.Context(), "slow", func(context.Context) { <-release }); err != nil {
		t.Fatalf("Go: %v", err)
	}

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	if err := g.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait error = %v, want DeadlineExceeded", err)
	}
}
