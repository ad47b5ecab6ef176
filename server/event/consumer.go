// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"
)

// EventConsumer reads the events of a single tapped queue.
type EventConsumer struct {
	queue   *EventQueue
	release func()

	started   atomic.Bool
	closeOnce sync.Once
}

// NewEventConsumer creates a new EventConsumer reading queue.
// release, if not nil, is called exactly once when the consumer is closed.
func NewEventConsumer(queue *EventQueue, release func()) *EventConsumer {
	return &EventConsumer{
		queue:   queue,
		release: release,
	}
}

// ConsumeOne returns the next buffered event without waiting.
// Returns ErrQueueEmpty if no event is available.
func (c *EventConsumer) ConsumeOne(ctx context.Context) (*Event, error) {
	return c.queue.Dequeue(ctx, true)
}

// ConsumeAll returns a lazy sequence over the events of the queue.
//
// The sequence blocks while the queue is empty and ends after yielding a
// final event, when the queue is closed, or when ctx is done, in which case
// ctx.Err() is yielded. It can be ranged over only once; the consumer is
// closed when the iteration ends.
func (c *EventConsumer) ConsumeAll(ctx context.Context) iter.Seq2[*Event, error] {
	return func(yield func(*Event, error) bool) {
		if !c.started.CompareAndSwap(false, true) {
			yield(nil, ErrConsumerClosed)
			return
		}
		defer c.Close()

		for {
			ev, err := c.queue.Dequeue(ctx, false)
			if err != nil {
				if errors.Is(err, ErrQueueClosed) {
					return
				}
				yield(nil, err)
				return
			}
			if !yield(ev, nil) || ev.Final {
				return
			}
		}
	}
}

// Close releases the underlying queue.
func (c *EventConsumer) Close() {
	c.closeOnce.Do(func() {
		if c.release != nil {
			c.release()
		} else {
			c.queue.Close()
		}
	})
}

// String returns a string representation of the consumer.
func (c *EventConsumer) String() string {
	return fmt.Sprintf("EventConsumer{started: %t, queue: %s}", c.started.Load(), c.queue.String())
}
