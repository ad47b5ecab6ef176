// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// EventQueue is an unbounded queue of events read by a single consumer.
//
// Enqueue never blocks. Dequeue blocks while the queue is empty and, once the
// queue is closed, keeps returning buffered events before reporting
// [ErrQueueClosed].
type EventQueue struct {
	name string

	mu     sync.Mutex
	events []*Event
	closed bool

	signal chan struct{} // cap 1, never closed
	done   chan struct{} // closed by Close
}

// NewEventQueue creates a new EventQueue.
func NewEventQueue() *EventQueue {
	q := &EventQueue{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	q.name = fmt.Sprintf("EventQueue-%p", q)
	return q
}

// NewEventQueueWithName creates a new EventQueue with the specified name.
func NewEventQueueWithName(name string) *EventQueue {
	q := NewEventQueue()
	q.name = name
	return q
}

// Enqueue appends ev to the queue.
func (q *EventQueue) Enqueue(ev *Event) error {
	if ev == nil {
		return fmt.Errorf("event cannot be nil")
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.events = append(q.events, ev)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return nil
}

// Dequeue removes and returns the oldest event.
// If noWait is true, it returns immediately with ErrQueueEmpty if no event is available.
// If noWait is false, it blocks until an event is available, the queue is closed,
// or ctx is done.
func (q *EventQueue) Dequeue(ctx context.Context, noWait bool) (*Event, error) {
	for {
		q.mu.Lock()
		if len(q.events) > 0 {
			ev := q.events[0]
			q.events[0] = nil
			q.events = q.events[1:]
			q.mu.Unlock()
			return ev, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return nil, ErrQueueClosed
		}
		if noWait {
			return nil, ErrQueueEmpty
		}

		select {
		case <-q.signal:
		case <-q.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// DequeueWithTimeout retrieves an event from the queue with a timeout.
func (q *EventQueue) DequeueWithTimeout(timeout time.Duration) (*Event, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return q.Dequeue(ctx, false)
}

// Close closes the queue. Events already buffered stay readable.
func (q *EventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.done)
	}
}

// IsClosed reports whether the queue is closed.
func (q *EventQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the number of buffered events.
func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Name returns the name of the queue.
func (q *EventQueue) Name() string {
	return q.name
}

// String returns a string representation of the queue.
func (q *EventQueue) String() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return fmt.Sprintf("EventQueue{name: %s, len: %d, closed: %t}", q.name, len(q.events), q.closed)
}
