// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

type topic struct {
	taps      []*EventQueue
	pending   []*Event
	final     bool
	finalAt   time.Time
	createdAt time.Time
}

// InMemoryQueueManager is an in-memory implementation of QueueManager.
type InMemoryQueueManager struct {
	mu     sync.Mutex
	topics map[string]*topic

	logger *slog.Logger
	now    func() time.Time
}

var _ QueueManager = (*InMemoryQueueManager)(nil)

// InMemoryQueueManagerOption configures an InMemoryQueueManager.
type InMemoryQueueManagerOption func(*InMemoryQueueManager)

// WithManagerLogger sets the logger of the manager.
func WithManagerLogger(logger *slog.Logger) InMemoryQueueManagerOption {
	return func(m *InMemoryQueueManager) {
		m.logger = logger
	}
}

// WithManagerClock sets the clock used to age buffered final events.
func WithManagerClock(now func() time.Time) InMemoryQueueManagerOption {
	return func(m *InMemoryQueueManager) {
		m.now = now
	}
}

// NewInMemoryQueueManager creates a new InMemoryQueueManager.
func NewInMemoryQueueManager(opts ...InMemoryQueueManagerOption) *InMemoryQueueManager {
	m := &InMemoryQueueManager{
		topics: make(map[string]*topic),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create implements [QueueManager].
func (m *InMemoryQueueManager) Create(taskID string) (*EventQueue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.topics[taskID]; ok {
		return nil, &TaskQueueExistsError{TaskID: taskID}
	}

	q := m.newTap(taskID)
	m.topics[taskID] = &topic{
		taps:      []*EventQueue{q},
		createdAt: m.now(),
	}
	m.logger.Debug("task queue created", "task_id", taskID)

	return q, nil
}

// Tap implements [QueueManager].
func (m *InMemoryQueueManager) Tap(taskID string) (*EventQueue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.topics[taskID]
	if !ok {
		return nil, &NoTaskQueueError{TaskID: taskID}
	}

	q := m.newTap(taskID)
	for _, ev := range t.pending {
		// a fresh queue is open, so Enqueue cannot fail
		_ = q.Enqueue(ev)
	}
	t.pending = nil

	if t.final {
		q.Close()
		delete(m.topics, taskID)
		m.logger.Debug("task queue retired", "task_id", taskID)
		return q, nil
	}

	t.taps = append(t.taps, q)
	return q, nil
}

// Release implements [QueueManager].
func (m *InMemoryQueueManager) Release(taskID string, queue *EventQueue) {
	queue.Close()

	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.topics[taskID]
	if !ok {
		return
	}
	t.taps = slices.DeleteFunc(t.taps, func(q *EventQueue) bool {
		return q == queue
	})
}

// Enqueue implements [QueueManager].
func (m *InMemoryQueueManager) Enqueue(ctx context.Context, taskID string, ev *Event) error {
	if ev == nil {
		return fmt.Errorf("event cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.topics[taskID]
	if !ok {
		return &NoTaskQueueError{TaskID: taskID}
	}
	if t.final {
		return ErrFinalEventSent
	}

	delivered := 0
	for _, q := range t.taps {
		if err := q.Enqueue(ev); err == nil {
			delivered++
		}
	}
	if delivered == 0 {
		t.pending = append(t.pending, ev)
		m.logger.DebugContext(ctx, "event buffered", "task_id", taskID, "final", ev.Final)
	}

	if !ev.Final {
		return nil
	}

	t.final = true
	t.finalAt = m.now()
	if delivered > 0 {
		m.retire(taskID, t)
	}
	return nil
}

// Get implements [QueueManager].
func (m *InMemoryQueueManager) Get(taskID string) (QueueInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.topics[taskID]
	if !ok {
		return QueueInfo{}, false
	}
	return QueueInfo{
		TaskID:    taskID,
		Taps:      len(t.taps),
		Pending:   len(t.pending),
		Final:     t.final,
		CreatedAt: t.createdAt,
	}, true
}

// Close implements [QueueManager].
func (m *InMemoryQueueManager) Close(taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.topics[taskID]
	if !ok {
		return &NoTaskQueueError{TaskID: taskID}
	}
	m.retire(taskID, t)
	return nil
}

// Exists implements [QueueManager].
func (m *InMemoryQueueManager) Exists(taskID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.topics[taskID]
	return ok
}

// List implements [QueueManager].
func (m *InMemoryQueueManager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.topics))
	for id := range m.topics {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Count implements [QueueManager].
func (m *InMemoryQueueManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.topics)
}

// CloseAll implements [QueueManager].
func (m *InMemoryQueueManager) CloseAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, t := range m.topics {
		m.retire(id, t)
	}
	return nil
}

// Sweep implements [QueueManager].
func (m *InMemoryQueueManager) Sweep(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxAge)
	swept := 0
	for id, t := range m.topics {
		if t.final && t.finalAt.Before(cutoff) {
			m.retire(id, t)
			swept++
		}
	}
	if swept > 0 {
		m.logger.Info("swept undelivered task queues", "count", swept)
	}
	return swept
}

// String returns a string representation of the manager.
func (m *InMemoryQueueManager) String() string {
	return fmt.Sprintf("InMemoryQueueManager{topics: %d}", m.Count())
}

func (m *InMemoryQueueManager) newTap(taskID string) *EventQueue {
	return NewEventQueueWithName(fmt.Sprintf("TaskQueue-%s", taskID))
}

// retire closes every tap of t and forgets it. m.mu must be held.
func (m *InMemoryQueueManager) retire(taskID string, t *topic) {
	for _, q := range t.taps {
		q.Close()
	}
	t.taps = nil
	delete(m.topics, taskID)
	m.logger.Debug("task queue retired", "task_id", taskID)
}
