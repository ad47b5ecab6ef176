// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/go-a2a/a2a-ollama"
)

// entry guards a single stored task.
type entry struct {
	mu   sync.Mutex
	task *a2a.Task
}

// InMemoryTaskStore is an in-memory implementation of TaskStore.
// Task data is lost when the server process stops.
//
// The map lock only covers entry lookup and insertion; each task is
// serialized by its own entry lock, so writes to different tasks never
// contend.
type InMemoryTaskStore struct {
	mu      sync.RWMutex
	entries map[string]*entry

	logger *slog.Logger
	now    func() time.Time
}

var _ TaskStore = (*InMemoryTaskStore)(nil)

// InMemoryTaskStoreOption configures an InMemoryTaskStore.
type InMemoryTaskStoreOption func(*InMemoryTaskStore)

// WithStoreLogger sets the logger of the store.
func WithStoreLogger(logger *slog.Logger) InMemoryTaskStoreOption {
	return func(s *InMemoryTaskStore) {
		s.logger = logger
	}
}

// WithClock sets the clock used to stamp status updates.
func WithClock(now func() time.Time) InMemoryTaskStoreOption {
	return func(s *InMemoryTaskStore) {
		s.now = now
	}
}

// NewInMemoryTaskStore creates a new InMemoryTaskStore.
func NewInMemoryTaskStore(opts ...InMemoryTaskStoreOption) *InMemoryTaskStore {
	s := &InMemoryTaskStore{
		entries: make(map[string]*entry),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upsert implements [TaskStore].
func (s *InMemoryTaskStore) Upsert(ctx context.Context, id, sessionID string, initial *a2a.Message) (*a2a.Task, error) {
	if id == "" {
		return nil, fmt.Errorf("task ID cannot be empty")
	}

	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		e = &entry{task: s.newTask(id, sessionID, initial)}
		s.entries[id] = e
	}
	s.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if ok {
		s.logger.DebugContext(ctx, "task exists", "task_id", id, "state", e.task.Status.State)
	} else {
		s.logger.InfoContext(ctx, "task created", "task_id", id, "session_id", sessionID)
	}
	return e.task.Clone(), nil
}

func (s *InMemoryTaskStore) newTask(id, sessionID string, initial *a2a.Message) *a2a.Task {
	t := &a2a.Task{
		ID:        id,
		SessionID: sessionID,
		Status: a2a.TaskStatus{
			State:     a2a.TaskStateSubmitted,
			Message:   initial.Clone(),
			Timestamp: s.now().UTC(),
		},
		Artifacts: []a2a.Artifact{},
		History:   []*a2a.Message{},
	}
	if initial != nil {
		t.History = append(t.History, initial.Clone())
	}
	return t
}

// Get implements [TaskStore].
func (s *InMemoryTaskStore) Get(ctx context.Context, id string) (*a2a.Task, error) {
	e, ok := s.lookup(id)
	if !ok {
		return nil, a2a.TaskNotFoundError{TaskID: id}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.task.Clone(), nil
}

// SetStatusAndArtifacts implements [TaskStore].
func (s *InMemoryTaskStore) SetStatusAndArtifacts(ctx context.Context, id string, state a2a.TaskState, message *a2a.Message, artifacts []a2a.Artifact) (*a2a.Task, error) {
	e, ok := s.lookup(id)
	if !ok {
		return nil, NewUnknownTaskError(id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.task.Status.State
	if a2a.IsTerminalTaskState(current) {
		return nil, NewTaskAlreadyTerminalError(id, current)
	}
	if !a2a.CanTransition(current, state) {
		return nil, NewInvalidTransitionError(id, current, state)
	}

	e.task.Status = a2a.TaskStatus{
		State:     state,
		Message:   message.Clone(),
		Timestamp: s.now().UTC(),
	}
	e.task.Artifacts = make([]a2a.Artifact, len(artifacts))
	for i, a := range artifacts {
		e.task.Artifacts[i] = a.Clone()
	}
	if message != nil {
		e.task.History = append(e.task.History, message.Clone())
	}

	s.logger.InfoContext(ctx, "task updated", "task_id", id, "from", current, "state", state)

	return e.task.Clone(), nil
}

// List implements [TaskStore].
func (s *InMemoryTaskStore) List(ctx context.Context, sessionID string) ([]*a2a.Task, error) {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	tasks := make([]*a2a.Task, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if sessionID == "" || e.task.SessionID == sessionID {
			tasks = append(tasks, e.task.Clone())
		}
		e.mu.Unlock()
	}
	slices.SortFunc(tasks, func(a, b *a2a.Task) int {
		return cmp.Compare(a.ID, b.ID)
	})

	return tasks, nil
}

// Len implements [TaskStore].
func (s *InMemoryTaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

func (s *InMemoryTaskStore) lookup(id string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	return e, ok
}
