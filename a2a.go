// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package a2a provides the Agent-to-Agent (A2A) v0.1 protocol types used by
// the Ollama agent: tasks, their status lifecycle, messages, artifacts and the
// status-update events streamed to subscribers.
package a2a

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Version is the current version of the A2A protocol.
const Version = "0.1.0"

// TaskState represents the state of a Task.
type TaskState string

const (
	// TaskStateSubmitted indicates the task has been received but not started.
	TaskStateSubmitted TaskState = "submitted"

	// TaskStateWorking indicates the task is being worked on.
	TaskStateWorking TaskState = "working"

	// TaskStateInputRequired indicates the agent is waiting for more input.
	TaskStateInputRequired TaskState = "input-required"

	// TaskStateCompleted indicates the task has been completed.
	TaskStateCompleted TaskState = "completed"

	// TaskStateCanceled indicates the task has been canceled.
	TaskStateCanceled TaskState = "canceled"

	// TaskStateFailed indicates the task ended in error.
	TaskStateFailed TaskState = "failed"

	// TaskStateUnknown is reported for tasks whose state cannot be determined.
	TaskStateUnknown TaskState = "unknown"
)

// IsTerminalTaskState reports whether state is terminal. Terminal states absorb:
// no further transition is permitted out of them.
func IsTerminalTaskState(state TaskState) bool {
	switch state {
	case TaskStateCompleted, TaskStateCanceled, TaskStateFailed:
		return true
	default:
		return false
	}
}

// transitions lists the states reachable from each non-terminal state.
var transitions = map[TaskState][]TaskState{
	TaskStateSubmitted: {
		TaskStateWorking,
		TaskStateInputRequired,
		TaskStateCompleted,
		TaskStateCanceled,
		TaskStateFailed,
	},
	TaskStateWorking: {
		TaskStateWorking,
		TaskStateInputRequired,
		TaskStateCompleted,
		TaskStateCanceled,
		TaskStateFailed,
	},
	TaskStateInputRequired: {
		TaskStateWorking,
		TaskStateCompleted,
		TaskStateCanceled,
		TaskStateFailed,
	},
}

// CanTransition reports whether a task in state from may move to state to.
func CanTransition(from, to TaskState) bool {
	return slices.Contains(transitions[from], to)
}

// Role identifies the author of a Message.
type Role string

const (
	// RoleUser marks a message written by the caller.
	RoleUser Role = "user"

	// RoleAgent marks a message written by the agent.
	RoleAgent Role = "agent"
)

// PartTypeText is the type tag of a text Part.
const PartTypeText = "text"

// Part is a tagged content unit of a Message or Artifact.
// Only the text variant is produced by this agent.
type Part struct {
	Type     string         `json:"type"`
	Text     string         `json:"text,omitempty"`
	Metadata map[string]any `json:"metadata,omitzero"`
}

// NewTextPart returns a text Part.
func NewTextPart(text string) Part {
	return Part{
		Type: PartTypeText,
		Text: text,
	}
}

// Message is a single turn of communication between a user and the agent.
type Message struct {
	Role     Role           `json:"role"`
	Parts    []Part         `json:"parts"`
	Metadata map[string]any `json:"metadata,omitzero"`
}

// NewTextMessage returns a Message with a single text part.
func NewTextMessage(role Role, text string) *Message {
	return &Message{
		Role:  role,
		Parts: []Part{NewTextPart(text)},
	}
}

// Text returns the concatenated text of every text part of m.
func (m *Message) Text() string {
	if m == nil {
		return ""
	}

	var sb strings.Builder
	for _, p := range m.Parts {
		if p.Type == PartTypeText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// Validate ensures the Message is valid.
func (m *Message) Validate() error {
	if m == nil {
		return fmt.Errorf("message cannot be nil")
	}
	if m.Role != RoleUser && m.Role != RoleAgent {
		return fmt.Errorf("invalid message role: %q", m.Role)
	}
	if len(m.Parts) == 0 {
		return fmt.Errorf("message must have at least one part")
	}
	for i, p := range m.Parts {
		if p.Type == "" {
			return fmt.Errorf("message part %d has no type", i)
		}
	}
	return nil
}

// Clone returns a deep copy of m.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}

	out := &Message{
		Role:     m.Role,
		Parts:    make([]Part, len(m.Parts)),
		Metadata: maps.Clone(m.Metadata),
	}
	for i, p := range m.Parts {
		p.Metadata = maps.Clone(p.Metadata)
		out.Parts[i] = p
	}
	return out
}

// TaskStatus is a TaskState and the latest agent-authored message.
type TaskStatus struct {
	State     TaskState `json:"state"`
	Message   *Message  `json:"message,omitzero"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// Validate ensures the TaskStatus is valid.
func (s TaskStatus) Validate() error {
	if s.State == "" {
		return fmt.Errorf("task status state cannot be empty")
	}
	if s.Message != nil {
		if err := s.Message.Validate(); err != nil {
			return fmt.Errorf("invalid status message: %w", err)
		}
	}
	return nil
}

// Clone returns a deep copy of s.
func (s TaskStatus) Clone() TaskStatus {
	s.Message = s.Message.Clone()
	return s
}

// Artifact is a deliverable result snapshot attached to a task.
type Artifact struct {
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	Parts       []Part         `json:"parts"`
	Index       int            `json:"index"`
	Append      bool           `json:"append,omitzero"`
	LastChunk   bool           `json:"lastChunk,omitzero"`
	Metadata    map[string]any `json:"metadata,omitzero"`
}

// NewTextArtifact returns an Artifact holding text as a single text part.
func NewTextArtifact(text string) Artifact {
	return Artifact{
		Parts: []Part{NewTextPart(text)},
	}
}

// Text returns the concatenated text of every text part of a.
func (a Artifact) Text() string {
	var sb strings.Builder
	for _, p := range a.Parts {
		if p.Type == PartTypeText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// Clone returns a deep copy of a.
func (a Artifact) Clone() Artifact {
	parts := make([]Part, len(a.Parts))
	for i, p := range a.Parts {
		p.Metadata = maps.Clone(p.Metadata)
		parts[i] = p
	}
	a.Parts = parts
	a.Metadata = maps.Clone(a.Metadata)
	return a
}

// Task is a unit of work identified by an opaque caller-supplied ID.
type Task struct {
	ID        string         `json:"id"`
	SessionID string         `json:"sessionId,omitempty"`
	Status    TaskStatus     `json:"status"`
	Artifacts []Artifact     `json:"artifacts"`
	History   []*Message     `json:"history,omitzero"`
	Metadata  map[string]any `json:"metadata,omitzero"`
}

// IsTerminal reports whether the task has reached a terminal state.
func (t *Task) IsTerminal() bool {
	return IsTerminalTaskState(t.Status.State)
}

// Clone returns a deep copy of t, so that callers never share state with a store.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}

	out := &Task{
		ID:        t.ID,
		SessionID: t.SessionID,
		Status:    t.Status.Clone(),
		Artifacts: make([]Artifact, len(t.Artifacts)),
		Metadata:  maps.Clone(t.Metadata),
	}
	for i, a := range t.Artifacts {
		out.Artifacts[i] = a.Clone()
	}
	if t.History != nil {
		out.History = make([]*Message, len(t.History))
		for i, m := range t.History {
			out.History[i] = m.Clone()
		}
	}
	return out
}

// TrimHistory drops all but the last n history messages. A negative n keeps everything.
func (t *Task) TrimHistory(n int) {
	if n < 0 || len(t.History) <= n {
		return
	}
	t.History = t.History[len(t.History)-n:]
}

// TaskStatusUpdateEvent is an incremental notification of a task's status.
// Final reports that no further events will be produced for the task.
type TaskStatusUpdateEvent struct {
	ID       string         `json:"id"`
	Status   TaskStatus     `json:"status"`
	Final    bool           `json:"final"`
	Metadata map[string]any `json:"metadata,omitzero"`
}

// Validate ensures the TaskStatusUpdateEvent is valid.
func (e *TaskStatusUpdateEvent) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("task status update event task ID cannot be empty")
	}
	return e.Status.Validate()
}

// String returns a string representation of the TaskStatusUpdateEvent.
func (e *TaskStatusUpdateEvent) String() string {
	return fmt.Sprintf("TaskStatusUpdateEvent{ID: %s, State: %s, Final: %t}", e.ID, e.Status.State, e.Final)
}

// AgentCapabilities defines optional capabilities supported by an agent.
type AgentCapabilities struct {
	Streaming              bool `json:"streaming,omitzero"`
	PushNotifications      bool `json:"pushNotifications,omitzero"`
	StateTransitionHistory bool `json:"stateTransitionHistory,omitzero"`
}

// AgentProvider represents the service provider of an agent.
type AgentProvider struct {
	Organization string `json:"organization"`
	URL          string `json:"url,omitempty"`
}

// AgentSkill describes a unit of capability an agent can perform.
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitzero"`
	Examples    []string `json:"examples,omitzero"`
	InputModes  []string `json:"inputModes,omitzero"`
	OutputModes []string `json:"outputModes,omitzero"`
}

// AgentCard conveys the metadata a client needs to talk to an agent.
type AgentCard struct {
	Name               string            `json:"name"`
	Description        string            `json:"description,omitempty"`
	URL                string            `json:"url"`
	Provider           *AgentProvider    `json:"provider,omitzero"`
	Version            string            `json:"version"`
	DocumentationURL   string            `json:"documentationUrl,omitempty"`
	Capabilities       AgentCapabilities `json:"capabilities"`
	DefaultInputModes  []string          `json:"defaultInputModes"`
	DefaultOutputModes []string          `json:"defaultOutputModes"`
	Skills             []AgentSkill      `json:"skills"`
}

// Validate ensures the AgentCard is valid.
func (c *AgentCard) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("agent card name cannot be empty")
	}
	if c.URL == "" {
		return fmt.Errorf("agent card URL cannot be empty")
	}
	if c.Version == "" {
		return fmt.Errorf("agent card version cannot be empty")
	}
	for _, s := range c.Skills {
		if s.ID == "" || s.Name == "" {
			return fmt.Errorf("agent skill must have an ID and a name")
		}
	}
	return nil
}

// PushNotificationConfig is the configuration of a push notification target.
type PushNotificationConfig struct {
	URL   string `json:"url"`
	Token string `json:"token,omitempty"`
}

// TaskSendParams are the parameters of tasks/send and tasks/sendSubscribe.
type TaskSendParams struct {
	ID                  string                  `json:"id"`
	SessionID           string                  `json:"sessionId,omitempty"`
	Message             Message                 `json:"message"`
	AcceptedOutputModes []string                `json:"acceptedOutputModes,omitzero"`
	PushNotification    *PushNotificationConfig `json:"pushNotification,omitzero"`
	HistoryLength       *int                    `json:"historyLength,omitzero"`
	Metadata            map[string]any          `json:"metadata,omitzero"`
}

// Validate ensures the TaskSendParams are valid.
func (p *TaskSendParams) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}
	if err := p.Message.Validate(); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}
	if p.Message.Text() == "" {
		return fmt.Errorf("message must contain a text part")
	}
	return nil
}

// TaskIDParams are the parameters of methods that address a single task.
type TaskIDParams struct {
	ID       string         `json:"id"`
	Metadata map[string]any `json:"metadata,omitzero"`
}

// TaskQueryParams are the parameters of tasks/get and tasks/resubscribe.
type TaskQueryParams struct {
	ID            string         `json:"id"`
	HistoryLength *int           `json:"historyLength,omitzero"`
	Metadata      map[string]any `json:"metadata,omitzero"`
}
