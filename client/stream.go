// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/go-json-experiment/json"

	"github.com/go-a2a/a2a-ollama"
)

// EventType represents the type of a server-sent event.
type EventType string

// Event types
const (
	EventTypeMessage EventType = "message"
	EventTypeError   EventType = "error"
)

// readSSE splits r into Server-Sent Events, yielding the event type and the
// joined data lines of each. Events without data are skipped.
func readSSE(r io.Reader) iter.Seq2[EventType, []byte] {
	return func(yield func(EventType, []byte) bool) {
		br := bufio.NewReader(r)
		eventType := EventTypeMessage
		var data []byte

		for {
			line, err := br.ReadString('\n')
			if err != nil && line == "" {
				return
			}

			line = strings.TrimRight(line, "\r\n")
			switch {
			case line == "":
				if len(data) > 0 {
					if !yield(eventType, data) {
						return
					}
				}
				eventType, data = EventTypeMessage, nil
			case strings.HasPrefix(line, ":"):
				// comment
			case strings.HasPrefix(line, "event:"):
				eventType = EventType(strings.TrimSpace(line[len("event:"):]))
			case strings.HasPrefix(line, "data:"):
				if len(data) > 0 {
					data = append(data, '\n')
				}
				data = append(data, strings.TrimPrefix(line[len("data:"):], " ")...)
			}

			if err != nil {
				return
			}
		}
	}
}

// readEvents decodes every SSE frame of r as a JSON-RPC response carrying a
// [a2a.TaskStatusUpdateEvent]. A frame carrying a JSON-RPC error ends the
// sequence with that error.
func readEvents(r io.Reader) iter.Seq2[*a2a.TaskStatusUpdateEvent, error] {
	return func(yield func(*a2a.TaskStatusUpdateEvent, error) bool) {
		for typ, data := range readSSE(r) {
			if typ != EventTypeMessage {
				yield(nil, fmt.Errorf("unexpected event type: %s", typ))
				return
			}

			var raw a2a.RawResponse
			if err := json.Unmarshal(bytes.TrimSpace(data), &raw); err != nil {
				yield(nil, fmt.Errorf("unmarshaling event data: %w", err))
				return
			}
			if raw.Error != nil {
				yield(nil, raw.Error)
				return
			}
			if len(raw.Result) == 0 {
				yield(nil, errors.New("event has no result"))
				return
			}

			var ev a2a.TaskStatusUpdateEvent
			if err := json.Unmarshal(raw.Result, &ev); err != nil {
				yield(nil, fmt.Errorf("unmarshaling event result: %w", err))
				return
			}
			if !yield(&ev, nil) {
				return
			}
		}
	}
}
