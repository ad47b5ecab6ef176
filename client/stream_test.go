// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"strings"
	"testing"

	gocmp "github.com/google/go-cmp/cmp"

	"github.com/go-a2a/a2a-ollama"
)

func TestReadSSE(t *testing.T) {
	t.Parallel()

	type frame struct {
		Type EventType
		Data string
	}

	tests := map[string]struct {
		input string
		want  []frame
	}{
		"single frame": {
			input: "data: {\"a\":1}\n\n",
			want:  []frame{{Type: EventTypeMessage, Data: `{"a":1}`}},
		},
		"crlf and comments": {
			input: ": keepalive\r\ndata: x\r\n\r\n",
			want:  []frame{{Type: EventTypeMessage, Data: "x"}},
		},
		"multi-line data and event type": {
			input: "event: error\ndata: a\ndata: b\n\ndata: c\n\n",
			want: []frame{
				{Type: EventTypeError, Data: "a\nb"},
				{Type: EventTypeMessage, Data: "c"},
			},
		},
		"unterminated frame is dropped": {
			input: "data: a\n\ndata: b",
			want:  []frame{{Type: EventTypeMessage, Data: "a"}},
		},
		"empty": {
			input: "",
			want:  nil,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var got []frame
			for typ, data := range readSSE(strings.NewReader(tt.input)) {
				got = append(got, frame{Type: typ, Data: string(data)})
			}
			if diff := gocmp.Diff(tt.want, got); diff != "" {
				t.Errorf("readSSE: (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReadEvents(t *testing.T) {
	t.Parallel()

	t.Run("status then error", func(t *testing.T) {
		t.Parallel()

		input := `data: {"jsonrpc":"2.0","id":"1","result":{"id":"t1","status":{"state":"completed"},"final":true}}` + "\n\n" +
			`data: {"jsonrpc":"2.0","id":"1","error":{"code":-32603,"message":"Internal error"}}` + "\n\n"

		var (
			events []*a2a.TaskStatusUpdateEvent
			errs   []error
		)
		for ev, err := range readEvents(strings.NewReader(input)) {
			if err != nil {
				errs = append(errs, err)
				continue
			}
			events = append(events, ev)
		}

		if len(events) != 1 || events[0].ID != "t1" || !events[0].Final || events[0].Status.State != a2a.TaskStateCompleted {
			t.Errorf("events = %+v", events)
		}
		if len(errs) != 1 || !IsRPCError(errs[0], a2a.InternalErrorCode) {
			t.Errorf("errs = %v", errs)
		}
	})

	t.Run("malformed data", func(t *testing.T) {
		t.Parallel()

		var gotErr error
		for _, err := range readEvents(strings.NewReader("data: nope\n\n")) {
			gotErr = err
		}
		if gotErr == nil {
			t.Error("expected error")
		}
	})
}
