// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/go-a2a/a2a-ollama"
	"github.com/go-a2a/a2a-ollama/internal/pool"
)

// Stream writes JSON-RPC responses as Server-Sent Events.
type Stream struct {
	w  http.ResponseWriter
	rc *http.ResponseController
	id jsontext.Value
}

// NewStream starts an event stream on w answering the request with the given id.
func NewStream(w http.ResponseWriter, id jsontext.Value) *Stream {
	w.Header().Set("Content-Type", a2a.ContentTypeEventStream)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no") // For Nginx proxy
	w.WriteHeader(http.StatusOK)

	return &Stream{
		w:  w,
		rc: http.NewResponseController(w),
		id: id,
	}
}

// SendStatusUpdate sends a task status update through the stream.
func (s *Stream) SendStatusUpdate(ev *a2a.TaskStatusUpdateEvent) error {
	return s.send(a2a.NewResponse(s.id, ev))
}

// SendError sends a JSON-RPC error through the stream.
func (s *Stream) SendError(err *a2a.JSONRPCError) error {
	return s.send(a2a.NewErrorResponse(s.id, err))
}

func (s *Stream) send(resp *a2a.Response) error {
	buf := pool.Bytes.Get()
	defer pool.PutBuffer(buf)

	buf.WriteString("data: ")
	if err := json.MarshalWrite(buf, resp, jsontext.AllowInvalidUTF8(true)); err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	buf.WriteString("\n\n")

	if _, err := s.w.Write(buf.Bytes()); err != nil {
		return err
	}
	return s.rc.Flush()
}

// stream forwards seq to the client as Server-Sent Events until the sequence
// ends or the client goes away.
func (s *Server) stream(ctx context.Context, w http.ResponseWriter, req *a2a.Request, seq iter.Seq2[*a2a.TaskStatusUpdateEvent, error]) {
	st := NewStream(w, req.ID)

	for ev, err := range seq {
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				s.logger.InfoContext(ctx, "stream closed by client", "method", req.Method)
				return
			}
			s.logger.ErrorContext(ctx, "stream failed", "method", req.Method, "error", err)
			_ = st.SendError(a2a.RPCError(err))
			return
		}
		if err := st.SendStatusUpdate(ev); err != nil {
			s.logger.InfoContext(ctx, "failed to write event", "task_id", ev.ID, "error", err)
			return
		}
	}
}
