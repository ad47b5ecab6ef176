// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package server implements the A2A agent: task execution on top of the task
// store and event queues, and the JSON-RPC over HTTP transport serving it.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/go-a2a/a2a-ollama"
)

// DefaultMaxRequestBytes is the default limit of a JSON-RPC request body.
const DefaultMaxRequestBytes = 1 << 20

// Server implements the A2A protocol server.
type Server struct {
	taskManager     TaskManager
	agentCard       *a2a.AgentCard
	mux             *http.ServeMux
	endpoint        string
	maxRequestBytes int64
	logger          *slog.Logger
}

var _ http.Handler = (*Server)(nil)

// NewServer creates a new A2A server serving card and dispatching requests to tm.
func NewServer(card *a2a.AgentCard, tm TaskManager, opts ...Option) (*Server, error) {
	if card == nil {
		return nil, fmt.Errorf("agent card is required")
	}
	if err := card.Validate(); err != nil {
		return nil, fmt.Errorf("invalid agent card: %w", err)
	}
	if tm == nil {
		return nil, fmt.Errorf("task manager is required")
	}

	s := &Server{
		taskManager:     tm,
		agentCard:       card,
		mux:             http.NewServeMux(),
		endpoint:        a2a.DefaultRPCURL,
		maxRequestBytes: DefaultMaxRequestBytes,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mux.HandleFunc("GET "+a2a.AgentCardWellKnownPath, s.handleAgentCard)
	s.mux.HandleFunc("POST "+s.endpoint, s.handleRPC)

	return s, nil
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleAgentCard serves the agent card.
func (s *Server) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", a2a.ContentTypeJSON)
	if err := json.MarshalWrite(w, s.agentCard); err != nil {
		s.logger.ErrorContext(r.Context(), "failed to encode agent card", "error", err)
	}
}

// handleRPC handles all JSON-RPC requests.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	defer r.Body.Close()

	var req a2a.Request
	if err := json.UnmarshalRead(http.MaxBytesReader(w, r.Body, s.maxRequestBytes), &req); err != nil {
		s.logger.InfoContext(ctx, "invalid JSON-RPC payload", "error", err)
		s.writeResponse(ctx, w, a2a.NewErrorResponse(nil, a2a.NewJSONParseError()))
		return
	}
	if req.JSONRPC != a2a.JSONRPCVersion || req.Method == "" {
		s.writeResponse(ctx, w, a2a.NewErrorResponse(req.ID, a2a.NewInvalidRequestError()))
		return
	}

	s.logger.DebugContext(ctx, "handling request", "method", req.Method)

	switch req.Method {
	case a2a.MethodTasksSend:
		var params a2a.TaskSendParams
		if !s.decodeParams(ctx, w, &req, &params) {
			return
		}
		t, err := s.taskManager.OnSendTask(ctx, &params)
		s.reply(ctx, w, &req, t, err)

	case a2a.MethodTasksGet:
		var params a2a.TaskQueryParams
		if !s.decodeParams(ctx, w, &req, &params) {
			return
		}
		t, err := s.taskManager.OnGetTask(ctx, &params)
		s.reply(ctx, w, &req, t, err)

	case a2a.MethodTasksCancel:
		var params a2a.TaskIDParams
		if !s.decodeParams(ctx, w, &req, &params) {
			return
		}
		t, err := s.taskManager.OnCancelTask(ctx, &params)
		s.reply(ctx, w, &req, t, err)

	case a2a.MethodTasksPushNotificationSet, a2a.MethodTasksPushNotificationGet:
		var params a2a.TaskIDParams
		if !s.decodeParams(ctx, w, &req, &params) {
			return
		}
		var err error
		if req.Method == a2a.MethodTasksPushNotificationSet {
			err = s.taskManager.OnSetTaskPushNotification(ctx, &params)
		} else {
			err = s.taskManager.OnGetTaskPushNotification(ctx, &params)
		}
		s.reply(ctx, w, &req, nil, err)

	case a2a.MethodTasksSendSubscribe:
		if !s.streamingEnabled(ctx, w, &req) {
			return
		}
		var params a2a.TaskSendParams
		if !s.decodeParams(ctx, w, &req, &params) {
			return
		}
		seq, err := s.taskManager.OnSendTaskSubscribe(ctx, &params)
		if err != nil {
			s.reply(ctx, w, &req, nil, err)
			return
		}
		s.stream(ctx, w, &req, seq)

	case a2a.MethodTasksResubscribe:
		if !s.streamingEnabled(ctx, w, &req) {
			return
		}
		var params a2a.TaskQueryParams
		if !s.decodeParams(ctx, w, &req, &params) {
			return
		}
		seq, err := s.taskManager.OnResubscribeToTask(ctx, &params)
		if err != nil {
			s.reply(ctx, w, &req, nil, err)
			return
		}
		s.stream(ctx, w, &req, seq)

	default:
		s.writeResponse(ctx, w, a2a.NewErrorResponse(req.ID, a2a.NewMethodNotFoundError()))
	}
}

// decodeParams decodes the params of req into v, answering with an
// invalid-params error and returning false on failure.
func (s *Server) decodeParams(ctx context.Context, w http.ResponseWriter, req *a2a.Request, v any) bool {
	if len(req.Params) == 0 {
		s.writeResponse(ctx, w, a2a.NewErrorResponse(req.ID, a2a.NewInvalidParamsError().WithData("missing params")))
		return false
	}
	if err := json.Unmarshal(req.Params, v); err != nil {
		s.writeResponse(ctx, w, a2a.NewErrorResponse(req.ID, a2a.NewInvalidParamsError().WithData(err.Error())))
		return false
	}
	return true
}

func (s *Server) streamingEnabled(ctx context.Context, w http.ResponseWriter, req *a2a.Request) bool {
	if s.agentCard.Capabilities.Streaming {
		return true
	}
	s.writeResponse(ctx, w, a2a.NewErrorResponse(req.ID, a2a.NewUnsupportedOperationError()))
	return false
}

// reply answers req with result, or with err converted to a JSON-RPC error.
func (s *Server) reply(ctx context.Context, w http.ResponseWriter, req *a2a.Request, result any, err error) {
	if err != nil {
		rpcErr := a2a.RPCError(err)
		if rpcErr.Code == a2a.InternalErrorCode {
			s.logger.ErrorContext(ctx, "request failed", "method", req.Method, "error", err)
		}
		s.writeResponse(ctx, w, a2a.NewErrorResponse(req.ID, rpcErr))
		return
	}
	s.writeResponse(ctx, w, a2a.NewResponse(req.ID, result))
}

// writeResponse sends a JSON-RPC response.
// JSON-RPC errors travel in the body, so the HTTP status is always 200.
func (s *Server) writeResponse(ctx context.Context, w http.ResponseWriter, resp *a2a.Response) {
	w.Header().Set("Content-Type", a2a.ContentTypeJSON)
	if err := json.MarshalWrite(w, resp, jsontext.AllowInvalidUTF8(true)); err != nil {
		s.logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}
