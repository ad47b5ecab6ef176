// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package anthropic_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-json-experiment/json"

	"github.com/go-a2a/a2a-ollama/llm/anthropic"
)

func TestGenerate(t *testing.T) {
	t.Parallel()

	var gotReq struct {
		Model     string `json:"model"`
		MaxTokens int64  `json:"max_tokens"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			http.NotFound(w, r)
			return
		}
		if err := json.UnmarshalRead(r.Body, &gotReq); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "id": "msg_1",
  "type": "message",
  "role": "assistant",
  "model": "claude-3-5-sonnet-20241022",
  "content": [
    {"type": "text", "text": "Par"},
    {"type": "text", "text": "is"}
  ],
  "stop_reason": "end_turn",
  "usage": {"input_tokens": 3, "output_tokens": 2}
}`))
	}))
	t.Cleanup(srv.Close)

	g := anthropic.New(func(o *anthropic.Options) {
		o.BaseURL = srv.URL
		o.APIKey = "test"
		o.MaxTokens = 64
	})
	got, err := g.Generate(t.Context(), "capital of France?")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "Paris" {
		t.Errorf("Generate() = %q, want Paris", got)
	}
	if gotReq.MaxTokens != 64 {
		t.Errorf("max_tokens = %d, want 64", gotReq.MaxTokens)
	}
	if gotReq.Model == "" {
		t.Error("model not sent")
	}
}

func TestGenerateAPIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`))
	}))
	t.Cleanup(srv.Close)

	g := anthropic.New(func(o *anthropic.Options) {
		o.BaseURL = srv.URL
		o.APIKey = "test"
	})
	if _, err := g.Generate(t.Context(), "q"); err == nil {
		t.Fatal("expected error")
	}
}
