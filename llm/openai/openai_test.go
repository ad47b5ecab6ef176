// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package openai_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-json-experiment/json"

	"github.com/go-a2a/a2a-ollama/llm/openai"
)

const completion = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "llama2",
  "choices": [{
    "index": 0,
    "finish_reason": "stop",
    "message": {"role": "assistant", "content": "Paris"}
  }],
  "usage": {"prompt_tokens": 3, "completion_tokens": 1, "total_tokens": 4}
}`

func newServer(t *testing.T, body string, status int, gotModel *string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Model string `json:"model"`
		}
		if err := json.UnmarshalRead(r.Body, &req); err == nil && gotModel != nil {
			*gotModel = req.Model
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	var model string
	srv := newServer(t, completion, http.StatusOK, &model)

	g := openai.New(func(o *openai.Options) {
		o.BaseURL = srv.URL + "/v1/"
		o.APIKey = "test"
		o.Model = "mistral"
	})
	got, err := g.Generate(t.Context(), "capital of France?")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "Paris" {
		t.Errorf("Generate() = %q, want Paris", got)
	}
	if model != "mistral" {
		t.Errorf("request model = %q, want mistral", model)
	}
}

func TestGenerateErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		body   string
		status int
	}{
		"no choices": {
			body:   `{"id":"x","object":"chat.completion","created":1,"model":"llama2","choices":[]}`,
			status: http.StatusOK,
		},
		"server error": {
			body:   `{"error":{"message":"model not loaded","type":"server_error"}}`,
			status: http.StatusInternalServerError,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			srv := newServer(t, tt.body, tt.status, nil)
			g := openai.New(func(o *openai.Options) {
				o.BaseURL = srv.URL + "/v1/"
				o.APIKey = "test"
			})
			if _, err := g.Generate(t.Context(), "q"); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
