// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/go-a2a/a2a-ollama"
	"github.com/go-a2a/a2a-ollama/client"
	"github.com/go-a2a/a2a-ollama/config"
	"github.com/go-a2a/a2a-ollama/llm"
	"github.com/go-a2a/a2a-ollama/llm/anthropic"
	"github.com/go-a2a/a2a-ollama/llm/ollama"
	"github.com/go-a2a/a2a-ollama/llm/openai"
)

func noEnv(string) string { return "" }

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "agent.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9000\nbackend:\n  model: mistral\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	tests := map[string]struct {
		args      []string
		getenv    func(string) string
		wantHost  string
		wantPort  int
		wantModel string
		wantURL   string
	}{
		"defaults": {
			getenv:    noEnv,
			wantHost:  "localhost",
			wantPort:  10002,
			wantModel: "llama2",
			wantURL:   config.DefaultOllamaBaseURL,
		},
		"file values": {
			args:      []string{"--config", path},
			getenv:    noEnv,
			wantHost:  "localhost",
			wantPort:  9000,
			wantModel: "mistral",
			wantURL:   config.DefaultOllamaBaseURL,
		},
		"flags override file": {
			args:      []string{"--config", path, "--port", "9100", "--host", "0.0.0.0", "--model", "phi3"},
			getenv:    noEnv,
			wantHost:  "0.0.0.0",
			wantPort:  9100,
			wantModel: "phi3",
			wantURL:   config.DefaultOllamaBaseURL,
		},
		"env base url": {
			getenv: func(k string) string {
				if k == config.EnvOllamaBaseURL {
					return "http://gpu-box:11434"
				}
				return ""
			},
			wantHost:  "localhost",
			wantPort:  10002,
			wantModel: "llama2",
			wantURL:   "http://gpu-box:11434",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			f, err := parseFlags(tt.args, io.Discard)
			if err != nil {
				t.Fatalf("parseFlags: %v", err)
			}
			cfg, err := loadConfig(f, tt.getenv)
			if err != nil {
				t.Fatalf("loadConfig: %v", err)
			}
			if cfg.Server.Host != tt.wantHost || cfg.Server.Port != tt.wantPort {
				t.Errorf("addr = %s, want %s:%d", cfg.Server.Addr(), tt.wantHost, tt.wantPort)
			}
			if cfg.Backend.Model != tt.wantModel {
				t.Errorf("model = %q, want %q", cfg.Backend.Model, tt.wantModel)
			}
			if cfg.Backend.BaseURL != tt.wantURL {
				t.Errorf("base url = %q, want %q", cfg.Backend.BaseURL, tt.wantURL)
			}
		})
	}
}

func TestParseFlagsErrors(t *testing.T) {
	t.Parallel()

	if _, err := parseFlags([]string{"--help"}, io.Discard); !errors.Is(err, pflag.ErrHelp) {
		t.Errorf("--help error = %v, want pflag.ErrHelp", err)
	}
	if _, err := parseFlags([]string{"extra"}, io.Discard); err == nil {
		t.Error("expected error for positional argument")
	}
	if _, err := parseFlags([]string{"--port", "http"}, io.Discard); err == nil {
		t.Error("expected error for non-numeric port")
	}

	f, err := parseFlags([]string{"--backend", "llamafile"}, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if _, err := loadConfig(f, noEnv); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := newLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	logger.Info("dropped")
	logger.Warn("kept", "task_id", "t1")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("info record written at warn level: %s", out)
	}
	if !strings.Contains(out, `"task_id":"t1"`) {
		t.Errorf("missing json attribute: %s", out)
	}

	if _, err := newLogger(config.LogConfig{Level: "info", Format: "xml"}, io.Discard); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestNewGenerator(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		kind  string
		check func(llm.Generator) bool
	}{
		"ollama": {
			kind:  config.BackendOllama,
			check: func(g llm.Generator) bool { _, ok := g.(*ollama.Client); return ok },
		},
		"openai": {
			kind:  config.BackendOpenAI,
			check: func(g llm.Generator) bool { _, ok := g.(*openai.Generator); return ok },
		},
		"anthropic": {
			kind:  config.BackendAnthropic,
			check: func(g llm.Generator) bool { _, ok := g.(*anthropic.Generator); return ok },
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			g, err := newGenerator(config.BackendConfig{Kind: tt.kind, Model: "m", APIKey: "k", MaxTokens: 16})
			if err != nil {
				t.Fatalf("newGenerator: %v", err)
			}
			if !tt.check(g) {
				t.Errorf("newGenerator(%s) = %T", tt.kind, g)
			}
		})
	}

	if _, err := newGenerator(config.BackendConfig{Kind: "llamafile"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

// TestAgentWithOllama runs the whole agent against a fake Ollama server.
func TestAgentWithOllama(t *testing.T) {
	t.Parallel()

	fake := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", a2a.ContentTypeJSON)
		_, _ = io.WriteString(w, `{"model":"llama2","response":"Paris","done":true}`)
	}))
	t.Cleanup(fake.Close)

	cfg := config.Default()
	cfg.Backend.BaseURL = fake.URL
	cfg.Log.Level = "error"

	logger, err := newLogger(cfg.Log, io.Discard)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	gen, err := newGenerator(cfg.Backend)
	if err != nil {
		t.Fatalf("newGenerator: %v", err)
	}
	ag, err := newAgent(cfg, gen, logger)
	if err != nil {
		t.Fatalf("newAgent: %v", err)
	}

	ts := httptest.NewServer(ag.handler)
	t.Cleanup(func() {
		ts.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ag.close(ctx); err != nil {
			t.Errorf("close: %v", err)
		}
	})

	c := client.New(ts.URL)
	params := &a2a.TaskSendParams{
		ID:      "t1",
		Message: *a2a.NewTextMessage(a2a.RoleUser, "capital of France?"),
	}

	got, err := c.SendTask(t.Context(), params)
	if err != nil {
		t.Fatalf("SendTask: %v", err)
	}
	if text := got.Status.Message.Text(); text != "Ollama says: Paris" {
		t.Errorf("sync text = %q", text)
	}
	if got.SessionID == "" {
		t.Error("session id not generated")
	}

	params.ID = "t2"
	seq, err := c.SendTaskSubscribe(t.Context(), params)
	if err != nil {
		t.Fatalf("SendTaskSubscribe: %v", err)
	}
	var texts []string
	for ev, err := range seq {
		if err != nil {
			t.Fatalf("stream: %v", err)
		}
		texts = append(texts, ev.Status.Message.Text())
	}
	if len(texts) != 1 || texts[0] != "Ollama streaming: Paris" {
		t.Errorf("stream texts = %q", texts)
	}
}

func TestServeShutdown(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Server.ShutdownTimeout = 5 * time.Second

	ag, err := newAgent(cfg, llm.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		return "ok", nil
	}), newDiscardLogger(t))
	if err != nil {
		t.Fatalf("newAgent: %v", err)
	}

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, l, cfg, ag, newDiscardLogger(t)) }()

	resp, err := http.Get("http://" + l.Addr().String() + a2a.AgentCardWellKnownPath)
	if err != nil {
		t.Fatalf("GET card: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("card status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func newDiscardLogger(t *testing.T) *slog.Logger {
	t.Helper()

	logger, err := newLogger(config.LogConfig{Level: "error", Format: "text"}, io.Discard)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	return logger
}
