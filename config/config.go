// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the Ollama agent.
//
// Configuration starts from [Default], is merged with an optional YAML (or
// JSON with comments) file and finally with a small set of environment variables that only fill
// values the file left empty.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/go-a2a/a2a-ollama"
	"github.com/go-a2a/a2a-ollama/server"
)

// Backend kinds.
const (
	BackendOllama    = "ollama"
	BackendOpenAI    = "openai"
	BackendAnthropic = "anthropic"
)

// Environment variables consulted by [Config.ApplyEnv].
const (
	EnvOllamaBaseURL   = "OLLAMA_BASE_URL"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
)

// DefaultOllamaBaseURL is used when neither the file nor the environment name an Ollama server.
const DefaultOllamaBaseURL = "http://localhost:11434"

// Config is the complete agent configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Agent   AgentConfig   `yaml:"agent"`
	Backend BackendConfig `yaml:"backend"`
	Task    TaskConfig    `yaml:"task"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// Endpoint is the JSON-RPC path.
	// Default: /
	Endpoint string `yaml:"endpoint"`

	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	MaxRequestBytes   int64         `yaml:"max_request_bytes"`

	// Gzip compresses non-streaming responses.
	Gzip bool `yaml:"gzip"`
}

// Addr returns the host:port the server listens on.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// AgentConfig holds the advertised agent card fields.
type AgentConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Version     string `yaml:"version"`

	// URL overrides the advertised endpoint.
	// Default: http://{server.host}:{server.port}/
	URL string `yaml:"url"`

	Streaming bool `yaml:"streaming"`
}

// BackendConfig selects and configures the language model backend.
type BackendConfig struct {
	// Kind is one of ollama, openai or anthropic.
	Kind    string `yaml:"kind"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`

	// Timeout bounds a single generation. Zero means no limit.
	Timeout time.Duration `yaml:"timeout"`

	// MaxTokens is only used by the anthropic backend.
	MaxTokens int64 `yaml:"max_tokens"`
}

// TaskConfig configures task execution.
type TaskConfig struct {
	SyncPrefix    string `yaml:"sync_prefix"`
	SyncFailure   string `yaml:"sync_failure"`
	StreamPrefix  string `yaml:"stream_prefix"`
	StreamFailure string `yaml:"stream_failure"`

	// SyncFailureState is the state recorded when a synchronous task gets no answer.
	// Values: completed, failed
	SyncFailureState string `yaml:"sync_failure_state"`

	// MaxWorkers caps concurrent streaming tasks. Zero means unbounded.
	MaxWorkers int `yaml:"max_workers"`

	// SweepAge is how long a finished stream is kept for late subscribers.
	SweepAge time.Duration `yaml:"sweep_age"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", l.Level, err)
	}
	return level, nil
}

// Default returns the default configuration.
func Default() *Config {
	tmpl := server.DefaultTemplates()
	return &Config{
		Server: ServerConfig{
			Host:              "localhost",
			Port:              10002,
			Endpoint:          a2a.DefaultRPCURL,
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			MaxRequestBytes:   1 << 20,
			Gzip:              true,
		},
		Agent: AgentConfig{
			Name:        "Ollama Agent",
			Description: "An agent that integrates with a local Ollama LLM",
			Version:     "0.1.0",
			Streaming:   true,
		},
		Backend: BackendConfig{
			Kind:      BackendOllama,
			Model:     "llama2",
			Timeout:   2 * time.Minute,
			MaxTokens: 1024,
		},
		Task: TaskConfig{
			SyncPrefix:       tmpl.SyncPrefix,
			SyncFailure:      tmpl.SyncFailure,
			StreamPrefix:     tmpl.StreamPrefix,
			StreamFailure:    tmpl.StreamFailure,
			SyncFailureState: string(tmpl.SyncFailureState),
			SweepAge:         5 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFile loads configuration from path on top of [Default].
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load returns [Default] merged with the file at path, when path is not
// empty, and with the environment read through getenv.
func Load(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv(getenv)
	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
// Files ending in .json or .jsonc may carry comments and trailing commas.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	switch filepath.Ext(path) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv fills backend settings left empty from the environment.
// A nil getenv uses [os.Getenv].
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}

	switch c.Backend.Kind {
	case BackendOllama:
		if c.Backend.BaseURL == "" {
			c.Backend.BaseURL = getenv(EnvOllamaBaseURL)
		}
		if c.Backend.BaseURL == "" {
			c.Backend.BaseURL = DefaultOllamaBaseURL
		}
	case BackendOpenAI:
		if c.Backend.APIKey == "" {
			c.Backend.APIKey = getenv(EnvOpenAIAPIKey)
		}
	case BackendAnthropic:
		if c.Backend.APIKey == "" {
			c.Backend.APIKey = getenv(EnvAnthropicAPIKey)
		}
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Host == "" {
		errs = append(errs, errors.New("server.host is required"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if !strings.HasPrefix(c.Server.Endpoint, "/") {
		errs = append(errs, fmt.Errorf("server.endpoint %q must start with /", c.Server.Endpoint))
	}
	if c.Server.MaxRequestBytes <= 0 {
		errs = append(errs, errors.New("server.max_request_bytes must be positive"))
	}

	switch c.Backend.Kind {
	case BackendOllama, BackendOpenAI, BackendAnthropic:
	default:
		errs = append(errs, fmt.Errorf("backend.kind %q is not one of ollama, openai, anthropic", c.Backend.Kind))
	}
	if c.Backend.Model == "" {
		errs = append(errs, errors.New("backend.model is required"))
	}
	if c.Backend.Timeout < 0 {
		errs = append(errs, errors.New("backend.timeout must not be negative"))
	}
	if c.Backend.Kind == BackendAnthropic && c.Backend.MaxTokens <= 0 {
		errs = append(errs, errors.New("backend.max_tokens must be positive"))
	}

	switch a2a.TaskState(c.Task.SyncFailureState) {
	case a2a.TaskStateCompleted, a2a.TaskStateFailed:
	default:
		errs = append(errs, fmt.Errorf("task.sync_failure_state %q is not one of completed, failed", c.Task.SyncFailureState))
	}
	if c.Task.MaxWorkers < 0 {
		errs = append(errs, errors.New("task.max_workers must not be negative"))
	}
	if c.Task.SweepAge <= 0 {
		errs = append(errs, errors.New("task.sweep_age must be positive"))
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of text, json", c.Log.Format))
	}

	return errors.Join(errs...)
}

// AgentCard builds the card advertised at the well-known path.
func (c *Config) AgentCard() *a2a.AgentCard {
	url := c.Agent.URL
	if url == "" {
		url = fmt.Sprintf("http://%s/", c.Server.Addr())
	}

	return &a2a.AgentCard{
		Name:        c.Agent.Name,
		Description: c.Agent.Description,
		URL:         url,
		Version:     c.Agent.Version,
		Capabilities: a2a.AgentCapabilities{
			Streaming: c.Agent.Streaming,
		},
		DefaultInputModes:  []string{a2a.ModeText},
		DefaultOutputModes: []string{a2a.ModeText},
		Skills: []a2a.AgentSkill{{
			ID:          "my-project-ollama-skill",
			Name:        "Ollama Integration Tool",
			Description: "Queries a local LLM using Ollama",
			Tags:        []string{"ollama", "llm"},
			InputModes:  []string{a2a.ModeText},
			OutputModes: []string{a2a.ModeText},
		}},
	}
}

// Templates returns the response templates for the task executor and coordinator.
func (c *Config) Templates() server.Templates {
	return server.Templates{
		SyncPrefix:       c.Task.SyncPrefix,
		SyncFailure:      c.Task.SyncFailure,
		SyncFailureState: a2a.TaskState(c.Task.SyncFailureState),
		StreamPrefix:     c.Task.StreamPrefix,
		StreamFailure:    c.Task.StreamFailure,
	}
}
