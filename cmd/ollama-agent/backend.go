// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"net/http"

	"github.com/go-a2a/a2a-ollama/config"
	"github.com/go-a2a/a2a-ollama/llm"
	"github.com/go-a2a/a2a-ollama/llm/anthropic"
	"github.com/go-a2a/a2a-ollama/llm/ollama"
	"github.com/go-a2a/a2a-ollama/llm/openai"
)

func newGenerator(c config.BackendConfig) (llm.Generator, error) {
	switch c.Kind {
	case config.BackendOllama:
		return ollama.New(func(o *ollama.Options) {
			o.BaseURL = c.BaseURL
			o.Model = c.Model
			o.HTTPClient = http.DefaultClient
		}), nil

	case config.BackendOpenAI:
		return openai.New(func(o *openai.Options) {
			o.BaseURL = c.BaseURL
			o.Model = c.Model
			o.APIKey = c.APIKey
		}), nil

	case config.BackendAnthropic:
		return anthropic.New(func(o *anthropic.Options) {
			o.BaseURL = c.BaseURL
			o.Model = c.Model
			o.APIKey = c.APIKey
			o.MaxTokens = c.MaxTokens
		}), nil

	default:
		return nil, fmt.Errorf("unknown backend %q", c.Kind)
	}
}
