// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package llm defines the text generation backends that answer agent tasks.
package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrEmptyResponse is returned by backends that answered without any text.
var ErrEmptyResponse = errors.New("llm: empty response")

// Generator produces a completion for a single prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to [Generator].
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate implements [Generator].
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// WorkFunc turns g into a work function for agent tasks.
//
// Every failure of g is logged and reported as absence, as is an empty
// completion. A positive timeout bounds each call.
func WorkFunc(g Generator, logger *slog.Logger, timeout time.Duration) func(ctx context.Context, text string) (string, bool) {
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx context.Context, text string) (string, bool) {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		out, err := g.Generate(ctx, text)
		if err == nil && out == "" {
			err = ErrEmptyResponse
		}
		if err != nil {
			logger.WarnContext(ctx, "llm request failed", "error", err)
			return "", false
		}
		return out, true
	}
}
