// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package llm_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-a2a/a2a-ollama/llm"
)

func TestWorkFunc(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		gen     llm.GeneratorFunc
		want    string
		wantOK  bool
		timeout time.Duration
	}{
		"value": {
			gen: func(_ context.Context, prompt string) (string, error) {
				return "echo " + prompt, nil
			},
			want:   "echo hi",
			wantOK: true,
		},
		"error": {
			gen: func(context.Context, string) (string, error) {
				return "", errors.New("connection refused")
			},
			wantOK: false,
		},
		"empty": {
			gen: func(context.Context, string) (string, error) {
				return "", nil
			},
			wantOK: false,
		},
		"timeout": {
			gen: func(ctx context.Context, _ string) (string, error) {
				<-ctx.Done()
				return "", ctx.Err()
			},
			timeout: 10 * time.Millisecond,
			wantOK:  false,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, ok := llm.WorkFunc(tt.gen, nil, tt.timeout)(t.Context(), "hi")
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("WorkFunc() = (%q, %t), want (%q, %t)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
