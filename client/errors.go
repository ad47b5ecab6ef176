// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"errors"
	"fmt"

	"github.com/go-a2a/a2a-ollama"
)

// HTTPError reports a non-200 HTTP response from the agent.
type HTTPError struct {
	StatusCode int
	Body       string
}

// Error implements error.
func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http status %d", e.StatusCode)
	}
	return fmt.Sprintf("http status %d: %s", e.StatusCode, e.Body)
}

// IsRPCError reports whether err wraps a [*a2a.JSONRPCError] with the given code.
func IsRPCError(err error, code int) bool {
	var rpcErr *a2a.JSONRPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Code == code
	}
	return false
}

// IsTaskNotFoundError checks if an error is due to a task not being found.
func IsTaskNotFoundError(err error) bool {
	return IsRPCError(err, a2a.TaskNotFoundErrorCode)
}

// IsTaskNotCancelableError checks if an error is due to a task not being cancelable.
func IsTaskNotCancelableError(err error) bool {
	return IsRPCError(err, a2a.TaskNotCancelableErrorCode)
}

// IsPushNotificationNotSupportedError checks if an error is due to push notifications not being supported.
func IsPushNotificationNotSupportedError(err error) bool {
	return IsRPCError(err, a2a.PushNotificationNotSupportedErrorCode)
}

// IsUnsupportedOperationError checks if an error is due to an unsupported operation.
func IsUnsupportedOperationError(err error) bool {
	return IsRPCError(err, a2a.UnsupportedOperationErrorCode)
}

// IsContentTypeNotSupportedError checks if an error is due to a content type not being supported.
func IsContentTypeNotSupportedError(err error) bool {
	return IsRPCError(err, a2a.ContentTypeNotSupportedErrorCode)
}
