// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"errors"
	"fmt"
)

// TaskNotFoundError reports a reference to a task the agent does not know.
type TaskNotFoundError struct {
	TaskID string
}

// Error implements error.
func (e TaskNotFoundError) Error() string {
	return fmt.Sprintf("task not found: %s", e.TaskID)
}

// RPCError converts err to a [JSONRPCError], keeping an existing JSONRPCError as is.
// Errors of unknown kind become internal errors carrying err's message as data.
func RPCError(err error) *JSONRPCError {
	if err == nil {
		return nil
	}

	var rpcErr *JSONRPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	var notFound TaskNotFoundError
	if errors.As(err, &notFound) {
		return NewTaskNotFoundError().WithData(notFound.TaskID)
	}
	return NewInternalError().WithData(err.Error())
}
