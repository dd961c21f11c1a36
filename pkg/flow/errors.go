// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-authflow.
//
// go-authflow is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package flow

import (
	"errors"
	"fmt"
)

// Sentinel errors for flow operations.
var (
	// ErrUnsupportedAction is returned when the registry has no active
	// descriptor for an action.
	ErrUnsupportedAction = errors.New("unsupported action")

	// ErrWrapperMismatch is returned when a wrapper receives a payload
	// variant it does not handle. This is only possible when the registry
	// is misconfigured and is a programming error, not a recoverable one.
	ErrWrapperMismatch = errors.New("wrapper payload mismatch")

	// ErrMissingParams is returned when an action requires params and none
	// were supplied.
	ErrMissingParams = errors.New("no params set")
)

// FlowError wraps an error with the operation that produced it.
type FlowError struct {
	Op  string // Operation that failed
	Err error  // Underlying error
}

// Error returns the error message.
func (e *FlowError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *FlowError) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches.
func (e *FlowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new FlowError with the given operation and error.
func NewError(op string, err error) error {
	return &FlowError{
		Op:  op,
		Err: err,
	}
}
