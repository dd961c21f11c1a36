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

package bridge

import (
	"errors"
	"fmt"
)

// Sentinel errors for bridge operations.
var (
	// ErrSubframe is returned when a command arrives from a non-main frame.
	ErrSubframe = errors.New("requests from subframes are not supported")

	// ErrInsecureScheme is returned when the source origin is not https.
	ErrInsecureScheme = errors.New("origin scheme must be https")

	// ErrOriginNotAllowed is returned when the source origin matches no
	// allow-list rule.
	ErrOriginNotAllowed = errors.New("origin not permitted")

	// ErrUnsupportedNamespace is returned when no handler owns the
	// envelope's namespace.
	ErrUnsupportedNamespace = errors.New("unsupported namespace")

	// ErrUnsupportedAction is returned when a namespace does not support
	// the requested action.
	ErrUnsupportedAction = errors.New("unsupported action")

	// ErrMissingParams is returned when an action requires params and none
	// were supplied.
	ErrMissingParams = errors.New("no params set")

	// ErrNotAttached is returned when a command arrives before the bridge
	// is attached to a surface or after it detached.
	ErrNotAttached = errors.New("bridge not attached")
)

// BridgeError wraps an error with the operation that produced it.
type BridgeError struct {
	Op  string // Operation that failed
	Err error  // Underlying error
}

// Error returns the error message.
func (e *BridgeError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *BridgeError) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches.
func (e *BridgeError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new BridgeError with the given operation and error.
func NewError(op string, err error) error {
	return &BridgeError{
		Op:  op,
		Err: err,
	}
}

// IsSecurityError returns true when the error is a frame, scheme or origin
// validation failure.
func IsSecurityError(err error) bool {
	return errors.Is(err, ErrSubframe) ||
		errors.Is(err, ErrInsecureScheme) ||
		errors.Is(err, ErrOriginNotAllowed)
}
