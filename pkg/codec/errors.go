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

package codec

import (
	"errors"
	"fmt"
)

// Sentinel errors for payload decoding.
var (
	// ErrInvalidEnvelope is returned when a command envelope is not valid JSON
	// or is missing its required fields.
	ErrInvalidEnvelope = errors.New("invalid command envelope")

	// ErrMissingField is returned when a required payload field is absent or blank.
	ErrMissingField = errors.New("required field missing or blank")

	// ErrInvalidOptions is returned when host-supplied ceremony options cannot
	// be normalized.
	ErrInvalidOptions = errors.New("invalid ceremony options")
)

// CodecError wraps an error with the operation that produced it.
type CodecError struct {
	Op  string // Operation that failed
	Err error  // Underlying error
}

// Error returns the error message.
func (e *CodecError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *CodecError) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches.
func (e *CodecError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new CodecError with the given operation and error.
func NewError(op string, err error) error {
	return &CodecError{
		Op:  op,
		Err: err,
	}
}

// IsMissingField returns true if the error indicates a required field was
// absent or blank.
func IsMissingField(err error) bool {
	return errors.Is(err, ErrMissingField)
}
