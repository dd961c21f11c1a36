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

package storage

import "errors"

// Sentinel errors for login storage operations.
var (
	// ErrLoginNotFound is returned when a login record cannot be found.
	ErrLoginNotFound = errors.New("login record not found")

	// ErrEmptyLoginID is returned when a record with a blank login id is saved.
	ErrEmptyLoginID = errors.New("login id must not be empty")
)

// IsLoginNotFound returns true if the error indicates a missing login record.
func IsLoginNotFound(err error) bool {
	return errors.Is(err, ErrLoginNotFound)
}
