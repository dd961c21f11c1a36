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

// Package storage provides pluggable persistence for login identifiers.
//
// The engine records which login id was last used and how the user
// authenticated, so the web surface can pre-fill the returning-user
// experience. Host applications are expected to supply an implementation
// backed by their own encrypted on-device storage; MemoryLoginStore is
// provided for development and testing.
package storage

import (
	"context"
	"time"

	"github.com/jeremyhahn/go-authflow/pkg/types"
)

// LoginRecord is one persisted login identifier with its metadata.
type LoginRecord struct {
	// LoginID is the user's login identifier (email, phone, username).
	LoginID string `json:"loginId"`

	// AuthMethod is how the user last authenticated, if known.
	AuthMethod types.AuthMethod `json:"authMethod,omitempty"`

	// UpdatedAt is when this record was last written.
	UpdatedAt time.Time `json:"updatedAt"`
}

// LoginStore persists login identifiers across flows.
//
// Implementations must be safe for concurrent use: receipt side effects
// write on a detached scope while the STORAGE namespace reads on the
// connection scope.
type LoginStore interface {
	// SaveLogin upserts a login record and marks it as the most recent.
	SaveLogin(ctx context.Context, rec LoginRecord) error

	// LastLogin returns the most recently saved record.
	// Returns ErrLoginNotFound when nothing has been saved.
	LastLogin(ctx context.Context) (LoginRecord, error)

	// Login returns the record for a specific login id.
	// Returns ErrLoginNotFound when the id is unknown.
	Login(ctx context.Context, loginID string) (LoginRecord, error)

	// DeleteLogin removes the record for a login id. Deleting an unknown
	// id is not an error.
	DeleteLogin(ctx context.Context, loginID string) error
}
