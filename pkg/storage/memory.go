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

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryLoginStore is an in-memory LoginStore for development and testing.
type MemoryLoginStore struct {
	mu      sync.RWMutex
	records map[string]LoginRecord
	last    string
}

// NewMemoryLoginStore creates an empty in-memory login store.
func NewMemoryLoginStore() *MemoryLoginStore {
	return &MemoryLoginStore{
		records: make(map[string]LoginRecord),
	}
}

// SaveLogin upserts a login record and marks it as the most recent.
func (s *MemoryLoginStore) SaveLogin(_ context.Context, rec LoginRecord) error {
	if strings.TrimSpace(rec.LoginID) == "" {
		return ErrEmptyLoginID
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Preserve a previously known auth method when the new record omits it.
	if rec.AuthMethod == "" {
		if prev, ok := s.records[rec.LoginID]; ok {
			rec.AuthMethod = prev.AuthMethod
		}
	}
	s.records[rec.LoginID] = rec
	s.last = rec.LoginID
	return nil
}

// LastLogin returns the most recently saved record.
func (s *MemoryLoginStore) LastLogin(_ context.Context) (LoginRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.last == "" {
		return LoginRecord{}, ErrLoginNotFound
	}
	rec, ok := s.records[s.last]
	if !ok {
		return LoginRecord{}, ErrLoginNotFound
	}
	return rec, nil
}

// Login returns the record for a specific login id.
func (s *MemoryLoginStore) Login(_ context.Context, loginID string) (LoginRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[loginID]
	if !ok {
		return LoginRecord{}, ErrLoginNotFound
	}
	return rec, nil
}

// DeleteLogin removes the record for a login id.
func (s *MemoryLoginStore) DeleteLogin(_ context.Context, loginID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, loginID)
	if s.last == loginID {
		s.last = ""
	}
	return nil
}
