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

// Package types defines shared types used across the flow bridge engine.
package types

import "strings"

// AuthMethod identifies how a user authenticated during a flow.
type AuthMethod string

const (
	// AuthMethodPasskey indicates a platform authenticator (passkey) login.
	AuthMethodPasskey AuthMethod = "passkey"

	// AuthMethodOTP indicates a one-time-code fallback login.
	AuthMethodOTP AuthMethod = "otp"

	// AuthMethodPassword indicates a traditional password login.
	AuthMethodPassword AuthMethod = "password"
)

// authMethodAliases maps wire-level auth type names to their canonical
// AuthMethod. The web surface historically reports several aliases for
// the same method.
var authMethodAliases = map[string]AuthMethod{
	"biometrics":         AuthMethodPasskey,
	"desktop-biometrics": AuthMethodPasskey,
	"passkey":            AuthMethodPasskey,
	"email-fallback":     AuthMethodOTP,
	"sms-fallback":       AuthMethodOTP,
	"otp":                AuthMethodOTP,
	"password":           AuthMethodPassword,
}

// ParseAuthMethod maps a wire-level auth type string to an AuthMethod.
// Matching is case-insensitive. Returns false for unknown or blank values.
func ParseAuthMethod(value string) (AuthMethod, bool) {
	m, ok := authMethodAliases[strings.ToLower(strings.TrimSpace(value))]
	return m, ok
}

// String returns the canonical lowercase name of the auth method.
func (m AuthMethod) String() string {
	return string(m)
}

// Valid reports whether the auth method is one of the known values.
func (m AuthMethod) Valid() bool {
	switch m {
	case AuthMethodPasskey, AuthMethodOTP, AuthMethodPassword:
		return true
	}
	return false
}
