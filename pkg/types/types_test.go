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

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAuthMethod(t *testing.T) {
	tests := []struct {
		value string
		want  AuthMethod
		ok    bool
	}{
		{"passkey", AuthMethodPasskey, true},
		{"biometrics", AuthMethodPasskey, true},
		{"desktop-biometrics", AuthMethodPasskey, true},
		{"Passkey", AuthMethodPasskey, true},
		{"PASSWORD", AuthMethodPassword, true},
		{"email-fallback", AuthMethodOTP, true},
		{"sms-fallback", AuthMethodOTP, true},
		{"otp", AuthMethodOTP, true},
		{" password ", AuthMethodPassword, true},
		{"", "", false},
		{"magic-link", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, ok := ParseAuthMethod(tt.value)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthMethodValid(t *testing.T) {
	assert.True(t, AuthMethodPasskey.Valid())
	assert.True(t, AuthMethodOTP.Valid())
	assert.True(t, AuthMethodPassword.Valid())
	assert.False(t, AuthMethod("social").Valid())
	assert.False(t, AuthMethod("").Valid())
}
