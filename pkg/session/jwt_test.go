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

package session

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jeremyhahn/go-authflow/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-signing-secret")

func signToken(t *testing.T, claims jwt.MapClaims, secret []byte) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return token
}

func validClaims(subject string) jwt.MapClaims {
	return jwt.MapClaims{
		"iss": "authflow-test",
		"aud": "example-app",
		"sub": subject,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
}

func newTestProvider(t *testing.T) *JWTProvider {
	t.Helper()
	p, err := NewJWTProvider(&JWTProviderConfig{
		Secret:   testSecret,
		Issuer:   "authflow-test",
		Audience: "example-app",
	})
	require.NoError(t, err)
	return p
}

func TestNewJWTProviderRequiresSecret(t *testing.T) {
	_, err := NewJWTProvider(nil)
	assert.Error(t, err)

	_, err = NewJWTProvider(&JWTProviderConfig{})
	assert.Error(t, err)
}

func TestCreateValidToken(t *testing.T) {
	p := newTestProvider(t)
	token := signToken(t, validClaims("alice"), testSecret)

	result, err := p.Create(context.Background(), "alice",
		`{"token":`+strconv.Quote(token)+`}`, "", types.AuthMethodPasskey)
	require.NoError(t, err)
	assert.Equal(t, "logged-in", result.Status)
}

func TestCreateTokenFromAuthTokenFallback(t *testing.T) {
	p := newTestProvider(t)
	token := signToken(t, validClaims("alice"), testSecret)

	result, err := p.Create(context.Background(), "alice", `{}`, token, types.AuthMethodPasskey)
	require.NoError(t, err)
	assert.Equal(t, "logged-in", result.Status)
}

func TestCreateRejections(t *testing.T) {
	p := newTestProvider(t)

	expired := validClaims("alice")
	expired["exp"] = time.Now().Add(-time.Hour).Unix()

	wrongIssuer := validClaims("alice")
	wrongIssuer["iss"] = "somebody-else"

	noExpiry := validClaims("alice")
	delete(noExpiry, "exp")

	tests := []struct {
		name    string
		loginID string
		token   string
		reason  string
	}{
		{"no token at all", "alice", "", "session payload carries no token"},
		{"garbage token", "alice", "not.a.jwt", "invalid session token"},
		{"wrong secret", "alice", signToken(t, validClaims("alice"), []byte("other")), "invalid session token"},
		{"expired", "alice", signToken(t, expired, testSecret), "invalid session token"},
		{"wrong issuer", "alice", signToken(t, wrongIssuer, testSecret), "invalid session token"},
		{"missing expiry", "alice", signToken(t, noExpiry, testSecret), "invalid session token"},
		{"subject mismatch", "bob", signToken(t, validClaims("alice"), testSecret), "session token subject mismatch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rawSession := `{}`
			if tt.token != "" {
				rawSession = `{"token":` + strconv.Quote(tt.token) + `}`
			}
			result, err := p.Create(context.Background(), tt.loginID, rawSession, "", types.AuthMethodPasskey)
			require.NoError(t, err)
			assert.Equal(t, "fail", result.Status)
			assert.Equal(t, tt.reason, result.Reason)
		})
	}
}

func TestCreateNoneAlgorithmRejected(t *testing.T) {
	p := newTestProvider(t)

	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims("alice")).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	result, err := p.Create(context.Background(), "alice",
		`{"token":`+strconv.Quote(token)+`}`, "", types.AuthMethodPasskey)
	require.NoError(t, err)
	assert.Equal(t, "fail", result.Status)
}
