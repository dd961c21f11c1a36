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
	"context"
	"errors"
	"testing"

	"github.com/descope/virtualwebauthn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

// virtualAuthenticator backs the Authenticator interface with a
// virtualwebauthn software authenticator.
type virtualAuthenticator struct {
	rp            virtualwebauthn.RelyingParty
	authenticator virtualwebauthn.Authenticator
	credential    virtualwebauthn.Credential
	available     bool
}

func newVirtualAuthenticator() *virtualAuthenticator {
	return &virtualAuthenticator{
		rp: virtualwebauthn.RelyingParty{
			Name:   "Example",
			ID:     "example.com",
			Origin: "https://example.com",
		},
		authenticator: virtualwebauthn.NewAuthenticator(),
		credential:    virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2),
		available:     true,
	}
}

func (a *virtualAuthenticator) IsAvailable(ctx context.Context) bool {
	return a.available
}

func (a *virtualAuthenticator) Create(ctx context.Context, options string) (string, error) {
	parsed, err := virtualwebauthn.ParseAttestationOptions(options)
	if err != nil {
		return "", err
	}
	response := virtualwebauthn.CreateAttestationResponse(a.rp, a.authenticator, a.credential, *parsed)
	a.authenticator.AddCredential(a.credential)
	return response, nil
}

func (a *virtualAuthenticator) Get(ctx context.Context, options string) (string, error) {
	parsed, err := virtualwebauthn.ParseAssertionOptions(options)
	if err != nil {
		return "", err
	}
	return virtualwebauthn.CreateAssertionResponse(a.rp, a.authenticator, a.credential, *parsed), nil
}

// failingAuthenticator always errors.
type failingAuthenticator struct{}

func (failingAuthenticator) IsAvailable(ctx context.Context) bool { return false }
func (failingAuthenticator) Create(ctx context.Context, options string) (string, error) {
	return "", errors.New("no platform authenticator")
}
func (failingAuthenticator) Get(ctx context.Context, options string) (string, error) {
	return "", errors.New("no platform authenticator")
}

func fidoBridge(t *testing.T, surface Surface, auth Authenticator) *Bridge {
	t.Helper()
	b := New([]Namespace{NewFidoNamespace(auth)}, Options{
		AllowedOrigins: []string{"https://auth.example.com"},
	})
	require.NoError(t, b.Attach(context.Background(), surface))
	t.Cleanup(b.Detach)
	return b
}

func fidoMessage(action, params string) Message {
	return Message{
		Data:         envelope("FIDO", action, "window.cb", params),
		SourceOrigin: "https://auth.example.com",
		MainFrame:    true,
	}
}

func TestFidoIsAvailable(t *testing.T) {
	surface := newFakeSurface()
	b := fidoBridge(t, surface, newVirtualAuthenticator())

	b.HandleMessage(fidoMessage("isAvailable", ""))

	call := surface.wait(t)
	assert.Equal(t, "true", call.result)

	surface = newFakeSurface()
	b = fidoBridge(t, surface, failingAuthenticator{})
	b.HandleMessage(fidoMessage("isAvailable", ""))
	assert.Equal(t, "false", surface.wait(t).result)
}

func TestFidoCreateFlowCeremony(t *testing.T) {
	surface := newFakeSurface()
	b := fidoBridge(t, surface, newVirtualAuthenticator())

	b.HandleMessage(fidoMessage("create",
		`{"context":"flow-ctx","relyingPartyId":"example.com","relyingPartyName":"Example","userName":"alice","userDisplayName":"Alice"}`))

	call := surface.wait(t)
	require.True(t, gjson.Valid(call.result))
	assert.NotEmpty(t, gjson.Get(call.result, "attestationObject").String())
	assert.NotEmpty(t, gjson.Get(call.result, "clientDataJSON").String())
	assert.NotEmpty(t, gjson.Get(call.result, "credentialId").String())
}

func TestFidoCreateThenGet(t *testing.T) {
	surface := newFakeSurface()
	auth := newVirtualAuthenticator()
	b := fidoBridge(t, surface, auth)

	b.HandleMessage(fidoMessage("create",
		`{"context":"flow-ctx","relyingPartyId":"example.com","relyingPartyName":"Example","userName":"alice","userDisplayName":"Alice"}`))
	created := surface.wait(t)
	credID := gjson.Get(created.result, "credentialId").String()
	require.NotEmpty(t, credID)

	b.HandleMessage(fidoMessage("get",
		`{"context":"flow-ctx-2","relyingPartyId":"example.com","credId":"`+credID+`"}`))

	call := surface.wait(t)
	require.True(t, gjson.Valid(call.result))
	assert.NotEmpty(t, gjson.Get(call.result, "authenticatorData").String())
	assert.NotEmpty(t, gjson.Get(call.result, "signature").String())
	assert.Equal(t, credID, gjson.Get(call.result, "credentialId").String())
}

func TestFidoCreateMissingFields(t *testing.T) {
	tests := []struct {
		name   string
		params string
		field  string
	}{
		{"blank context", `{"context":" ","relyingPartyId":"example.com","relyingPartyName":"Example","userName":"alice","userDisplayName":"Alice"}`, "context"},
		{"missing rpId", `{"context":"c","relyingPartyName":"Example","userName":"alice","userDisplayName":"Alice"}`, "relyingPartyId"},
		{"missing userName", `{"context":"c","relyingPartyId":"example.com","relyingPartyName":"Example","userDisplayName":"Alice"}`, "userName"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			surface := newFakeSurface()
			b := fidoBridge(t, surface, newVirtualAuthenticator())

			b.HandleMessage(fidoMessage("create", tt.params))

			call := surface.wait(t)
			assert.Equal(t, "FidoNamespace", gjson.Get(call.result, "error.name").String())
			assert.Contains(t, gjson.Get(call.result, "error.message").String(), tt.field)
		})
	}
}

func TestFidoCreateNoParams(t *testing.T) {
	surface := newFakeSurface()
	b := fidoBridge(t, surface, newVirtualAuthenticator())

	b.HandleMessage(fidoMessage("create", ""))

	call := surface.wait(t)
	assert.Contains(t, gjson.Get(call.result, "error.message").String(), "no params set")
}

func TestFidoEnrollmentCreate(t *testing.T) {
	surface := newFakeSurface()
	b := fidoBridge(t, surface, newVirtualAuthenticator())

	// No context field: host enrollment options are normalized and passed
	// through, and the raw response is returned unshaped.
	b.HandleMessage(fidoMessage("create",
		`{"challenge":"enroll","rp":{"id":"example.com","name":"Example"},"user":{"name":"alice","displayName":"Alice"},"pubKeyCredParams":[{"type":"public-key","alg":-7}],"authenticatorSelection":{}}`))

	call := surface.wait(t)
	require.True(t, gjson.Valid(call.result))
	assert.NotEmpty(t, gjson.Get(call.result, "response.attestationObject").String())
	assert.NotEmpty(t, gjson.Get(call.result, "id").String())
}

func TestFidoAuthenticatorError(t *testing.T) {
	surface := newFakeSurface()
	b := fidoBridge(t, surface, failingAuthenticator{})

	b.HandleMessage(fidoMessage("get", `{"context":"c","relyingPartyId":"example.com"}`))

	call := surface.wait(t)
	assert.Equal(t, "FidoNamespace", gjson.Get(call.result, "error.name").String())
	assert.Contains(t, gjson.Get(call.result, "error.message").String(), "no platform authenticator")
}

func TestFidoUnsupportedAction(t *testing.T) {
	surface := newFakeSurface()
	b := fidoBridge(t, surface, newVirtualAuthenticator())

	b.HandleMessage(fidoMessage("destroy", ""))

	call := surface.wait(t)
	assert.Contains(t, gjson.Get(call.result, "error.message").String(), "unsupported action")
}
