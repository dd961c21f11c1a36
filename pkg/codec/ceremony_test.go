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
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestEncodeChallenge(t *testing.T) {
	assert.Equal(t, "Y3R4", EncodeChallenge("ctx"))
	assert.Equal(t, "", EncodeChallenge(""))

	// No padding characters, ever.
	assert.NotContains(t, EncodeChallenge("a"), "=")
}

func TestBuildRegistrationOptions(t *testing.T) {
	out, err := BuildRegistrationOptions(
		"ctx", "example.com", "Example", "uid", "alice", "Alice",
		[]string{"cred1", "cred1", ""})
	require.NoError(t, err)
	require.True(t, gjson.Valid(out))

	assert.Equal(t, "Y3R4", gjson.Get(out, "challenge").String())
	assert.Equal(t, "example.com", gjson.Get(out, "rp.id").String())
	assert.Equal(t, "Example", gjson.Get(out, "rp.name").String())
	assert.Equal(t, "uid", gjson.Get(out, "user.id").String())
	assert.Equal(t, "alice", gjson.Get(out, "user.name").String())
	assert.Equal(t, "Alice", gjson.Get(out, "user.displayName").String())
	assert.Equal(t, int64(120000), gjson.Get(out, "timeout").Int())
	assert.Equal(t, "none", gjson.Get(out, "attestation").String())

	params := gjson.Get(out, "pubKeyCredParams").Array()
	require.Len(t, params, 2)
	assert.Equal(t, int64(-7), params[0].Get("alg").Int())
	assert.Equal(t, int64(-257), params[1].Get("alg").Int())
	assert.Equal(t, "public-key", params[0].Get("type").String())

	// Duplicates and blanks are filtered, first-seen order kept.
	exclude := gjson.Get(out, "excludeCredentials").Array()
	require.Len(t, exclude, 1)
	assert.Equal(t, "cred1", exclude[0].Get("id").String())
	assert.Equal(t, "public-key", exclude[0].Get("type").String())

	sel := gjson.Get(out, "authenticatorSelection")
	assert.Equal(t, "platform", sel.Get("authenticatorAttachment").String())
	assert.Equal(t, "required", sel.Get("userVerification").String())
	assert.True(t, sel.Get("requireResidentKey").Bool())
	assert.Equal(t, "required", sel.Get("residentKey").String())
}

func TestBuildRegistrationOptionsNoCredentials(t *testing.T) {
	out, err := BuildRegistrationOptions("ctx", "example.com", "Example", "uid", "alice", "Alice", nil)
	require.NoError(t, err)

	exclude := gjson.Get(out, "excludeCredentials")
	require.True(t, exclude.IsArray())
	assert.Empty(t, exclude.Array())
}

func TestBuildAssertionOptions(t *testing.T) {
	out, err := BuildAssertionOptions("ctx", "example.com",
		[]string{"credA", "credB", "credA", " "})
	require.NoError(t, err)
	require.True(t, gjson.Valid(out))

	assert.Equal(t, "Y3R4", gjson.Get(out, "challenge").String())
	assert.Equal(t, "example.com", gjson.Get(out, "rpId").String())
	assert.Equal(t, int64(120000), gjson.Get(out, "timeout").Int())
	assert.Equal(t, "required", gjson.Get(out, "userVerification").String())

	allow := gjson.Get(out, "allowCredentials").Array()
	require.Len(t, allow, 2)
	assert.Equal(t, "credA", allow[0].Get("id").String())
	assert.Equal(t, "credB", allow[1].Get("id").String())
}

func TestAdjustEnrollmentOptions(t *testing.T) {
	raw := `{"challenge":"enroll-ctx","rp":{"id":"example.com","name":"Example"},"user":{"name":"alice","displayName":"Alice"},"authenticatorSelection":{}}`

	out, err := AdjustEnrollmentOptions(raw)
	require.NoError(t, err)

	assert.Equal(t, EncodeChallenge("enroll-ctx"), gjson.Get(out, "challenge").String())
	assert.Equal(t, int64(120000), gjson.Get(out, "timeout").Int())
	assert.Equal(t, "none", gjson.Get(out, "attestation").String())

	// Generated user id is 32 random bytes, base64url no padding.
	userID := gjson.Get(out, "user.id").String()
	decoded, decErr := base64.RawURLEncoding.DecodeString(userID)
	require.NoError(t, decErr)
	assert.Len(t, decoded, 32)

	sel := gjson.Get(out, "authenticatorSelection")
	assert.Equal(t, "platform", sel.Get("authenticatorAttachment").String())
	assert.Equal(t, "required", sel.Get("userVerification").String())
	assert.True(t, sel.Get("requireResidentKey").Bool())
	assert.Equal(t, "required", sel.Get("residentKey").String())
}

func TestAdjustEnrollmentOptionsPreservesSuppliedFields(t *testing.T) {
	raw := `{"challenge":"c","user":{"id":"host-id","name":"alice"},"timeout":5000,"attestation":"direct","authenticatorSelection":{"userVerification":"preferred","requireResidentKey":false}}`

	out, err := AdjustEnrollmentOptions(raw)
	require.NoError(t, err)

	assert.Equal(t, "host-id", gjson.Get(out, "user.id").String())
	assert.Equal(t, int64(5000), gjson.Get(out, "timeout").Int())
	assert.Equal(t, "direct", gjson.Get(out, "attestation").String())
	assert.Equal(t, "preferred", gjson.Get(out, "authenticatorSelection.userVerification").String())
	assert.False(t, gjson.Get(out, "authenticatorSelection.requireResidentKey").Bool())
	// Absent fields still defaulted.
	assert.Equal(t, "platform", gjson.Get(out, "authenticatorSelection.authenticatorAttachment").String())
}

func TestAdjustEnrollmentOptionsErrors(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{"not json", "nope", ErrInvalidOptions},
		{"missing challenge", `{"user":{},"authenticatorSelection":{}}`, ErrMissingField},
		{"missing user", `{"challenge":"c","authenticatorSelection":{}}`, ErrMissingField},
		{"missing selection", `{"challenge":"c","user":{}}`, ErrMissingField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AdjustEnrollmentOptions(tt.raw)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRandomUserID(t *testing.T) {
	a, err := RandomUserID()
	require.NoError(t, err)
	b, err := RandomUserID()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	decoded, err := base64.RawURLEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, decoded, 32)
}
