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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Envelope
		wantErr error
	}{
		{
			name: "full envelope",
			raw:  `{"namespace":"FLOW","action":"onFinish","callbackPath":"window.cb[0]","params":"{\"loginId\":\"alice\"}","metadata":"{\"category\":\"login\"}"}`,
			want: Envelope{
				Namespace:    "FLOW",
				Action:       "onFinish",
				CallbackPath: "window.cb[0]",
				Params:       `{"loginId":"alice"}`,
				Metadata:     `{"category":"login"}`,
			},
		},
		{
			name: "params absent",
			raw:  `{"namespace":"FIDO","action":"isAvailable","callbackPath":"cb"}`,
			want: Envelope{Namespace: "FIDO", Action: "isAvailable", CallbackPath: "cb"},
		},
		{
			name: "params null",
			raw:  `{"namespace":"FIDO","action":"isAvailable","callbackPath":"cb","params":null}`,
			want: Envelope{Namespace: "FIDO", Action: "isAvailable", CallbackPath: "cb"},
		},
		{
			name:    "not json",
			raw:     `not json at all`,
			wantErr: ErrInvalidEnvelope,
		},
		{
			name:    "missing namespace",
			raw:     `{"action":"get","callbackPath":"cb"}`,
			wantErr: ErrMissingField,
		},
		{
			name:    "blank action",
			raw:     `{"namespace":"STORAGE","action":"  ","callbackPath":"cb"}`,
			wantErr: ErrMissingField,
		},
		{
			name:    "missing callbackPath",
			raw:     `{"namespace":"STORAGE","action":"getLastUser"}`,
			wantErr: ErrMissingField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := ParseEnvelope(tt.raw)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, env)
		})
	}
}

func TestRequiredString(t *testing.T) {
	raw := `{"loginId":"alice","session":"  ","authToken":""}`

	v, err := RequiredString(raw, "loginId")
	require.NoError(t, err)
	assert.Equal(t, "alice", v)

	_, err = RequiredString(raw, "session")
	assert.ErrorIs(t, err, ErrMissingField)
	assert.Contains(t, err.Error(), "session")

	_, err = RequiredString(raw, "missing")
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestOptionalString(t *testing.T) {
	raw := `{"authToken":"tok","context":"  "}`

	assert.Equal(t, "tok", OptionalString(raw, "authToken"))
	assert.Equal(t, "", OptionalString(raw, "context"))
	assert.Equal(t, "", OptionalString(raw, "absent"))
}

func TestRawObject(t *testing.T) {
	raw := `{"profile":{"firstName":"Alice"},"loginId":"alice"}`

	assert.Equal(t, `{"firstName":"Alice"}`, RawObject(raw, "profile"))
	assert.Equal(t, "", RawObject(raw, "loginId"))
	assert.Equal(t, "", RawObject(raw, "absent"))
}
