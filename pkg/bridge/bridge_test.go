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
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

// echoNamespace replies with its own name for any action.
type echoNamespace struct {
	name    string
	actions []string
}

func (n *echoNamespace) Name() string      { return n.name }
func (n *echoNamespace) Actions() []string { return n.actions }
func (n *echoNamespace) Handle(conn *Conn, action, params, metadata string) {
	conn.Succeed(`"` + n.name + `:` + action + `"`)
}

func newTestBridge(t *testing.T, surface Surface, namespaces ...Namespace) *Bridge {
	t.Helper()
	if len(namespaces) == 0 {
		namespaces = []Namespace{
			&echoNamespace{name: "METADATA", actions: []string{"get"}},
		}
	}
	b := New(namespaces, Options{
		AllowedOrigins: []string{"https://auth.example.com", "https://*.widgets.example.com"},
	})
	require.NoError(t, b.Attach(context.Background(), surface))
	t.Cleanup(b.Detach)
	return b
}

func envelope(namespace, action, callbackPath, params string) string {
	doc := `{"namespace":"` + namespace + `","action":"` + action + `","callbackPath":"` + callbackPath + `"`
	if params != "" {
		doc += `,"params":` + strconv.Quote(params)
	}
	return doc + `}`
}

func TestHandleMessageDispatch(t *testing.T) {
	surface := newFakeSurface()
	b := newTestBridge(t, surface)

	b.HandleMessage(Message{
		Data:         envelope("METADATA", "get", "window.cb[1]", ""),
		SourceOrigin: "https://auth.example.com",
		MainFrame:    true,
	})

	call := surface.wait(t)
	assert.Equal(t, "window.cb[1]", call.callbackPath)
	assert.Equal(t, `"METADATA:get"`, call.result)
}

func TestHandleMessageNamespaceCaseInsensitive(t *testing.T) {
	surface := newFakeSurface()
	b := newTestBridge(t, surface)

	b.HandleMessage(Message{
		Data:         envelope("metadata", "get", "cb", ""),
		SourceOrigin: "https://auth.example.com",
		MainFrame:    true,
	})

	call := surface.wait(t)
	assert.Equal(t, `"METADATA:get"`, call.result)
}

func TestHandleMessageValidationFailures(t *testing.T) {
	tests := []struct {
		name   string
		msg    Message
		reason string
	}{
		{
			name: "subframe",
			msg: Message{
				Data:         envelope("METADATA", "get", "cb", ""),
				SourceOrigin: "https://auth.example.com",
				MainFrame:    false,
			},
			reason: "subframes",
		},
		{
			name: "insecure scheme",
			msg: Message{
				Data:         envelope("METADATA", "get", "cb", ""),
				SourceOrigin: "http://auth.example.com",
				MainFrame:    true,
			},
			reason: "https",
		},
		{
			name: "origin not allowed",
			msg: Message{
				Data:         envelope("METADATA", "get", "cb", ""),
				SourceOrigin: "https://evil.test",
				MainFrame:    true,
			},
			reason: "not permitted",
		},
		{
			name: "wildcard apex not allowed",
			msg: Message{
				Data:         envelope("METADATA", "get", "cb", ""),
				SourceOrigin: "https://widgets.example.com",
				MainFrame:    true,
			},
			reason: "not permitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			surface := newFakeSurface()
			b := newTestBridge(t, surface)

			b.HandleMessage(tt.msg)

			// Validation failures reply with the namespace error shape and
			// leave the connection open.
			call := surface.wait(t)
			require.True(t, gjson.Valid(call.result))
			assert.Equal(t, "Bridge", gjson.Get(call.result, "error.name").String())
			assert.Contains(t, gjson.Get(call.result, "error.message").String(), tt.reason)
			assert.False(t, surface.isClosed())
		})
	}
}

func TestHandleMessageWildcardSubdomainAllowed(t *testing.T) {
	surface := newFakeSurface()
	b := newTestBridge(t, surface)

	b.HandleMessage(Message{
		Data:         envelope("METADATA", "get", "cb", ""),
		SourceOrigin: "https://eu.widgets.example.com",
		MainFrame:    true,
	})

	call := surface.wait(t)
	assert.Equal(t, `"METADATA:get"`, call.result)
}

func TestHandleMessageUnknownNamespace(t *testing.T) {
	surface := newFakeSurface()
	b := newTestBridge(t, surface)

	b.HandleMessage(Message{
		Data:         envelope("NOPE", "get", "cb", ""),
		SourceOrigin: "https://auth.example.com",
		MainFrame:    true,
	})

	call := surface.wait(t)
	assert.Contains(t, gjson.Get(call.result, "error.message").String(), "unsupported namespace")
	assert.False(t, surface.isClosed())
}

func TestHandleMessageInvalidEnvelope(t *testing.T) {
	surface := newFakeSurface()
	b := newTestBridge(t, surface)

	// No callback path means no reply channel; the command is dropped.
	b.HandleMessage(Message{
		Data:         `{"namespace":"METADATA","action":"get"}`,
		SourceOrigin: "https://auth.example.com",
		MainFrame:    true,
	})
	b.HandleMessage(Message{
		Data:         `not json`,
		SourceOrigin: "https://auth.example.com",
		MainFrame:    true,
	})

	assert.Equal(t, 0, surface.callCount())
}

func TestHandleMessageAfterDetach(t *testing.T) {
	surface := newFakeSurface()
	b := New([]Namespace{&echoNamespace{name: "METADATA", actions: []string{"get"}}}, Options{
		AllowedOrigins: []string{"*"},
	})
	require.NoError(t, b.Attach(context.Background(), surface))
	b.Detach()

	b.HandleMessage(Message{
		Data:         envelope("METADATA", "get", "cb", ""),
		SourceOrigin: "https://auth.example.com",
		MainFrame:    true,
	})

	assert.Equal(t, 0, surface.callCount())
}

func TestCapabilities(t *testing.T) {
	b := New([]Namespace{
		&echoNamespace{name: "FIDO", actions: []string{"isAvailable", "create", "get"}},
		&echoNamespace{name: "METADATA", actions: []string{"get"}},
	}, Options{})

	caps := b.Capabilities()
	require.True(t, gjson.Valid(caps))

	fido := gjson.Get(caps, "FIDO").Array()
	require.Len(t, fido, 3)
	assert.Equal(t, "isAvailable", fido[0].String())
	assert.Equal(t, "get", gjson.Get(caps, "METADATA.0").String())
}

func TestBootstrapScript(t *testing.T) {
	b := New([]Namespace{&echoNamespace{name: "METADATA", actions: []string{"get"}}}, Options{})

	script := b.BootstrapScript()
	assert.Contains(t, script, "window."+BridgeObjectName)
	assert.Contains(t, script, "getNamespaces")
	assert.Contains(t, script, "invokeNative")
	assert.Contains(t, script, `"METADATA":["get"]`)
}

func TestAttachTwice(t *testing.T) {
	b := New([]Namespace{&echoNamespace{name: "METADATA", actions: []string{"get"}}}, Options{})
	require.NoError(t, b.Attach(context.Background(), newFakeSurface()))
	assert.Error(t, b.Attach(context.Background(), newFakeSurface()))
}
