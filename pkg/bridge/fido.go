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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jeremyhahn/go-authflow/pkg/codec"
	"github.com/tidwall/gjson"
)

const (
	fidoNamespace = "FIDO"

	actionIsAvailable = "isAvailable"
	actionCreate      = "create"
	actionGet         = "get"

	fidoHandlerName = "FidoNamespace"
)

// Authenticator is the host-supplied platform authenticator. Options and
// responses are standard WebAuthn JSON documents; the bridge builds the
// options and reshapes the responses for the web surface.
type Authenticator interface {
	// IsAvailable reports whether a platform authenticator can be used.
	IsAvailable(ctx context.Context) bool

	// Create runs a credential creation ceremony and returns the standard
	// registration response JSON.
	Create(ctx context.Context, options string) (string, error)

	// Get runs a credential request ceremony and returns the standard
	// authentication response JSON.
	Get(ctx context.Context, options string) (string, error)
}

// FidoNamespace exposes passkey ceremonies to the web surface. A create
// command carrying a flow context builds fresh registration options; one
// without it is a host enrollment call whose options are normalized and
// passed through.
type FidoNamespace struct {
	authenticator Authenticator
}

// NewFidoNamespace creates the FIDO namespace handler.
func NewFidoNamespace(authenticator Authenticator) *FidoNamespace {
	return &FidoNamespace{authenticator: authenticator}
}

// Name implements Namespace.
func (n *FidoNamespace) Name() string { return fidoNamespace }

// Actions implements Namespace.
func (n *FidoNamespace) Actions() []string {
	return []string{actionIsAvailable, actionCreate, actionGet}
}

// Handle implements Namespace. Ceremonies run on their own goroutine so the
// dispatch loop is never blocked on the platform authenticator.
func (n *FidoNamespace) Handle(conn *Conn, action, params, metadata string) {
	go func() {
		var err error
		switch {
		case strings.EqualFold(action, actionIsAvailable):
			conn.Succeed(codec.EncodeBool(n.authenticator.IsAvailable(conn.Context())))
			return
		case strings.EqualFold(action, actionCreate):
			err = n.runCreate(conn, params)
		case strings.EqualFold(action, actionGet):
			err = n.runGet(conn, params)
		default:
			err = NewError("bridge.fido",
				fmt.Errorf("%w: %q", ErrUnsupportedAction, action))
		}
		if err != nil {
			conn.Fail(fidoHandlerName, err)
		}
	}()
}

func (n *FidoNamespace) runCreate(conn *Conn, params string) error {
	if strings.TrimSpace(params) == "" {
		return NewError("bridge.fido.create", ErrMissingParams)
	}

	// A flow create carries a context; enrollment options come fully formed
	// from the host and are only normalized.
	if !gjson.Get(params, "context").Exists() {
		options, err := codec.AdjustEnrollmentOptions(params)
		if err != nil {
			return err
		}
		response, err := n.authenticator.Create(conn.Context(), options)
		if err != nil {
			return NewError("bridge.fido.create", err)
		}
		conn.Succeed(response)
		return nil
	}

	flowContext, err := codec.RequiredString(params, "context")
	if err != nil {
		return err
	}
	rpID, err := codec.RequiredString(params, "relyingPartyId")
	if err != nil {
		return err
	}
	rpName, err := codec.RequiredString(params, "relyingPartyName")
	if err != nil {
		return err
	}
	userName, err := codec.RequiredString(params, "userName")
	if err != nil {
		return err
	}
	userDisplayName, err := codec.RequiredString(params, "userDisplayName")
	if err != nil {
		return err
	}
	userID, err := codec.RandomUserID()
	if err != nil {
		return NewError("bridge.fido.create", err)
	}

	options, err := codec.BuildRegistrationOptions(
		flowContext, rpID, rpName, userID, userName, userDisplayName,
		credentialIDs(params))
	if err != nil {
		return err
	}

	response, err := n.authenticator.Create(conn.Context(), options)
	if err != nil {
		return NewError("bridge.fido.create", err)
	}

	reshaped, err := reshapeRegistration(response)
	if err != nil {
		return err
	}
	conn.Succeed(reshaped)
	return nil
}

func (n *FidoNamespace) runGet(conn *Conn, params string) error {
	if strings.TrimSpace(params) == "" {
		return NewError("bridge.fido.get", ErrMissingParams)
	}

	flowContext, err := codec.RequiredString(params, "context")
	if err != nil {
		return err
	}
	rpID, err := codec.RequiredString(params, "relyingPartyId")
	if err != nil {
		return err
	}

	options, err := codec.BuildAssertionOptions(flowContext, rpID, credentialIDs(params))
	if err != nil {
		return err
	}

	response, err := n.authenticator.Get(conn.Context(), options)
	if err != nil {
		return NewError("bridge.fido.get", err)
	}

	reshaped, err := reshapeAssertion(response)
	if err != nil {
		return err
	}
	conn.Succeed(reshaped)
	return nil
}

// credentialIDs reads the "credsIds" array, falling back to the single
// "credId" field. Blank entries are dropped here; the codec de-duplicates.
func credentialIDs(params string) []string {
	var ids []string
	if arr := gjson.Get(params, "credsIds"); arr.IsArray() {
		for _, v := range arr.Array() {
			ids = append(ids, v.String())
		}
	} else {
		ids = append(ids, gjson.Get(params, "credId").String())
	}
	filtered := ids[:0]
	for _, id := range ids {
		if strings.TrimSpace(id) != "" {
			filtered = append(filtered, id)
		}
	}
	return filtered
}

// reshapeRegistration extracts the fields the web surface consumes from a
// standard registration response.
func reshapeRegistration(response string) (string, error) {
	out, err := json.Marshal(map[string]string{
		"attestationObject": gjson.Get(response, "response.attestationObject").String(),
		"clientDataJSON":    gjson.Get(response, "response.clientDataJSON").String(),
		"credentialId":      gjson.Get(response, "id").String(),
	})
	if err != nil {
		return "", NewError("bridge.fido.create", err)
	}
	return string(out), nil
}

// reshapeAssertion extracts the fields the web surface consumes from a
// standard authentication response.
func reshapeAssertion(response string) (string, error) {
	out, err := json.Marshal(map[string]string{
		"authenticatorData": gjson.Get(response, "response.authenticatorData").String(),
		"clientDataJSON":    gjson.Get(response, "response.clientDataJSON").String(),
		"signature":         gjson.Get(response, "response.signature").String(),
		"credentialId":      gjson.Get(response, "id").String(),
	})
	if err != nil {
		return "", NewError("bridge.fido.get", err)
	}
	return string(out), nil
}
