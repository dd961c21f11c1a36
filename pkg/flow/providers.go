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

package flow

import (
	"context"
	"encoding/json"

	"github.com/jeremyhahn/go-authflow/pkg/types"
)

// Result is a value a wrapper returns for delivery to the web surface.
type Result interface {
	// JSON encodes the result for the reply callback.
	JSON() string
}

// AuthResult is the outcome of a provider operation. The wire shape is
// {"status":"logged-in"} or {"status":"fail","reason":...} and is frozen.
type AuthResult struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// LoggedIn reports a successful provider operation.
func LoggedIn() AuthResult {
	return AuthResult{Status: "logged-in"}
}

// Failed reports a failed provider operation with an optional reason.
func Failed(reason string) AuthResult {
	return AuthResult{Status: "fail", Reason: reason}
}

// JSON implements Result.
func (r AuthResult) JSON() string {
	out, err := json.Marshal(r)
	if err != nil {
		return `{"status":"fail"}`
	}
	return string(out)
}

// PageAction is a redirect-style instruction a lifecycle hook returns to the
// web surface: continue ("none"), close the flow, or run a native action.
type PageAction struct {
	Action string
	Name   string // set for native actions

	// Register parameters, set when Name is "register".
	LoginID   string
	OwnIDData string
	AuthToken string
}

// PageActionNone continues the flow on the web surface.
func PageActionNone() PageAction {
	return PageAction{Action: "none"}
}

// PageActionClose closes the flow.
func PageActionClose() PageAction {
	return PageAction{Action: "close"}
}

// PageActionRegister hands the flow over to native registration for the
// given login id. The web surface replies with a terminal onNativeAction
// "register" command carrying these parameters back.
func PageActionRegister(loginID, ownIDData, authToken string) PageAction {
	return PageAction{
		Action:    "native",
		Name:      "register",
		LoginID:   loginID,
		OwnIDData: ownIDData,
		AuthToken: authToken,
	}
}

// JSON implements Result.
func (a PageAction) JSON() string {
	doc := map[string]any{"action": a.Action}
	if a.Name != "" {
		doc["name"] = a.Name
	}
	if a.Name == "register" {
		doc["params"] = map[string]any{
			"loginId":   a.LoginID,
			"ownIdData": a.OwnIDData,
			"authToken": a.AuthToken,
		}
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return `{"action":"none"}`
	}
	return string(out)
}

// SessionProvider exchanges a raw session payload for a host session.
type SessionProvider interface {
	Create(ctx context.Context, loginID, rawSession, authToken string, method types.AuthMethod) (AuthResult, error)
}

// AccountProvider registers a new account in the host identity system.
type AccountProvider interface {
	Register(ctx context.Context, loginID, rawProfile, ownIDData, authToken string) (AuthResult, error)
}

// PasswordAuthProvider authenticates a login id with a password.
type PasswordAuthProvider interface {
	Authenticate(ctx context.Context, loginID, password string) (AuthResult, error)
}

// Providers is a capability set a host supplies, either process-wide or per
// flow. Nil fields leave the corresponding commands out of the active
// command surface.
type Providers struct {
	Session  SessionProvider
	Account  AccountProvider
	Password PasswordAuthProvider
}

// wrappers converts the present capabilities into wrappers.
func (p *Providers) wrappers() []Wrapper {
	if p == nil {
		return nil
	}
	var out []Wrapper
	if p.Session != nil {
		out = append(out, &SessionWrapper{provider: p.Session})
	}
	if p.Account != nil {
		out = append(out, &AccountWrapper{provider: p.Account})
	}
	if p.Password != nil {
		out = append(out, &AuthPasswordWrapper{provider: p.Password})
	}
	return out
}
