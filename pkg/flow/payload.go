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

import "github.com/jeremyhahn/go-authflow/pkg/types"

// Payload is the decoded parameter set of one flow event. Each action
// decodes into exactly one payload variant; wrappers assert the variant
// they handle. Optional fields decode blank-to-empty.
type Payload interface {
	isPayload()
}

// AccountRegisterPayload carries an account_register command.
type AccountRegisterPayload struct {
	LoginID    string
	RawProfile string
	OwnIDData  string // optional
	AuthToken  string // optional
}

// SessionCreatePayload carries a session_create command.
type SessionCreatePayload struct {
	LoginID    string
	RawSession string
	AuthToken  string
	AuthMethod types.AuthMethod
}

// AuthPasswordPayload carries an auth_password_authenticate command.
type AuthPasswordPayload struct {
	LoginID  string
	Password string
}

// NativeActionPayload carries an onNativeAction command.
type NativeActionPayload struct {
	Name   string
	Params string // optional, raw JSON
}

// AccountNotFoundPayload carries an onAccountNotFound command.
type AccountNotFoundPayload struct {
	LoginID   string
	OwnIDData string // optional
	AuthToken string // optional
}

// FinishPayload carries an onFinish command.
type FinishPayload struct {
	LoginID    string
	Source     string // "mobile" or "desktop"
	Context    string // optional
	AuthMethod types.AuthMethod
	AuthToken  string // optional
}

// ErrorPayload carries an onError command.
type ErrorPayload struct {
	Cause error
}

// ClosePayload carries an onClose command.
type ClosePayload struct{}

func (AccountRegisterPayload) isPayload() {}
func (SessionCreatePayload) isPayload()   {}
func (AuthPasswordPayload) isPayload()    {}
func (NativeActionPayload) isPayload()    {}
func (AccountNotFoundPayload) isPayload() {}
func (FinishPayload) isPayload()          {}
func (ErrorPayload) isPayload()           {}
func (ClosePayload) isPayload()           {}
