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
	"errors"
	"fmt"
	"strings"

	"github.com/jeremyhahn/go-authflow/pkg/codec"
	"github.com/jeremyhahn/go-authflow/pkg/types"
)

// ActionDescriptor is one entry of the static flow action table. Each wire
// action maps to one wrapper kind and one payload decoder.
type ActionDescriptor struct {
	// WebAction is the action name as the web surface sends it.
	WebAction string

	// Terminal marks actions that end the flow and close the surface.
	Terminal bool

	// WrapperKind names the wrapper that serves this action.
	WrapperKind Kind

	decode func(params string) (Payload, error)
}

// actionTable lists every flow action the engine understands, in the order
// they are advertised. The table is fixed at compile time; the active subset
// for a flow follows from the wrappers the host supplies.
var actionTable = []*ActionDescriptor{
	{
		WebAction:   "account_register",
		WrapperKind: KindAccount,
		decode: func(params string) (Payload, error) {
			if strings.TrimSpace(params) == "" {
				return nil, NewError("flow.account_register", ErrMissingParams)
			}
			loginID, err := codec.RequiredString(params, "loginId")
			if err != nil {
				return nil, err
			}
			profile, err := codec.RequiredString(params, "profile")
			if err != nil {
				return nil, err
			}
			return AccountRegisterPayload{
				LoginID:    loginID,
				RawProfile: profile,
				OwnIDData:  codec.OptionalString(params, "ownIdData"),
				AuthToken:  codec.OptionalString(params, "authToken"),
			}, nil
		},
	},
	{
		WebAction:   "session_create",
		WrapperKind: KindSession,
		decode: func(params string) (Payload, error) {
			if strings.TrimSpace(params) == "" {
				return nil, NewError("flow.session_create", ErrMissingParams)
			}
			loginID, err := codec.RequiredString(params, "metadata.loginId")
			if err != nil {
				return nil, err
			}
			session, err := codec.RequiredString(params, "session")
			if err != nil {
				return nil, err
			}
			authToken, err := codec.RequiredString(params, "metadata.authToken")
			if err != nil {
				return nil, err
			}
			method, _ := types.ParseAuthMethod(codec.OptionalString(params, "metadata.authType"))
			return SessionCreatePayload{
				LoginID:    loginID,
				RawSession: session,
				AuthToken:  authToken,
				AuthMethod: method,
			}, nil
		},
	},
	{
		WebAction:   "auth_password_authenticate",
		WrapperKind: KindAuthPassword,
		decode: func(params string) (Payload, error) {
			if strings.TrimSpace(params) == "" {
				return nil, NewError("flow.auth_password_authenticate", ErrMissingParams)
			}
			loginID, err := codec.RequiredString(params, "loginId")
			if err != nil {
				return nil, err
			}
			password, err := codec.RequiredString(params, "password")
			if err != nil {
				return nil, err
			}
			return AuthPasswordPayload{LoginID: loginID, Password: password}, nil
		},
	},
	{
		WebAction:   "onNativeAction",
		Terminal:    true,
		WrapperKind: KindOnNativeAction,
		decode: func(params string) (Payload, error) {
			if strings.TrimSpace(params) == "" {
				return nil, NewError("flow.onNativeAction", ErrMissingParams)
			}
			name, err := codec.RequiredString(params, "name")
			if err != nil {
				return nil, err
			}
			return NativeActionPayload{
				Name:   name,
				Params: codec.OptionalString(params, "params"),
			}, nil
		},
	},
	{
		WebAction:   "onAccountNotFound",
		WrapperKind: KindOnAccountNotFound,
		decode: func(params string) (Payload, error) {
			if strings.TrimSpace(params) == "" {
				return nil, NewError("flow.onAccountNotFound", ErrMissingParams)
			}
			loginID, err := codec.RequiredString(params, "loginId")
			if err != nil {
				return nil, err
			}
			return AccountNotFoundPayload{
				LoginID:   loginID,
				OwnIDData: codec.OptionalString(params, "ownIdData"),
				AuthToken: codec.OptionalString(params, "authToken"),
			}, nil
		},
	},
	{
		WebAction:   "onFinish",
		Terminal:    true,
		WrapperKind: KindOnFinish,
		decode: func(params string) (Payload, error) {
			if strings.TrimSpace(params) == "" {
				return nil, NewError("flow.onFinish", ErrMissingParams)
			}
			loginID, err := codec.RequiredString(params, "loginId")
			if err != nil {
				return nil, err
			}
			source, err := codec.RequiredString(params, "source")
			if err != nil {
				return nil, err
			}
			method, _ := types.ParseAuthMethod(codec.OptionalString(params, "authType"))
			return FinishPayload{
				LoginID:    loginID,
				Source:     source,
				Context:    codec.OptionalString(params, "context"),
				AuthMethod: method,
				AuthToken:  codec.OptionalString(params, "authToken"),
			}, nil
		},
	},
	{
		WebAction:   "onError",
		Terminal:    true,
		WrapperKind: KindOnError,
		decode: func(params string) (Payload, error) {
			message := strings.TrimSpace(params)
			if message == "" {
				message = "flow error without details"
			}
			return ErrorPayload{Cause: errors.New(message)}, nil
		},
	},
	{
		WebAction:   "onClose",
		Terminal:    true,
		WrapperKind: KindOnClose,
		decode: func(string) (Payload, error) {
			return ClosePayload{}, nil
		},
	},
}

type registryEntry struct {
	descriptor *ActionDescriptor
	wrapper    Wrapper
}

// Registry is the active flow command surface for one flow: the subset of
// the action table whose wrapper kind the host supplied. Each flow owns its
// registry exclusively.
type Registry struct {
	entries map[string]registryEntry // key: lowercased web action
	ordered []string                 // table order, for the handshake
}

// BuildRegistry intersects the action table with the supplied wrappers.
// The first wrapper of each kind wins.
func BuildRegistry(wrappers []Wrapper) *Registry {
	byKind := make(map[Kind]Wrapper, len(wrappers))
	for _, w := range wrappers {
		if _, present := byKind[w.Kind()]; !present {
			byKind[w.Kind()] = w
		}
	}

	reg := &Registry{entries: make(map[string]registryEntry)}
	for _, desc := range actionTable {
		w, ok := byKind[desc.WrapperKind]
		if !ok {
			continue
		}
		reg.entries[strings.ToLower(desc.WebAction)] = registryEntry{descriptor: desc, wrapper: w}
		reg.ordered = append(reg.ordered, desc.WebAction)
	}
	return reg
}

// Resolve maps a wire action name to its descriptor and wrapper. Matching is
// case-insensitive.
func (r *Registry) Resolve(action string) (*ActionDescriptor, Wrapper, error) {
	entry, ok := r.entries[strings.ToLower(strings.TrimSpace(action))]
	if !ok {
		return nil, nil, NewError("flow.Resolve",
			fmt.Errorf("%w: %q", ErrUnsupportedAction, action))
	}
	return entry.descriptor, entry.wrapper, nil
}

// ActiveActions returns the resolvable action names in table order. This
// feeds the capability handshake.
func (r *Registry) ActiveActions() []string {
	return append([]string(nil), r.ordered...)
}

// NewEvent resolves an action, decodes its params and binds the reply
// callback. A nil reply is allowed for synthetic events.
func (r *Registry) NewEvent(action, params string, reply func(result string)) (*Event, error) {
	desc, wrapper, err := r.Resolve(action)
	if err != nil {
		return nil, err
	}
	payload, err := desc.decode(params)
	if err != nil {
		return nil, err
	}
	return &Event{descriptor: desc, wrapper: wrapper, payload: payload, reply: reply}, nil
}
