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
	"fmt"

	"github.com/jeremyhahn/go-authflow/pkg/types"
)

// Kind identifies which flow action a wrapper serves. One wrapper kind maps
// to exactly one action descriptor.
type Kind int

const (
	KindSession Kind = iota
	KindAccount
	KindAuthPassword
	KindOnNativeAction
	KindOnAccountNotFound
	KindOnFinish
	KindOnError
	KindOnClose
)

// String returns the wrapper kind name for logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindSession:
		return "session"
	case KindAccount:
		return "account"
	case KindAuthPassword:
		return "authPassword"
	case KindOnNativeAction:
		return "onNativeAction"
	case KindOnAccountNotFound:
		return "onAccountNotFound"
	case KindOnFinish:
		return "onFinish"
	case KindOnError:
		return "onError"
	case KindOnClose:
		return "onClose"
	default:
		return "unknown"
	}
}

// Wrapper adapts one host-supplied function or provider to the event loop.
// Invoke unpacks the payload variant it expects and fails loudly on any
// other variant.
type Wrapper interface {
	Kind() Kind
	Invoke(ctx context.Context, payload Payload) (Result, error)
}

func mismatch(kind Kind, payload Payload) error {
	return NewError("flow."+kind.String(),
		fmt.Errorf("%w: %T", ErrWrapperMismatch, payload))
}

// SessionWrapper serves session_create through a SessionProvider.
type SessionWrapper struct {
	provider SessionProvider
}

// NewSessionWrapper wraps a session provider.
func NewSessionWrapper(provider SessionProvider) *SessionWrapper {
	return &SessionWrapper{provider: provider}
}

func (w *SessionWrapper) Kind() Kind { return KindSession }

func (w *SessionWrapper) Invoke(ctx context.Context, payload Payload) (Result, error) {
	p, ok := payload.(SessionCreatePayload)
	if !ok {
		return nil, mismatch(w.Kind(), payload)
	}
	return w.provider.Create(ctx, p.LoginID, p.RawSession, p.AuthToken, p.AuthMethod)
}

// AccountWrapper serves account_register through an AccountProvider.
type AccountWrapper struct {
	provider AccountProvider
}

// NewAccountWrapper wraps an account provider.
func NewAccountWrapper(provider AccountProvider) *AccountWrapper {
	return &AccountWrapper{provider: provider}
}

func (w *AccountWrapper) Kind() Kind { return KindAccount }

func (w *AccountWrapper) Invoke(ctx context.Context, payload Payload) (Result, error) {
	p, ok := payload.(AccountRegisterPayload)
	if !ok {
		return nil, mismatch(w.Kind(), payload)
	}
	return w.provider.Register(ctx, p.LoginID, p.RawProfile, p.OwnIDData, p.AuthToken)
}

// AuthPasswordWrapper serves auth_password_authenticate through a
// PasswordAuthProvider.
type AuthPasswordWrapper struct {
	provider PasswordAuthProvider
}

// NewAuthPasswordWrapper wraps a password auth provider.
func NewAuthPasswordWrapper(provider PasswordAuthProvider) *AuthPasswordWrapper {
	return &AuthPasswordWrapper{provider: provider}
}

func (w *AuthPasswordWrapper) Kind() Kind { return KindAuthPassword }

func (w *AuthPasswordWrapper) Invoke(ctx context.Context, payload Payload) (Result, error) {
	p, ok := payload.(AuthPasswordPayload)
	if !ok {
		return nil, mismatch(w.Kind(), payload)
	}
	return w.provider.Authenticate(ctx, p.LoginID, p.Password)
}

// OnNativeActionWrapper serves the terminal onNativeAction event.
type OnNativeActionWrapper struct {
	fn func(ctx context.Context, name, params string) error
}

// NewOnNativeActionWrapper wraps an onNativeAction hook.
func NewOnNativeActionWrapper(fn func(ctx context.Context, name, params string) error) *OnNativeActionWrapper {
	return &OnNativeActionWrapper{fn: fn}
}

func (w *OnNativeActionWrapper) Kind() Kind { return KindOnNativeAction }

func (w *OnNativeActionWrapper) Invoke(ctx context.Context, payload Payload) (Result, error) {
	p, ok := payload.(NativeActionPayload)
	if !ok {
		return nil, mismatch(w.Kind(), payload)
	}
	if err := w.fn(ctx, p.Name, p.Params); err != nil {
		return nil, err
	}
	return PageActionNone(), nil
}

// OnAccountNotFoundWrapper serves the onAccountNotFound event. The returned
// PageAction steers the web surface: continue, close, or hand over to a
// native registration flow.
type OnAccountNotFoundWrapper struct {
	fn func(ctx context.Context, loginID, ownIDData, authToken string) (PageAction, error)
}

// NewOnAccountNotFoundWrapper wraps an onAccountNotFound hook.
func NewOnAccountNotFoundWrapper(fn func(ctx context.Context, loginID, ownIDData, authToken string) (PageAction, error)) *OnAccountNotFoundWrapper {
	return &OnAccountNotFoundWrapper{fn: fn}
}

func (w *OnAccountNotFoundWrapper) Kind() Kind { return KindOnAccountNotFound }

func (w *OnAccountNotFoundWrapper) Invoke(ctx context.Context, payload Payload) (Result, error) {
	p, ok := payload.(AccountNotFoundPayload)
	if !ok {
		return nil, mismatch(w.Kind(), payload)
	}
	return w.fn(ctx, p.LoginID, p.OwnIDData, p.AuthToken)
}

// OnFinishWrapper serves the terminal onFinish event.
type OnFinishWrapper struct {
	fn func(ctx context.Context, loginID string, method types.AuthMethod, authToken string) error
}

// NewOnFinishWrapper wraps an onFinish hook.
func NewOnFinishWrapper(fn func(ctx context.Context, loginID string, method types.AuthMethod, authToken string) error) *OnFinishWrapper {
	return &OnFinishWrapper{fn: fn}
}

func (w *OnFinishWrapper) Kind() Kind { return KindOnFinish }

func (w *OnFinishWrapper) Invoke(ctx context.Context, payload Payload) (Result, error) {
	p, ok := payload.(FinishPayload)
	if !ok {
		return nil, mismatch(w.Kind(), payload)
	}
	if err := w.fn(ctx, p.LoginID, p.AuthMethod, p.AuthToken); err != nil {
		return nil, err
	}
	return PageActionNone(), nil
}

// OnErrorWrapper serves the terminal onError event.
type OnErrorWrapper struct {
	fn func(ctx context.Context, cause error) error
}

// NewOnErrorWrapper wraps an onError hook.
func NewOnErrorWrapper(fn func(ctx context.Context, cause error) error) *OnErrorWrapper {
	return &OnErrorWrapper{fn: fn}
}

func (w *OnErrorWrapper) Kind() Kind { return KindOnError }

func (w *OnErrorWrapper) Invoke(ctx context.Context, payload Payload) (Result, error) {
	p, ok := payload.(ErrorPayload)
	if !ok {
		return nil, mismatch(w.Kind(), payload)
	}
	if err := w.fn(ctx, p.Cause); err != nil {
		return nil, err
	}
	return PageActionNone(), nil
}

// OnCloseWrapper serves the terminal onClose event.
type OnCloseWrapper struct {
	fn func(ctx context.Context) error
}

// NewOnCloseWrapper wraps an onClose hook.
func NewOnCloseWrapper(fn func(ctx context.Context) error) *OnCloseWrapper {
	return &OnCloseWrapper{fn: fn}
}

func (w *OnCloseWrapper) Kind() Kind { return KindOnClose }

func (w *OnCloseWrapper) Invoke(ctx context.Context, payload Payload) (Result, error) {
	if _, ok := payload.(ClosePayload); !ok {
		return nil, mismatch(w.Kind(), payload)
	}
	if err := w.fn(ctx); err != nil {
		return nil, err
	}
	return PageActionNone(), nil
}

// Default terminal wrappers guarantee the terminal path is always defined.
func defaultOnFinish() Wrapper {
	return NewOnFinishWrapper(func(context.Context, string, types.AuthMethod, string) error {
		return nil
	})
}

func defaultOnError() Wrapper {
	return NewOnErrorWrapper(func(context.Context, error) error { return nil })
}

func defaultOnClose() Wrapper {
	return NewOnCloseWrapper(func(context.Context) error { return nil })
}

// CombineWrappers assembles the active wrapper list for one flow. Per-call
// providers win over global providers by presence: a global capability is
// kept only when the override set does not supply that capability at all.
// Event wrappers are appended as given; default no-op OnFinish, OnError and
// OnClose wrappers are appended only when the caller supplied none of that
// kind.
func CombineWrappers(global, override *Providers, events []Wrapper) []Wrapper {
	var out []Wrapper

	if override != nil {
		overrideWrappers := override.wrappers()
		out = append(out, overrideWrappers...)
		present := make(map[Kind]bool, len(overrideWrappers))
		for _, w := range overrideWrappers {
			present[w.Kind()] = true
		}
		for _, w := range global.wrappers() {
			if !present[w.Kind()] {
				out = append(out, w)
			}
		}
	} else {
		out = append(out, global.wrappers()...)
	}

	out = append(out, events...)

	supplied := make(map[Kind]bool, len(events))
	for _, w := range events {
		supplied[w.Kind()] = true
	}
	if !supplied[KindOnFinish] {
		out = append(out, defaultOnFinish())
	}
	if !supplied[KindOnError] {
		out = append(out, defaultOnError())
	}
	if !supplied[KindOnClose] {
		out = append(out, defaultOnClose())
	}
	return out
}
