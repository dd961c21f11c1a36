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

// Package flow runs the authentication flow between an embedded web surface
// and host-supplied providers: a static action table, per-flow event bus,
// provider wrapper system and the orchestrator that ties them to the bridge.
//
// A flow ends in exactly one of four outcomes: logged in, account not found,
// error, or closed.
package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jeremyhahn/go-authflow/pkg/bridge"
	"github.com/jeremyhahn/go-authflow/pkg/codec"
	"github.com/jeremyhahn/go-authflow/pkg/logging"
	"github.com/jeremyhahn/go-authflow/pkg/metrics"
	"github.com/jeremyhahn/go-authflow/pkg/storage"
	"github.com/jeremyhahn/go-authflow/pkg/types"
)

// OutcomeKind enumerates the terminal outcomes of a flow.
type OutcomeKind int

const (
	OutcomeUnknown OutcomeKind = iota
	OutcomeLogin
	OutcomeAccountNotFound
	OutcomeError
	OutcomeClose
)

// String returns the outcome name.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeLogin:
		return metrics.OutcomeLogin
	case OutcomeAccountNotFound:
		return metrics.OutcomeAccountNotFound
	case OutcomeError:
		return metrics.OutcomeError
	case OutcomeClose:
		return metrics.OutcomeClose
	default:
		return "unknown"
	}
}

// Login is the successful outcome of a flow.
type Login struct {
	LoginID    string
	AuthMethod types.AuthMethod
	AuthToken  string
}

// AccountNotFound carries enough data for the host to drive its own
// registration after the flow hands over.
type AccountNotFound struct {
	LoginID   string
	OwnIDData string
	AuthToken string
}

// Outcome is the terminal result of one flow. Exactly one of the optional
// fields is set, matching Kind.
type Outcome struct {
	Kind            OutcomeKind
	Login           *Login
	AccountNotFound *AccountNotFound
	Err             error
}

// Options configures an Engine.
type Options struct {
	// Providers is the process-wide provider set. Per-flow providers
	// passed to Start override these by presence.
	Providers *Providers

	// Store persists the last signed-in user. Required for the STORAGE
	// namespace and login receipt effects; nil disables both.
	Store storage.LoginStore

	// Authenticator enables the FIDO namespace; nil disables it.
	Authenticator bridge.Authenticator

	// AllowedOrigins is the origin allow-list applied to every command.
	AllowedOrigins []string

	// CorrelationID joins web and native logs; generated when empty.
	CorrelationID string

	Logger  *logging.Logger
	Metrics *metrics.Metrics
}

// Engine creates and tracks flows. Each flow owns its registry, bus and
// wrapper set exclusively; the bus registry is the engine's only shared
// mutable structure.
type Engine struct {
	providers      *Providers
	store          storage.LoginStore
	authenticator  bridge.Authenticator
	allowedOrigins []string
	correlationID  string
	logger         *logging.Logger
	metrics        *metrics.Metrics
	buses          *BusRegistry
}

// NewEngine creates a flow engine.
func NewEngine(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &Engine{
		providers:      opts.Providers,
		store:          opts.Store,
		authenticator:  opts.Authenticator,
		allowedOrigins: opts.AllowedOrigins,
		correlationID:  opts.CorrelationID,
		logger:         logger,
		metrics:        opts.Metrics,
		buses:          NewBusRegistry(),
	}
}

// Buses returns the engine's bus registry.
func (e *Engine) Buses() *BusRegistry {
	return e.buses
}

type startConfig struct {
	providers *Providers
	wrappers  []Wrapper
}

// StartOption customizes one flow.
type StartOption func(*startConfig)

// WithProviders overrides the engine's global providers for this flow.
// Override is by presence: capabilities the override set leaves nil fall
// back to the global set.
func WithProviders(p *Providers) StartOption {
	return func(cfg *startConfig) { cfg.providers = p }
}

// WithWrappers supplies event wrappers (onFinish, onError, onClose,
// onAccountNotFound, onNativeAction) for this flow.
func WithWrappers(wrappers ...Wrapper) StartOption {
	return func(cfg *startConfig) { cfg.wrappers = append(cfg.wrappers, wrappers...) }
}

// Start opens a flow on the given surface and returns its Handle. The
// context bounds the flow: cancelling it is treated identically to a
// user-driven close.
func (e *Engine) Start(ctx context.Context, surface bridge.Surface, opts ...StartOption) (*Handle, error) {
	var cfg startConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	wrappers := CombineWrappers(e.providers, cfg.providers, cfg.wrappers)
	registry := BuildRegistry(wrappers)
	bus := NewBus(ctx, e.buses, e.logger, e.metrics)

	namespaces := []bridge.Namespace{
		NewFlowNamespace(registry, bus, e.logger),
		bridge.NewMetadataNamespace(e.correlationID),
	}
	if e.authenticator != nil {
		namespaces = append(namespaces, bridge.NewFidoNamespace(e.authenticator))
	}
	if e.store != nil {
		namespaces = append(namespaces, bridge.NewStorageNamespace(e.store))
	}

	br := bridge.New(namespaces, bridge.Options{
		AllowedOrigins: e.allowedOrigins,
		Logger:         e.logger,
		Metrics:        e.metrics,
	})
	if err := br.Attach(bus.Context(), surface); err != nil {
		bus.Close()
		return nil, err
	}

	h := &Handle{
		engine:   e,
		bus:      bus,
		bridge:   br,
		registry: registry,
		done:     make(chan struct{}),
	}

	bus.AddCloseListener(func() {
		br.Detach()
		e.logger.MaybeError(surface.Close())
		e.metrics.FlowEnded()
		// A bus that closes without a terminal event was cancelled; that is
		// indistinguishable from a user-driven close for the host.
		h.finish(Outcome{Kind: OutcomeClose})
	})

	go h.consume()

	e.metrics.FlowStarted()
	e.logger.Debugf("flow started on bus %s", bus.ID())
	return h, nil
}

// Handle is the host's view of one running flow.
type Handle struct {
	engine   *Engine
	bus      *Bus
	bridge   *bridge.Bridge
	registry *Registry

	finishOnce sync.Once
	errorOnce  sync.Once
	outcome    Outcome
	done       chan struct{}
}

// Bridge returns the flow's bridge for wiring the surface's message channel.
func (h *Handle) Bridge() *bridge.Bridge {
	return h.bridge
}

// BusID returns the id of the flow's event bus.
func (h *Handle) BusID() string {
	return h.bus.ID()
}

// Cancel closes the flow by sending a synthetic onClose event through the
// normal dispatch path, so a host-driven cancel has side effects identical
// to a user-driven close. Cancelling a finished flow is a no-op.
func (h *Handle) Cancel() {
	ev, err := h.registry.NewEvent("onClose", "", nil)
	if err != nil {
		// The default OnClose wrapper makes this unreachable; close the bus
		// directly if the registry was built without one anyway.
		h.engine.logger.Warnf("cancel: %v", err)
		h.bus.Close()
		return
	}
	h.bus.Send(ev)
}

// Done returns a channel closed when the flow reaches its terminal outcome.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Result blocks until the flow reaches its terminal outcome or ctx is done.
func (h *Handle) Result(ctx context.Context) (Outcome, error) {
	select {
	case <-h.done:
		return h.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

func (h *Handle) finish(outcome Outcome) {
	h.finishOnce.Do(func() {
		h.outcome = outcome
		h.engine.metrics.Outcome(outcome.Kind.String())
		close(h.done)
	})
}

// consume is the single consumer loop. Events are processed strictly in
// arrival order; non-terminal wrappers are awaited before the next event so
// replies keep command order. A terminal event launches its wrapper on a
// detached scope, closes the bus and ends the loop.
func (h *Handle) consume() {
	for ev := range h.bus.Events() {
		h.onReceipt(ev)

		if !ev.Terminal() {
			h.invokeNonTerminal(ev)
			continue
		}

		h.resolve(ev)
		h.runTerminal(ev)
		h.bus.Close()
		return
	}

	// The event channel drained without a terminal event: the flow scope was
	// cancelled. Close settles the outcome and releases the surface.
	h.bus.Close()
}

func (h *Handle) invokeNonTerminal(ev *Event) {
	start := time.Now()
	result, err := ev.Wrapper().Invoke(h.bus.Context(), ev.Payload())
	h.engine.metrics.ObserveWrapper(ev.Wrapper().Kind().String(), start)

	if err != nil {
		if isCancellation(err) {
			return
		}
		h.engine.logger.Warnf("flow [%s]: %v", ev.Action(), err)
		ev.Reply(codec.EncodeFlowError(err))
		return
	}
	if result == nil {
		ev.Reply("{}")
		return
	}
	ev.Reply(result.JSON())
}

// runTerminal invokes the terminal wrapper on a scope that is a sibling of
// the flow scope, so cancelling the flow does not cancel the host's
// terminal cleanup. Wrapper errors are routed to the OnError wrapper
// exactly once per flow; cancellation is never reported as an error.
func (h *Handle) runTerminal(ev *Event) {
	detached := context.WithoutCancel(h.bus.Context())
	wrapper := ev.Wrapper()
	payload := ev.Payload()

	go func() {
		start := time.Now()
		_, err := wrapper.Invoke(detached, payload)
		h.engine.metrics.ObserveWrapper(wrapper.Kind().String(), start)

		if err == nil {
			return
		}
		if isCancellation(err) {
			h.engine.logger.Debugf("terminal [%s] cancelled", ev.Action())
			return
		}
		h.engine.logger.Warnf("terminal [%s]: %v", ev.Action(), err)
		h.reportError(detached, fmt.Errorf("flow error: %w", err))
	}()
}

// reportError routes a provider failure to the OnError wrapper, at most
// once per flow.
func (h *Handle) reportError(ctx context.Context, cause error) {
	h.errorOnce.Do(func() {
		_, wrapper, err := h.registry.Resolve("onError")
		if err != nil {
			h.engine.logger.Warnf("no onError wrapper: %v", cause)
			return
		}
		if _, err := wrapper.Invoke(ctx, ErrorPayload{Cause: cause}); err != nil && !isCancellation(err) {
			h.engine.logger.Warnf("onError wrapper failed: %v", err)
		}
	})
}

// onReceipt runs an event's receipt side effects before its wrapper. Login
// persistence runs on a non-cancellable scope so a mid-flight cancel cannot
// lose the record.
func (h *Handle) onReceipt(ev *Event) {
	switch p := ev.Payload().(type) {
	case SessionCreatePayload:
		h.persistLogin(p.LoginID, p.AuthMethod)
	case FinishPayload:
		h.persistLogin(p.LoginID, p.AuthMethod)
	case ErrorPayload:
		h.engine.logger.Warnf("flow error event: %v", p.Cause)
	}
}

func (h *Handle) persistLogin(loginID string, method types.AuthMethod) {
	if h.engine.store == nil {
		return
	}
	ctx := context.WithoutCancel(h.bus.Context())
	record := storage.LoginRecord{LoginID: loginID, AuthMethod: method}
	if err := h.engine.store.SaveLogin(ctx, record); err != nil {
		h.engine.logger.Warnf("persist login: %v", err)
	}
}

// resolve derives the flow outcome from the terminal event.
func (h *Handle) resolve(ev *Event) {
	switch p := ev.Payload().(type) {
	case FinishPayload:
		h.finish(Outcome{Kind: OutcomeLogin, Login: &Login{
			LoginID:    p.LoginID,
			AuthMethod: p.AuthMethod,
			AuthToken:  p.AuthToken,
		}})
	case ErrorPayload:
		h.finish(Outcome{Kind: OutcomeError, Err: p.Cause})
	case ClosePayload:
		h.finish(Outcome{Kind: OutcomeClose})
	case NativeActionPayload:
		if strings.EqualFold(p.Name, "register") {
			h.finish(Outcome{Kind: OutcomeAccountNotFound, AccountNotFound: &AccountNotFound{
				LoginID:   codec.OptionalString(p.Params, "loginId"),
				OwnIDData: codec.OptionalString(p.Params, "ownIdData"),
				AuthToken: codec.OptionalString(p.Params, "authToken"),
			}})
			return
		}
		// Unknown native actions end the flow without a login.
		h.finish(Outcome{Kind: OutcomeClose})
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
