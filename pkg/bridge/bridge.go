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

// Package bridge dispatches command envelopes from an embedded web surface
// to native namespace handlers and delivers the replies back through opaque
// callback paths. Every command is gated by frame, scheme and origin
// validation before any handler runs.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/jeremyhahn/go-authflow/pkg/codec"
	"github.com/jeremyhahn/go-authflow/pkg/logging"
	"github.com/jeremyhahn/go-authflow/pkg/metrics"
)

// BridgeObjectName is the JavaScript global the bootstrap script installs.
const BridgeObjectName = "__authflowNativeBridge"

// Namespace handles the actions of one command namespace (FIDO, FLOW,
// STORAGE, METADATA). Handle must not block: handlers that perform long
// operations dispatch their own goroutine and reply through the Conn.
type Namespace interface {
	// Name returns the namespace name as it appears on the wire.
	Name() string

	// Actions returns the action names this namespace currently supports.
	Actions() []string

	// Handle dispatches one validated command.
	Handle(conn *Conn, action, params, metadata string)
}

// Options configures a Bridge.
type Options struct {
	// AllowedOrigins is the raw origin allow-list. Entries are normalized
	// with NormalizeOrigins at construction.
	AllowedOrigins []string

	Logger  *logging.Logger
	Metrics *metrics.Metrics
}

// Bridge owns the namespace handlers for one attached surface. The
// namespace table is built once at construction; dispatch is a map lookup,
// never dynamic matching.
type Bridge struct {
	namespaces     map[string]Namespace
	ordered        []Namespace
	allowedOrigins []string
	logger         *logging.Logger
	metrics        *metrics.Metrics

	mu       sync.RWMutex
	surface  Surface
	ctx      context.Context
	cancel   context.CancelFunc
	detached bool
}

// New creates a Bridge over the given namespace handlers. Namespace names
// are matched case-insensitively on the wire.
func New(namespaces []Namespace, opts Options) *Bridge {
	logger := opts.Logger
	if logger == nil {
		logger = logging.DefaultLogger()
	}

	table := make(map[string]Namespace, len(namespaces))
	for _, ns := range namespaces {
		table[strings.ToUpper(ns.Name())] = ns
	}

	return &Bridge{
		namespaces:     table,
		ordered:        namespaces,
		allowedOrigins: NormalizeOrigins(opts.AllowedOrigins),
		logger:         logger,
		metrics:        opts.Metrics,
	}
}

// Attach binds the bridge to a surface for one flow. The context bounds all
// command handling; cancelling it suppresses further replies.
func (b *Bridge) Attach(ctx context.Context, surface Surface) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.surface != nil {
		return NewError("bridge.Attach", fmt.Errorf("already attached"))
	}
	b.surface = surface
	b.ctx, b.cancel = context.WithCancel(ctx)
	b.detached = false
	b.logger.Debug("bridge attached")
	return nil
}

// Detach unbinds the surface and cancels the connection scope. Replies in
// flight are skipped, not delivered.
func (b *Bridge) Detach() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.surface == nil {
		return
	}
	b.cancel()
	b.surface = nil
	b.detached = true
	b.logger.Debug("bridge detached")
}

// AllowedOrigins returns the normalized allow-list.
func (b *Bridge) AllowedOrigins() []string {
	return b.allowedOrigins
}

// Capabilities returns the capability handshake JSON: namespace name mapped
// to its supported action names, derived from the live namespace table.
func (b *Bridge) Capabilities() string {
	caps := make(map[string][]string, len(b.ordered))
	for _, ns := range b.ordered {
		caps[ns.Name()] = ns.Actions()
	}
	out, err := json.Marshal(caps)
	if err != nil {
		return "{}"
	}
	return string(out)
}

// BootstrapScript returns the JavaScript snippet a host injects at document
// start. It installs the native bridge object the web surface probes for.
func (b *Bridge) BootstrapScript() string {
	return `window.` + BridgeObjectName + ` = {
  getNamespaces: function getNamespaces() { return '` + b.Capabilities() + `'; },
  invokeNative: function invokeNative(namespace, action, callbackPath, params, metadata) {
    try {
      window.` + BridgeObjectName + `Handler.postMessage(JSON.stringify({ namespace, action, callbackPath, params, metadata }));
    } catch (error) {
      setTimeout(function () {
        eval(callbackPath + '(false);');
      });
    }
  }
};`
}

// HandleMessage processes one raw command from the surface: parse the
// envelope, validate provenance, resolve the namespace and dispatch.
// Failures produce an error reply through the callback path; they never
// close the connection.
func (b *Bridge) HandleMessage(msg Message) {
	b.mu.RLock()
	surface := b.surface
	ctx := b.ctx
	b.mu.RUnlock()

	if surface == nil {
		b.logger.Infof("message dropped, %v", ErrNotAttached)
		return
	}

	env, err := codec.ParseEnvelope(msg.Data)
	if err != nil {
		// Without a callback path there is no reply channel at all.
		b.logger.Warnf("invalid envelope from %s: %v", msg.SourceOrigin, err)
		return
	}

	b.logger.Debugf("received command [%s:%s] from %s", env.Namespace, env.Action, msg.SourceOrigin)
	b.metrics.Command(env.Namespace, env.Action)

	conn := &Conn{
		ctx:            ctx,
		surface:        surface,
		logger:         b.logger,
		metrics:        b.metrics,
		allowedOrigins: b.allowedOrigins,
		sourceOrigin:   msg.SourceOrigin,
		mainFrame:      msg.MainFrame,
		callbackPath:   env.CallbackPath,
	}

	if err := conn.Validate(); err != nil {
		b.metrics.SecurityError()
		conn.Fail("Bridge", err)
		return
	}

	ns, ok := b.namespaces[strings.ToUpper(env.Namespace)]
	if !ok {
		conn.Fail("Bridge", NewError("bridge.HandleMessage",
			fmt.Errorf("%w: %q", ErrUnsupportedNamespace, env.Namespace)))
		return
	}

	ns.Handle(conn, env.Action, env.Params, env.Metadata)
}
