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
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/jeremyhahn/go-authflow/pkg/codec"
	"github.com/jeremyhahn/go-authflow/pkg/logging"
	"github.com/jeremyhahn/go-authflow/pkg/metrics"
)

// Conn is the per-command reply context. It carries the command's frame and
// origin provenance, validates them against the allow-list, and delivers at
// most one reply through the command's callback path.
type Conn struct {
	ctx            context.Context
	surface        Surface
	logger         *logging.Logger
	metrics        *metrics.Metrics
	allowedOrigins []string
	sourceOrigin   string
	mainFrame      bool
	callbackPath   string
	replied        atomic.Bool
}

// Context returns the connection scope. It is cancelled when the bridge
// detaches or the flow terminates.
func (c *Conn) Context() context.Context {
	return c.ctx
}

// SourceOrigin returns the origin the command was posted from.
func (c *Conn) SourceOrigin() string {
	return c.sourceOrigin
}

// EnsureMainFrame fails unless the command came from the top-level frame.
func (c *Conn) EnsureMainFrame() error {
	if !c.mainFrame {
		return NewError("bridge.EnsureMainFrame", ErrSubframe)
	}
	return nil
}

// EnsureSecureScheme fails unless the source origin scheme is https.
func (c *Conn) EnsureSecureScheme() error {
	origin, err := url.Parse(c.sourceOrigin)
	if err != nil || !strings.EqualFold(origin.Scheme, "https") {
		return NewError("bridge.EnsureSecureScheme",
			fmt.Errorf("%w: %q", ErrInsecureScheme, c.sourceOrigin))
	}
	return nil
}

// EnsureAllowedOrigin fails unless the source origin matches an allow-list
// rule. A literal "*" rule allows any origin. A "*.example.com" rule matches
// subdomains of example.com but not example.com itself; all other rules
// match the host exactly, case-insensitively.
func (c *Conn) EnsureAllowedOrigin() error {
	source, err := url.Parse(c.sourceOrigin)
	if err != nil {
		return NewError("bridge.EnsureAllowedOrigin",
			fmt.Errorf("%w: %q", ErrOriginNotAllowed, c.sourceOrigin))
	}

	for _, rule := range c.allowedOrigins {
		if rule == "*" {
			return nil
		}
		allowed, err := url.Parse(rule)
		if err != nil {
			continue
		}
		if !strings.EqualFold(allowed.Scheme, source.Scheme) {
			continue
		}
		if hostMatches(allowed.Hostname(), source.Hostname()) {
			return nil
		}
	}

	return NewError("bridge.EnsureAllowedOrigin",
		fmt.Errorf("%w: %s, allowed: %s",
			ErrOriginNotAllowed, c.sourceOrigin, strings.Join(c.allowedOrigins, ", ")))
}

// Validate runs the full frame, scheme and origin gate.
func (c *Conn) Validate() error {
	if err := c.EnsureMainFrame(); err != nil {
		return err
	}
	if err := c.EnsureSecureScheme(); err != nil {
		return err
	}
	return c.EnsureAllowedOrigin()
}

// Succeed delivers a success reply through the callback path. The reply is
// skipped, with a log line, when the connection scope is already cancelled.
// At most one reply is ever delivered per command.
func (c *Conn) Succeed(result string) {
	if !c.replied.CompareAndSwap(false, true) {
		return
	}
	if c.ctx.Err() != nil {
		c.logger.Infof("reply skipped, operation canceled: %s", c.callbackPath)
		c.metrics.Reply(metrics.StatusSkipped)
		return
	}
	c.logger.Debugf("reply: %s", c.callbackPath)
	c.surface.InvokeCallback(c.callbackPath, result)
	c.metrics.Reply(metrics.StatusSuccess)
}

// Fail delivers the namespace error reply shape through the callback path.
func (c *Conn) Fail(handlerName string, err error) {
	if !c.replied.CompareAndSwap(false, true) {
		return
	}
	if c.ctx.Err() != nil {
		c.logger.Infof("error reply skipped, operation canceled: %s", c.callbackPath)
		c.metrics.Reply(metrics.StatusSkipped)
		return
	}
	c.logger.Warnf("%s: %v", handlerName, err)
	c.surface.InvokeCallback(c.callbackPath, codec.EncodeError(handlerName, err))
	c.metrics.Reply(metrics.StatusError)
}

// FailFlow delivers the flow error reply shape through the callback path.
func (c *Conn) FailFlow(err error) {
	if !c.replied.CompareAndSwap(false, true) {
		return
	}
	if c.ctx.Err() != nil {
		c.logger.Infof("flow error reply skipped, operation canceled: %s", c.callbackPath)
		c.metrics.Reply(metrics.StatusSkipped)
		return
	}
	c.logger.Warnf("flow error: %v", err)
	c.surface.InvokeCallback(c.callbackPath, codec.EncodeFlowError(err))
	c.metrics.Reply(metrics.StatusError)
}

// hostMatches applies the wildcard rule semantics. A "*." prefix matches any
// subdomain of the remainder, never the apex host itself.
func hostMatches(allowedHost, sourceHost string) bool {
	if allowedHost == "" || sourceHost == "" {
		return false
	}
	allowedHost = strings.ToLower(allowedHost)
	sourceHost = strings.ToLower(sourceHost)
	if rest, ok := strings.CutPrefix(allowedHost, "*."); ok {
		return strings.HasSuffix(sourceHost, "."+rest)
	}
	return allowedHost == sourceHost
}

// NormalizeOrigins canonicalizes allow-list entries to "https://host[:port]".
// Entries without a scheme are assumed https; non-https entries are dropped.
// A literal "*" entry is preserved as-is.
func NormalizeOrigins(origins []string) []string {
	normalized := make([]string, 0, len(origins))
	seen := make(map[string]struct{}, len(origins))
	for _, entry := range origins {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if entry == "*" {
			if _, dup := seen[entry]; !dup {
				seen[entry] = struct{}{}
				normalized = append(normalized, entry)
			}
			continue
		}
		if !strings.Contains(entry, "://") {
			entry = "https://" + entry
		}
		u, err := url.Parse(entry)
		if err != nil || u.Host == "" {
			continue
		}
		if !strings.EqualFold(u.Scheme, "https") {
			continue
		}
		canonical := "https://" + strings.ToLower(u.Host)
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		normalized = append(normalized, canonical)
	}
	return normalized
}
