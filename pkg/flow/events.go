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

import "sync/atomic"

// Event is one decoded flow command travelling from the bridge to the
// consumer loop. It pairs the action descriptor, the payload, the wrapper
// that will serve it and the reply callback into the web surface.
type Event struct {
	descriptor *ActionDescriptor
	wrapper    Wrapper
	payload    Payload
	reply      func(result string)
	replied    atomic.Bool
}

// Action returns the event's wire action name.
func (e *Event) Action() string {
	return e.descriptor.WebAction
}

// Terminal reports whether this event ends the flow.
func (e *Event) Terminal() bool {
	return e.descriptor.Terminal
}

// Payload returns the decoded payload.
func (e *Event) Payload() Payload {
	return e.payload
}

// Wrapper returns the wrapper serving this event.
func (e *Event) Wrapper() Wrapper {
	return e.wrapper
}

// Reply delivers the wrapper result to the web surface, at most once.
// Synthetic events carry no callback and drop the result.
func (e *Event) Reply(result string) {
	if !e.replied.CompareAndSwap(false, true) {
		return
	}
	if e.reply == nil {
		return
	}
	e.reply(result)
}
