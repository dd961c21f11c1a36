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

// Surface is the embedded web surface the bridge is attached to. Hosts
// implement it over whatever embedding they use (webview, test harness).
// The bridge never interprets callback paths; it invokes them verbatim
// with a single JSON argument.
type Surface interface {
	// InvokeCallback evaluates callbackPath(result) on the surface.
	InvokeCallback(callbackPath, result string)

	// Close tears the surface down. Called when the flow reaches a
	// terminal event.
	Close() error
}

// Message is one raw command posted by the web surface, together with the
// frame provenance the embedding reports for it.
type Message struct {
	// Data is the raw JSON command envelope.
	Data string

	// SourceOrigin is the origin of the document that posted the message,
	// e.g. "https://auth.example.com".
	SourceOrigin string

	// MainFrame reports whether the message came from the top-level frame.
	MainFrame bool
}
