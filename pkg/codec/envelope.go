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

// Package codec parses command envelopes and typed payloads exchanged with
// the embedded web surface and builds WebAuthn ceremony option documents.
//
// Two error reply shapes exist on the wire: namespace handlers reply with
// {"error":{"name","type","message"}} while flow handlers reply with
// {"type","errorCode","errorMessage"}. Both shapes are frozen for
// compatibility with deployed web surfaces and must not change.
package codec

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Envelope is one raw command received from the web surface. CallbackPath is
// a JavaScript-evaluable expression the engine invokes verbatim with a single
// JSON argument to deliver the reply. It is opaque to the engine.
type Envelope struct {
	Namespace    string
	Action       string
	CallbackPath string
	Params       string // raw JSON, empty when absent
	Metadata     string // raw JSON, empty when absent
}

// ParseEnvelope decodes a raw command envelope. Namespace, action and
// callbackPath are required; params and metadata are optional and may be
// null or absent.
func ParseEnvelope(raw string) (Envelope, error) {
	if !gjson.Valid(raw) {
		return Envelope{}, NewError("codec.ParseEnvelope", ErrInvalidEnvelope)
	}
	doc := gjson.Parse(raw)

	env := Envelope{
		Namespace:    strings.TrimSpace(doc.Get("namespace").String()),
		Action:       strings.TrimSpace(doc.Get("action").String()),
		CallbackPath: strings.TrimSpace(doc.Get("callbackPath").String()),
		Params:       doc.Get("params").String(),
		Metadata:     doc.Get("metadata").String(),
	}

	if env.Namespace == "" {
		return Envelope{}, NewError("codec.ParseEnvelope",
			fmt.Errorf("%w: namespace", ErrMissingField))
	}
	if env.Action == "" {
		return Envelope{}, NewError("codec.ParseEnvelope",
			fmt.Errorf("%w: action", ErrMissingField))
	}
	if env.CallbackPath == "" {
		return Envelope{}, NewError("codec.ParseEnvelope",
			fmt.Errorf("%w: callbackPath", ErrMissingField))
	}
	return env, nil
}

// RequiredString extracts a required field from a JSON document. Absent or
// blank values fail with ErrMissingField; identity-bearing fields are never
// silently defaulted.
func RequiredString(raw, field string) (string, error) {
	v := strings.TrimSpace(gjson.Get(raw, field).String())
	if v == "" {
		return "", NewError("codec.RequiredString",
			fmt.Errorf("%w: %s", ErrMissingField, field))
	}
	return v, nil
}

// OptionalString extracts an optional field from a JSON document. Blank
// values map to absent.
func OptionalString(raw, field string) string {
	return strings.TrimSpace(gjson.Get(raw, field).String())
}

// RawObject returns the raw JSON of a sub-object field, or "" when the field
// is absent or not an object.
func RawObject(raw, field string) string {
	v := gjson.Get(raw, field)
	if !v.IsObject() {
		return ""
	}
	return v.Raw
}
