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

package codec

import (
	"encoding/json"
	"fmt"
	"strings"
)

const flowErrorCode = "flowBridgeError"

type namespaceError struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

type namespaceErrorReply struct {
	Error namespaceError `json:"error"`
}

type flowErrorReply struct {
	Type         string `json:"type"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// EncodeError builds the namespace error reply shape
// {"error":{"name","type","message"}}. Name identifies the handler that
// failed, type the concrete error type.
func EncodeError(handlerName string, err error) string {
	reply := namespaceErrorReply{
		Error: namespaceError{
			Name:    handlerName,
			Type:    errorTypeName(err),
			Message: errorMessage(err),
		},
	}
	out, mErr := json.Marshal(reply)
	if mErr != nil {
		// Marshal of plain strings cannot fail; keep a deterministic fallback.
		return `{"error":{"name":"` + handlerName + `","type":"unknown","message":null}}`
	}
	return string(out)
}

// EncodeFlowError builds the flow error reply shape
// {"type","errorCode","errorMessage"} with errorCode fixed to
// "flowBridgeError".
func EncodeFlowError(err error) string {
	reply := flowErrorReply{
		Type:         errorTypeName(err),
		ErrorCode:    flowErrorCode,
		ErrorMessage: errorMessage(err),
	}
	out, mErr := json.Marshal(reply)
	if mErr != nil {
		return `{"type":"unknown","errorCode":"` + flowErrorCode + `","errorMessage":""}`
	}
	return string(out)
}

// EncodeBool encodes a bare boolean reply.
func EncodeBool(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

// EncodeString encodes a bare JSON string reply.
func EncodeString(v string) string {
	out, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(out)
}

func errorTypeName(err error) string {
	if err == nil {
		return "unknown"
	}
	name := fmt.Sprintf("%T", err)
	name = strings.TrimPrefix(name, "*")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
