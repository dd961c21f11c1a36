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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jeremyhahn/go-authflow/pkg/correlation"
)

const (
	metadataNamespace = "METADATA"

	actionMetadataGet = "get"

	metadataHandlerName = "MetadataNamespace"
)

// MetadataNamespace reports engine metadata to the web surface, most
// importantly the correlation id joining web and native log lines.
type MetadataNamespace struct {
	correlationID string
}

// NewMetadataNamespace creates the METADATA namespace handler.
func NewMetadataNamespace(correlationID string) *MetadataNamespace {
	if correlationID == "" {
		correlationID = correlation.NewID()
	}
	return &MetadataNamespace{correlationID: correlationID}
}

// Name implements Namespace.
func (n *MetadataNamespace) Name() string { return metadataNamespace }

// Actions implements Namespace.
func (n *MetadataNamespace) Actions() []string {
	return []string{actionMetadataGet}
}

// CorrelationID returns the id this bridge reports to the web surface.
func (n *MetadataNamespace) CorrelationID() string {
	return n.correlationID
}

// Handle implements Namespace.
func (n *MetadataNamespace) Handle(conn *Conn, action, params, metadata string) {
	if !strings.EqualFold(action, actionMetadataGet) {
		conn.Fail(metadataHandlerName, NewError("bridge.metadata",
			fmt.Errorf("%w: %q", ErrUnsupportedAction, action)))
		return
	}

	out, err := json.Marshal(map[string]string{"correlationId": n.correlationID})
	if err != nil {
		conn.Fail(metadataHandlerName, NewError("bridge.metadata.get", err))
		return
	}
	conn.Succeed(string(out))
}
