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
	"github.com/jeremyhahn/go-authflow/pkg/bridge"
	"github.com/jeremyhahn/go-authflow/pkg/logging"
)

const flowNamespaceName = "FLOW"

// FlowNamespace adapts the flow registry and bus to the bridge. Commands
// resolve to events and go onto the bus; decode and resolve failures reply
// with the flow error shape.
type FlowNamespace struct {
	registry *Registry
	bus      *Bus
	logger   *logging.Logger
}

// NewFlowNamespace creates the FLOW namespace handler for one flow.
func NewFlowNamespace(registry *Registry, bus *Bus, logger *logging.Logger) *FlowNamespace {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &FlowNamespace{registry: registry, bus: bus, logger: logger}
}

// Name implements bridge.Namespace.
func (n *FlowNamespace) Name() string { return flowNamespaceName }

// Actions implements bridge.Namespace.
func (n *FlowNamespace) Actions() []string {
	return n.registry.ActiveActions()
}

// Handle implements bridge.Namespace. The event's reply callback delivers
// the wrapper result through the command's callback path; the consumer loop
// invokes it once the wrapper has run.
func (n *FlowNamespace) Handle(conn *bridge.Conn, action, params, metadata string) {
	ev, err := n.registry.NewEvent(action, params, conn.Succeed)
	if err != nil {
		conn.FailFlow(err)
		return
	}
	n.logger.Debugf("flow event [%s]", ev.Action())
	n.bus.Send(ev)
}
