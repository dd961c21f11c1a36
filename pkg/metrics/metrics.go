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

// Package metrics provides Prometheus instrumentation for the flow bridge.
// It exposes command counters, reply counters, flow outcome counters and
// provider invocation latency to enable monitoring of embedded engine health.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all flow bridge metrics
	Namespace = "authflow"

	// Label names
	LabelNamespace = "namespace"
	LabelAction    = "action"
	LabelStatus    = "status"
	LabelOutcome   = "outcome"
	LabelWrapper   = "wrapper"

	// Status values
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"

	// Outcome values
	OutcomeLogin           = "login"
	OutcomeAccountNotFound = "account_not_found"
	OutcomeError           = "error"
	OutcomeClose           = "close"
)

// Metrics holds the Prometheus collectors for one engine instance.
// Collectors are registered against the provided registerer so tests and
// multi-engine processes do not collide on the default registry.
type Metrics struct {
	CommandsReceived *prometheus.CounterVec
	Replies          *prometheus.CounterVec
	SecurityErrors   prometheus.Counter
	FlowOutcomes     *prometheus.CounterVec
	FlowsInFlight    prometheus.Gauge
	WrapperDuration  *prometheus.HistogramVec
	BusDropped       prometheus.Counter
}

// New creates and registers the flow bridge collectors.
// Pass prometheus.DefaultRegisterer for production use.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CommandsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "commands_received_total",
			Help:      "Commands received from the web surface by namespace and action",
		}, []string{LabelNamespace, LabelAction}),

		Replies: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "replies_total",
			Help:      "Replies delivered to the web surface by status",
		}, []string{LabelStatus}),

		SecurityErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "security_errors_total",
			Help:      "Commands rejected by frame, scheme or origin validation",
		}),

		FlowOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "flow_outcomes_total",
			Help:      "Terminal flow outcomes",
		}, []string{LabelOutcome}),

		FlowsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "flows_in_flight",
			Help:      "Flows currently running",
		}),

		WrapperDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "wrapper_duration_seconds",
			Help:      "Provider wrapper invocation latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{LabelWrapper}),

		BusDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "bus_events_dropped_total",
			Help:      "Events sent to an already closed event bus",
		}),
	}
}

// ObserveWrapper records one provider wrapper invocation.
func (m *Metrics) ObserveWrapper(wrapper string, start time.Time) {
	if m == nil {
		return
	}
	m.WrapperDuration.WithLabelValues(wrapper).Observe(time.Since(start).Seconds())
}

// Command records one received command.
func (m *Metrics) Command(namespace, action string) {
	if m == nil {
		return
	}
	m.CommandsReceived.WithLabelValues(namespace, action).Inc()
}

// Reply records one delivered (or skipped) reply.
func (m *Metrics) Reply(status string) {
	if m == nil {
		return
	}
	m.Replies.WithLabelValues(status).Inc()
}

// SecurityError records one rejected command.
func (m *Metrics) SecurityError() {
	if m == nil {
		return
	}
	m.SecurityErrors.Inc()
}

// Outcome records one terminal flow outcome.
func (m *Metrics) Outcome(outcome string) {
	if m == nil {
		return
	}
	m.FlowOutcomes.WithLabelValues(outcome).Inc()
}

// FlowStarted increments the in-flight gauge.
func (m *Metrics) FlowStarted() {
	if m == nil {
		return
	}
	m.FlowsInFlight.Inc()
}

// FlowEnded decrements the in-flight gauge.
func (m *Metrics) FlowEnded() {
	if m == nil {
		return
	}
	m.FlowsInFlight.Dec()
}

// Dropped records one event sent to a closed bus.
func (m *Metrics) Dropped() {
	if m == nil {
		return
	}
	m.BusDropped.Inc()
}
