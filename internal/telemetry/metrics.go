// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Event outcome labels.
const (
	OutcomeSent        = "sent"
	OutcomeFailed      = "failed"
	OutcomeRateLimited = "rate_limited"
	OutcomeOverloaded  = "overloaded"
)

// Events counts telemetry events by outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var Events = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "parley_telemetry_events_total",
		Help: "Total number of telemetry events by outcome",
	},
	[]string{"event_type", "outcome"},
)

// RegisterMetrics registers telemetry metrics with the given registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Events)
}

// RecordEvent counts one event.
func RecordEvent(eventType, outcome string) {
	Events.WithLabelValues(eventType, outcome).Inc()
}
