// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package generation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for generation metrics.
const (
	OutcomeSuccess   = "success"
	OutcomeTimeout   = "timeout"
	OutcomeServer    = "unavailable"
	OutcomeRejected  = "rejected"
	OutcomeBackend   = "backend_error"
	OutcomeMalformed = "malformed"
	OutcomeCanceled  = "canceled"
	OutcomeOther     = "error"
)

// GenerationAttempts counts individual HTTP attempts.
var GenerationAttempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "parley_generation_attempts_total",
		Help: "Total number of generation HTTP attempts by tool and outcome",
	},
	[]string{"tool", "outcome"},
)

// GenerationCalls counts logical calls, after retries.
var GenerationCalls = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "parley_generation_calls_total",
		Help: "Total number of generation calls by tool and final outcome",
	},
	[]string{"tool", "outcome"},
)

// GenerationDuration observes logical call duration including backoff.
var GenerationDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "parley_generation_duration_seconds",
		Help:    "Generation call duration in seconds, including retries",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	},
	[]string{"tool"},
)

// RegisterMetrics registers generation metrics with the given registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(GenerationAttempts)
	reg.MustRegister(GenerationCalls)
	reg.MustRegister(GenerationDuration)
}

// RecordAttempt increments the attempt counter.
func RecordAttempt(tool, outcome string) {
	GenerationAttempts.WithLabelValues(tool, outcome).Inc()
}

// RecordCall records the final outcome and duration of a call.
func RecordCall(tool, outcome string, d time.Duration) {
	GenerationCalls.WithLabelValues(tool, outcome).Inc()
	GenerationDuration.WithLabelValues(tool).Observe(d.Seconds())
}

func outcomeFor(err error) string {
	switch Code(err) {
	case CodeTimeout:
		return OutcomeTimeout
	case CodeUnavailable:
		return OutcomeServer
	case CodeRejected:
		return OutcomeRejected
	case CodeBackendError:
		return OutcomeBackend
	case CodeMalformedResponse:
		return OutcomeMalformed
	case CodeCanceled:
		return OutcomeCanceled
	default:
		return OutcomeOther
	}
}
