// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package dialogue

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Fallback reasons.
const (
	ReasonFailed     = "failed"
	ReasonTimeout    = "timeout"
	ReasonRejected   = "rejected"
	ReasonMalformed  = "malformed"
	ReasonNoOptions  = "no_options"
	ReasonOverloaded = "overloaded"
)

// End reasons.
const (
	EndFarewell   = "farewell"
	EndBackend    = "backend"
	EndSuperseded = "superseded"
	EndLeave      = "leave"
	EndDisconnect = "disconnect"
)

// ActiveSessions is the gauge of live sessions.
var ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "parley_dialogue_active_sessions",
	Help: "Number of active dialogue sessions",
})

// SessionsStarted counts session starts.
var SessionsStarted = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "parley_dialogue_sessions_started_total",
	Help: "Total number of dialogue sessions started",
})

// SessionsEnded counts session ends by reason.
var SessionsEnded = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "parley_dialogue_sessions_ended_total",
		Help: "Total number of dialogue sessions ended",
	},
	[]string{"reason"},
)

// Fallbacks counts rounds answered from the fallback catalog.
var Fallbacks = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "parley_dialogue_fallbacks_total",
		Help: "Total number of rounds served from the fallback catalog",
	},
	[]string{"reason"},
)

// StaleCompletions counts completions discarded by the epoch check.
var StaleCompletions = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "parley_dialogue_stale_completions_total",
	Help: "Total number of generation completions discarded as stale",
})

// Choices counts choice submissions by outcome.
var Choices = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "parley_dialogue_choices_total",
		Help: "Total number of option choices submitted",
	},
	[]string{"outcome"},
)

// SkillChecks counts resolved skill checks by result.
var SkillChecks = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "parley_dialogue_skill_checks_total",
		Help: "Total number of skill checks resolved",
	},
	[]string{"result"},
)

// TriggersDebounced counts triggers absorbed by the debouncer.
var TriggersDebounced = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "parley_dialogue_triggers_debounced_total",
	Help: "Total number of duplicate interaction triggers absorbed",
})

// RegisterMetrics registers dialogue metrics with the given registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(
		ActiveSessions,
		SessionsStarted,
		SessionsEnded,
		Fallbacks,
		StaleCompletions,
		Choices,
		SkillChecks,
		TriggersDebounced,
	)
}

// RecordSkillCheck counts one resolved check.
func RecordSkillCheck(success bool) {
	if success {
		SkillChecks.WithLabelValues("success").Inc()
		return
	}
	SkillChecks.WithLabelValues("failure").Inc()
}

// RecordChoice counts one choice submission.
func RecordChoice(outcome string) {
	Choices.WithLabelValues(outcome).Inc()
}

// RecordFallback counts one fallback round.
func RecordFallback(reason string) {
	Fallbacks.WithLabelValues(reason).Inc()
}

// RecordSessionEnded counts one ended session.
func RecordSessionEnded(reason string) {
	SessionsEnded.WithLabelValues(reason).Inc()
}
