// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package telemetry sends gameplay events to the generation backend without
// letting event volume compete with dialogue.
package telemetry

import (
	"sync/atomic"
	"time"
)

// DefaultMinInterval is the minimum gap between accepted events
// (at most 20 events per second).
const DefaultMinInterval = 50 * time.Millisecond

// EventRateLimiter admits at most one event per interval across all callers.
// Events arriving faster are dropped, never queued. It is safe for
// concurrent use.
type EventRateLimiter struct {
	interval time.Duration
	now      func() time.Time

	// lastSent holds UnixNano of the last accepted event; 0 means none yet.
	lastSent atomic.Int64
}

// NewEventRateLimiter creates a limiter. An interval of zero or less uses
// DefaultMinInterval.
func NewEventRateLimiter(interval time.Duration) *EventRateLimiter {
	return newEventRateLimiter(interval, time.Now)
}

func newEventRateLimiter(interval time.Duration, now func() time.Time) *EventRateLimiter {
	if interval <= 0 {
		interval = DefaultMinInterval
	}
	return &EventRateLimiter{interval: interval, now: now}
}

// Interval returns the minimum gap between accepted events.
func (l *EventRateLimiter) Interval() time.Duration {
	return l.interval
}

// Allow reports whether an event may be sent now. Concurrent callers racing
// for the same slot see exactly one acceptance.
func (l *EventRateLimiter) Allow() bool {
	for {
		now := l.now().UnixNano()
		last := l.lastSent.Load()
		if last != 0 && now-last < int64(l.interval) {
			return false
		}
		if l.lastSent.CompareAndSwap(last, now) {
			return true
		}
	}
}
