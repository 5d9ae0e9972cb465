// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package telemetry

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/parley/internal/generation"
)

// DefaultSendTimeout bounds each event delivery.
const DefaultSendTimeout = 5 * time.Second

// Sender delivers one tool call.
type Sender interface {
	Call(ctx context.Context, req generation.Request) (*generation.Reply, error)
}

// WorkQueue runs jobs off the caller's goroutine. Submit must not block.
type WorkQueue interface {
	Submit(job func()) bool
}

// EmitterConfig configures an Emitter.
type EmitterConfig struct {
	Sender  Sender
	Workers WorkQueue
	Limiter *EventRateLimiter

	// SendTimeout defaults to DefaultSendTimeout.
	SendTimeout time.Duration
}

// Emitter tracks gameplay events through the backend's event tool.
// Emit never blocks; events over the rate limit or beyond queue capacity
// are dropped and counted.
type Emitter struct {
	sender  Sender
	workers WorkQueue
	limiter *EventRateLimiter
	timeout time.Duration

	dropped atomic.Int64
}

// NewEmitter creates an Emitter.
func NewEmitter(cfg EmitterConfig) (*Emitter, error) {
	if cfg.Sender == nil {
		return nil, oops.Code("MISSING_DEPENDENCY").Errorf("emitter requires a sender")
	}
	if cfg.Workers == nil {
		return nil, oops.Code("MISSING_DEPENDENCY").Errorf("emitter requires a work queue")
	}
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = NewEventRateLimiter(DefaultMinInterval)
	}
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &Emitter{
		sender:  cfg.Sender,
		workers: cfg.Workers,
		limiter: limiter,
		timeout: timeout,
	}, nil
}

// Emit queues an event. It reports whether the event was accepted.
func (e *Emitter) Emit(eventType string, data map[string]any) bool {
	if !e.limiter.Allow() {
		e.drop(eventType, OutcomeRateLimited)
		return false
	}

	req := generation.TrackEvent(eventType, data)
	accepted := e.workers.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()

		if _, err := e.sender.Call(ctx, req); err != nil {
			RecordEvent(eventType, OutcomeFailed)
			slog.Debug("telemetry event not delivered",
				"event_type", eventType,
				"code", generation.Code(err),
				"error", err,
			)
			return
		}
		RecordEvent(eventType, OutcomeSent)
	})
	if !accepted {
		e.drop(eventType, OutcomeOverloaded)
		return false
	}
	return true
}

// Dropped returns how many events were dropped before sending.
func (e *Emitter) Dropped() int64 {
	return e.dropped.Load()
}

func (e *Emitter) drop(eventType, outcome string) {
	e.dropped.Add(1)
	RecordEvent(eventType, outcome)
}
