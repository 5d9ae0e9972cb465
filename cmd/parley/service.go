// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/holomush/parley/internal/command"
	"github.com/holomush/parley/internal/config"
	"github.com/holomush/parley/internal/core"
	"github.com/holomush/parley/internal/dialogue"
	"github.com/holomush/parley/internal/generation"
	"github.com/holomush/parley/internal/telemetry"
)

// telemetryQueueSize bounds gameplay events waiting for delivery.
const telemetryQueueSize = 128

// service is the dialogue stack shared by serve and chat.
type service struct {
	client       *generation.Client
	loop         *core.Loop
	workers      *core.Pool
	eventWorkers *core.Pool
	emitter      *telemetry.Emitter
	debouncer    *dialogue.Debouncer
	limiter      *command.RateLimiter
	orchestrator *dialogue.Orchestrator
	dispatcher   *command.Dispatcher
}

// newService builds the stack. reg receives the rate limiter's gauge and
// may be nil. The caller must Run the loop and Close the service.
func newService(cfg *config.Config, sink dialogue.Sink, reg prometheus.Registerer) (_ *service, err error) {
	client, err := generation.NewClient(generation.Config{
		Endpoint:       cfg.Generation.Endpoint,
		MaxRetries:     cfg.Generation.MaxRetries,
		RetryBackoff:   cfg.Generation.RetryBackoff,
		RequestTimeout: cfg.Generation.RequestTimeout,
	})
	if err != nil {
		//nolint:wrapcheck // generation errors already carry codes
		return nil, err
	}

	s := &service{
		client: client,
		loop:   core.NewLoop(0),
		workers: core.NewPool(core.PoolConfig{
			Workers:   cfg.Generation.Workers,
			QueueSize: cfg.Generation.QueueSize,
		}),
		eventWorkers: core.NewPool(core.PoolConfig{Workers: 1, QueueSize: telemetryQueueSize}),
		limiter: command.NewRateLimiterWithRegistry(command.RateLimiterConfig{
			BurstCapacity: cfg.Dialogue.CommandBurst,
			SustainedRate: cfg.Dialogue.CommandRate,
		}, reg),
	}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	s.emitter, err = telemetry.NewEmitter(telemetry.EmitterConfig{
		Sender:  client,
		Workers: s.eventWorkers,
		Limiter: telemetry.NewEventRateLimiter(cfg.Telemetry.MinInterval),
	})
	if err != nil {
		//nolint:wrapcheck // coded dependency error
		return nil, err
	}

	if cfg.Dialogue.DebounceWindow > 0 {
		s.debouncer = dialogue.NewDebouncer(dialogue.DebouncerConfig{Window: cfg.Dialogue.DebounceWindow})
	}

	s.orchestrator, err = dialogue.NewOrchestrator(dialogue.OrchestratorConfig{
		Store:     dialogue.NewSessionStore(),
		Generator: client,
		Workers:   s.workers,
		Owner:     s.loop,
		Sink:      sink,
		Debouncer: s.debouncer,
		Events:    s.emitter,
	})
	if err != nil {
		//nolint:wrapcheck // coded dependency error
		return nil, err
	}

	registry := command.NewRegistry()
	if err = command.RegisterBuiltins(registry); err != nil {
		//nolint:wrapcheck // coded registration error
		return nil, err
	}
	s.dispatcher, err = command.NewDispatcher(registry, s.orchestrator,
		command.WithRateLimiter(s.limiter),
		command.WithPromptState(s.orchestrator),
	)
	if err != nil {
		//nolint:wrapcheck // coded dependency error
		return nil, err
	}
	return s, nil
}

// Close releases the stack. In-flight generation calls are cancelled and
// their workers drained before the loop stops.
func (s *service) Close() {
	if s.orchestrator != nil {
		s.orchestrator.Close()
	}
	s.workers.Close()
	s.eventWorkers.Close()
	s.loop.Close()
	if s.debouncer != nil {
		s.debouncer.Close()
	}
}
