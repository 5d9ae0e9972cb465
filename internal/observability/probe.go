// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultProbeInterval is how often HealthProbe checks the backend.
const DefaultProbeInterval = 15 * time.Second

// HealthCheck reports whether a dependency is healthy.
type HealthCheck func(ctx context.Context) error

// HealthProbe polls a HealthCheck and remembers the last result. Ready is
// false until the first check passes.
type HealthProbe struct {
	check    HealthCheck
	interval time.Duration
	timeout  time.Duration
	gauge    prometheus.Gauge
	healthy  atomic.Bool
}

// NewHealthProbe creates a probe. gauge may be nil; when set it mirrors the
// last result as 1 or 0.
func NewHealthProbe(check HealthCheck, interval time.Duration, gauge prometheus.Gauge) *HealthProbe {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	return &HealthProbe{
		check:    check,
		interval: interval,
		timeout:  interval,
		gauge:    gauge,
	}
}

// Ready implements ReadinessChecker.
func (p *HealthProbe) Ready() bool {
	return p.healthy.Load()
}

// CheckNow runs one check and records the result.
func (p *HealthProbe) CheckNow(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.check(ctx)
	ok := err == nil
	if was := p.healthy.Swap(ok); was != ok {
		if ok {
			slog.InfoContext(ctx, "generation backend healthy")
		} else {
			slog.WarnContext(ctx, "generation backend unhealthy", "error", err)
		}
	}
	if p.gauge != nil {
		if ok {
			p.gauge.Set(1)
		} else {
			p.gauge.Set(0)
		}
	}
	return ok
}

// Run checks immediately and then every interval until ctx is done.
func (p *HealthProbe) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.CheckNow(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.CheckNow(ctx)
		}
	}
}
