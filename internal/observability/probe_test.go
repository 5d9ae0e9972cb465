// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthProbe_TracksLastResult(t *testing.T) {
	var healthy atomic.Bool
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "probe_test_up", Help: "test"})
	probe := NewHealthProbe(func(context.Context) error {
		if healthy.Load() {
			return nil
		}
		return errors.New("backend down")
	}, time.Second, gauge)

	assert.False(t, probe.Ready(), "not ready before first check")

	assert.False(t, probe.CheckNow(context.Background()))
	assert.False(t, probe.Ready())
	assert.Equal(t, float64(0), testutil.ToFloat64(gauge))

	healthy.Store(true)
	assert.True(t, probe.CheckNow(context.Background()))
	assert.True(t, probe.Ready())
	assert.Equal(t, float64(1), testutil.ToFloat64(gauge))
}

func TestHealthProbe_RunChecksImmediately(t *testing.T) {
	var calls atomic.Int32
	probe := NewHealthProbe(func(context.Context) error {
		calls.Add(1)
		return nil
	}, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- probe.Run(ctx) }()

	require.Eventually(t, probe.Ready, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHealthProbe_ServesReadiness(t *testing.T) {
	probe := NewHealthProbe(func(context.Context) error { return nil }, 0, nil)
	h := NewServer("127.0.0.1:0", probe.Ready).Handler()

	code, _ := get(t, h, "/healthz/readiness")
	assert.Equal(t, 503, code)

	probe.CheckNow(context.Background())
	code, _ = get(t, h, "/healthz/readiness")
	assert.Equal(t, 200, code)
}
