// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestNewRateLimiter(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("uses defaults", func(t *testing.T) {
		rl := NewRateLimiter(RateLimiterConfig{})

		assert.Equal(t, float64(DefaultBurstCapacity), rl.capacity)
		assert.Equal(t, DefaultSustainedRate, rl.rate)
		assert.Equal(t, DefaultIdleMaxAge, rl.idle)
	})

	t.Run("clamps tiny rates", func(t *testing.T) {
		rl := NewRateLimiter(RateLimiterConfig{BurstCapacity: -5, SustainedRate: 0.01})

		assert.Equal(t, float64(DefaultBurstCapacity), rl.capacity)
		assert.Equal(t, MinSustainedRate, rl.rate)
	})
}

func TestRateLimiter_Allow(t *testing.T) {
	clock := &manualClock{now: time.Unix(1_700_000_000, 0)}
	rl := NewRateLimiter(RateLimiterConfig{BurstCapacity: 3, SustainedRate: 1, Now: clock.Now})

	for i := 0; i < 3; i++ {
		allowed, cooldown := rl.Allow("alice")
		assert.True(t, allowed, "burst command %d", i)
		assert.Zero(t, cooldown)
	}

	allowed, cooldown := rl.Allow("alice")
	assert.False(t, allowed)
	assert.Equal(t, int64(1000), cooldown)

	allowed, _ = rl.Allow("bob")
	assert.True(t, allowed, "players have separate allowances")

	clock.Advance(time.Second)
	allowed, _ = rl.Allow("alice")
	assert.True(t, allowed, "one command drained")
}

func TestRateLimiter_RepliesCostLess(t *testing.T) {
	clock := &manualClock{now: time.Unix(1_700_000_000, 0)}
	rl := NewRateLimiter(RateLimiterConfig{BurstCapacity: 1, SustainedRate: 1, Now: clock.Now})

	for i := 0; i < 4; i++ {
		ok, _ := rl.Spend("alice", CostReply)
		assert.True(t, ok, "reply %d", i)
	}
	ok, wait := rl.Spend("alice", CostReply)
	assert.False(t, ok)
	assert.Equal(t, 250*time.Millisecond, wait)

	ok, wait = rl.Spend("alice", CostFull)
	assert.False(t, ok)
	assert.Equal(t, time.Second, wait)
}

func TestRateLimiter_FreeCommandsAreNotTracked(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{BurstCapacity: 1})

	for i := 0; i < 10; i++ {
		ok, _ := rl.Spend("alice", 0)
		assert.True(t, ok)
	}
	assert.Zero(t, rl.UserCount())
}

func TestRateLimiter_PruneForgetsIdlePlayers(t *testing.T) {
	clock := &manualClock{now: time.Unix(1_700_000_000, 0)}
	reg := prometheus.NewRegistry()
	rl := NewRateLimiterWithRegistry(RateLimiterConfig{Now: clock.Now}, reg)

	rl.Allow("alice")
	clock.Advance(10 * time.Minute)
	rl.Allow("bob")
	assert.Equal(t, float64(2), testutil.ToFloat64(rl.tracked))
	clock.Advance(25 * time.Minute)

	rl.Prune()

	assert.Equal(t, 1, rl.UserCount())
	assert.Equal(t, float64(1), testutil.ToFloat64(rl.tracked))
}

func TestRateLimiter_PrunesWhileSpending(t *testing.T) {
	clock := &manualClock{now: time.Unix(1_700_000_000, 0)}
	rl := NewRateLimiter(RateLimiterConfig{IdleMaxAge: time.Minute, Now: clock.Now})

	rl.Allow("alice")
	clock.Advance(2 * time.Minute)
	rl.Allow("bob")

	assert.Equal(t, 1, rl.UserCount())
}
