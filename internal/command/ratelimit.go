// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"math"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Costs charged against a player's allowance.
const (
	// CostFull is charged for free text, unknown commands, and choices
	// made without an open prompt.
	CostFull = 1.0
	// CostReply is charged for answering an open option prompt.
	CostReply = 0.25
)

const (
	// DefaultBurstCapacity is how much cost a player may spend at once.
	DefaultBurstCapacity = 5
	// DefaultSustainedRate is how much spent cost drains per second.
	DefaultSustainedRate = 1.0
	// MinSustainedRate keeps a misconfigured limiter from locking players out.
	MinSustainedRate = 0.1
	// DefaultIdleMaxAge is how long a silent player's allowance is remembered.
	DefaultIdleMaxAge = 30 * time.Minute
)

// RateLimiterConfig configures a RateLimiter. Zero values take defaults.
type RateLimiterConfig struct {
	BurstCapacity int
	SustainedRate float64
	IdleMaxAge    time.Duration

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// allowance is the cost a player has spent that has not drained yet.
type allowance struct {
	spent float64
	at    time.Time
}

// RateLimiter throttles each player's command stream. Commands carry a cost;
// spent cost drains at the sustained rate and a command is refused when it
// would push the outstanding cost past the burst capacity. Players who
// answer the prompts they are shown spend far less than players flooding
// free text.
//
// Idle allowances are pruned as the limiter is used, so it owns no
// goroutine.
type RateLimiter struct {
	capacity float64
	rate     float64
	idle     time.Duration
	now      func() time.Time

	mu        sync.Mutex
	players   map[string]*allowance
	lastPrune time.Time
	tracked   prometheus.Gauge
}

// NewRateLimiter creates a limiter.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	return NewRateLimiterWithRegistry(cfg, nil)
}

// NewRateLimiterWithRegistry creates a limiter whose tracked-player gauge is
// registered with reg. reg may be nil.
func NewRateLimiterWithRegistry(cfg RateLimiterConfig, reg prometheus.Registerer) *RateLimiter {
	rl := &RateLimiter{
		capacity: float64(cfg.BurstCapacity),
		rate:     math.Max(cfg.SustainedRate, MinSustainedRate),
		idle:     cfg.IdleMaxAge,
		now:      cfg.Now,
		players:  make(map[string]*allowance),
	}
	if cfg.BurstCapacity <= 0 {
		rl.capacity = DefaultBurstCapacity
	}
	if cfg.SustainedRate <= 0 {
		rl.rate = DefaultSustainedRate
	}
	if rl.idle <= 0 {
		rl.idle = DefaultIdleMaxAge
	}
	if rl.now == nil {
		rl.now = time.Now
	}
	rl.lastPrune = rl.now()

	if reg != nil {
		rl.tracked = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "parley_command_ratelimiter_users",
			Help: "Players with an outstanding command allowance",
		})
		reg.MustRegister(rl.tracked)
	}
	return rl
}

// Spend charges cost to userID. When refused, wait is how long until the
// charge would fit. A cost of zero or less is always allowed and not
// recorded.
func (rl *RateLimiter) Spend(userID string, cost float64) (ok bool, wait time.Duration) {
	if cost <= 0 {
		return true, 0
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.pruneLocked(now)

	a := rl.players[userID]
	if a == nil {
		a = &allowance{at: now}
		rl.players[userID] = a
		rl.setGaugeLocked()
	}
	a.spent = math.Max(0, a.spent-now.Sub(a.at).Seconds()*rl.rate)
	a.at = now

	if over := a.spent + cost - rl.capacity; over > 1e-9 {
		return false, time.Duration(over / rl.rate * float64(time.Second))
	}
	a.spent += cost
	return true, 0
}

// Allow charges a full-cost command. The cooldown is in milliseconds.
func (rl *RateLimiter) Allow(userID string) (bool, int64) {
	ok, wait := rl.Spend(userID, CostFull)
	return ok, wait.Milliseconds()
}

// UserCount returns the number of players with a remembered allowance.
func (rl *RateLimiter) UserCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.players)
}

// Prune forgets players silent for longer than the idle age.
func (rl *RateLimiter) Prune() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.lastPrune = time.Time{}
	rl.pruneLocked(rl.now())
}

// pruneLocked runs at most once per half idle age.
func (rl *RateLimiter) pruneLocked(now time.Time) {
	if now.Sub(rl.lastPrune) < rl.idle/2 {
		return
	}
	rl.lastPrune = now
	for id, a := range rl.players {
		if now.Sub(a.at) >= rl.idle {
			delete(rl.players, id)
		}
	}
	rl.setGaugeLocked()
}

func (rl *RateLimiter) setGaugeLocked() {
	if rl.tracked != nil {
		rl.tracked.Set(float64(len(rl.players)))
	}
}
