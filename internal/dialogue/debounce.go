// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package dialogue

import (
	"strings"
	"sync"
	"time"
)

// Debouncer defaults.
const (
	DefaultDebounceWindow  = 500 * time.Millisecond
	DefaultDebounceCleanup = time.Minute
)

// DebouncerConfig configures a Debouncer.
type DebouncerConfig struct {
	// Window is the cooldown per (user, character). Defaults to 500ms.
	Window time.Duration

	// CleanupInterval is how often stale keys are swept. Defaults to 1 minute.
	CleanupInterval time.Duration

	// Now overrides the clock, for tests.
	Now func() time.Time
}

type debounceKey struct {
	userID      string
	characterID string
}

// Debouncer absorbs repeated triggers for the same (user, character) pair
// inside a short window. It is safe for concurrent use; concurrent triggers
// for one key yield exactly one acceptance.
//
// The Debouncer runs a background goroutine to sweep stale keys. Call Close
// to stop it.
type Debouncer struct {
	mu     sync.Mutex
	last   map[debounceKey]time.Time
	window time.Duration
	now    func() time.Time

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewDebouncer creates a Debouncer and starts its sweeper.
func NewDebouncer(cfg DebouncerConfig) *Debouncer {
	window := cfg.Window
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = DefaultDebounceCleanup
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	d := &Debouncer{
		last:     make(map[debounceKey]time.Time),
		window:   window,
		now:      now,
		stopChan: make(chan struct{}),
	}

	d.wg.Add(1)
	go d.sweepLoop(interval)

	return d
}

// Allow reports whether a trigger should be acted on. The timestamp only
// moves on acceptance, so a stream of rapid triggers is accepted at most
// once per window. Character ids match case-insensitively.
func (d *Debouncer) Allow(userID, characterID string) bool {
	key := debounceKey{userID: userID, characterID: strings.ToLower(characterID)}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if last, ok := d.last[key]; ok && now.Sub(last) < d.window {
		return false
	}
	d.last[key] = now
	return true
}

// Sweep forgets keys whose window has passed.
func (d *Debouncer) Sweep() {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for key, last := range d.last {
		if now.Sub(last) >= d.window {
			delete(d.last, key)
		}
	}
}

// Len returns the number of tracked keys.
func (d *Debouncer) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.last)
}

func (d *Debouncer) sweepLoop(interval time.Duration) {
	defer d.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopChan:
			return
		case <-ticker.C:
			d.Sweep()
		}
	}
}

// Close stops the sweeper and waits for it to exit. Safe to call twice.
func (d *Debouncer) Close() {
	d.stopOnce.Do(func() { close(d.stopChan) })
	d.wg.Wait()
}
