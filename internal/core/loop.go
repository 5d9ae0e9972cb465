// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package core

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/samber/oops"
)

// DefaultLoopBuffer is the number of tasks that can wait for the loop.
const DefaultLoopBuffer = 256

// Loop is the single owner of shared world state. Tasks posted to it run one
// at a time, in the order they were posted, on the goroutine that called Run.
type Loop struct {
	tasks     chan func()
	done      chan struct{}
	closeOnce sync.Once
	running   atomic.Bool
}

// NewLoop creates a loop whose queue holds buffer tasks.
// A buffer of zero or less uses DefaultLoopBuffer.
func NewLoop(buffer int) *Loop {
	if buffer <= 0 {
		buffer = DefaultLoopBuffer
	}
	return &Loop{
		tasks: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
}

// Post queues fn for execution on the loop. It blocks while the queue is
// full and returns false once the loop has been closed.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}

	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Run executes posted tasks until ctx is cancelled or Close is called.
// Only one Run may be active at a time.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return oops.Code("LOOP_RUNNING").Errorf("loop is already running")
	}
	defer l.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			l.Close()
			return nil
		case <-l.done:
			return nil
		case fn := <-l.tasks:
			l.execute(fn)
		}
	}
}

// Close stops the loop. Tasks still queued are discarded.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		close(l.done)
	})
}

// execute runs a task, containing any panic so one bad completion cannot
// take the owner down.
func (l *Loop) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("loop task panicked", "panic", r)
		}
	}()
	fn()
}
