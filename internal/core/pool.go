// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package core

import (
	"log/slog"
	"sync"
)

// Default worker pool values.
const (
	DefaultPoolWorkers   = 4
	DefaultPoolQueueSize = 64
)

// PoolConfig configures a worker pool.
type PoolConfig struct {
	// Workers is the number of goroutines executing jobs.
	// Defaults to DefaultPoolWorkers if zero or negative.
	Workers int

	// QueueSize is the number of jobs that may wait for a worker.
	// Defaults to DefaultPoolQueueSize if zero or negative.
	QueueSize int
}

// Pool runs blocking jobs (network calls and their retry waits) off the
// loop. Submit never blocks: a full queue rejects the job.
type Pool struct {
	jobs chan func()

	mu     sync.Mutex
	closed bool

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewPool starts a pool with the given configuration. Call Close to stop it.
func NewPool(cfg PoolConfig) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultPoolWorkers
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultPoolQueueSize
	}

	p := &Pool{
		jobs:     make(chan func(), queueSize),
		stopChan: make(chan struct{}),
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// Submit queues a job. It returns false if the queue is full or the pool
// has been closed.
func (p *Pool) Submit(job func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false
	}

	select {
	case p.jobs <- job:
		return true
	default:
		return false
	}
}

// Pending returns the number of queued jobs not yet picked up by a worker.
func (p *Pool) Pending() int {
	return len(p.jobs)
}

// Close stops the workers and waits for running jobs to return.
// Queued jobs that have not started are discarded.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.stopChan)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case job := <-p.jobs:
			p.run(job)
		}
	}
}

func (p *Pool) run(job func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("pool job panicked", "panic", r)
		}
	}()
	job()
}
