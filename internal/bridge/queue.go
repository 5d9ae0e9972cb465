// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package bridge

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultQueueSize is the command queue capacity.
const DefaultQueueSize = 256

// QueueDepth is the gauge of queued commands.
var QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "parley_bridge_queue_depth",
	Help: "Number of commands waiting to be consumed",
})

// CommandsReceived counts commands by type and outcome.
var CommandsReceived = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "parley_bridge_commands_total",
		Help: "Total number of bridge commands by type and outcome",
	},
	[]string{"type", "outcome"},
)

// RegisterMetrics registers bridge metrics with the given registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(QueueDepth, CommandsReceived)
}

// Queue is a bounded FIFO of commands. Push never blocks.
type Queue struct {
	mu     sync.Mutex
	ch     chan Command
	closed bool
}

// NewQueue creates a queue. A size of zero or less uses DefaultQueueSize.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{ch: make(chan Command, size)}
}

// Push enqueues cmd. It returns false when the queue is full or closed.
func (q *Queue) Push(cmd Command) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	select {
	case q.ch <- cmd:
		QueueDepth.Set(float64(len(q.ch)))
		return true
	default:
		CommandsReceived.WithLabelValues(cmd.Type, "queue_full").Inc()
		return false
	}
}

// C returns the receive side of the queue. It is closed by Close.
func (q *Queue) C() <-chan Command {
	return q.ch
}

// Len returns the number of queued commands.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close stops accepting commands. Queued commands can still be received.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}
