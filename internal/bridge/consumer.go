// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package bridge

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/holomush/parley/pkg/errutil"
)

// Executor runs functions on the state owner.
type Executor interface {
	Post(fn func()) bool
}

// Consumer drains a Queue and routes each command on the owner.
type Consumer struct {
	queue  *Queue
	router *Router
	owner  Executor
}

// NewConsumer creates a consumer.
func NewConsumer(queue *Queue, router *Router, owner Executor) (*Consumer, error) {
	switch {
	case queue == nil:
		return nil, oops.Code("NIL_DEPENDENCY").Errorf("queue is required")
	case router == nil:
		return nil, oops.Code("NIL_DEPENDENCY").Errorf("router is required")
	case owner == nil:
		return nil, oops.Code("NIL_DEPENDENCY").Errorf("owner is required")
	}
	return &Consumer{queue: queue, router: router, owner: owner}, nil
}

// Run consumes commands until ctx is cancelled or the queue is closed.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd, ok := <-c.queue.C():
			if !ok {
				return nil
			}
			QueueDepth.Set(float64(c.queue.Len()))
			if !c.owner.Post(func() { c.handle(ctx, cmd) }) {
				CommandsReceived.WithLabelValues(cmd.Type, "dropped").Inc()
				slog.WarnContext(ctx, "owner closed, dropping command", "type", cmd.Type)
				return nil
			}
		}
	}
}

func (c *Consumer) handle(ctx context.Context, cmd Command) {
	pattern, err := c.router.Route(ctx, cmd)
	if err != nil {
		CommandsReceived.WithLabelValues(cmd.Type, "error").Inc()
		errutil.LogErrorContext(ctx, "command handling failed", err,
			"type", cmd.Type,
			"route", pattern,
		)
		return
	}
	CommandsReceived.WithLabelValues(cmd.Type, "handled").Inc()
}
