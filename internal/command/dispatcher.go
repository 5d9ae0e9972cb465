// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("parley/command")

// Dispatcher handles command parsing, throttling, and execution.
type Dispatcher struct {
	registry    *Registry
	dialogue    Dialogue
	rateLimiter *RateLimiter // optional, can be nil
	prompts     PromptState  // optional, can be nil
}

// PromptState reports whether a player has an option prompt open.
type PromptState interface {
	AwaitingChoice(userID string) bool
}

// DispatcherOption configures a Dispatcher during construction.
type DispatcherOption func(*Dispatcher)

// WithRateLimiter configures the dispatcher to throttle each user.
// If not provided, rate limiting is disabled.
func WithRateLimiter(rl *RateLimiter) DispatcherOption {
	return func(d *Dispatcher) {
		d.rateLimiter = rl
	}
}

// WithPromptState lets the dispatcher charge replies to an open prompt at
// CostReply. Without it every throttled command costs CostFull.
func WithPromptState(p PromptState) DispatcherOption {
	return func(d *Dispatcher) {
		d.prompts = p
	}
}

// NewDispatcher creates a dispatcher. Returns an error if registry or
// dialogue is nil.
func NewDispatcher(registry *Registry, dlg Dialogue, opts ...DispatcherOption) (*Dispatcher, error) {
	if registry == nil {
		return nil, ErrNilRegistry
	}
	if dlg == nil {
		return nil, ErrNilDialogue
	}
	d := &Dispatcher{
		registry: registry,
		dialogue: dlg,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dispatch parses and executes one line of player input.
func (d *Dispatcher) Dispatch(ctx context.Context, userID, input string) (err error) {
	if userID == "" {
		return ErrNoUser()
	}

	parsed, err := Parse(input)
	if err != nil {
		return err
	}

	ctx, span := tracer.Start(ctx, "command.execute",
		trace.WithAttributes(
			attribute.String("command.name", parsed.Name),
			attribute.String("user.id", userID),
		),
	)
	start := time.Now()
	status := StatusSuccess
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		RecordCommandExecution(parsed.Name, status)
		RecordCommandDuration(parsed.Name, time.Since(start))
	}()

	entry, found := d.registry.Get(parsed.Name)

	if d.rateLimiter != nil {
		cost := d.cost(userID, entry, found)
		if ok, wait := d.rateLimiter.Spend(userID, cost); !ok {
			span.SetAttributes(
				attribute.Bool("command.rate_limited", true),
				attribute.Float64("command.cost", cost),
				attribute.Int64("command.cooldown_ms", wait.Milliseconds()),
			)
			status = StatusRateLimited
			err = ErrRateLimited(wait.Milliseconds())
			return err
		}
	}

	if !found {
		status = StatusNotFound
		err = ErrUnknownCommand(parsed.Name)
		return err
	}
	span.SetAttributes(attribute.String("command.source", entry.Source))

	exec := &CommandExecution{
		UserID:    userID,
		Args:      parsed.Args,
		InvokedAs: parsed.Name,
		Services:  &Services{Dialogue: d.dialogue, Registry: d.registry},
	}
	err = entry.Handler(ctx, exec)
	if err != nil {
		status = StatusError
		slog.DebugContext(ctx, "command execution failed",
			"command", entry.Name,
			"user_id", userID,
			"error", err,
		)
	}
	return err
}

// cost prices one command. Unknown commands pay in full so typos cannot
// be used to flood.
func (d *Dispatcher) cost(userID string, entry CommandEntry, found bool) float64 {
	if !found {
		return CostFull
	}
	switch entry.Throttle {
	case ThrottleNone:
		return 0
	case ThrottleReply:
		if d.prompts != nil && d.prompts.AwaitingChoice(userID) {
			return CostReply
		}
	}
	return CostFull
}

// Handle dispatches input and reports any failure to the user.
func (d *Dispatcher) Handle(ctx context.Context, userID, input string) {
	if err := d.Dispatch(ctx, userID, input); err != nil && userID != "" {
		d.dialogue.Notify(userID, PlayerMessage(err))
	}
}
