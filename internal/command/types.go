// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package command parses and dispatches the text commands a player uses
// inside a conversation: choosing an option, talking freely, and leaving.
package command

import (
	"context"
)

// CommandHandler is the function signature for command handlers.
//
//nolint:revive // stutter reads better at call sites than command.Handler
type CommandHandler func(ctx context.Context, exec *CommandExecution) error

// CommandEntry represents a registered command.
//
//nolint:revive // see CommandHandler
type CommandEntry struct {
	Name     string         // canonical name (e.g., "choose")
	Aliases  []string       // alternative names (e.g., "c")
	Handler  CommandHandler // handler invoked with parsed args
	Help     string         // short description (one line)
	Usage    string         // usage pattern (e.g., "choose <number>")
	Source   string         // "core" for built-ins
	Throttle Throttle       // how the command counts against the player's allowance
}

// Throttle classifies a command for rate limiting.
type Throttle int

const (
	// ThrottleFull charges CostFull. It is the zero value.
	ThrottleFull Throttle = iota
	// ThrottleReply charges CostReply while the player has an open option
	// prompt, and CostFull otherwise.
	ThrottleReply
	// ThrottleNone is never limited.
	ThrottleNone
)

// CommandExecution provides context for command execution.
//
//nolint:revive // see CommandHandler
type CommandExecution struct {
	UserID    string
	Args      string
	InvokedAs string // name the player typed
	Services  *Services
}

// Dialogue is the conversation surface commands act on.
type Dialogue interface {
	SubmitChoice(ctx context.Context, userID string, index int) error
	Talk(ctx context.Context, userID, characterID, characterName, message string) error
	Leave(ctx context.Context, userID string) error
	Notify(userID string, lines ...string)
}

// Services provides access to collaborators for command handlers.
// Handlers MUST NOT store references to services beyond execution.
type Services struct {
	Dialogue Dialogue
	Registry *Registry
}
