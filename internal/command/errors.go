// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"github.com/samber/oops"

	"github.com/holomush/parley/internal/dialogue"
)

// Error codes for command dispatch failures.
const (
	CodeEmptyInput     = "EMPTY_INPUT"
	CodeUnknownCommand = "UNKNOWN_COMMAND"
	CodeInvalidArgs    = "INVALID_ARGS"
	CodeRateLimited    = "RATE_LIMITED"
	CodeNoUser         = "NO_USER"
	CodeNilDependency  = "NIL_DEPENDENCY"
)

// ErrNilRegistry is returned when a dispatcher is built without a registry.
var ErrNilRegistry = oops.Code(CodeNilDependency).Errorf("registry cannot be nil")

// ErrNilDialogue is returned when a dispatcher is built without a dialogue service.
var ErrNilDialogue = oops.Code(CodeNilDependency).Errorf("dialogue service cannot be nil")

// ErrUnknownCommand creates an error for an unknown command.
func ErrUnknownCommand(cmd string) error {
	return oops.Code(CodeUnknownCommand).
		With("command", cmd).
		Errorf("unknown command: %s", cmd)
}

// ErrInvalidArgs creates an error for invalid arguments.
func ErrInvalidArgs(cmd, usage string) error {
	return oops.Code(CodeInvalidArgs).
		With("command", cmd).
		With("usage", usage).
		Errorf("invalid arguments")
}

// ErrRateLimited creates an error for rate limiting.
func ErrRateLimited(cooldownMs int64) error {
	return oops.Code(CodeRateLimited).
		With("cooldown_ms", cooldownMs).
		Errorf("Too many commands. Please slow down.")
}

// ErrNoUser creates an error when a command arrives without a user.
func ErrNoUser() error {
	return oops.Code(CodeNoUser).
		Errorf("no user associated with command")
}

// PlayerMessage extracts a player-facing message from an error.
// Dialogue input errors keep their own wording.
func PlayerMessage(err error) string {
	if err == nil {
		return "Something went wrong. Try again."
	}
	if msg, ok := dialogue.PlayerMessage(err); ok {
		return msg
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return "Something went wrong. Try again."
	}

	switch oopsErr.Code() {
	case CodeEmptyInput:
		return "Type a command. Try 'help'."
	case CodeUnknownCommand:
		return "Unknown command. Try 'help'."
	case CodeInvalidArgs:
		if usage, ok := oopsErr.Context()["usage"].(string); ok && usage != "" {
			return "Usage: " + usage
		}
		return "Invalid arguments."
	case CodeRateLimited:
		return "Too many commands. Please slow down."
	default:
		return "Something went wrong. Try again."
	}
}
