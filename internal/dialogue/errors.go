// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package dialogue

import (
	"fmt"

	"github.com/samber/oops"
)

// Error codes for dialogue failures.
const (
	CodeNotInConversation = "NOT_IN_CONVERSATION"
	CodeInvalidChoice     = "INVALID_CHOICE"
	CodeAwaitingResponse  = "AWAITING_RESPONSE"
	CodeInvalidRollCheck  = "INVALID_ROLL_CHECK"
	CodeInvalidArgs       = "INVALID_DIALOGUE_ARGS"
	CodeInvalidCatalog    = "INVALID_FALLBACK_CATALOG"
	CodeMissingDependency = "MISSING_DEPENDENCY"
)

// ErrNotInConversation creates an error for a choice with no active session.
func ErrNotInConversation(userID string) error {
	return oops.Code(CodeNotInConversation).
		With("user_id", userID).
		Errorf("You're not in a conversation.")
}

// ErrInvalidChoice creates an error for an option index outside the current list.
func ErrInvalidChoice(userID string, index, count int) error {
	return oops.Code(CodeInvalidChoice).
		With("user_id", userID).
		With("index", index).
		With("count", count).
		Errorf("Invalid choice. Pick a number from 1 to %d.", count)
}

// ErrAwaitingResponse creates an error for a choice made while a reply is pending.
func ErrAwaitingResponse(userID, characterID string) error {
	return oops.Code(CodeAwaitingResponse).
		With("user_id", userID).
		With("character_id", characterID).
		Errorf("%s is still thinking.", characterID)
}

// ErrInvalidRollCheck creates an error for a malformed roll check.
func ErrInvalidRollCheck(c RollCheck, reason string) error {
	return oops.Code(CodeInvalidRollCheck).
		With("skill", c.Skill).
		With("difficulty", c.Difficulty).
		With("advantage", c.Advantage).
		With("disadvantage", c.Disadvantage).
		Errorf("invalid roll check: %s", reason)
}

// ErrInvalidArgs creates an error for empty identifiers or messages.
func ErrInvalidArgs(field string) error {
	return oops.Code(CodeInvalidArgs).
		With("field", field).
		Errorf("%s is required", field)
}

// ErrInvalidCatalog creates an error for a fallback catalog that cannot be used.
func ErrInvalidCatalog(reason string, cause error) error {
	builder := oops.Code(CodeInvalidCatalog).With("reason", reason)
	if cause != nil {
		return builder.Wrapf(cause, "invalid fallback catalog: %s", reason)
	}
	return builder.Errorf("invalid fallback catalog: %s", reason)
}

func errMissingDependency(name string) error {
	return oops.Code(CodeMissingDependency).
		With("dependency", name).
		Errorf("orchestrator requires %s", name)
}

// PlayerMessage returns the user-facing text for a dialogue error. The bool
// is false when err is not a dialogue user-input error.
func PlayerMessage(err error) (string, bool) {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return "", false
	}

	switch oopsErr.Code() {
	case CodeNotInConversation:
		return "You're not in a conversation.", true
	case CodeInvalidChoice:
		if n, ok := oopsErr.Context()["count"].(int); ok && n > 0 {
			return fmt.Sprintf("Invalid choice. Pick a number from 1 to %d.", n), true
		}
		return "Invalid choice.", true
	case CodeAwaitingResponse:
		return "They're still thinking. Wait for a reply.", true
	case CodeInvalidArgs:
		if field, ok := oopsErr.Context()["field"].(string); ok {
			return fmt.Sprintf("Missing %s.", field), true
		}
		return "Invalid arguments.", true
	default:
		return "", false
	}
}
