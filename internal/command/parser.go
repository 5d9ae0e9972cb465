// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"strconv"
	"strings"

	"github.com/samber/oops"
)

// ParsedCommand represents a parsed command input.
type ParsedCommand struct {
	Name string // lowercased command name (first whitespace-delimited token)
	Args string // unparsed argument string (preserves internal whitespace)
	Raw  string // original input
}

// Parse splits raw input into command name and arguments.
// A bare number is shorthand for "choose <number>".
func Parse(input string) (*ParsedCommand, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, oops.Code(CodeEmptyInput).Errorf("no command provided")
	}

	name, args := trimmed, ""
	if idx := strings.IndexAny(trimmed, " \t"); idx != -1 {
		name = trimmed[:idx]
		args = strings.TrimLeft(trimmed[idx+1:], " \t")
	}

	if _, err := strconv.Atoi(name); err == nil && args == "" {
		return &ParsedCommand{Name: "choose", Args: name, Raw: input}, nil
	}

	return &ParsedCommand{
		Name: strings.ToLower(name),
		Args: args,
		Raw:  input,
	}, nil
}
