// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// RegisterBuiltins adds the conversation commands to r.
func RegisterBuiltins(r *Registry) error {
	entries := []CommandEntry{
		{
			Name:     "choose",
			Aliases:  []string{"c", "pick"},
			Handler:  chooseHandler,
			Help:     "Pick a numbered reply",
			Usage:    "choose <number>",
			Source:   "core",
			Throttle: ThrottleReply,
		},
		{
			Name:    "talk",
			Aliases: []string{"say", "t"},
			Handler: talkHandler,
			Help:    "Say something in your own words",
			Usage:   "talk [@character] <message>",
			Source:  "core",
		},
		{
			Name:     "leave",
			Aliases:  []string{"bye"},
			Handler:  leaveHandler,
			Help:     "End the current conversation",
			Usage:    "leave",
			Source:   "core",
			Throttle: ThrottleNone,
		},
		{
			Name:     "help",
			Handler:  helpHandler,
			Help:     "List commands",
			Usage:    "help",
			Source:   "core",
			Throttle: ThrottleNone,
		},
	}
	for _, e := range entries {
		if err := r.Register(e); err != nil {
			return err
		}
	}
	return nil
}

func chooseHandler(ctx context.Context, exec *CommandExecution) error {
	index, err := strconv.Atoi(strings.TrimSpace(exec.Args))
	if err != nil {
		return ErrInvalidArgs(exec.InvokedAs, "choose <number>")
	}
	return exec.Services.Dialogue.SubmitChoice(ctx, exec.UserID, index)
}

// talkHandler sends free text. "@name" as the first word addresses a
// specific character and starts a conversation with them if needed.
func talkHandler(ctx context.Context, exec *CommandExecution) error {
	message := strings.TrimSpace(exec.Args)
	characterID := ""
	if strings.HasPrefix(message, "@") {
		target, rest, _ := strings.Cut(message[1:], " ")
		characterID = strings.ToLower(target)
		message = strings.TrimSpace(rest)
	}
	if message == "" {
		return ErrInvalidArgs(exec.InvokedAs, "talk [@character] <message>")
	}
	return exec.Services.Dialogue.Talk(ctx, exec.UserID, characterID, "", message)
}

func leaveHandler(ctx context.Context, exec *CommandExecution) error {
	return exec.Services.Dialogue.Leave(ctx, exec.UserID)
}

func helpHandler(_ context.Context, exec *CommandExecution) error {
	entries := exec.Services.Registry.All()
	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, "Commands:")
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("  %-30s %s", e.Usage, e.Help))
	}
	exec.Services.Dialogue.Notify(exec.UserID, lines...)
	return nil
}
