// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package presentation turns dialogue output into something a user sees:
// broadcaster events, plain text, or chat messages.
package presentation

import (
	"fmt"

	"github.com/holomush/parley/internal/dialogue"
)

// Render formats an output as ordered text lines. Spoken lines are prefixed
// with the speaker; options follow as a numbered list.
func Render(out dialogue.Output) []string {
	lines := make([]string, 0, len(out.Lines)+len(out.Options))
	for _, line := range out.Lines {
		switch {
		case out.Kind == dialogue.KindRoll:
			lines = append(lines, "[roll] "+line)
		case out.Speaker != "" && out.Kind != dialogue.KindNotice:
			lines = append(lines, fmt.Sprintf("%s: %s", out.Speaker, line))
		default:
			lines = append(lines, line)
		}
	}
	for _, opt := range out.Options {
		text := fmt.Sprintf("  %d. %s", opt.Index, opt.Text)
		if opt.Check != "" {
			text += fmt.Sprintf(" [%s]", opt.Check)
		}
		lines = append(lines, text)
	}
	return lines
}

// Multi presents every output to each sink in order.
type Multi []dialogue.Sink

// Present implements dialogue.Sink.
func (m Multi) Present(out dialogue.Output) {
	for _, s := range m {
		s.Present(out)
	}
}
