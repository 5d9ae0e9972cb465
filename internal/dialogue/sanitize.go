// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package dialogue

import (
	"regexp"
	"strings"
)

var (
	aiDisclaimerPattern = regexp.MustCompile(`(?i)\bas an ai\b[^.!?]*[.!?]?`)
	bracketedPattern    = regexp.MustCompile(`\[.*?\]`)
	noteAsidePattern    = regexp.MustCompile(`(?i)\(note:.*?\)`)
	whitespacePattern   = regexp.MustCompile(`\s+`)
)

// Sanitize strips out-of-character commentary from generated NPC text:
// "As an AI" disclaimers, bracketed asides, and parenthesised notes.
// Whitespace runs collapse to one space.
func Sanitize(text string) string {
	text = aiDisclaimerPattern.ReplaceAllString(text, "")
	text = bracketedPattern.ReplaceAllString(text, "")
	text = noteAsidePattern.ReplaceAllString(text, "")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
