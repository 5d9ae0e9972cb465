// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package presentation

import (
	"github.com/holomush/parley/internal/dialogue"
)

// ChatSender delivers one chat line to a player.
type ChatSender interface {
	SendChat(player, message string)
}

// ChatSink renders outputs into per-line chat messages.
type ChatSink struct {
	sender ChatSender
}

// NewChatSink creates a sink that sends rendered lines through sender.
func NewChatSink(sender ChatSender) *ChatSink {
	return &ChatSink{sender: sender}
}

// Present implements dialogue.Sink.
func (s *ChatSink) Present(out dialogue.Output) {
	for _, line := range Render(out) {
		s.sender.SendChat(out.UserID, line)
	}
}
