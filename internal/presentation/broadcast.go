// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package presentation

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/holomush/parley/internal/core"
	"github.com/holomush/parley/internal/dialogue"
)

// BroadcastSink publishes outputs as JSON events on the user's stream.
type BroadcastSink struct {
	broadcaster *core.Broadcaster
	now         func() time.Time
}

// NewBroadcastSink creates a sink publishing to b.
func NewBroadcastSink(b *core.Broadcaster) *BroadcastSink {
	return &BroadcastSink{broadcaster: b, now: time.Now}
}

// Present implements dialogue.Sink.
func (s *BroadcastSink) Present(out dialogue.Output) {
	payload, err := json.Marshal(out)
	if err != nil {
		slog.Error("failed to encode dialogue output", "user_id", out.UserID, "error", err)
		return
	}

	event := core.Event{
		ID:        core.NewULID(),
		Stream:    core.UserStream(out.UserID),
		Type:      eventType(out.Kind),
		Timestamp: s.now(),
		Payload:   payload,
	}
	if n := s.broadcaster.Broadcast(event); n == 0 {
		slog.Debug("dialogue output had no subscribers",
			"user_id", out.UserID,
			"event_id", event.ID.String(),
		)
	}
}

func eventType(kind dialogue.OutputKind) core.EventType {
	switch kind {
	case dialogue.KindRoll:
		return core.EventTypeRoll
	case dialogue.KindFarewell:
		return core.EventTypeFarewell
	case dialogue.KindNotice:
		return core.EventTypeSystem
	default:
		return core.EventTypeDialogue
	}
}
