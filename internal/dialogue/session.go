// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package dialogue

import (
	"context"
	"fmt"
	"time"
)

// State is a conversation's position in the dialogue state machine.
type State int

const (
	StateStarting State = iota
	StateWaitingForResponse
	StateAwaitingChoice
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateWaitingForResponse:
		return "waiting_for_response"
	case StateAwaitingChoice:
		return "awaiting_choice"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Tone is a mood tag used only for presentation.
type Tone string

const (
	ToneNeutral    Tone = "neutral"
	ToneFriendly   Tone = "friendly"
	ToneCurious    Tone = "curious"
	ToneAggressive Tone = "aggressive"
	ToneMysterious Tone = "mysterious"
)

// ParseTone normalizes a backend tone tag. Unknown tags become neutral.
func ParseTone(s string) Tone {
	switch t := Tone(s); t {
	case ToneNeutral, ToneFriendly, ToneCurious, ToneAggressive, ToneMysterious:
		return t
	default:
		return ToneNeutral
	}
}

// QuestOptionID is reserved for the "is there work for me?" option. Choosing
// it never starts a generation round.
const QuestOptionID = 99

// RollCheck gates an option behind a d20 roll.
type RollCheck struct {
	Skill        string
	Difficulty   int
	Advantage    bool
	Disadvantage bool
}

// Validate rejects checks without a skill and checks that set both
// advantage and disadvantage.
func (c RollCheck) Validate() error {
	if c.Skill == "" {
		return ErrInvalidRollCheck(c, "skill is required")
	}
	if c.Advantage && c.Disadvantage {
		return ErrInvalidRollCheck(c, "advantage and disadvantage are mutually exclusive")
	}
	return nil
}

// Label renders the check for option lists, e.g. "Persuasion DC 15, advantage".
func (c RollCheck) Label() string {
	label := fmt.Sprintf("%s DC %d", titleCase(c.Skill), c.Difficulty)
	switch {
	case c.Advantage:
		label += ", advantage"
	case c.Disadvantage:
		label += ", disadvantage"
	}
	return label
}

// Option is one reply the user can pick.
type Option struct {
	ID        int
	Text      string
	Tone      Tone
	RollCheck *RollCheck
	Farewell  bool // the backend marked this option as ending the conversation
}

func copyOptions(opts []Option) []Option {
	if opts == nil {
		return nil
	}
	out := make([]Option, len(opts))
	for i, o := range opts {
		out[i] = o
		if o.RollCheck != nil {
			rc := *o.RollCheck
			out[i].RollCheck = &rc
		}
	}
	return out
}

// Session is one user's conversation with one character.
type Session struct {
	UserID            string
	CharacterID       string
	CharacterName     string
	ConversationToken string // issued by the backend; empty until the first exchange
	Options           []Option
	Epoch             uint64
	State             State
	LastLine          string // most recent NPC utterance
	StartedAt         time.Time

	pending bool
	cancel  context.CancelFunc
}

// Pending reports whether a generation request is in flight.
func (s *Session) Pending() bool {
	return s.pending
}

// setPending records the in-flight request's cancel handle.
func (s *Session) setPending(cancel context.CancelFunc) {
	s.pending = true
	s.cancel = cancel
}

// clearPending releases the in-flight handle without cancelling it.
func (s *Session) clearPending() {
	if s.cancel != nil {
		// Releases the context's resources; the request has already returned.
		s.cancel()
	}
	s.pending = false
	s.cancel = nil
}

// cancelPending best-effort cancels the in-flight request.
func (s *Session) cancelPending() {
	if s.cancel != nil {
		s.cancel()
	}
	s.pending = false
	s.cancel = nil
}

// snapshot returns a copy safe to hand outside the store.
func (s *Session) snapshot() *Session {
	return &Session{
		UserID:            s.UserID,
		CharacterID:       s.CharacterID,
		CharacterName:     s.CharacterName,
		ConversationToken: s.ConversationToken,
		Options:           copyOptions(s.Options),
		Epoch:             s.Epoch,
		State:             s.State,
		LastLine:          s.LastLine,
		StartedAt:         s.StartedAt,
		pending:           s.pending,
	}
}
