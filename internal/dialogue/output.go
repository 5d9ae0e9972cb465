// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package dialogue

import (
	"context"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/holomush/parley/internal/generation"
)

// OutputKind classifies a presentation output.
type OutputKind string

const (
	KindDialogue OutputKind = "dialogue"
	KindRoll     OutputKind = "roll"
	KindFarewell OutputKind = "farewell"
	KindNotice   OutputKind = "notice"
)

// RenderedOption is an option as shown to the user. Index is 1-based and
// only meaningful for the output it came with.
type RenderedOption struct {
	Index int    `json:"index"`
	ID    int    `json:"id"`
	Text  string `json:"text"`
	Tone  Tone   `json:"tone"`
	Check string `json:"check,omitempty"`
}

// Output is one ordered block of user-visible content.
type Output struct {
	UserID      string           `json:"user_id"`
	CharacterID string           `json:"character_id,omitempty"`
	Speaker     string           `json:"speaker,omitempty"`
	Kind        OutputKind       `json:"kind"`
	Lines       []string         `json:"lines"`
	Options     []RenderedOption `json:"options,omitempty"`
}

// Sink receives user-visible output. Present is only called from the owner
// context.
type Sink interface {
	Present(out Output)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Output)

// Present calls f.
func (f SinkFunc) Present(out Output) { f(out) }

// Executor runs functions on the single state-owning context.
type Executor interface {
	Post(fn func()) bool
}

// WorkQueue runs blocking jobs off the owner context. Submit must not block;
// it returns false when the job was not accepted.
type WorkQueue interface {
	Submit(job func()) bool
}

// Generator performs one generation round.
type Generator interface {
	Call(ctx context.Context, req generation.Request) (*generation.Reply, error)
}

// titleCase builds a fresh Caser per call; Casers are stateful.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

func renderOptions(opts []Option) []RenderedOption {
	out := make([]RenderedOption, len(opts))
	for i, o := range opts {
		out[i] = RenderedOption{
			Index: i + 1,
			ID:    o.ID,
			Text:  o.Text,
			Tone:  o.Tone,
		}
		if o.RollCheck != nil {
			out[i].Check = o.RollCheck.Label()
		}
	}
	return out
}
