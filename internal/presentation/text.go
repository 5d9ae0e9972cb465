// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package presentation

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/holomush/parley/internal/dialogue"
)

// TextSink writes rendered outputs to a writer, one line each.
type TextSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTextSink creates a sink writing to w.
func NewTextSink(w io.Writer) *TextSink {
	return &TextSink{w: w}
}

// Present implements dialogue.Sink.
func (s *TextSink) Present(out dialogue.Output) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, line := range Render(out) {
		if _, err := fmt.Fprintln(s.w, line); err != nil {
			slog.Debug("text sink write failed", "error", err)
			return
		}
	}
}
