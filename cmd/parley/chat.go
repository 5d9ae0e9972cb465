// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/holomush/parley/internal/command"
	"github.com/holomush/parley/internal/config"
	"github.com/holomush/parley/internal/dialogue"
	"github.com/holomush/parley/internal/logging"
	"github.com/holomush/parley/internal/presentation"
)

const idlePoll = 20 * time.Millisecond

// NewChatCmd creates the chat subcommand.
func NewChatCmd() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to characters from the terminal",
		Long: `Start a local conversation session against the generation backend.

  /meet <character> [display name]   start talking to a character
  /quit                              exit
  anything else                      a player command (try "help")`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			logging.SetDefault("parley", version, cfg.Log.Format, "error")
			return runChat(ctx, cfg, user, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&user, "user", "player", "player id to chat as")
	return cmd
}

// runChat reads lines from in until EOF, /quit, or ctx is done. Each line
// runs on the service loop, and the prompt returns once the character has
// replied.
func runChat(ctx context.Context, cfg *config.Config, user string, in io.Reader, w io.Writer) error {
	// prompts and character output share one writer from two goroutines
	out := &lockedWriter{w: w}
	svc, err := newService(cfg, presentation.NewTextSink(out), nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	loopDone := make(chan error, 1)
	go func() { loopDone <- svc.loop.Run(ctx) }()
	defer func() {
		cancel()
		<-loopDone
	}()

	// request timeout per attempt plus backoff between them
	settle := time.Duration(cfg.Generation.MaxRetries+1)*
		(cfg.Generation.RequestTimeout+cfg.Generation.RetryBackoff) + time.Second

	lines := scanLines(ctx, in)
	for {
		fmt.Fprint(out, "> ")
		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				return nil
			}
			line = strings.TrimSpace(l)
		}

		switch {
		case line == "":
			continue
		case line == "/quit":
			return nil
		case strings.HasPrefix(line, "/meet"):
			id, name := parseMeet(line)
			if id == "" {
				fmt.Fprintln(out, "Usage: /meet <character> [display name]")
				continue
			}
			onLoop(ctx, svc, func() {
				if err := svc.orchestrator.StartSession(ctx, user, id, name); err != nil {
					svc.orchestrator.Notify(user, command.PlayerMessage(err))
				}
			})
		default:
			onLoop(ctx, svc, func() { svc.dispatcher.Handle(ctx, user, line) })
		}
		waitIdle(ctx, svc.orchestrator.Store(), user, settle)
	}
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	//nolint:wrapcheck // transparent writer
	return l.w.Write(p)
}

// onLoop runs fn on the service loop and waits for it.
func onLoop(ctx context.Context, svc *service, fn func()) {
	done := make(chan struct{})
	if !svc.loop.Post(func() { defer close(done); fn() }) {
		return
	}
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// waitIdle returns once user has no round in flight, or after limit.
func waitIdle(ctx context.Context, store *dialogue.SessionStore, user string, limit time.Duration) {
	deadline := time.NewTimer(limit)
	defer deadline.Stop()
	tick := time.NewTicker(idlePoll)
	defer tick.Stop()

	for {
		if s := store.Get(user); s == nil || !s.Pending() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			return
		case <-tick.C:
		}
	}
}

// scanLines feeds in's lines to a channel closed at EOF.
func scanLines(ctx context.Context, in io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case ch <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

func parseMeet(line string) (id, name string) {
	fields := strings.Fields(strings.TrimPrefix(line, "/meet"))
	if len(fields) == 0 {
		return "", ""
	}
	return strings.ToLower(fields[0]), strings.Join(fields[1:], " ")
}
