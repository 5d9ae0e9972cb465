// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/oops"

	"github.com/holomush/parley/internal/core"
)

const maxCommandBytes = 64 << 10

// Intake accepts commands over HTTP and pushes them onto a Queue.
type Intake struct {
	queue  *Queue
	events *core.Broadcaster
}

// IntakeOption configures an Intake.
type IntakeOption func(*Intake)

// WithEventStream serves each player's output events from b as
// server-sent events at /players/{player}/events.
func WithEventStream(b *core.Broadcaster) IntakeOption {
	return func(in *Intake) {
		in.events = b
	}
}

// NewIntake creates an intake for queue.
func NewIntake(queue *Queue, opts ...IntakeOption) *Intake {
	in := &Intake{queue: queue}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// RegisterRoutes mounts the intake endpoints on r.
func (in *Intake) RegisterRoutes(r chi.Router) {
	r.Post("/command", in.handleCommand)
	r.Get("/health", in.handleHealth)
	if in.events != nil {
		r.Get("/players/{player}/events", in.handleEvents)
	}
}

// Router returns a chi router carrying the intake routes.
func (in *Intake) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	in.RegisterRoutes(r)
	return r
}

func (in *Intake) handleCommand(w http.ResponseWriter, r *http.Request) {
	var cmd Command
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCommandBytes))
	dec.UseNumber()
	if err := dec.Decode(&cmd); err != nil {
		CommandsReceived.WithLabelValues("", "bad_request").Inc()
		respondError(w, http.StatusBadRequest, "invalid command json")
		return
	}
	cmd.Type = strings.TrimSpace(cmd.Type)
	if cmd.Type == "" {
		CommandsReceived.WithLabelValues("", "bad_request").Inc()
		respondError(w, http.StatusBadRequest, "command type is required")
		return
	}
	if !in.queue.Push(cmd) {
		slog.WarnContext(r.Context(), "command queue full",
			"type", cmd.Type,
			"request_id", middleware.GetReqID(r.Context()),
		)
		respondError(w, http.StatusServiceUnavailable, "command queue full")
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]any{"queued": true, "depth": in.queue.Len()})
}

func (in *Intake) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok", "queue_depth": in.queue.Len()})
}

// handleEvents streams the player's output until the client goes away or
// the server stops.
func (in *Intake) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	stream := core.UserStream(chi.URLParam(r, "player"))
	ch := in.events.Subscribe(stream)
	defer in.events.Unsubscribe(stream, ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", ev.ID, ev.Type, ev.Payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // client may have gone away
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Server serves an Intake.
type Server struct {
	addr       string
	intake     *Intake
	listener   net.Listener
	httpServer *http.Server
	cancel     context.CancelFunc
	running    atomic.Bool
}

// NewServer creates a command intake server on addr.
func NewServer(addr string, intake *Intake) *Server {
	return &Server{addr: addr, intake: intake}
}

// Start begins serving. The returned channel receives a serve error, and is
// closed when the server stops.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("command server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	// streaming handlers end when baseCtx is cancelled on Stop
	baseCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	httpSrv := &http.Server{
		Handler:           s.intake.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			slog.Error("command server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	slog.Info("command server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_command_server").Wrap(err)
		}
	}
	slog.Info("command server stopped")
	return nil
}

// Addr returns the listen address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
