// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Forwarder delivers commands this process does not handle to the next
// component in the chain.
type Forwarder interface {
	Forward(ctx context.Context, cmd Command) error
}

// LogForwarder logs forwarded commands. It is the default when no forward
// URL is configured.
type LogForwarder struct{}

// Forward implements Forwarder.
func (LogForwarder) Forward(ctx context.Context, cmd Command) error {
	slog.InfoContext(ctx, "forwarding command", "type", cmd.Type, "player", cmd.Player())
	return nil
}

// HTTPForwarder defaults.
const (
	DefaultForwardTimeout = 5 * time.Second
	DefaultForwardRetries = 2
	forwardBackoff        = 200 * time.Millisecond
)

// HTTPForwarder POSTs commands as JSON to a URL, retrying server errors.
type HTTPForwarder struct {
	url     string
	client  *http.Client
	retries uint64
}

// NewHTTPForwarder creates a forwarder for url. A nil client uses one with
// DefaultForwardTimeout.
func NewHTTPForwarder(url string, client *http.Client) (*HTTPForwarder, error) {
	if url == "" {
		return nil, oops.Code("INVALID_FORWARD_URL").Errorf("forward url is required")
	}
	if client == nil {
		client = &http.Client{Timeout: DefaultForwardTimeout}
	}
	return &HTTPForwarder{url: url, client: client, retries: DefaultForwardRetries}, nil
}

// Forward implements Forwarder.
func (f *HTTPForwarder) Forward(ctx context.Context, cmd Command) error {
	body, err := json.Marshal(cmd)
	if err != nil {
		return oops.Code("FORWARD_FAILED").With("type", cmd.Type).Wrap(err)
	}

	backoff := retry.WithMaxRetries(f.retries, retry.NewExponential(forwardBackoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
		if err != nil {
			return oops.Code("FORWARD_FAILED").With("type", cmd.Type).Wrap(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := f.client.Do(req)
		if err != nil {
			return retry.RetryableError(oops.Code("FORWARD_FAILED").With("type", cmd.Type).Wrap(err))
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse

		switch {
		case resp.StatusCode >= http.StatusInternalServerError:
			return retry.RetryableError(oops.Code("FORWARD_FAILED").
				With("type", cmd.Type).
				With("status", resp.StatusCode).
				Errorf("forward target returned %d", resp.StatusCode))
		case resp.StatusCode >= http.StatusBadRequest:
			return oops.Code("FORWARD_REJECTED").
				With("type", cmd.Type).
				With("status", resp.StatusCode).
				Errorf("forward target returned %d", resp.StatusCode)
		}
		return nil
	})
}

// WorkQueue runs jobs off the caller's goroutine. Submit must not block.
type WorkQueue interface {
	Submit(job func()) bool
}

// ChatForwarder turns chat lines into send_chat commands. With a queue,
// delivery happens on the queue's workers; a single-worker queue keeps
// lines in order.
type ChatForwarder struct {
	ctx   context.Context
	fwd   Forwarder
	queue WorkQueue
}

// NewChatForwarder creates a chat sender that forwards under ctx. queue may
// be nil, in which case SendChat forwards inline.
func NewChatForwarder(ctx context.Context, fwd Forwarder, queue WorkQueue) *ChatForwarder {
	return &ChatForwarder{ctx: ctx, fwd: fwd, queue: queue}
}

// SendChat implements presentation.ChatSender.
func (c *ChatForwarder) SendChat(player, message string) {
	cmd := Command{
		Type: TypeSendChat,
		Data: map[string]any{"player": player, "message": message},
	}
	if c.queue == nil {
		c.send(cmd)
		return
	}
	if !c.queue.Submit(func() { c.send(cmd) }) {
		CommandsReceived.WithLabelValues(TypeSendChat, "dropped").Inc()
		slog.WarnContext(c.ctx, "send_chat dropped, queue full", "player", player)
	}
}

func (c *ChatForwarder) send(cmd Command) {
	if err := c.fwd.Forward(c.ctx, cmd); err != nil {
		slog.WarnContext(c.ctx, "send_chat forward failed", "player", cmd.Player(), "error", err)
	}
}
