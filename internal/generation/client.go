// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package generation calls the external dialogue generation backend.
//
// Each Call is one logical tool invocation made of up to MaxRetries+1 HTTP
// attempts. Timeouts and server-side failures are retried after a fixed
// backoff; client-side failures, backend {error} replies, and malformed
// payloads are returned at once. Call never panics on bad input from the
// backend: every failure comes back as an error carrying one of the Code*
// constants.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("parley/generation")

// Default client values.
const (
	DefaultEndpoint       = "http://localhost:5557/mcp/call"
	DefaultMaxRetries     = 2
	DefaultRetryBackoff   = 2 * time.Second
	DefaultRequestTimeout = 30 * time.Second

	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 1 << 20
)

// Config configures a Client.
type Config struct {
	// Endpoint is the tool-call URL. Defaults to DefaultEndpoint.
	Endpoint string

	// HealthEndpoint is probed by Health. Defaults to the "health" sibling
	// of Endpoint's path (".../mcp/call" -> ".../mcp/health").
	HealthEndpoint string

	// MaxRetries is the number of retries after the first attempt.
	// Negative values are treated as zero.
	MaxRetries int

	// RetryBackoff is the fixed wait between attempts.
	// Defaults to DefaultRetryBackoff if zero or negative.
	RetryBackoff time.Duration

	// RequestTimeout bounds each attempt.
	// Defaults to DefaultRequestTimeout if zero or negative.
	RequestTimeout time.Duration

	// HTTPClient performs requests. Defaults to a client without its own
	// timeout; attempts are bounded by RequestTimeout.
	HTTPClient *http.Client
}

// Client is a stateless request/retry wrapper around the backend. It is safe
// for concurrent use.
type Client struct {
	endpoint       string
	healthEndpoint string
	maxRetries     int
	backoff        time.Duration
	timeout        time.Duration
	http           *http.Client
}

// wireRequest is the JSON body of a tool call.
type wireRequest struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
}

// NewClient creates a client. It returns an error if the endpoint is not an
// absolute URL.
func NewClient(cfg Config) (*Client, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, oops.Code("INVALID_ENDPOINT").
			With("endpoint", endpoint).
			Errorf("generation endpoint must be an absolute URL")
	}

	healthEndpoint := cfg.HealthEndpoint
	if healthEndpoint == "" {
		hu := *u
		hu.Path = path.Join(path.Dir(u.Path), "health")
		healthEndpoint = hu.String()
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = DefaultRetryBackoff
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		endpoint:       endpoint,
		healthEndpoint: healthEndpoint,
		maxRetries:     maxRetries,
		backoff:        backoff,
		timeout:        timeout,
		http:           httpClient,
	}, nil
}

// Call invokes a tool and returns the decoded reply. It blocks through
// retries and backoff, so callers run it on a worker, never on the loop.
func (c *Client) Call(ctx context.Context, req Request) (reply *Reply, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "generation.call",
		trace.WithAttributes(attribute.String("generation.tool", req.Tool)),
	)

	attempts := 0
	defer func() {
		outcome := OutcomeSuccess
		if err != nil {
			outcome = outcomeFor(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(
			attribute.Int("generation.attempts", attempts),
			attribute.String("generation.outcome", outcome),
		)
		span.End()
		RecordCall(req.Tool, outcome, time.Since(start))
	}()

	args := req.Arguments
	if args == nil {
		args = map[string]any{}
	}
	body, err := json.Marshal(wireRequest{Tool: req.Tool, Arguments: args})
	if err != nil {
		return nil, oops.Code(CodeRejected).
			With("tool", req.Tool).
			Wrapf(err, "failed to encode generation request")
	}

	var raw []byte
	backoff := retry.WithMaxRetries(uint64(c.maxRetries), retry.NewConstant(c.backoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		data, attemptErr := c.attempt(ctx, req.Tool, attempts, body)
		if attemptErr == nil {
			raw = data
			return nil
		}
		RecordAttempt(req.Tool, outcomeFor(attemptErr))
		if IsRetryable(attemptErr) {
			slog.DebugContext(ctx, "generation attempt failed, will retry",
				"tool", req.Tool,
				"attempt", attempts,
				"error", attemptErr,
			)
			return retry.RetryableError(attemptErr)
		}
		return attemptErr
	})
	if err != nil {
		// The retry loop reports a cancelled parent context as a bare
		// context error.
		if ctx.Err() != nil && !IsCanceled(err) {
			err = errCanceled(req.Tool, ctx.Err())
		}
		return nil, oops.With("attempts", attempts).Wrap(err)
	}
	RecordAttempt(req.Tool, OutcomeSuccess)

	reply, err = decodeReply(raw)
	if err != nil {
		return nil, oops.With("attempts", attempts).With("tool", req.Tool).Wrap(err)
	}
	return reply, nil
}

// attempt performs a single HTTP exchange bounded by the request timeout.
func (c *Client) attempt(ctx context.Context, tool string, n int, body []byte) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, oops.Code(CodeRejected).With("tool", tool).Wrapf(err, "failed to build generation request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, c.classifyTransport(ctx, tool, n, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Debug("error closing generation response body", "error", closeErr)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, c.classifyTransport(ctx, tool, n, err)
	}

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, errServerStatus(tool, n, resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, errRejected(tool, resp.StatusCode, backendMessage(data))
	case resp.StatusCode >= http.StatusMultipleChoices:
		return nil, errRejected(tool, resp.StatusCode, "")
	}
	return data, nil
}

// classifyTransport maps a transport error to a timeout, an unavailable
// backend, or a cancellation by the caller.
func (c *Client) classifyTransport(ctx context.Context, tool string, n int, err error) error {
	if ctx.Err() != nil {
		return errCanceled(tool, ctx.Err())
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return errTimeout(tool, n, err)
	}
	return errUnavailable(tool, n, err)
}

// backendMessage extracts {error} from an error response body, if present.
func backendMessage(data []byte) string {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return ""
	}
	return env.Error
}

// Health probes the backend's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.healthEndpoint, nil)
	if err != nil {
		return oops.With("endpoint", c.healthEndpoint).Wrap(err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return oops.Code(CodeUnavailable).With("endpoint", c.healthEndpoint).Wrap(err)
	}
	defer func() {
		//nolint:errcheck // body is drained and discarded
		io.Copy(io.Discard, resp.Body)
		//nolint:errcheck // nothing useful to do with a close error here
		resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return oops.Code(CodeUnavailable).
			With("endpoint", c.healthEndpoint).
			With("status", resp.StatusCode).
			Errorf("generation backend unhealthy: status %d", resp.StatusCode)
	}
	return nil
}
