// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package bridge_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/parley/internal/bridge"
	"github.com/holomush/parley/pkg/errutil"
)

func TestRouter_FirstMatchWins(t *testing.T) {
	var hits []string
	record := func(name string) bridge.Handler {
		return func(_ context.Context, _ bridge.Command) error {
			hits = append(hits, name)
			return nil
		}
	}

	r := bridge.NewRouter(record("fallback"))
	require.NoError(t, r.Handle("npc_talk", record("talk")))
	require.NoError(t, r.Handle("npc_*", record("npc")))

	ctx := context.Background()
	pattern, err := r.Route(ctx, bridge.Command{Type: "npc_talk"})
	require.NoError(t, err)
	assert.Equal(t, "npc_talk", pattern)

	pattern, err = r.Route(ctx, bridge.Command{Type: "npc_wave"})
	require.NoError(t, err)
	assert.Equal(t, "npc_*", pattern)

	pattern, err = r.Route(ctx, bridge.Command{Type: "send_chat"})
	require.NoError(t, err)
	assert.Equal(t, "", pattern)

	assert.Equal(t, []string{"talk", "npc", "fallback"}, hits)
}

func TestRouter_NoFallback(t *testing.T) {
	r := bridge.NewRouter(nil)
	pattern, err := r.Route(context.Background(), bridge.Command{Type: "anything"})
	require.NoError(t, err)
	assert.Empty(t, pattern)
}

func TestRouter_HandlerErrorReturned(t *testing.T) {
	r := bridge.NewRouter(nil)
	boom := errors.New("boom")
	r.MustHandle("x", func(context.Context, bridge.Command) error { return boom })

	_, err := r.Route(context.Background(), bridge.Command{Type: "x"})
	assert.ErrorIs(t, err, boom)
}

func TestRouter_InvalidPattern(t *testing.T) {
	r := bridge.NewRouter(nil)
	err := r.Handle("npc_[", func(context.Context, bridge.Command) error { return nil })
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "INVALID_ROUTE_PATTERN")
	errutil.AssertErrorContext(t, err, "pattern", "npc_[")

	assert.Panics(t, func() {
		r.MustHandle("npc_[", func(context.Context, bridge.Command) error { return nil })
	})
}
