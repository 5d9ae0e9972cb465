// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package bridge_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/parley/internal/bridge"
	"github.com/holomush/parley/internal/core"
)

func TestConsumer_RoutesOnOwnerInOrder(t *testing.T) {
	loop := core.NewLoop(0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = loop.Run(ctx)
	}()

	var (
		mu  sync.Mutex
		got []string
	)
	r := bridge.NewRouter(func(_ context.Context, cmd bridge.Command) error {
		mu.Lock()
		got = append(got, cmd.Type)
		mu.Unlock()
		if cmd.Type == "bad" {
			return errors.New("handler failed")
		}
		return nil
	})

	q := bridge.NewQueue(8)
	c, err := bridge.NewConsumer(q, r, loop)
	require.NoError(t, err)

	consumerDone := make(chan error, 1)
	go func() { consumerDone <- c.Run(ctx) }()

	for _, typ := range []string{"a", "bad", "b"} {
		require.True(t, q.Push(bridge.Command{Type: typ}))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []string{"a", "bad", "b"}, got)
	mu.Unlock()

	q.Close()
	require.NoError(t, <-consumerDone)
	cancel()
	<-loopDone
}

func TestConsumer_StopsWhenOwnerClosed(t *testing.T) {
	loop := core.NewLoop(0)
	loop.Close()

	q := bridge.NewQueue(2)
	c, err := bridge.NewConsumer(q, bridge.NewRouter(nil), loop)
	require.NoError(t, err)
	require.True(t, q.Push(bridge.Command{Type: "a"}))

	assert.NoError(t, c.Run(context.Background()))
}

func TestNewConsumer_RequiresDependencies(t *testing.T) {
	_, err := bridge.NewConsumer(nil, bridge.NewRouter(nil), core.NewLoop(0))
	assert.Error(t, err)
	_, err = bridge.NewConsumer(bridge.NewQueue(1), nil, core.NewLoop(0))
	assert.Error(t, err)
	_, err = bridge.NewConsumer(bridge.NewQueue(1), bridge.NewRouter(nil), nil)
	assert.Error(t, err)
}
