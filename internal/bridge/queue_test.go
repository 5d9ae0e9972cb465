// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package bridge_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/parley/internal/bridge"
)

func TestQueue_PushUntilFull(t *testing.T) {
	q := bridge.NewQueue(2)

	assert.True(t, q.Push(bridge.Command{Type: "a"}))
	assert.True(t, q.Push(bridge.Command{Type: "b"}))
	assert.False(t, q.Push(bridge.Command{Type: "c"}), "third push exceeds capacity")
	assert.Equal(t, 2, q.Len())

	first := <-q.C()
	assert.Equal(t, "a", first.Type)
	assert.True(t, q.Push(bridge.Command{Type: "c"}))
}

func TestQueue_CloseDrains(t *testing.T) {
	q := bridge.NewQueue(0)
	require.True(t, q.Push(bridge.Command{Type: "a"}))

	q.Close()
	q.Close()
	assert.False(t, q.Push(bridge.Command{Type: "b"}))

	cmd, ok := <-q.C()
	require.True(t, ok)
	assert.Equal(t, "a", cmd.Type)
	_, ok = <-q.C()
	assert.False(t, ok)
}
