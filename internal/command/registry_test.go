// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, *CommandExecution) error { return nil }

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(CommandEntry{Name: "Choose", Aliases: []string{"C"}, Handler: noop, Source: "core"}))

	entry, ok := r.Get("choose")
	require.True(t, ok)
	assert.Equal(t, "choose", entry.Name)

	_, ok = r.Get("c")
	assert.True(t, ok, "aliases resolve")

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_RejectsIncompleteEntries(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register(CommandEntry{Name: " ", Handler: noop}))
	assert.Error(t, r.Register(CommandEntry{Name: "talk"}))
}

func TestRegistry_LastRegistrationWins(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(CommandEntry{Name: "talk", Handler: noop, Source: "core"}))
	require.NoError(t, r.Register(CommandEntry{Name: "talk", Handler: noop, Source: "override"}))

	entry, _ := r.Get("talk")
	assert.Equal(t, "override", entry.Source)
	assert.Len(t, r.All(), 1)
}

func TestRegisterBuiltins(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, RegisterBuiltins(r))

	names := make([]string, 0)
	for _, e := range r.All() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"choose", "help", "leave", "talk"}, names)
}
