// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/holomush/parley/internal/command"
	"github.com/holomush/parley/internal/dialogue"
	"github.com/holomush/parley/pkg/errutil"
)

type mockDialogue struct {
	mock.Mock
}

func (m *mockDialogue) SubmitChoice(ctx context.Context, userID string, index int) error {
	return m.Called(ctx, userID, index).Error(0)
}

func (m *mockDialogue) Talk(ctx context.Context, userID, characterID, characterName, message string) error {
	return m.Called(ctx, userID, characterID, characterName, message).Error(0)
}

func (m *mockDialogue) Leave(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockDialogue) Notify(userID string, lines ...string) {
	m.Called(userID, lines)
}

func newDispatcher(t *testing.T, dlg command.Dialogue, opts ...command.DispatcherOption) *command.Dispatcher {
	t.Helper()
	reg := command.NewRegistry()
	require.NoError(t, command.RegisterBuiltins(reg))
	d, err := command.NewDispatcher(reg, dlg, opts...)
	require.NoError(t, err)
	return d
}

func TestNewDispatcher_NilDependencies(t *testing.T) {
	_, err := command.NewDispatcher(nil, &mockDialogue{})
	assert.ErrorIs(t, err, command.ErrNilRegistry)

	_, err = command.NewDispatcher(command.NewRegistry(), nil)
	assert.ErrorIs(t, err, command.ErrNilDialogue)
}

func TestDispatcher_Choose(t *testing.T) {
	tests := []struct {
		name  string
		input string
		index int
	}{
		{"full name", "choose 2", 2},
		{"alias", "c 1", 1},
		{"bare number", "3", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dlg := &mockDialogue{}
			dlg.On("SubmitChoice", mock.Anything, "alice", tt.index).Return(nil).Once()

			d := newDispatcher(t, dlg)
			require.NoError(t, d.Dispatch(context.Background(), "alice", tt.input))
			dlg.AssertExpectations(t)
		})
	}
}

func TestDispatcher_ChooseRequiresNumber(t *testing.T) {
	d := newDispatcher(t, &mockDialogue{})

	err := d.Dispatch(context.Background(), "alice", "choose first")
	errutil.AssertErrorCode(t, err, command.CodeInvalidArgs)
	assert.Equal(t, "Usage: choose <number>", command.PlayerMessage(err))
}

func TestDispatcher_Talk(t *testing.T) {
	dlg := &mockDialogue{}
	dlg.On("Talk", mock.Anything, "alice", "", "", "hello there").Return(nil).Once()
	dlg.On("Talk", mock.Anything, "alice", "sage", "", "what grows here?").Return(nil).Once()

	d := newDispatcher(t, dlg)
	ctx := context.Background()
	require.NoError(t, d.Dispatch(ctx, "alice", "talk hello there"))
	require.NoError(t, d.Dispatch(ctx, "alice", "say @Sage what grows here?"))

	err := d.Dispatch(ctx, "alice", "talk @sage")
	errutil.AssertErrorCode(t, err, command.CodeInvalidArgs)

	dlg.AssertExpectations(t)
}

func TestDispatcher_LeaveSurfacesDialogueErrors(t *testing.T) {
	dlg := &mockDialogue{}
	dlg.On("Leave", mock.Anything, "alice").Return(dialogue.ErrNotInConversation("alice")).Once()
	dlg.On("Notify", "alice", []string{"You're not in a conversation."}).Once()

	d := newDispatcher(t, dlg)
	d.Handle(context.Background(), "alice", "leave")

	dlg.AssertExpectations(t)
}

func TestDispatcher_Help(t *testing.T) {
	dlg := &mockDialogue{}
	dlg.On("Notify", "alice", mock.MatchedBy(func(lines []string) bool {
		return len(lines) == 5 && lines[0] == "Commands:"
	})).Once()

	d := newDispatcher(t, dlg)
	require.NoError(t, d.Dispatch(context.Background(), "alice", "help"))
	dlg.AssertExpectations(t)
}

func TestDispatcher_UnknownAndEmpty(t *testing.T) {
	d := newDispatcher(t, &mockDialogue{})
	ctx := context.Background()

	before := testutil.ToFloat64(command.CommandExecutions.WithLabelValues("dance", command.StatusNotFound))
	err := d.Dispatch(ctx, "alice", "dance")
	errutil.AssertErrorCode(t, err, command.CodeUnknownCommand)
	assert.Equal(t, before+1, testutil.ToFloat64(command.CommandExecutions.WithLabelValues("dance", command.StatusNotFound)))

	errutil.AssertErrorCode(t, d.Dispatch(ctx, "alice", "  "), command.CodeEmptyInput)
	errutil.AssertErrorCode(t, d.Dispatch(ctx, "", "leave"), command.CodeNoUser)
}

type promptState map[string]bool

func (p promptState) AwaitingChoice(userID string) bool { return p[userID] }

func TestDispatcher_RateLimited(t *testing.T) {
	dlg := &mockDialogue{}
	dlg.On("Talk", mock.Anything, "alice", "", "", "hello").Return(nil).Once()

	rl := command.NewRateLimiter(command.RateLimiterConfig{BurstCapacity: 1, SustainedRate: 0.1})
	d := newDispatcher(t, dlg, command.WithRateLimiter(rl))
	ctx := context.Background()

	require.NoError(t, d.Dispatch(ctx, "alice", "talk hello"))
	err := d.Dispatch(ctx, "alice", "talk hello")
	errutil.AssertErrorCode(t, err, command.CodeRateLimited)
	assert.Equal(t, "Too many commands. Please slow down.", command.PlayerMessage(err))

	dlg.AssertExpectations(t)
}

func TestDispatcher_RepliesToOpenPromptAreCheap(t *testing.T) {
	dlg := &mockDialogue{}
	dlg.On("SubmitChoice", mock.Anything, "alice", 1).Return(nil).Times(4)
	dlg.On("SubmitChoice", mock.Anything, "bob", 1).Return(nil).Once()

	rl := command.NewRateLimiter(command.RateLimiterConfig{BurstCapacity: 1, SustainedRate: 0.1})
	d := newDispatcher(t, dlg,
		command.WithRateLimiter(rl),
		command.WithPromptState(promptState{"alice": true}),
	)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, d.Dispatch(ctx, "alice", "1"), "reply %d", i)
	}
	errutil.AssertErrorCode(t, d.Dispatch(ctx, "alice", "1"), command.CodeRateLimited)

	require.NoError(t, d.Dispatch(ctx, "bob", "choose 1"))
	// without an open prompt a choice costs as much as free text
	errutil.AssertErrorCode(t, d.Dispatch(ctx, "bob", "choose 1"), command.CodeRateLimited)

	dlg.AssertExpectations(t)
}

func TestDispatcher_LeaveAndHelpAreNeverThrottled(t *testing.T) {
	dlg := &mockDialogue{}
	dlg.On("Leave", mock.Anything, "alice").Return(nil).Times(3)
	dlg.On("Notify", "alice", mock.Anything).Return()

	rl := command.NewRateLimiter(command.RateLimiterConfig{BurstCapacity: 1, SustainedRate: 0.1})
	d := newDispatcher(t, dlg, command.WithRateLimiter(rl))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, d.Dispatch(ctx, "alice", "leave"))
		require.NoError(t, d.Dispatch(ctx, "alice", "help"))
	}
	assert.Zero(t, rl.UserCount())
	dlg.AssertExpectations(t)
}

func TestDispatcher_UnknownCommandsSpendAllowance(t *testing.T) {
	dlg := &mockDialogue{}
	rl := command.NewRateLimiter(command.RateLimiterConfig{BurstCapacity: 1, SustainedRate: 0.1})
	d := newDispatcher(t, dlg, command.WithRateLimiter(rl))
	ctx := context.Background()

	errutil.AssertErrorCode(t, d.Dispatch(ctx, "alice", "dance"), command.CodeUnknownCommand)
	errutil.AssertErrorCode(t, d.Dispatch(ctx, "alice", "dance"), command.CodeRateLimited)
}

func TestPlayerMessage_Fallbacks(t *testing.T) {
	assert.Equal(t, "Something went wrong. Try again.", command.PlayerMessage(nil))
	assert.Equal(t, "Invalid choice. Pick a number from 1 to 3.",
		command.PlayerMessage(dialogue.ErrInvalidChoice("alice", 9, 3)))
}
