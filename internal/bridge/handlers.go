// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package bridge

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/holomush/parley/internal/dialogue"
)

// CodeInvalidCommand marks a command missing required data.
const CodeInvalidCommand = "INVALID_COMMAND"

// Dialogue is the conversation service the router drives.
type Dialogue interface {
	Trigger(ctx context.Context, userID, characterID, characterName string) (bool, error)
	Talk(ctx context.Context, userID, characterID, characterName, message string) error
	SubmitChoice(ctx context.Context, userID string, index int) error
	Leave(ctx context.Context, userID string) error
	Disconnect(ctx context.Context, userID string)
	Notify(userID string, lines ...string)
}

// CommandHandler runs a typed player command line.
type CommandHandler interface {
	Handle(ctx context.Context, userID, input string)
}

// NewDialogueRouter builds the default route table. Unrecognized command
// types go to fwd.
func NewDialogueRouter(dlg Dialogue, commands CommandHandler, fwd Forwarder) (*Router, error) {
	switch {
	case dlg == nil:
		return nil, oops.Code("NIL_DEPENDENCY").Errorf("dialogue is required")
	case fwd == nil:
		return nil, oops.Code("NIL_DEPENDENCY").Errorf("forwarder is required")
	}

	h := &dialogueHandlers{dlg: dlg, commands: commands}
	r := NewRouter(fwd.Forward)
	r.MustHandle(TypeNPCInteract, h.interact)
	r.MustHandle(TypeNPCTalk, h.talk)
	r.MustHandle(TypeNPCChoose, h.choose)
	r.MustHandle(TypeNPCLeave, h.leave)
	r.MustHandle("npc_*", h.unsupported)
	r.MustHandle(TypePlayerDisconnect, h.disconnect)
	if commands != nil {
		r.MustHandle(TypePlayerCommand, h.command)
	}
	return r, nil
}

type dialogueHandlers struct {
	dlg      Dialogue
	commands CommandHandler
}

func (h *dialogueHandlers) interact(ctx context.Context, cmd Command) error {
	player, err := requireField(cmd, "player")
	if err != nil {
		return err
	}
	npc, err := requireField(cmd, "npc")
	if err != nil {
		return err
	}
	_, err = h.dlg.Trigger(ctx, player, npc, cmd.String("npc_name"))
	return h.report(player, err)
}

func (h *dialogueHandlers) talk(ctx context.Context, cmd Command) error {
	player, err := requireField(cmd, "player")
	if err != nil {
		return err
	}
	message, err := requireField(cmd, "message")
	if err != nil {
		return err
	}
	return h.report(player, h.dlg.Talk(ctx, player, cmd.String("npc"), cmd.String("npc_name"), message))
}

func (h *dialogueHandlers) choose(ctx context.Context, cmd Command) error {
	player, err := requireField(cmd, "player")
	if err != nil {
		return err
	}
	option, ok := cmd.Int("option")
	if !ok {
		return oops.Code(CodeInvalidCommand).
			With("type", cmd.Type).
			With("field", "option").
			Errorf("option must be a number")
	}
	return h.report(player, h.dlg.SubmitChoice(ctx, player, option))
}

func (h *dialogueHandlers) leave(ctx context.Context, cmd Command) error {
	player, err := requireField(cmd, "player")
	if err != nil {
		return err
	}
	return h.report(player, h.dlg.Leave(ctx, player))
}

func (h *dialogueHandlers) disconnect(ctx context.Context, cmd Command) error {
	player, err := requireField(cmd, "player")
	if err != nil {
		return err
	}
	h.dlg.Disconnect(ctx, player)
	return nil
}

func (h *dialogueHandlers) command(ctx context.Context, cmd Command) error {
	player, err := requireField(cmd, "player")
	if err != nil {
		return err
	}
	h.commands.Handle(ctx, player, cmd.String("input"))
	return nil
}

func (h *dialogueHandlers) unsupported(ctx context.Context, cmd Command) error {
	slog.DebugContext(ctx, "ignoring unsupported npc command", "type", cmd.Type)
	return nil
}

// report tells the player about user-facing errors and passes the rest up.
func (h *dialogueHandlers) report(player string, err error) error {
	if err == nil {
		return nil
	}
	if msg, ok := dialogue.PlayerMessage(err); ok {
		h.dlg.Notify(player, msg)
		return nil
	}
	return err
}

func requireField(cmd Command, key string) (string, error) {
	v := cmd.String(key)
	if v == "" {
		return "", oops.Code(CodeInvalidCommand).
			With("type", cmd.Type).
			With("field", key).
			Errorf("%s is required", key)
	}
	return v, nil
}
