// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package bridge consumes typed commands pushed by the game server and routes
// them to the dialogue service or onward collaborators.
package bridge

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Command types understood by the default router.
const (
	TypeNPCInteract      = "npc_interact"
	TypeNPCTalk          = "npc_talk"
	TypeNPCChoose        = "npc_choose"
	TypeNPCLeave         = "npc_leave"
	TypePlayerDisconnect = "player_disconnect"
	TypePlayerCommand    = "player_command"
	TypeSendChat         = "send_chat"
)

// Command is one message on the command channel.
type Command struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// String returns data[key] as a trimmed string, or "".
func (c Command) String(key string) string {
	switch v := c.Data[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

// Int returns data[key] as an int. JSON numbers and numeric strings are
// accepted; the bool is false for anything else.
func (c Command) Int(key string) (int, bool) {
	switch v := c.Data[key].(type) {
	case int:
		return v, true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	case json.Number:
		n, err := strconv.Atoi(v.String())
		return n, err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	default:
		return 0, false
	}
}

// Player returns the command's player identifier.
func (c Command) Player() string {
	return c.String("player")
}
