// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package generation

// Tool names understood by the generation backend.
const (
	ToolStartDialogue = "minecraft_dialogue_start_llm"
	ToolRespond       = "minecraft_dialogue_respond_llm"
	ToolTalk          = "minecraft_npc_talk"
	ToolTrackEvent    = "minecraft_track_event"
)

// Request is one logical tool invocation.
type Request struct {
	Tool      string
	Arguments map[string]any
}

// RollResult is the outcome of a skill check attached to a choice.
type RollResult struct {
	Skill      string `json:"skill"`
	Difficulty int    `json:"difficulty"`
	Roll       int    `json:"roll"`
	Rolls      []int  `json:"rolls"`
	Success    bool   `json:"success"`
}

// StartDialogue builds the greet request for a new conversation.
func StartDialogue(characterID, userID string) Request {
	return Request{
		Tool: ToolStartDialogue,
		Arguments: map[string]any{
			"npc":    characterID,
			"player": userID,
		},
	}
}

// RespondToChoice builds the request for a chosen option. roll may be nil.
func RespondToChoice(conversationToken, characterID, userID, optionText string, roll *RollResult) Request {
	args := map[string]any{
		"conversation_id": conversationToken,
		"npc":             characterID,
		"player":          userID,
		"option_text":     optionText,
	}
	if roll != nil {
		args["roll_result"] = roll
	}
	return Request{Tool: ToolRespond, Arguments: args}
}

// Talk builds a free-text request. suggestions asks the backend for reply
// options alongside the NPC's answer.
func Talk(userID, characterID, message string, suggestions bool) Request {
	return Request{
		Tool: ToolTalk,
		Arguments: map[string]any{
			"player":      userID,
			"npc":         characterID,
			"message":     message,
			"suggestions": suggestions,
		},
	}
}

// TrackEvent builds a telemetry request.
func TrackEvent(eventType string, data map[string]any) Request {
	return Request{
		Tool: ToolTrackEvent,
		Arguments: map[string]any{
			"event_type": eventType,
			"data":       data,
		},
	}
}

// RollCheck gates an option behind a d20 roll.
type RollCheck struct {
	Skill        string `json:"skill"`
	Difficulty   int    `json:"difficulty"`
	Advantage    bool   `json:"advantage,omitempty"`
	Disadvantage bool   `json:"disadvantage,omitempty"`
}

// LeadsToFarewell marks an option that ends the conversation.
const LeadsToFarewell = "farewell"

// Option is a reply option as sent by the backend.
type Option struct {
	ID        int        `json:"id"`
	Text      string     `json:"text"`
	Tone      string     `json:"tone,omitempty"`
	RollCheck *RollCheck `json:"roll_check,omitempty"`
	LeadsTo   string     `json:"leads_to,omitempty"`
}

// Relationship is the backend's standing between a character and a player.
type Relationship struct {
	Level int    `json:"level,omitempty"`
	Title string `json:"title,omitempty"`
}

// Reply is the decoded inner result of a tool call. Different tools fill
// different fields.
type Reply struct {
	ConversationID    string   `json:"conversation_id,omitempty"`
	NPCID             string   `json:"npc_id,omitempty"`
	NPCName           string   `json:"npc_name,omitempty"`
	Greeting          string   `json:"greeting,omitempty"`
	NPCResponse       string   `json:"npc_response,omitempty"`
	Response          string   `json:"response,omitempty"`
	Options           []Option `json:"options,omitempty"`
	NewOptions        []Option `json:"new_options,omitempty"`
	Suggestions       []string `json:"suggestions,omitempty"`
	ConversationEnded bool     `json:"conversation_ended,omitempty"`
	Error             string   `json:"error,omitempty"`

	Relationship       *Relationship `json:"relationship,omitempty"`
	RelationshipChange int           `json:"relationship_change,omitempty"`
	NewRelationship    *Relationship `json:"new_relationship,omitempty"`
}

// Line returns the NPC's utterance for this round, if any.
func (r *Reply) Line() string {
	switch {
	case r.NPCResponse != "":
		return r.NPCResponse
	case r.Response != "":
		return r.Response
	default:
		return r.Greeting
	}
}

// DialogueOptions returns the options offered for the next round.
// Follow-up options win over initial ones; bare suggestions are numbered
// from 1 when no structured options were sent.
func (r *Reply) DialogueOptions() []Option {
	switch {
	case len(r.NewOptions) > 0:
		return r.NewOptions
	case len(r.Options) > 0:
		return r.Options
	}

	opts := make([]Option, 0, len(r.Suggestions))
	for i, s := range r.Suggestions {
		opts = append(opts, Option{ID: i + 1, Text: s, Tone: "neutral"})
	}
	return opts
}
