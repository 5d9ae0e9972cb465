// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReply_Line(t *testing.T) {
	assert.Equal(t, "resp", (&Reply{Greeting: "g", Response: "r", NPCResponse: "resp"}).Line())
	assert.Equal(t, "r", (&Reply{Greeting: "g", Response: "r"}).Line())
	assert.Equal(t, "g", (&Reply{Greeting: "g"}).Line())
	assert.Empty(t, (&Reply{}).Line())
}

func TestReply_DialogueOptions(t *testing.T) {
	t.Run("follow-up options win", func(t *testing.T) {
		r := &Reply{
			Options:    []Option{{ID: 1, Text: "old"}},
			NewOptions: []Option{{ID: 7, Text: "new"}},
		}
		assert.Equal(t, []Option{{ID: 7, Text: "new"}}, r.DialogueOptions())
	})

	t.Run("suggestions are numbered", func(t *testing.T) {
		r := &Reply{Suggestions: []string{"Tell me more.", "Goodbye."}}
		opts := r.DialogueOptions()
		assert.Equal(t, []Option{
			{ID: 1, Text: "Tell me more.", Tone: "neutral"},
			{ID: 2, Text: "Goodbye.", Tone: "neutral"},
		}, opts)
	})

	t.Run("nothing offered", func(t *testing.T) {
		assert.Empty(t, (&Reply{}).DialogueOptions())
	})
}

func TestRespondToChoice_AttachesRollResult(t *testing.T) {
	roll := &RollResult{Skill: "persuasion", Difficulty: 15, Roll: 17, Rolls: []int{4, 17}, Success: true}

	req := RespondToChoice("conv-1", "sage", "steve", "Please?", roll)
	assert.Equal(t, ToolRespond, req.Tool)
	assert.Equal(t, roll, req.Arguments["roll_result"])

	plain := RespondToChoice("conv-1", "sage", "steve", "Hello.", nil)
	assert.NotContains(t, plain.Arguments, "roll_result")
}

func TestGenerateReplySchema(t *testing.T) {
	data, err := GenerateReplySchema()
	assert.NoError(t, err)
	assert.Contains(t, string(data), ReplySchemaID)
	assert.Contains(t, string(data), `"roll_check"`)
}

func TestDecodeReply_RelationshipAndLeadsTo(t *testing.T) {
	body := []byte(`{
		"npc_id": "marina",
		"npc_response": "Aye, I remember you.",
		"relationship_change": 2,
		"new_relationship": {"level": 22, "title": "Acquaintance"},
		"new_options": [
			{"id": 1, "text": "Tell me about the tides.", "tone": "curious", "relationship_delta": 1, "leads_to": "response"},
			{"id": 2, "text": "I should go.", "tone": "neutral", "relationship_delta": 0, "leads_to": "farewell"}
		]
	}`)

	reply, err := decodeReply(body)
	require.NoError(t, err)

	assert.Equal(t, 2, reply.RelationshipChange)
	require.NotNil(t, reply.NewRelationship)
	assert.Equal(t, Relationship{Level: 22, Title: "Acquaintance"}, *reply.NewRelationship)
	opts := reply.DialogueOptions()
	require.Len(t, opts, 2)
	assert.Equal(t, "response", opts[0].LeadsTo)
	assert.Equal(t, LeadsToFarewell, opts[1].LeadsTo)
}
