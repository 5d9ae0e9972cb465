// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package generation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// ReplySchemaID is the $id of the reply schema.
const ReplySchemaID = "https://holomush.dev/schemas/parley/reply.schema.json"

var (
	replySchemaOnce sync.Once
	replySchema     *jschema.Schema
	replySchemaErr  error
)

// GenerateReplySchema reflects the JSON Schema for a backend reply from the
// Reply type. Fields without omitempty are required.
func GenerateReplySchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference:            true,
		AllowAdditionalProperties: true,
	}
	schema := r.Reflect(&Reply{})
	schema.ID = jsonschema.ID(ReplySchemaID)
	schema.Title = "Parley Generation Reply"

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal reply schema: %w", err)
	}
	return data, nil
}

func compiledReplySchema() (*jschema.Schema, error) {
	replySchemaOnce.Do(func() {
		data, err := GenerateReplySchema()
		if err != nil {
			replySchemaErr = err
			return
		}

		doc, err := jschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			replySchemaErr = fmt.Errorf("failed to parse reply schema: %w", err)
			return
		}

		c := jschema.NewCompiler()
		if err := c.AddResource("reply.schema.json", doc); err != nil {
			replySchemaErr = fmt.Errorf("failed to add reply schema resource: %w", err)
			return
		}
		replySchema, replySchemaErr = c.Compile("reply.schema.json")
	})
	return replySchema, replySchemaErr
}

// validateReply checks that inner is a JSON object matching the reply schema.
func validateReply(inner json.RawMessage) error {
	doc, err := jschema.UnmarshalJSON(bytes.NewReader(inner))
	if err != nil {
		return errMalformed("inner payload is not valid JSON", err)
	}
	if _, ok := doc.(map[string]any); !ok {
		return errMalformed("inner payload is not a JSON object", nil)
	}

	sch, err := compiledReplySchema()
	if err != nil {
		return errMalformed("reply schema unavailable", err)
	}
	if err := sch.Validate(doc); err != nil {
		return errMalformed("inner payload does not match reply schema", err)
	}
	return nil
}
