// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package generation

import (
	"bytes"
	"encoding/json"
)

// envelope is the outer layer of a tool-call response. Result is either a
// structured tool result, the reply object itself, or a JSON string holding
// the reply.
type envelope struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

// toolResult is the structured result wrapper. The reply travels as
// serialized JSON in the text of a content item.
type toolResult struct {
	Content []contentItem `json:"content"`
	IsError bool          `json:"isError"`
}

type contentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// decodeReply unwraps both envelope layers and decodes the inner reply.
func decodeReply(body []byte) (*Reply, error) {
	inner, err := unwrapEnvelope(body)
	if err != nil {
		return nil, err
	}
	return decodeInner(inner)
}

// unwrapEnvelope returns the inner reply payload.
func unwrapEnvelope(body []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errMalformed("empty response body", nil)
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, errMalformed("response is not a JSON object", err)
	}
	if env.Error != "" {
		return nil, errBackend(env.Error)
	}

	result := bytes.TrimSpace(env.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		// No wrapper: the body is the reply.
		return trimmed, nil
	}

	switch result[0] {
	case '"':
		var text string
		if err := json.Unmarshal(result, &text); err != nil {
			return nil, errMalformed("result string is not valid JSON text", err)
		}
		return json.RawMessage(text), nil
	case '{':
	default:
		return nil, errMalformed("result is neither an object nor a string", nil)
	}

	var tr toolResult
	if err := json.Unmarshal(result, &tr); err != nil {
		return nil, errMalformed("result wrapper could not be decoded", err)
	}
	if len(tr.Content) == 0 {
		// The result object is the reply.
		return result, nil
	}

	for _, item := range tr.Content {
		if item.Type != "text" {
			continue
		}
		if tr.IsError {
			return nil, errBackend(item.Text)
		}
		return json.RawMessage(item.Text), nil
	}
	return nil, errMalformed("result content has no text item", nil)
}

// decodeInner validates and decodes the reply object. Any failure here is a
// soft parse failure: the caller falls back, nothing is retried.
func decodeInner(inner json.RawMessage) (*Reply, error) {
	if err := validateReply(inner); err != nil {
		return nil, err
	}

	var reply Reply
	if err := json.Unmarshal(inner, &reply); err != nil {
		return nil, errMalformed("inner payload could not be decoded", err)
	}
	if reply.Error != "" {
		return nil, errBackend(reply.Error)
	}
	return &reply, nil
}
