// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package core contains the execution primitives shared by the dialogue
// service: the state-owning loop, the generation worker pool, and the event
// broadcaster that carries user-visible output.
package core

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType identifies the kind of event.
type EventType string

const (
	EventTypeDialogue EventType = "dialogue"
	EventTypeFarewell EventType = "farewell"
	EventTypeRoll     EventType = "roll"
	EventTypeSystem   EventType = "system"
)

// Event is one unit of output published to a stream.
type Event struct {
	ID        ulid.ULID
	Stream    string // e.g., "user:steve"
	Type      EventType
	Timestamp time.Time
	Payload   []byte // JSON
}

// UserStream returns the stream name carrying output for a user.
func UserStream(userID string) string {
	return "user:" + userID
}

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// NewULID generates a new ULID, monotonic within the process.
func NewULID() ulid.ULID {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
}
