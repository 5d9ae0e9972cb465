// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package dialogue

import (
	"log/slog"
	"sync"
	"time"
)

// slot holds one user's session and the lock that serializes everything done
// to it. The epoch lives here rather than on the session so it keeps rising
// across sessions for the same user.
type slot struct {
	mu      sync.Mutex
	session *Session
	epoch   uint64
}

// SessionStore keeps at most one session per user. Slots are created on
// demand and live as long as the store, so a lock is never deleted while
// someone may be waiting on it. Different users never share a lock.
type SessionStore struct {
	mu    sync.RWMutex
	slots map[string]*slot

	countMu sync.Mutex
	count   int

	now func() time.Time
}

// NewSessionStore creates an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		slots: make(map[string]*slot),
		now:   time.Now,
	}
}

func (st *SessionStore) slotFor(userID string) *slot {
	st.mu.RLock()
	sl, ok := st.slots[userID]
	st.mu.RUnlock()
	if ok {
		return sl
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if sl, ok = st.slots[userID]; !ok {
		sl = &slot{}
		st.slots[userID] = sl
	}
	return sl
}

func (st *SessionStore) adjustCount(delta int) {
	st.countMu.Lock()
	st.count += delta
	n := st.count
	st.countMu.Unlock()
	ActiveSessions.Set(float64(n))
}

// Slot is exclusive access to one user's session slot. It is only valid
// inside the WithLock callback that received it.
type Slot struct {
	store  *SessionStore
	slot   *slot
	userID string
}

// UserID returns the slot's user.
func (x *Slot) UserID() string {
	return x.userID
}

// Session returns the live session, or nil. The pointer must not escape the
// WithLock callback.
func (x *Slot) Session() *Session {
	return x.slot.session
}

// Epoch returns the slot's current epoch.
func (x *Slot) Epoch() uint64 {
	return x.slot.epoch
}

// Start replaces any existing session with a new one for characterID,
// cancelling the old session's pending request and bumping the epoch.
func (x *Slot) Start(characterID, characterName string) *Session {
	if old := x.slot.session; old != nil {
		old.cancelPending()
		old.State = StateEnded
		slog.Debug("dialogue session superseded",
			"user_id", x.userID,
			"character_id", old.CharacterID,
			"epoch", old.Epoch,
		)
	} else {
		x.store.adjustCount(1)
	}

	x.slot.epoch++
	x.slot.session = &Session{
		UserID:        x.userID,
		CharacterID:   characterID,
		CharacterName: characterName,
		Epoch:         x.slot.epoch,
		State:         StateStarting,
		StartedAt:     x.store.now(),
	}
	return x.slot.session
}

// Remove ends and removes the session, cancelling any pending request.
// It returns the removed session, or nil if there was none.
func (x *Slot) Remove() *Session {
	s := x.slot.session
	if s == nil {
		return nil
	}
	s.cancelPending()
	s.State = StateEnded
	x.slot.session = nil
	x.store.adjustCount(-1)
	return s
}

// WithLock runs fn with exclusive access to the user's slot. Calls for the
// same user are serialized; calls for different users run in parallel.
// fn must not call back into the store for the same user.
func (st *SessionStore) WithLock(userID string, fn func(*Slot) error) error {
	sl := st.slotFor(userID)
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return fn(&Slot{store: st, slot: sl, userID: userID})
}

// Get returns a copy of the user's session, or nil.
func (st *SessionStore) Get(userID string) *Session {
	var out *Session
	//nolint:errcheck // callback never fails
	st.WithLock(userID, func(x *Slot) error {
		if s := x.Session(); s != nil {
			out = s.snapshot()
		}
		return nil
	})
	return out
}

// StartNew atomically replaces the user's session and returns a copy of the
// new one.
func (st *SessionStore) StartNew(userID, characterID, characterName string) *Session {
	var out *Session
	//nolint:errcheck // callback never fails
	st.WithLock(userID, func(x *Slot) error {
		out = x.Start(characterID, characterName).snapshot()
		return nil
	})
	return out
}

// Remove ends the user's session. It reports whether one existed.
func (st *SessionStore) Remove(userID string) bool {
	var removed bool
	//nolint:errcheck // callback never fails
	st.WithLock(userID, func(x *Slot) error {
		removed = x.Remove() != nil
		return nil
	})
	return removed
}

// Count returns the number of active sessions.
func (st *SessionStore) Count() int {
	st.countMu.Lock()
	defer st.countMu.Unlock()
	return st.count
}
