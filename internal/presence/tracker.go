// Package presence tracks which users are online and where they are typing.
package presence

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/arhamfareed106/Social-Network-Platform/internal/store"
)

// Tracker is the process-wide presence registry. Memory is authoritative for
// reads; every mutation is also written through to the presence store.
type Tracker struct {
	mu      sync.RWMutex
	records map[string]store.PresenceRecord

	// persistMu serializes writes so the store never ends up with an older
	// snapshot than memory.
	persistMu sync.Mutex
	store     store.PresenceStore

	now func() time.Time
	log *zerolog.Logger
}

// NewTracker creates a tracker. ps may be nil for a memory-only tracker.
func NewTracker(ps store.PresenceStore, logger *zerolog.Logger) *Tracker {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Tracker{
		records: make(map[string]store.PresenceRecord),
		store:   ps,
		now:     time.Now,
		log:     logger,
	}
}

// Connected marks the user online.
func (t *Tracker) Connected(ctx context.Context, userID string) error {
	return t.update(ctx, userID, func(rec *store.PresenceRecord) {
		rec.Online = true
	})
}

// Disconnected marks the user offline and clears typing state.
func (t *Tracker) Disconnected(ctx context.Context, userID string) error {
	return t.update(ctx, userID, func(rec *store.PresenceRecord) {
		rec.Online = false
		rec.TypingIn = nil
	})
}

// Typing records that the user started or stopped typing in a room.
// Stopping only clears the marker if it still points at roomID.
func (t *Tracker) Typing(ctx context.Context, userID string, roomID int64, isTyping bool) error {
	return t.update(ctx, userID, func(rec *store.PresenceRecord) {
		if isTyping {
			id := roomID
			rec.TypingIn = &id
			return
		}
		if rec.TypingIn != nil && *rec.TypingIn == roomID {
			rec.TypingIn = nil
		}
	})
}

// Get returns the in-memory record for a user.
func (t *Tracker) Get(userID string) (store.PresenceRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rec, ok := t.records[userID]
	return copyRecord(rec), ok
}

// Online reports whether the user is currently marked online.
func (t *Tracker) Online(userID string) bool {
	rec, ok := t.Get(userID)
	return ok && rec.Online
}

// Lookup returns the record from memory, falling back to the store for users
// not seen since startup.
func (t *Tracker) Lookup(ctx context.Context, userID string) (store.PresenceRecord, error) {
	if rec, ok := t.Get(userID); ok {
		return rec, nil
	}
	if t.store == nil {
		return store.PresenceRecord{}, store.ErrNotFound
	}
	rec, err := t.store.GetPresence(ctx, userID)
	if err != nil {
		return store.PresenceRecord{}, err
	}
	return *rec, nil
}

// Reset marks everyone offline. Called once at startup since no connection
// survives a restart.
func (t *Tracker) Reset(ctx context.Context) error {
	now := t.now().UTC()

	t.mu.Lock()
	for id, rec := range t.records {
		if rec.Online {
			rec.LastSeen = now
		}
		rec.Online = false
		rec.TypingIn = nil
		t.records[id] = rec
	}
	t.mu.Unlock()

	if t.store == nil {
		return nil
	}
	t.persistMu.Lock()
	defer t.persistMu.Unlock()
	return t.store.ResetPresence(ctx, now)
}

func (t *Tracker) update(ctx context.Context, userID string, mutate func(*store.PresenceRecord)) error {
	if userID == "" {
		return errors.New("presence: empty user id")
	}

	t.persistMu.Lock()
	defer t.persistMu.Unlock()

	t.mu.Lock()
	rec, ok := t.records[userID]
	if !ok {
		rec = store.PresenceRecord{UserID: userID}
	}
	mutate(&rec)
	rec.LastSeen = t.now().UTC()
	t.records[userID] = rec
	snapshot := copyRecord(rec)
	t.mu.Unlock()

	if t.store == nil {
		return nil
	}
	if err := t.store.SavePresence(ctx, snapshot); err != nil {
		t.log.Warn().Err(err).Str("user_id", userID).Msg("persist presence")
		return err
	}
	return nil
}

func copyRecord(rec store.PresenceRecord) store.PresenceRecord {
	if rec.TypingIn != nil {
		id := *rec.TypingIn
		rec.TypingIn = &id
	}
	return rec
}
