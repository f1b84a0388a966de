// Package memory keeps booking drafts in process memory. Drafts expire after
// the configured TTL.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lusya00/thesis-frontend-sub000/internal/booking"
	"github.com/lusya00/thesis-frontend-sub000/internal/logger"
)

type Config struct {
	L   *logger.Logger
	TTL time.Duration
	Now func() time.Time
}

type entry struct {
	draft     booking.BookingDraft
	expiresAt time.Time
}

type DB struct {
	mu     sync.Mutex
	l      *logger.Logger
	ttl    time.Duration
	now    func() time.Time
	drafts map[string]entry
}

func New(conf Config) *DB {
	now := conf.Now
	if now == nil {
		now = time.Now
	}

	//nolint:exhaustruct
	return &DB{
		l:      conf.L,
		ttl:    conf.TTL,
		now:    now,
		drafts: make(map[string]entry),
	}
}

// Save stores a copy of draft under draft.ID, replacing any older version.
func (db *DB) Save(_ context.Context, draft *booking.BookingDraft) error {
	if draft.ID == "" {
		return ErrEmptyDraftID
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	e := entry{draft: *draft}
	if db.ttl > 0 {
		e.expiresAt = db.now().Add(db.ttl)
	}

	db.drafts[draft.ID] = e

	db.l.LogDebugf("Draft %s saved for room %d", draft.ID, draft.RoomID)

	return nil
}

func (db *DB) Load(_ context.Context, id string) (*booking.BookingDraft, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	e, ok := db.drafts[id]
	if !ok {
		return nil, fmt.Errorf("draft %s: %w", id, booking.ErrNotFound)
	}

	if db.expiredLocked(e) {
		delete(db.drafts, id)

		return nil, fmt.Errorf("draft %s expired: %w", id, booking.ErrNotFound)
	}

	draft := e.draft

	return &draft, nil
}

func (db *DB) Delete(_ context.Context, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.drafts[id]; !ok {
		return fmt.Errorf("draft %s: %w", id, booking.ErrNotFound)
	}

	delete(db.drafts, id)

	return nil
}

// Purge drops expired drafts and reports how many were removed.
func (db *DB) Purge(_ context.Context) int {
	db.mu.Lock()
	defer db.mu.Unlock()

	var purged int

	for id, e := range db.drafts {
		if db.expiredLocked(e) {
			delete(db.drafts, id)
			purged++
		}
	}

	return purged
}

func (db *DB) expiredLocked(e entry) bool {
	return !e.expiresAt.IsZero() && !db.now().Before(e.expiresAt)
}
