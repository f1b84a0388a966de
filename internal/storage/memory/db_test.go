package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lusya00/thesis-frontend-sub000/internal/booking"
	"github.com/lusya00/thesis-frontend-sub000/internal/logger"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func TestSaveLoadDelete(t *testing.T) {
	db := New(Config{L: logger.Discard(), TTL: time.Minute})
	ctx := context.Background()

	draft := &booking.BookingDraft{ID: "d-1", RoomID: 7, StartDate: "2025-03-10", EndDate: "2025-03-12", Guests: 2}
	if err := db.Save(ctx, draft); err != nil {
		t.Fatalf("save: %v", err)
	}

	// later edits of the caller's draft are not visible
	draft.Guests = 5

	got, err := db.Load(ctx, "d-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if got.Guests != 2 || got.RoomID != 7 {
		t.Fatalf("unexpected draft %+v", got)
	}

	if err := db.Delete(ctx, "d-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := db.Load(ctx, "d-1"); !errors.Is(err, booking.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := db.Delete(ctx, "d-1"); !errors.Is(err, booking.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestSaveRequiresID(t *testing.T) {
	db := New(Config{L: logger.Discard()})

	if err := db.Save(context.Background(), &booking.BookingDraft{}); !errors.Is(err, ErrEmptyDraftID) {
		t.Fatalf("expected ErrEmptyDraftID, got %v", err)
	}
}

func TestDraftsExpire(t *testing.T) {
	c := &clock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	db := New(Config{L: logger.Discard(), TTL: 30 * time.Minute, Now: c.Now})
	ctx := context.Background()

	_ = db.Save(ctx, &booking.BookingDraft{ID: "old"})

	c.now = c.now.Add(20 * time.Minute)
	_ = db.Save(ctx, &booking.BookingDraft{ID: "new"})

	c.now = c.now.Add(15 * time.Minute)

	if _, err := db.Load(ctx, "old"); !errors.Is(err, booking.ErrNotFound) {
		t.Fatalf("expected expired draft, got %v", err)
	}

	if _, err := db.Load(ctx, "new"); err != nil {
		t.Fatalf("fresh draft: %v", err)
	}

	c.now = c.now.Add(time.Hour)

	if purged := db.Purge(ctx); purged != 1 {
		t.Fatalf("expected one purged draft, got %d", purged)
	}
}
