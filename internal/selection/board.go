// Package selection keeps the per-room availability of one homestay in sync
// with the dates the guest is looking at.
package selection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lusya00/thesis-frontend-sub000/internal/booking"
	"github.com/lusya00/thesis-frontend-sub000/internal/logger"
	"github.com/lusya00/thesis-frontend-sub000/internal/schedule"
	"github.com/lusya00/thesis-frontend-sub000/internal/session"
)

var (
	ErrUnknownRoom = errors.New("room is not part of this homestay")
	ErrClosed      = errors.New("board is closed")
)

type resolver interface {
	Resolve(ctx context.Context, sess *session.Session, roomID int, rng booking.DateRange) (*booking.AvailabilityResult, error)
}

type Config struct {
	L        *logger.Logger
	Debounce time.Duration
}

type RoomView struct {
	Room     booking.Room                `json:"room"`
	Result   *booking.AvailabilityResult `json:"availability,omitempty"`
	Checking bool                        `json:"checking"`
	Error    string                      `json:"error,omitempty"`
}

type Partition struct {
	Range       booking.DateRange `json:"range"`
	Available   []RoomView        `json:"available"`
	Unavailable []RoomView        `json:"unavailable"`
	// Settled is false while a check cycle for Range is still running.
	Settled bool `json:"settled"`
}

// Board holds the availability status map of one homestay's rooms. Every
// slot is keyed by room id and every check cycle is tagged with the range
// and generation it was issued for, so a slow answer for an older range
// never overwrites a newer one.
type Board struct {
	l         *logger.Logger
	resolver  resolver
	sess      *session.Session
	rooms     []booking.Room
	debouncer *schedule.Debouncer

	ctx    context.Context
	cancel context.CancelFunc

	mu             sync.Mutex
	active         booking.DateRange
	generation     uint64
	results        map[int]*booking.AvailabilityResult
	errs           map[int]error
	firstCycleDone bool
	settled        chan struct{}
	inFlight       sync.WaitGroup
}

func NewBoard(
	ctx context.Context,
	conf Config,
	resolver resolver,
	sess *session.Session,
	rooms []booking.Room,
) *Board {
	ctx, cancel := context.WithCancel(ctx)

	settled := make(chan struct{})
	close(settled)

	return &Board{
		l:         conf.L,
		resolver:  resolver,
		sess:      sess,
		rooms:     rooms,
		debouncer: schedule.NewDebouncer(conf.Debounce),
		ctx:       ctx,
		cancel:    cancel,
		results:   make(map[int]*booking.AvailabilityResult, len(rooms)),
		errs:      make(map[int]error, len(rooms)),
		settled:   settled,
	}
}

// SetRange marks every room as checking and schedules a debounced check
// cycle for rng. It is a no-op on a closed board.
func (b *Board) SetRange(rng booking.DateRange) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ctx.Err() != nil {
		return
	}

	b.generation++
	b.active = rng
	b.settled = make(chan struct{})

	for _, room := range b.rooms {
		b.results[room.ID] = &booking.AvailabilityResult{RoomID: room.ID, Range: rng, Checking: true}
		delete(b.errs, room.ID)
	}

	gen := b.generation

	b.debouncer.Trigger(func() { b.check(gen, rng) })
}

func (b *Board) check(gen uint64, rng booking.DateRange) {
	b.mu.Lock()
	if gen != b.generation || b.ctx.Err() != nil {
		b.mu.Unlock()

		return
	}

	b.inFlight.Add(1)
	b.mu.Unlock()

	defer b.inFlight.Done()

	var wg sync.WaitGroup

	for _, room := range b.rooms {
		wg.Add(1)

		go func(roomID int) {
			defer wg.Done()

			// in-flight requests are not cancelled on a range change,
			// store drops their answers instead
			res, err := b.resolver.Resolve(b.ctx, b.sess, roomID, rng)
			b.store(gen, rng, roomID, res, err)
		}(room.ID)
	}

	wg.Wait()

	b.mu.Lock()
	defer b.mu.Unlock()

	if gen != b.generation {
		return
	}

	b.firstCycleDone = true
	close(b.settled)
}

func (b *Board) store(gen uint64, rng booking.DateRange, roomID int, res *booking.AvailabilityResult, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if gen != b.generation || rng != b.active {
		b.l.LogDebugf("Dropping stale availability of room %d for %s, active range is %s", roomID, rng, b.active)

		return
	}

	if res == nil {
		res = &booking.AvailabilityResult{RoomID: roomID, Range: rng, Status: booking.RoomOccupied}
	}

	if err != nil {
		// a failed room is unavailable on its own, other rooms keep their answers
		res.IsAvailable = false
		b.errs[roomID] = err
		b.l.LogWarnf("Availability check of room %d for %s failed: %v", roomID, rng, err)
	}

	res.Checking = false
	b.results[roomID] = res
}

// WaitSettled blocks until the check cycle of the most recent range is done.
// A board closed before that cycle ran returns ErrClosed.
func (b *Board) WaitSettled(ctx context.Context) error {
	for {
		b.mu.Lock()
		ch, gen := b.settled, b.generation
		b.mu.Unlock()

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for availability checks: %w", ctx.Err())
		case <-ch:
		case <-b.ctx.Done():
			if isClosed(ch) {
				break
			}

			return ErrClosed
		}

		b.mu.Lock()
		current := gen == b.generation
		b.mu.Unlock()

		if current {
			return nil
		}
	}
}

// Partition splits rooms into bookable and not bookable for the active
// range. Until the first check cycle completes, rooms without an answer are
// shown as available so the page does not flash "unavailable" on load.
func (b *Board) Partition() Partition {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := Partition{Range: b.active, Settled: isClosed(b.settled)}

	for _, room := range b.rooms {
		view := b.viewLocked(room)

		if b.availableLocked(view) {
			p.Available = append(p.Available, view)

			continue
		}

		p.Unavailable = append(p.Unavailable, view)
	}

	return p
}

func (b *Board) viewLocked(room booking.Room) RoomView {
	res := b.results[room.ID]

	view := RoomView{Room: room, Result: res, Checking: res == nil || res.Checking}
	if err := b.errs[room.ID]; err != nil {
		view.Error = err.Error()
	}

	return view
}

func (b *Board) availableLocked(view RoomView) bool {
	if view.Checking {
		return !b.firstCycleDone
	}

	return view.Result.IsAvailable
}

// Status returns the last resolved status of a room. ok is false while the
// room has no resolved answer for the active range.
func (b *Board) Status(roomID int) (booking.RoomStatus, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	res, found := b.results[roomID]
	if !found || res.Checking {
		return "", false
	}

	return booking.StatusOf(res), true
}

func (b *Board) Range() booking.DateRange {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.active
}

type Action string

const (
	// ActionProceed continues to the booking form with the room selected.
	ActionProceed Action = "proceed"
	// ActionPickDates opens a date picker scoped to the room.
	ActionPickDates Action = "pick_dates"
)

type Selection struct {
	Action        Action       `json:"action"`
	Room          booking.Room `json:"room"`
	SuggestedFrom booking.Date `json:"suggested_from,omitempty"`
}

// Select decides what clicking a room does. A room in the unavailable
// bucket never proceeds to submission.
func (b *Board) Select(roomID int) (Selection, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, room := range b.rooms {
		if room.ID != roomID {
			continue
		}

		view := b.viewLocked(room)
		if b.availableLocked(view) {
			return Selection{Action: ActionProceed, Room: room}, nil
		}

		sel := Selection{Action: ActionPickDates, Room: room}
		if view.Result != nil {
			sel.SuggestedFrom = view.Result.NextAvailableDate
		}

		return sel, nil
	}

	return Selection{}, fmt.Errorf("select room %d: %w", roomID, ErrUnknownRoom)
}

// Close drops pending checks and waits for running cycles to finish.
func (b *Board) Close() {
	b.debouncer.Stop()

	b.mu.Lock()
	b.cancel()
	b.mu.Unlock()

	b.inFlight.Wait()
}

func isClosed(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
