// Package sameday decides whether a room can be booked for today, including
// rooms freed by an early checkout that housekeeping has not finished yet.
package sameday

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lusya00/thesis-frontend-sub000/internal/booking"
	"github.com/lusya00/thesis-frontend-sub000/internal/fallback"
	"github.com/lusya00/thesis-frontend-sub000/internal/logger"
	"github.com/lusya00/thesis-frontend-sub000/internal/session"
)

const (
	SourceEndpoint  = "same-day-endpoint"
	SourceHeuristic = "booking-heuristic"

	messageEarlyCheckout = "Early checkout detected: the previous guest has left. Backend verification recommended."
	messageFree          = "No bookings today, the room can be booked now."
	messageOccupied      = "The room is occupied today. Please choose a later date."
	messageUnknown       = "Unable to verify same-day availability. Please try again or choose another date."
)

var (
	ErrNotToday   = errors.New("date is not today")
	ErrUnverified = errors.New("same-day availability could not be verified")
)

type backend interface {
	SameDayAvailability(ctx context.Context, sess *session.Session, roomID int, date booking.Date) (*booking.SameDayAvailability, error)
	RoomBookings(ctx context.Context, sess *session.Session, roomID int) ([]booking.Booking, error)
}

type query struct {
	sess   *session.Session
	roomID int
	today  booking.Date
}

type Evaluator struct {
	l     *logger.Logger
	now   func() time.Time
	chain *fallback.Chain[query, *booking.SameDayAvailability]
}

func New(l *logger.Logger, backend backend, now func() time.Time) *Evaluator {
	if now == nil {
		now = time.Now
	}

	e := &Evaluator{l: l, now: now}

	e.chain = fallback.NewChain(
		fallback.Strategy[query, *booking.SameDayAvailability]{
			Name: SourceEndpoint,
			Check: func(ctx context.Context, q query) (*booking.SameDayAvailability, error) {
				res, err := backend.SameDayAvailability(ctx, q.sess, q.roomID, q.today)
				if err != nil {
					return nil, fmt.Errorf("get same-day availability: %w", err)
				}

				if res.RoomID == 0 {
					res.RoomID = q.roomID
				}

				if res.Date.IsZero() {
					res.Date = q.today
				}

				return res, nil
			},
		},
		fallback.Strategy[query, *booking.SameDayAvailability]{
			Name: SourceHeuristic,
			Check: func(ctx context.Context, q query) (*booking.SameDayAvailability, error) {
				bookings, err := backend.RoomBookings(ctx, q.sess, q.roomID)
				if err != nil {
					return nil, fmt.Errorf("list room bookings: %w", err)
				}

				return Classify(bookings, q.roomID, q.today), nil
			},
		},
	).OnFailure(func(name string, err error) {
		e.l.LogWarnf("Same-day strategy %s failed: %v", name, err)
	})

	return e
}

// Today is the current calendar date in the clock's location.
func (e *Evaluator) Today() booking.Date {
	return booking.DateOf(e.now())
}

func (e *Evaluator) Now() time.Time {
	return e.now()
}

func (e *Evaluator) IsToday(d booking.Date) bool {
	return d == e.Today()
}

// EvaluateToday returns the same-day status of roomID. On total failure it
// returns FailSafe together with an error wrapping ErrUnverified.
func (e *Evaluator) EvaluateToday(
	ctx context.Context,
	sess *session.Session,
	roomID int,
	today booking.Date,
) (*booking.SameDayAvailability, error) {
	if !e.IsToday(today) {
		return nil, fmt.Errorf("evaluate room %d for %s: %w", roomID, today, ErrNotToday)
	}

	res, _, err := e.chain.Run(ctx, query{sess: sess, roomID: roomID, today: today})
	if err == nil {
		return res, nil
	}

	e.l.LogErrorf("Same-day availability of room %d is unknown: %v", roomID, err)

	return FailSafe(roomID, today), fmt.Errorf("room %d: %w: %w", roomID, ErrUnverified, err)
}

func FailSafe(roomID int, today booking.Date) *booking.SameDayAvailability {
	return &booking.SameDayAvailability{
		RoomID:              roomID,
		Date:                today,
		CanBookToday:        false,
		EarliestBookingTime: booking.EarliestUnknown,
		Message:             messageUnknown,
	}
}

// Classify derives same-day availability from the room's bookings when the
// backend endpoint is unreachable. The early-checkout answer is a heuristic.
func Classify(bookings []booking.Booking, roomID int, today booking.Date) *booking.SameDayAvailability {
	res := &booking.SameDayAvailability{
		RoomID:    roomID,
		Date:      today,
		Heuristic: true,
	}

	var active, checkedOut *booking.Booking

	for i := range bookings {
		b := bookings[i]

		if b.RoomID != 0 && b.RoomID != roomID {
			continue
		}

		if b.Status == booking.StatusCancelled || !b.Range().Touches(today) {
			continue
		}

		switch {
		case b.Active():
			if active == nil {
				active = &b
			}
		case b.Status == booking.StatusCompleted && b.EndDate == today:
			checkedOut = &b
		}
	}

	switch {
	case active != nil:
		res.CanBookToday = false
		res.EarliestBookingTime = booking.EarliestLater
		res.Message = messageOccupied
	case checkedOut != nil:
		res.CanBookToday = true
		res.EarlyCheckout = true
		res.EarliestBookingTime = booking.EarliestNow
		res.PreviousBooking = checkedOut
		res.Message = messageEarlyCheckout
	default:
		// nothing touches today, or only stays already completed
		res.CanBookToday = true
		res.EarliestBookingTime = booking.EarliestNow
		res.Message = messageFree
	}

	return res
}
