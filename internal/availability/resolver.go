package availability

import (
	"context"
	"errors"
	"fmt"

	"github.com/lusya00/thesis-frontend-sub000/internal/booking"
	"github.com/lusya00/thesis-frontend-sub000/internal/fallback"
	"github.com/lusya00/thesis-frontend-sub000/internal/logger"
	"github.com/lusya00/thesis-frontend-sub000/internal/session"
)

var ErrUnresolved = errors.New("availability could not be determined")

type backend interface {
	roomAvailabilityReader
	bookingLister
	roomStatusReader
}

type Resolver struct {
	l     *logger.Logger
	chain *fallback.Chain[Query, *booking.AvailabilityResult]
}

// New builds the default chain: dedicated endpoint, booking list, room flag.
func New(l *logger.Logger, backend backend) *Resolver {
	return NewWithStrategies(l, RoomEndpoint(backend), BookingList(backend), RoomStatus(backend))
}

func NewWithStrategies(l *logger.Logger, strategies ...Strategy) *Resolver {
	r := &Resolver{l: l}
	r.chain = fallback.NewChain(strategies...).OnFailure(func(name string, err error) {
		if errors.Is(err, fallback.ErrNotApplicable) {
			r.l.LogDebugf("Availability strategy %s skipped", name)

			return
		}

		r.l.LogWarnf("Availability strategy %s failed: %v", name, err)
	})

	return r
}

// Resolve determines whether roomID can be booked for rng. When every
// strategy fails it returns a not-available result together with an error
// wrapping ErrUnresolved, so callers can render the safe state and still
// surface the failure.
func (r *Resolver) Resolve(
	ctx context.Context,
	sess *session.Session,
	roomID int,
	rng booking.DateRange,
) (*booking.AvailabilityResult, error) {
	if !rng.End.After(rng.Start) {
		return nil, fmt.Errorf("resolve room %d for %s: %w", roomID, rng, booking.ErrInvalidRange)
	}

	result, source, err := r.chain.Run(ctx, Query{Session: sess, RoomID: roomID, Range: rng})
	if err == nil {
		r.l.LogDebugf("Room %d for %s resolved by %s: available=%v", roomID, rng, source, result.IsAvailable)

		return result, nil
	}

	r.l.LogErrorf("Availability of room %d for %s is unknown, treating as occupied: %v", roomID, rng, err)

	return FailSafe(roomID, rng), fmt.Errorf("room %d for %s: %w: %w", roomID, rng, ErrUnresolved, err)
}

// FailSafe is the result used whenever availability cannot be established.
func FailSafe(roomID int, rng booking.DateRange) *booking.AvailabilityResult {
	return &booking.AvailabilityResult{
		RoomID:      roomID,
		Range:       rng,
		IsAvailable: false,
		Status:      booking.RoomOccupied,
		Source:      SourceFailSafe,
	}
}
