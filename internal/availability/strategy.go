package availability

import (
	"context"
	"fmt"

	"github.com/lusya00/thesis-frontend-sub000/internal/api"
	"github.com/lusya00/thesis-frontend-sub000/internal/booking"
	"github.com/lusya00/thesis-frontend-sub000/internal/fallback"
	"github.com/lusya00/thesis-frontend-sub000/internal/session"
)

const (
	SourceRoomEndpoint = "room-availability"
	SourceBookingList  = "booking-list"
	SourceRoomStatus   = "room-status"
	SourceFailSafe     = "fail-safe"
)

type Query struct {
	Session *session.Session
	RoomID  int
	Range   booking.DateRange
}

type Strategy = fallback.Strategy[Query, *booking.AvailabilityResult]

type roomAvailabilityReader interface {
	RoomAvailability(ctx context.Context, sess *session.Session, roomID int, r booking.DateRange) (*api.RoomAvailability, error)
}

type bookingLister interface {
	Bookings(ctx context.Context, sess *session.Session) ([]booking.Booking, error)
}

type roomStatusReader interface {
	RoomStatus(ctx context.Context, sess *session.Session, roomID int) (*api.RoomStatus, error)
}

// RoomEndpoint asks the dedicated date-range aware endpoint.
func RoomEndpoint(backend roomAvailabilityReader) Strategy {
	return Strategy{
		Name: SourceRoomEndpoint,
		Check: func(ctx context.Context, q Query) (*booking.AvailabilityResult, error) {
			res, err := backend.RoomAvailability(ctx, q.Session, q.RoomID, q.Range)
			if err != nil {
				return nil, fmt.Errorf("get room %d availability: %w", q.RoomID, err)
			}

			status := booking.RoomOccupied
			if res.IsAvailable {
				status = booking.RoomAvailable
			}

			return &booking.AvailabilityResult{
				RoomID:            q.RoomID,
				Range:             q.Range,
				IsAvailable:       res.IsAvailable,
				Status:            status,
				CurrentBooking:    res.CurrentBooking,
				NextAvailableDate: res.NextAvailableDate,
				UpcomingBookings:  res.UpcomingBookings,
				Source:            SourceRoomEndpoint,
			}, nil
		},
	}
}

// BookingList filters the full booking list locally. It needs a session.
func BookingList(backend bookingLister) Strategy {
	return Strategy{
		Name: SourceBookingList,
		Check: func(ctx context.Context, q Query) (*booking.AvailabilityResult, error) {
			if !q.Session.Authenticated() {
				return nil, fallback.ErrNotApplicable
			}

			all, err := backend.Bookings(ctx, q.Session)
			if err != nil {
				return nil, fmt.Errorf("list bookings: %w", err)
			}

			result := &booking.AvailabilityResult{
				RoomID:           q.RoomID,
				Range:            q.Range,
				IsAvailable:      true,
				Status:           booking.RoomAvailable,
				UpcomingBookings: booking.Upcoming(all, q.RoomID, q.Range.End),
				Source:           SourceBookingList,
			}

			conflicts := booking.Conflicting(all, q.RoomID, q.Range)
			if len(conflicts) == 0 {
				return result, nil
			}

			current := conflicts[0]
			result.IsAvailable = false
			result.Status = booking.RoomOccupied
			result.CurrentBooking = &current
			result.NextAvailableDate = booking.NextFreeDate(conflicts)

			return result, nil
		},
	}
}

// RoomStatus falls back to the room-level flag. It knows nothing about the
// conflicting booking, so an unavailable answer carries a placeholder.
func RoomStatus(backend roomStatusReader) Strategy {
	return Strategy{
		Name: SourceRoomStatus,
		Check: func(ctx context.Context, q Query) (*booking.AvailabilityResult, error) {
			st, err := backend.RoomStatus(ctx, q.Session, q.RoomID)
			if err != nil {
				return nil, fmt.Errorf("get room %d status: %w", q.RoomID, err)
			}

			result := &booking.AvailabilityResult{
				RoomID:            q.RoomID,
				Range:             q.Range,
				IsAvailable:       st.IsBookable,
				Status:            booking.RoomAvailable,
				NextAvailableDate: st.NextAvailableDate,
				Source:            SourceRoomStatus,
			}

			if st.IsBookable {
				return result, nil
			}

			result.Status = booking.RoomOccupied
			if st.DynamicStatus == booking.RoomMaintenance {
				result.Status = booking.RoomMaintenance
			}

			end := q.Range.End
			if !st.NextAvailableDate.IsZero() {
				end = st.NextAvailableDate
			}

			result.CurrentBooking = &booking.Booking{
				RoomID:      q.RoomID,
				StartDate:   q.Range.Start,
				EndDate:     end,
				Status:      booking.StatusConfirmed,
				Placeholder: true,
			}

			return result, nil
		},
	}
}
