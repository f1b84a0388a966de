package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/lusya00/thesis-frontend-sub000/internal/booking"
	"github.com/lusya00/thesis-frontend-sub000/internal/session"
)

type RoomAvailability struct {
	IsAvailable       bool              `json:"is_available"`
	CurrentBooking    *booking.Booking  `json:"current_booking,omitempty"`
	NextAvailableDate booking.Date      `json:"next_available_date,omitempty"`
	UpcomingBookings  []booking.Booking `json:"upcoming_bookings,omitempty"`
}

type RoomStatus struct {
	DynamicStatus     booking.RoomStatus `json:"dynamic_status"`
	IsBookable        bool               `json:"is_bookable"`
	NextAvailableDate booking.Date       `json:"next_available_date,omitempty"`
}

type CreateBookingRequest struct {
	RoomID          int                   `json:"room_id"`
	StartDate       booking.Date          `json:"start_date"`
	EndDate         booking.Date          `json:"end_date"`
	NumberOfGuests  int                   `json:"number_of_guests"`
	PaymentMethod   booking.PaymentMethod `json:"payment_method"`
	SpecialRequests string                `json:"special_requests,omitempty"`
	GuestName       string                `json:"guest_name,omitempty"`
	GuestEmail      string                `json:"guest_email,omitempty"`
	GuestPhone      string                `json:"guest_phone,omitempty"`
}

type CreatedBooking struct {
	ID            int            `json:"id"`
	BookingNumber string         `json:"booking_number"`
	Status        booking.Status `json:"status"`
	PaymentStatus string         `json:"payment_status"`
	TotalPrice    float64        `json:"total_price"`
}

// bookingList accepts both a bare array and {"bookings": [...]}.
type bookingList []booking.Booking

func (l *bookingList) UnmarshalJSON(raw []byte) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []booking.Booking
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err //nolint:wrapcheck
		}

		*l = items

		return nil
	}

	var wrapped struct {
		Bookings []booking.Booking `json:"bookings"`
	}

	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return err //nolint:wrapcheck
	}

	*l = wrapped.Bookings

	return nil
}

func roomPath(roomID int, parts ...string) string {
	p := "/bookings/room/" + strconv.Itoa(roomID)
	for _, part := range parts {
		p += "/" + part
	}

	return p
}

func (c *Client) RoomAvailability(
	ctx context.Context,
	sess *session.Session,
	roomID int,
	r booking.DateRange,
) (*RoomAvailability, error) {
	var out RoomAvailability

	err := c.do(ctx, sess, call{
		method: http.MethodGet,
		path:   roomPath(roomID, "availability"),
		query:  url.Values{"start_date": {r.Start.String()}, "end_date": {r.End.String()}},
	}, &out)
	if err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Client) SameDayAvailability(
	ctx context.Context,
	sess *session.Session,
	roomID int,
	date booking.Date,
) (*booking.SameDayAvailability, error) {
	var out booking.SameDayAvailability

	err := c.do(ctx, sess, call{
		method: http.MethodGet,
		path:   roomPath(roomID, "same-day-availability"),
		query:  url.Values{"date": {date.String()}},
	}, &out)
	if err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Client) RoomBookings(ctx context.Context, sess *session.Session, roomID int) ([]booking.Booking, error) {
	var out bookingList

	if err := c.do(ctx, sess, call{method: http.MethodGet, path: roomPath(roomID)}, &out); err != nil {
		return nil, err
	}

	return out, nil
}

// Bookings lists every booking visible to the session's user.
func (c *Client) Bookings(ctx context.Context, sess *session.Session) ([]booking.Booking, error) {
	if !sess.Authenticated() {
		return nil, ErrAuthRequired
	}

	var out bookingList

	if err := c.do(ctx, sess, call{method: http.MethodGet, path: "/bookings"}, &out); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *Client) RoomStatus(ctx context.Context, sess *session.Session, roomID int) (*RoomStatus, error) {
	var out RoomStatus

	err := c.do(ctx, sess, call{
		method: http.MethodGet,
		path:   "/rooms/" + strconv.Itoa(roomID) + "/status",
	}, &out)
	if err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Client) HomestayRooms(ctx context.Context, sess *session.Session, homestayID int) ([]booking.Room, error) {
	var out []booking.Room

	err := c.do(ctx, sess, call{
		method: http.MethodGet,
		path:   "/homestays/" + strconv.Itoa(homestayID) + "/rooms",
	}, &out)
	if err != nil {
		return nil, err
	}

	return out, nil
}

// CreateGuestBooking posts without credentials.
func (c *Client) CreateGuestBooking(ctx context.Context, req *CreateBookingRequest) (*CreatedBooking, error) {
	var out CreatedBooking

	err := c.do(ctx, nil, call{
		method: http.MethodPost,
		path:   "/bookings/guest",
		body:   req,
		guest:  true,
	}, &out)
	if err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Client) CreateBooking(
	ctx context.Context,
	sess *session.Session,
	req *CreateBookingRequest,
) (*CreatedBooking, error) {
	if !sess.Authenticated() {
		return nil, ErrAuthRequired
	}

	var out CreatedBooking

	if err := c.do(ctx, sess, call{method: http.MethodPost, path: "/bookings", body: req}, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Client) UpdateBookingStatus(
	ctx context.Context,
	sess *session.Session,
	bookingID int,
	status booking.Status,
) error {
	if !sess.Authenticated() {
		return ErrAuthRequired
	}

	err := c.do(ctx, sess, call{
		method: http.MethodPut,
		path:   "/bookings/" + strconv.Itoa(bookingID) + "/status",
		body:   map[string]booking.Status{"status": status},
	}, nil)
	if err != nil {
		return fmt.Errorf("update booking %d status to %s: %w", bookingID, status, err)
	}

	return nil
}
