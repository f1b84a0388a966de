package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lusya00/thesis-frontend-sub000/internal/booking"
	"github.com/lusya00/thesis-frontend-sub000/internal/logger"
	"github.com/lusya00/thesis-frontend-sub000/internal/session"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Config{L: logger.Discard(), BaseURL: srv.URL + "/api", Timeout: time.Second})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	return c
}

func authSession(t *testing.T) *session.Session {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	s, err := session.Init(token)
	if err != nil {
		t.Fatalf("session: %v", err)
	}

	return s
}

func TestNewRejectsRelativeBaseURL(t *testing.T) {
	if _, err := New(Config{L: logger.Discard(), BaseURL: "/api"}); err == nil {
		t.Fatal("expected error for relative base url")
	}
}

func TestRoomAvailabilityUnwrapsEnvelope(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/bookings/room/7/availability" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		if r.URL.Query().Get("start_date") != "2025-03-10" || r.URL.Query().Get("end_date") != "2025-03-12" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}

		if r.Header.Get("Authorization") != "" {
			t.Error("guest call must not carry Authorization")
		}

		if r.Header.Get("X-Request-ID") == "" {
			t.Error("expected generated request id")
		}

		_, _ = w.Write([]byte(`{"success":true,"data":{"is_available":false,` +
			`"current_booking":{"id":9,"room_id":7,"start_date":"2025-03-11","end_date":"2025-03-13","status":"confirmed"},` +
			`"next_available_date":"2025-03-13T00:00:00Z"}}`))
	}))

	out, err := c.RoomAvailability(context.Background(), session.Guest(), 7, booking.DateRange{Start: "2025-03-10", End: "2025-03-12"})
	if err != nil {
		t.Fatalf("availability: %v", err)
	}

	if out.IsAvailable || out.CurrentBooking == nil || out.CurrentBooking.ID != 9 {
		t.Fatalf("unexpected result %+v", out)
	}

	if out.NextAvailableDate != "2025-03-13" {
		t.Fatalf("next available = %s", out.NextAvailableDate)
	}
}

func TestUnauthorizedClearsSession(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			t.Error("expected bearer token")
		}

		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Token expired, please log in"}`))
	}))

	sess := authSession(t)

	_, err := c.Bookings(context.Background(), sess)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	if apiErr := IsError(err); apiErr == nil || apiErr.Message != "Token expired, please log in" {
		t.Fatalf("expected backend message, got %v", err)
	}

	if sess.Authenticated() {
		t.Fatal("401 must clear the session")
	}
}

func TestBookingsRequiresSession(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))

	if _, err := c.Bookings(context.Background(), session.Guest()); !errors.Is(err, ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
}

func TestBookingListShapes(t *testing.T) {
	bodies := []string{
		`[{"id":1,"room_id":7,"start_date":"2025-03-11","end_date":"2025-03-13","status":"confirmed"}]`,
		`{"bookings":[{"id":1,"room_id":7,"start_date":"2025-03-11","end_date":"2025-03-13","status":"confirmed"}]}`,
		`{"success":true,"data":{"bookings":[{"id":1,"room_id":7,"start_date":"2025-03-11","end_date":"2025-03-13","status":"confirmed"}]}}`,
	}

	for _, body := range bodies {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))

		got, err := c.RoomBookings(context.Background(), session.Guest(), 7)
		if err != nil {
			t.Fatalf("body %s: %v", body, err)
		}

		if len(got) != 1 || got[0].ID != 1 || got[0].Status != booking.StatusConfirmed {
			t.Fatalf("body %s: unexpected %+v", body, got)
		}
	}
}

func TestSuccessFalseIsAnError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"message":"Room is no longer available"}`))
	}))

	_, err := c.CreateGuestBooking(context.Background(), &CreateBookingRequest{RoomID: 7})

	apiErr := IsError(err)
	if apiErr == nil || apiErr.Message != "Room is no longer available" {
		t.Fatalf("expected api error, got %v", err)
	}
}

func TestCreateGuestBookingSendsIdempotencyKey(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/bookings/guest" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}

		if r.Header.Get("Idempotency-Key") != "draft-1" {
			t.Errorf("idempotency key = %q", r.Header.Get("Idempotency-Key"))
		}

		var req CreateBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}

		if req.GuestEmail != "guest@island.test" {
			t.Errorf("guest email = %q", req.GuestEmail)
		}

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":11,"booking_number":"BK-11","status":"pending","payment_status":"pending"}}`))
	}))

	ctx := booking.NewContextWithIdempotencyKey(context.Background(), "draft-1")

	out, err := c.CreateGuestBooking(ctx, &CreateBookingRequest{RoomID: 7, GuestEmail: "guest@island.test"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if out.ID != 11 || out.Status != booking.StatusPending {
		t.Fatalf("unexpected %+v", out)
	}
}

func TestHomestayRooms(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/homestays/3/rooms" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		_, _ = w.Write([]byte(`{"success":true,"data":[{"id":1,"homestay_id":3,"name":"Sunrise","number_people":2,"price":350000,"status":"available"},` +
			`{"id":2,"homestay_id":3,"name":"Lagoon","max_guests":4,"status":"maintenance"}]}`))
	}))

	rooms, err := c.HomestayRooms(context.Background(), session.Guest(), 3)
	if err != nil {
		t.Fatalf("rooms: %v", err)
	}

	if len(rooms) != 2 || rooms[0].Capacity() != 2 || rooms[1].Capacity() != 4 || rooms[1].Status != booking.RoomMaintenance {
		t.Fatalf("unexpected rooms %+v", rooms)
	}
}

func TestUpdateBookingStatus(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/bookings/41/status" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body["status"] != "cancelled" {
			t.Errorf("unexpected body %v (%v)", body, err)
		}

		_, _ = w.Write([]byte(`{"success":true}`))
	}))

	if err := c.UpdateBookingStatus(context.Background(), session.Guest(), 41, booking.StatusCancelled); !errors.Is(err, ErrAuthRequired) {
		t.Fatalf("guests cannot change bookings, got %v", err)
	}

	if err := c.UpdateBookingStatus(context.Background(), authSession(t), 41, booking.StatusCancelled); err != nil {
		t.Fatalf("update: %v", err)
	}
}
