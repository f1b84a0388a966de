package submission

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lusya00/thesis-frontend-sub000/internal/api"
	"github.com/lusya00/thesis-frontend-sub000/internal/booking"
	"github.com/lusya00/thesis-frontend-sub000/internal/logger"
	"github.com/lusya00/thesis-frontend-sub000/internal/session"
	"github.com/lusya00/thesis-frontend-sub000/internal/storage/memory"
)

var errDown = errors.New("backend down")

func at(day, hour int) time.Time {
	return time.Date(2025, 3, day, hour, 0, 0, 0, time.UTC)
}

type fakeBackend struct {
	mu          sync.Mutex
	guestCalls  int
	authCalls   int
	lastReq     *api.CreateBookingRequest
	idempotency string
	err         error
}

func (f *fakeBackend) record(ctx context.Context, req *api.CreateBookingRequest) (*api.CreatedBooking, error) {
	f.lastReq = req
	f.idempotency, _ = booking.IdempotencyKeyFromContext(ctx)

	if f.err != nil {
		return nil, f.err
	}

	return &api.CreatedBooking{ID: 41, BookingNumber: "BK-41", PaymentStatus: "unpaid"}, nil
}

func (f *fakeBackend) CreateGuestBooking(ctx context.Context, req *api.CreateBookingRequest) (*api.CreatedBooking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.guestCalls++

	return f.record(ctx, req)
}

func (f *fakeBackend) CreateBooking(ctx context.Context, _ *session.Session, req *api.CreateBookingRequest) (*api.CreatedBooking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.authCalls++

	return f.record(ctx, req)
}

func (f *fakeBackend) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.guestCalls + f.authCalls
}

// fakeResolver answers per range start; unknown starts are available.
type fakeResolver struct {
	mu     sync.Mutex
	taken  map[booking.Date]bool
	err    error
	checks []booking.DateRange
}

func (f *fakeResolver) Resolve(_ context.Context, _ *session.Session, roomID int, rng booking.DateRange) (*booking.AvailabilityResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.checks = append(f.checks, rng)

	if f.err != nil {
		return &booking.AvailabilityResult{RoomID: roomID, Range: rng, Status: booking.RoomOccupied}, f.err
	}

	if f.taken[rng.Start] {
		return &booking.AvailabilityResult{RoomID: roomID, Range: rng, Status: booking.RoomOccupied, NextAvailableDate: "2025-04-01"}, nil
	}

	return &booking.AvailabilityResult{RoomID: roomID, Range: rng, IsAvailable: true, Status: booking.RoomAvailable}, nil
}

func (f *fakeResolver) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.checks)
}

type fakeSameDay struct {
	today booking.Date
	res   *booking.SameDayAvailability
	err   error
	calls int
}

func (f *fakeSameDay) IsToday(d booking.Date) bool { return d == f.today }

func (f *fakeSameDay) EvaluateToday(context.Context, *session.Session, int, booking.Date) (*booking.SameDayAvailability, error) {
	f.calls++

	return f.res, f.err
}

// sequenceIDs hands out draft-1, draft-2, ... so tests can name the ids.
type sequenceIDs struct {
	mu sync.Mutex
	n  int
}

func (g *sequenceIDs) NewID(context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.n++

	return fmt.Sprintf("draft-%d", g.n), nil
}

type statusMap map[int]booking.RoomStatus

func (m statusMap) Status(roomID int) (booking.RoomStatus, bool) {
	st, ok := m[roomID]

	return st, ok
}

type fixture struct {
	submitter *Submitter
	backend   *fakeBackend
	resolver  *fakeResolver
	sameDay   *fakeSameDay
	drafts    *memory.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		backend:  &fakeBackend{},
		resolver: &fakeResolver{taken: map[booking.Date]bool{}},
		sameDay:  &fakeSameDay{today: "2025-03-10"},
		drafts:   memory.New(memory.Config{L: logger.Discard(), TTL: time.Hour}),
	}

	f.submitter = New(Config{
		L:               logger.Discard(),
		LoginPath:       "/login",
		BookingPath:     "/booking",
		LookaheadDays:   14,
		LookaheadStride: 2,
		MinNameLength:   2,
		Now:             func() time.Time { return at(10, 9) },
	}, f.backend, f.resolver, f.sameDay, f.drafts, &sequenceIDs{})

	return f
}

func authSession(t *testing.T) *session.Session {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "12",
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

func guestDraft() *booking.BookingDraft {
	return &booking.BookingDraft{
		RoomID:        7,
		StartDate:     "2025-03-12",
		EndDate:       "2025-03-15",
		Guests:        2,
		Guest:         booking.GuestContact{Name: "Ana Putri", Email: "ana@example.com", Phone: "+62 812 3456 789"},
		PaymentMethod: booking.PaymentBankTransfer,
		NightlyPrice:  350000,
	}
}

func TestGuestInvalidEmailNeverHitsNetwork(t *testing.T) {
	f := newFixture(t)

	draft := guestDraft()
	draft.Guest.Email = "not-an-email"

	_, err := f.submitter.Submit(context.Background(), session.Guest(), draft, nil)

	inputErr := booking.IsInputError(err)
	if inputErr == nil {
		t.Fatalf("expected input error, got %v", err)
	}

	if _, ok := inputErr.Fields()["guest.email"]; !ok {
		t.Fatalf("expected guest.email error, got %v", inputErr.Fields())
	}

	if f.backend.calls() != 0 || f.resolver.count() != 0 {
		t.Fatalf("validation failure reached the network: backend=%d resolver=%d", f.backend.calls(), f.resolver.count())
	}
}

func TestGuestContactRules(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(d *booking.BookingDraft)
		field string
	}{
		{name: "short name", edit: func(d *booking.BookingDraft) { d.Guest.Name = "A" }, field: "guest.name"},
		{name: "missing phone", edit: func(d *booking.BookingDraft) { d.Guest.Phone = "" }, field: "guest.phone"},
		{name: "bad phone", edit: func(d *booking.BookingDraft) { d.Guest.Phone = "call me" }, field: "guest.phone"},
		{name: "no guests", edit: func(d *booking.BookingDraft) { d.Guests = 0 }, field: "guests"},
		{name: "unknown payment", edit: func(d *booking.BookingDraft) { d.PaymentMethod = "cash" }, field: "payment_method"},
		{name: "past stay", edit: func(d *booking.BookingDraft) { d.StartDate, d.EndDate = "2025-03-01", "2025-03-03" }, field: "end_date"},
		{name: "reversed stay", edit: func(d *booking.BookingDraft) { d.EndDate = "2025-03-11" }, field: "end_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			draft := guestDraft()
			tt.edit(draft)

			_, err := f.submitter.Submit(context.Background(), session.Guest(), draft, nil)

			inputErr := booking.IsInputError(err)
			if inputErr == nil {
				t.Fatalf("expected input error, got %v", err)
			}

			if _, ok := inputErr.Fields()[tt.field]; !ok {
				t.Fatalf("expected %s error, got %v", tt.field, inputErr.Fields())
			}

			if f.backend.calls() != 0 {
				t.Fatal("invalid draft was posted")
			}
		})
	}
}

func TestKnownUnavailableRoomRejectedLocally(t *testing.T) {
	f := newFixture(t)

	_, err := f.submitter.Submit(context.Background(), session.Guest(), guestDraft(), statusMap{7: booking.RoomMaintenance})

	unavailable := booking.IsUnavailableRoomError(err)
	if unavailable == nil || unavailable.Status != booking.RoomMaintenance {
		t.Fatalf("expected unavailable room error, got %v", err)
	}

	if !strings.Contains(err.Error(), "maintenance") {
		t.Fatalf("message must name the status: %q", err.Error())
	}

	if f.backend.calls() != 0 || f.resolver.count() != 0 {
		t.Fatal("guard must not touch the network")
	}
}

func TestUnknownStatusIsResolvedBeforePosting(t *testing.T) {
	f := newFixture(t)
	f.resolver.taken["2025-03-12"] = true

	_, err := f.submitter.Submit(context.Background(), session.Guest(), guestDraft(), statusMap{})
	if booking.IsUnavailableRoomError(err) == nil {
		t.Fatalf("expected unavailable room error, got %v", err)
	}

	if f.resolver.count() != 1 || f.backend.calls() != 0 {
		t.Fatalf("expected one fresh check and no post, resolver=%d backend=%d", f.resolver.count(), f.backend.calls())
	}
}

func TestGuestSubmissionCreatesPendingBooking(t *testing.T) {
	f := newFixture(t)

	conf, err := f.submitter.Submit(context.Background(), session.Guest(), guestDraft(), statusMap{7: booking.RoomAvailable})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if conf.Status != booking.StatusPending || !conf.GuestBooking || conf.BookingNumber != "BK-41" {
		t.Fatalf("unexpected confirmation %+v", conf)
	}

	if conf.TotalPrice != 3*350000 {
		t.Fatalf("expected total for 3 nights, got %v", conf.TotalPrice)
	}

	if f.backend.guestCalls != 1 || f.backend.authCalls != 0 {
		t.Fatalf("expected guest endpoint, got guest=%d auth=%d", f.backend.guestCalls, f.backend.authCalls)
	}

	if f.backend.lastReq.GuestEmail != "ana@example.com" || f.backend.lastReq.NumberOfGuests != 2 {
		t.Fatalf("unexpected request %+v", f.backend.lastReq)
	}

	if f.backend.idempotency != "draft-1" {
		t.Fatalf("expected the draft id as idempotency key, got %q", f.backend.idempotency)
	}
}

func TestAuthenticatedSessionWinsOverGuestFields(t *testing.T) {
	f := newFixture(t)

	draft := guestDraft()
	// guest-shaped fields are ignored, even invalid ones
	draft.Guest.Email = "not-an-email"

	conf, err := f.submitter.Submit(context.Background(), authSession(t), draft, statusMap{7: booking.RoomAvailable})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if f.backend.authCalls != 1 || f.backend.guestCalls != 0 {
		t.Fatalf("expected authenticated endpoint only, got guest=%d auth=%d", f.backend.guestCalls, f.backend.authCalls)
	}

	if f.backend.lastReq.GuestEmail != "" || conf.GuestBooking {
		t.Fatalf("guest fields leaked into the authenticated request: %+v", f.backend.lastReq)
	}
}

func TestAuthFailureKeepsDraftAndRedirects(t *testing.T) {
	f := newFixture(t)
	f.backend.err = &api.Error{Method: http.MethodPost, Path: "/bookings", StatusCode: http.StatusUnauthorized, Message: "Token expired"}

	_, err := f.submitter.Submit(context.Background(), authSession(t), guestDraft(), statusMap{7: booking.RoomAvailable})

	loginErr := IsLoginRequiredError(err)
	if loginErr == nil {
		t.Fatalf("expected login required, got %v", err)
	}

	if loginErr.DraftID != "draft-1" {
		t.Fatalf("unexpected draft id %q", loginErr.DraftID)
	}

	redirect, perr := url.Parse(loginErr.RedirectURL)
	if perr != nil || redirect.Path != "/login" || redirect.Query().Get("returnUrl") != "/booking?draft=draft-1" {
		t.Fatalf("unexpected redirect %q", loginErr.RedirectURL)
	}

	saved, lerr := f.drafts.Load(context.Background(), "draft-1")
	if lerr != nil || saved.RoomID != 7 {
		t.Fatalf("draft was not kept: %v", lerr)
	}
}

func TestAuthMarkerInMessage(t *testing.T) {
	f := newFixture(t)
	f.backend.err = &api.Error{StatusCode: http.StatusBadRequest, Message: "Login required to complete booking"}

	_, err := f.submitter.Submit(context.Background(), session.Guest(), guestDraft(), statusMap{7: booking.RoomAvailable})
	if IsLoginRequiredError(err) == nil {
		t.Fatalf("expected login required, got %v", err)
	}
}

func TestConflictSearchesForwardForNextOpenDate(t *testing.T) {
	f := newFixture(t)
	f.backend.err = &api.Error{StatusCode: http.StatusConflict, Message: "Room is no longer available for the selected dates"}
	f.resolver.taken["2025-03-12"] = true
	f.resolver.taken["2025-03-14"] = true

	// statuses still say available, the backend knows better
	_, err := f.submitter.Submit(context.Background(), session.Guest(), guestDraft(), statusMap{7: booking.RoomAvailable})

	conflict := IsConflictError(err)
	if conflict == nil {
		t.Fatalf("expected conflict, got %v", err)
	}

	if conflict.Reason != ReasonOccupied || conflict.NextAvailable != "2025-03-16" {
		t.Fatalf("unexpected conflict %+v", conflict)
	}

	if f.sameDay.calls != 0 {
		t.Fatal("same-day evaluator is for today only")
	}

	// the stay length is kept while searching
	for _, rng := range f.resolver.checks {
		if rng.Nights() != 3 {
			t.Fatalf("search changed the stay length: %s", rng)
		}
	}
}

func TestConflictSearchFallsBackToBackendHint(t *testing.T) {
	f := newFixture(t)
	f.backend.err = &api.Error{StatusCode: http.StatusConflict, Message: "Room already booked"}

	for d := 0; d <= 14; d++ {
		f.resolver.taken[booking.Date("2025-03-12").AddDays(d)] = true
	}

	_, err := f.submitter.Submit(context.Background(), session.Guest(), guestDraft(), statusMap{7: booking.RoomAvailable})

	conflict := IsConflictError(err)
	if conflict == nil || conflict.NextAvailable != "2025-04-01" {
		t.Fatalf("expected backend hint, got %+v", conflict)
	}

	// one confirmation check plus seven shifted candidates
	if got := f.resolver.count(); got != 8 {
		t.Fatalf("expected 8 checks within the look-ahead, got %d", got)
	}
}

func TestTodayConflictAsksSameDayEvaluator(t *testing.T) {
	f := newFixture(t)
	f.backend.err = &api.Error{StatusCode: http.StatusConflict, Message: "Room not available today"}
	f.sameDay.res = &booking.SameDayAvailability{
		EarlyCheckout:       true,
		CanBookToday:        false,
		HousekeepingStatus:  booking.HousekeepingInProgress,
		EarliestBookingTime: "14:30",
	}

	draft := guestDraft()
	draft.StartDate, draft.EndDate = "2025-03-10", "2025-03-11"

	_, err := f.submitter.Submit(context.Background(), session.Guest(), draft, statusMap{7: booking.RoomAvailable})

	conflict := IsConflictError(err)
	if conflict == nil || conflict.Reason != ReasonEarlyCheckoutPending || conflict.SameDay == nil {
		t.Fatalf("expected early checkout reason, got %+v", conflict)
	}

	if f.sameDay.calls != 1 {
		t.Fatalf("expected one same-day evaluation, got %d", f.sameDay.calls)
	}
}

func TestTodayConflictWithUnverifiedSameDayIsUnknown(t *testing.T) {
	f := newFixture(t)
	f.backend.err = &api.Error{StatusCode: http.StatusConflict, Message: "Room not available"}
	f.sameDay.res = &booking.SameDayAvailability{EarliestBookingTime: booking.EarliestUnknown}
	f.sameDay.err = errDown

	draft := guestDraft()
	draft.StartDate, draft.EndDate = "2025-03-10", "2025-03-12"

	_, err := f.submitter.Submit(context.Background(), session.Guest(), draft, statusMap{7: booking.RoomAvailable})

	if conflict := IsConflictError(err); conflict == nil || conflict.Reason != ReasonUnknown {
		t.Fatalf("expected unknown reason, got %+v", conflict)
	}
}

func TestOtherFailuresAreRetryable(t *testing.T) {
	f := newFixture(t)
	f.backend.err = &api.Error{StatusCode: http.StatusInternalServerError, Message: "database timeout"}

	_, err := f.submitter.Submit(context.Background(), session.Guest(), guestDraft(), statusMap{7: booking.RoomAvailable})

	if IsRetryableError(err) == nil || IsConflictError(err) != nil || IsLoginRequiredError(err) != nil {
		t.Fatalf("expected retryable error, got %v", err)
	}

	saved, lerr := f.drafts.Load(context.Background(), "draft-1")
	if lerr != nil || saved.RoomID != 7 {
		t.Fatalf("retryable failure must keep the draft for a retry: %+v, %v", saved, lerr)
	}
}

func TestResubmittingKeepsIdempotencyKey(t *testing.T) {
	f := newFixture(t)
	f.backend.err = errDown

	draft := guestDraft()

	if _, err := f.submitter.Submit(context.Background(), session.Guest(), draft, statusMap{7: booking.RoomAvailable}); IsRetryableError(err) == nil {
		t.Fatalf("expected retryable error, got %v", err)
	}

	first := f.backend.idempotency
	f.backend.err = nil

	if _, err := f.submitter.Submit(context.Background(), session.Guest(), draft, statusMap{7: booking.RoomAvailable}); err != nil {
		t.Fatalf("retry: %v", err)
	}

	if f.backend.idempotency != first || first == "" {
		t.Fatalf("retry used a new key: %q then %q", first, f.backend.idempotency)
	}
}
