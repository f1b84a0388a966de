// Package submission turns a booking draft into a backend booking. It guards
// against rooms already known to be taken, routes guests and signed-in users
// to their endpoints and classifies failures into actionable outcomes.
package submission

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/lusya00/thesis-frontend-sub000/internal/api"
	"github.com/lusya00/thesis-frontend-sub000/internal/booking"
	"github.com/lusya00/thesis-frontend-sub000/internal/logger"
	"github.com/lusya00/thesis-frontend-sub000/internal/session"
)

var (
	authMarkers = []string{
		"unauthorized", "unauthenticated", "not authenticated", "authentication required",
		"please log in", "login required", "invalid token", "token expired", "jwt",
	}
	availabilityMarkers = []string{"not available", "no longer available", "already booked"}
)

type backend interface {
	CreateGuestBooking(ctx context.Context, req *api.CreateBookingRequest) (*api.CreatedBooking, error)
	CreateBooking(ctx context.Context, sess *session.Session, req *api.CreateBookingRequest) (*api.CreatedBooking, error)
}

type resolver interface {
	Resolve(ctx context.Context, sess *session.Session, roomID int, rng booking.DateRange) (*booking.AvailabilityResult, error)
}

type sameDayEvaluator interface {
	IsToday(d booking.Date) bool
	EvaluateToday(ctx context.Context, sess *session.Session, roomID int, today booking.Date) (*booking.SameDayAvailability, error)
}

type draftStore interface {
	Save(ctx context.Context, draft *booking.BookingDraft) error
	Delete(ctx context.Context, id string) error
}

type idGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// StatusLookup exposes the last resolved status per room. ok is false when
// no answer is known yet.
type StatusLookup interface {
	Status(roomID int) (booking.RoomStatus, bool)
}

type Config struct {
	L               *logger.Logger
	LoginPath       string
	BookingPath     string
	LookaheadDays   int
	LookaheadStride int
	MinNameLength   int
	Now             func() time.Time
}

type Submitter struct {
	l        *logger.Logger
	conf     Config
	backend  backend
	resolver resolver
	sameDay  sameDayEvaluator
	drafts   draftStore
	ids      idGenerator
	validate *validator.Validate
	now      func() time.Time
}

func New(
	conf Config,
	backend backend,
	resolver resolver,
	sameDay sameDayEvaluator,
	drafts draftStore,
	ids idGenerator,
) *Submitter {
	now := conf.Now
	if now == nil {
		now = time.Now
	}

	if conf.LookaheadStride <= 0 {
		conf.LookaheadStride = 2 //nolint:gomnd
	}

	if conf.LookaheadDays <= 0 {
		conf.LookaheadDays = 14 //nolint:gomnd
	}

	//nolint:exhaustruct
	return &Submitter{
		l:        conf.L,
		conf:     conf,
		backend:  backend,
		resolver: resolver,
		sameDay:  sameDay,
		drafts:   drafts,
		ids:      ids,
		validate: newValidator(),
		now:      now,
	}
}

// Submit creates a booking from draft. statuses may be nil when the caller
// has no status map, the room is then re-checked before posting.
//
// Errors: *booking.InputError and *booking.UnavailableRoomError are local and
// never reach the network. Backend failures come back as
// *LoginRequiredError, *ConflictError or *RetryableError.
func (s *Submitter) Submit(
	ctx context.Context,
	sess *session.Session,
	draft *booking.BookingDraft,
	statuses StatusLookup,
) (*booking.BookingConfirmation, error) {
	guest := !sess.Authenticated()

	if err := s.validateDraft(draft, guest); err != nil {
		return nil, fmt.Errorf("validate booking draft: %w", err)
	}

	if err := s.guard(ctx, sess, draft, statuses); err != nil {
		return nil, err
	}

	if draft.ID == "" {
		id, err := s.ids.NewID(ctx)
		if err != nil {
			return nil, fmt.Errorf("generate draft id: %w", err)
		}

		draft.ID = id
	}

	req := &api.CreateBookingRequest{
		RoomID:          draft.RoomID,
		StartDate:       draft.StartDate,
		EndDate:         draft.EndDate,
		NumberOfGuests:  draft.Guests,
		PaymentMethod:   draft.PaymentMethod,
		SpecialRequests: strings.TrimSpace(draft.SpecialRequests),
	}

	// the draft id makes a retried submission of the same draft idempotent
	ctx = booking.NewContextWithIdempotencyKey(ctx, draft.ID)

	var (
		created *api.CreatedBooking
		err     error
	)

	if guest {
		req.GuestName = strings.TrimSpace(draft.Guest.Name)
		req.GuestEmail = strings.TrimSpace(draft.Guest.Email)
		req.GuestPhone = strings.TrimSpace(draft.Guest.Phone)

		created, err = s.backend.CreateGuestBooking(ctx, req)
	} else {
		created, err = s.backend.CreateBooking(ctx, sess, req)
	}

	if err != nil {
		return nil, s.classify(ctx, sess, draft, err)
	}

	if err := s.drafts.Delete(ctx, draft.ID); err != nil && !errors.Is(err, booking.ErrNotFound) {
		s.l.LogWarnf("Failed to drop draft %s after booking: %v", draft.ID, err)
	}

	s.l.LogInfo("Booking %s created for room %d %s (guest=%v)", created.BookingNumber, draft.RoomID, draft.Range(), guest)

	return s.confirmation(draft, created, guest), nil
}

// guard rejects rooms whose last known status forbids booking. A room with
// no known status, e.g. during the optimistic first check, is resolved now.
func (s *Submitter) guard(
	ctx context.Context,
	sess *session.Session,
	draft *booking.BookingDraft,
	statuses StatusLookup,
) error {
	if statuses != nil {
		if status, ok := statuses.Status(draft.RoomID); ok {
			if status != booking.RoomAvailable {
				return &booking.UnavailableRoomError{RoomID: draft.RoomID, Status: status}
			}

			return nil
		}
	}

	res, err := s.resolver.Resolve(ctx, sess, draft.RoomID, draft.Range())
	if err != nil {
		s.l.LogWarnf("Pre-submit check of room %d failed: %v", draft.RoomID, err)
	}

	if res == nil || !res.IsAvailable {
		return &booking.UnavailableRoomError{RoomID: draft.RoomID, Status: booking.StatusOf(res)}
	}

	return nil
}

func (s *Submitter) confirmation(
	draft *booking.BookingDraft,
	created *api.CreatedBooking,
	guest bool,
) *booking.BookingConfirmation {
	status := created.Status
	if status == "" {
		status = booking.StatusPending
	}

	total := created.TotalPrice
	if total <= 0 {
		total = draft.TotalPrice()
	}

	return &booking.BookingConfirmation{
		ID:            created.ID,
		BookingNumber: created.BookingNumber,
		RoomID:        draft.RoomID,
		StartDate:     draft.StartDate,
		EndDate:       draft.EndDate,
		Status:        status,
		PaymentStatus: created.PaymentStatus,
		TotalPrice:    total,
		GuestBooking:  guest,
	}
}

type failureKind int

const (
	failureOther failureKind = iota
	failureAuth
	failureAvailability
)

func classifyMessage(err error) failureKind {
	if errors.Is(err, api.ErrUnauthorized) || errors.Is(err, api.ErrAuthRequired) {
		return failureAuth
	}

	msg := err.Error()
	if apiErr := api.IsError(err); apiErr != nil && apiErr.Message != "" {
		msg = apiErr.Message
	}

	msg = strings.ToLower(msg)

	for _, marker := range availabilityMarkers {
		if strings.Contains(msg, marker) {
			return failureAvailability
		}
	}

	for _, marker := range authMarkers {
		if strings.Contains(msg, marker) {
			return failureAuth
		}
	}

	return failureOther
}

func (s *Submitter) classify(
	ctx context.Context,
	sess *session.Session,
	draft *booking.BookingDraft,
	err error,
) error {
	switch classifyMessage(err) {
	case failureAuth:
		return s.loginRequired(ctx, draft, err)
	case failureAvailability:
		return s.conflict(ctx, sess, draft, err)
	default:
		s.l.LogErrorf("Booking of room %d %s failed: %v", draft.RoomID, draft.Range(), err)

		// a retry resumes this draft id and with it the idempotency key
		if saveErr := s.drafts.Save(ctx, draft); saveErr != nil {
			s.l.LogErrorf("Failed to keep draft %s for a retry: %v", draft.ID, saveErr)
		}

		return &RetryableError{Err: err}
	}
}

func (s *Submitter) loginRequired(ctx context.Context, draft *booking.BookingDraft, err error) error {
	loginErr := &LoginRequiredError{Err: err}

	if saveErr := s.drafts.Save(ctx, draft); saveErr != nil {
		s.l.LogErrorf("Failed to keep draft %s for after login: %v", draft.ID, saveErr)
	} else {
		loginErr.DraftID = draft.ID
	}

	returnURL := s.conf.BookingPath
	if loginErr.DraftID != "" {
		returnURL += "?" + url.Values{"draft": {loginErr.DraftID}}.Encode()
	}

	loginErr.RedirectURL = s.conf.LoginPath + "?" + url.Values{"returnUrl": {returnURL}}.Encode()

	return loginErr
}

func (s *Submitter) conflict(
	ctx context.Context,
	sess *session.Session,
	draft *booking.BookingDraft,
	err error,
) error {
	conflictErr := &ConflictError{
		RoomID: draft.RoomID,
		Range:  draft.Range(),
		Reason: ReasonUnknown,
		Err:    err,
	}

	if apiErr := api.IsError(err); apiErr != nil {
		conflictErr.Message = apiErr.Message
	}

	if s.sameDay.IsToday(draft.StartDate) {
		res, sdErr := s.sameDay.EvaluateToday(ctx, sess, draft.RoomID, draft.StartDate)
		conflictErr.SameDay = res

		switch {
		case sdErr != nil || res == nil:
			s.l.LogWarnf("Same-day re-check of room %d after conflict failed: %v", draft.RoomID, sdErr)
		case res.EarlyCheckout && !res.CanBookToday:
			conflictErr.Reason = ReasonEarlyCheckoutPending
		case res.CanBookToday:
			conflictErr.Reason = ReasonUnconfirmed
		default:
			conflictErr.Reason = ReasonOccupied
		}

		if conflictErr.Reason != ReasonUnconfirmed {
			conflictErr.NextAvailable = s.nextOpenStart(ctx, sess, draft.RoomID, draft.Range(), "")
		}

		return conflictErr
	}

	res, rErr := s.resolver.Resolve(ctx, sess, draft.RoomID, draft.Range())

	switch {
	case rErr != nil:
		s.l.LogWarnf("Re-check of room %d after conflict failed: %v", draft.RoomID, rErr)
	case res.IsAvailable:
		conflictErr.Reason = ReasonUnconfirmed

		return conflictErr
	default:
		conflictErr.Reason = ReasonOccupied
	}

	var hint booking.Date
	if res != nil {
		hint = res.NextAvailableDate
	}

	conflictErr.NextAvailable = s.nextOpenStart(ctx, sess, draft.RoomID, draft.Range(), hint)

	return conflictErr
}

// nextOpenStart shifts rng forward by the configured stride until a stay of
// the same length resolves as available, up to the lookahead window. The
// backend's hint is used only when the search finds nothing.
func (s *Submitter) nextOpenStart(
	ctx context.Context,
	sess *session.Session,
	roomID int,
	rng booking.DateRange,
	hint booking.Date,
) booking.Date {
	for offset := s.conf.LookaheadStride; offset <= s.conf.LookaheadDays; offset += s.conf.LookaheadStride {
		if ctx.Err() != nil {
			break
		}

		candidate := rng.Shift(offset)

		res, err := s.resolver.Resolve(ctx, sess, roomID, candidate)
		if err != nil {
			continue
		}

		if res.IsAvailable {
			return candidate.Start
		}
	}

	return hint
}
