package submission

import (
	"errors"
	"fmt"

	"github.com/lusya00/thesis-frontend-sub000/internal/booking"
)

// LoginRequiredError asks the caller to send the user to RedirectURL. The
// draft was persisted under DraftID and can be restored after login.
type LoginRequiredError struct {
	DraftID     string
	RedirectURL string
	Err         error
}

func (e *LoginRequiredError) Error() string {
	return fmt.Sprintf("login required to book: %v", e.Err)
}

func (e *LoginRequiredError) Unwrap() error { return e.Err }

func IsLoginRequiredError(err error) *LoginRequiredError {
	var target *LoginRequiredError
	if errors.As(err, &target) {
		return target
	}

	return nil
}

type ConflictReason string

const (
	// ReasonOccupied: the room is booked for the requested dates.
	ReasonOccupied ConflictReason = "occupied"
	// ReasonEarlyCheckoutPending: the previous guest left early but the room
	// is not released for today yet.
	ReasonEarlyCheckoutPending ConflictReason = "early_checkout_pending"
	// ReasonUnconfirmed: the backend refused but a fresh check shows the room
	// as free, typically a race with another guest.
	ReasonUnconfirmed ConflictReason = "unconfirmed"
	ReasonUnknown     ConflictReason = "unknown"
)

// ConflictError is an availability conflict reported by the backend,
// enriched with the reason found by re-checking and, when found, the next
// start date that is open for a stay of the same length.
type ConflictError struct {
	RoomID        int                          `json:"room_id"`
	Range         booking.DateRange            `json:"range"`
	Reason        ConflictReason               `json:"reason"`
	Message       string                       `json:"message"`
	SameDay       *booking.SameDayAvailability `json:"same_day,omitempty"`
	NextAvailable booking.Date                 `json:"next_available,omitempty"`
	Err           error                        `json:"-"`
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("room %d is not available for %s (%s): %v", e.RoomID, e.Range, e.Reason, e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

func IsConflictError(err error) *ConflictError {
	var target *ConflictError
	if errors.As(err, &target) {
		return target
	}

	return nil
}

// RetryableError is any unclassified failure. The draft is kept for a retry.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("booking failed, please retry: %v", e.Err)
}

func (e *RetryableError) Unwrap() error { return e.Err }

func IsRetryableError(err error) *RetryableError {
	var target *RetryableError
	if errors.As(err, &target) {
		return target
	}

	return nil
}
