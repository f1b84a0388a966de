package sameday

import (
	"fmt"
	"math"
	"time"

	"github.com/lusya00/thesis-frontend-sub000/internal/booking"
)

const LabelAvailableNow = "Available now!"

type Countdown struct {
	// Active is set while housekeeping is in progress with a known finish time.
	Active    bool          `json:"active"`
	Ready     bool          `json:"ready"`
	Remaining time.Duration `json:"remaining"`
	Label     string        `json:"label,omitempty"`
}

// ComputeCountdown derives the time left until housekeeping finishes. The
// finish time is an HH:MM on the same day as now.
func ComputeCountdown(a *booking.SameDayAvailability, now time.Time) Countdown {
	if a == nil || a.HousekeepingStatus != booking.HousekeepingInProgress || a.HousekeepingCompleteTime == "" {
		return Countdown{}
	}

	clock, err := time.Parse("15:04", a.HousekeepingCompleteTime)
	if err != nil {
		return Countdown{}
	}

	target := time.Date(now.Year(), now.Month(), now.Day(), clock.Hour(), clock.Minute(), 0, 0, now.Location())

	remaining := target.Sub(now)
	if remaining <= 0 {
		return Countdown{Active: true, Ready: true, Label: LabelAvailableNow}
	}

	return Countdown{Active: true, Remaining: remaining, Label: formatRemaining(remaining)}
}

func formatRemaining(d time.Duration) string {
	minutes := int(math.Ceil(d.Minutes()))
	hours := minutes / 60 //nolint:gomnd
	minutes %= 60         //nolint:gomnd

	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}

	return fmt.Sprintf("%dm", minutes)
}
