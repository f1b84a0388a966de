package booking

import "sort"

// Conflicting returns the bookings of roomID that hold the room during r,
// earliest first. Cancelled bookings never conflict.
func Conflicting(bookings []Booking, roomID int, r DateRange) []Booking {
	var out []Booking

	for _, b := range bookings {
		if b.RoomID != roomID || b.Status == StatusCancelled {
			continue
		}

		if b.Range().Overlaps(r) {
			out = append(out, b)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartDate.Before(out[j].StartDate)
	})

	return out
}

// Upcoming returns non-cancelled bookings of roomID starting on or after from.
func Upcoming(bookings []Booking, roomID int, from Date) []Booking {
	var out []Booking

	for _, b := range bookings {
		if b.RoomID != roomID || b.Status == StatusCancelled || b.StartDate.Before(from) {
			continue
		}

		out = append(out, b)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartDate.Before(out[j].StartDate)
	})

	return out
}

// NextFreeDate is the first check-out day after which none of the conflicts
// keep the room, i.e. the latest end among chained conflicts.
func NextFreeDate(conflicts []Booking) Date {
	var next Date

	for _, b := range conflicts {
		if next.IsZero() || b.EndDate.After(next) {
			next = b.EndDate
		}
	}

	return next
}

// StatusOf maps a resolved result to a room status, keeping maintenance
// when the backend reported it.
func StatusOf(result *AvailabilityResult) RoomStatus {
	switch {
	case result == nil:
		return RoomOccupied
	case result.IsAvailable:
		return RoomAvailable
	case result.Status == RoomMaintenance:
		return RoomMaintenance
	default:
		return RoomOccupied
	}
}

func (d BookingDraft) TotalPrice() float64 {
	nights := d.Range().Nights()
	if nights <= 0 || d.NightlyPrice <= 0 {
		return 0
	}

	return float64(nights) * d.NightlyPrice
}
