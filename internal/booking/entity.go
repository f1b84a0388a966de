package booking

type RoomStatus string

const (
	RoomAvailable   RoomStatus = "available"
	RoomOccupied    RoomStatus = "occupied"
	RoomMaintenance RoomStatus = "maintenance"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Known() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

type HousekeepingStatus string

const (
	HousekeepingInProgress HousekeepingStatus = "in_progress"
	HousekeepingCompleted  HousekeepingStatus = "completed"
)

const (
	EarliestNow     = "now"
	EarliestLater   = "later"
	EarliestUnknown = "unknown"
)

type PaymentMethod string

const (
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCreditCard   PaymentMethod = "credit_card"
	PaymentEWallet      PaymentMethod = "e_wallet"
	PaymentOnArrival    PaymentMethod = "pay_on_arrival"
)

type Room struct {
	ID                int        `json:"id"`
	HomestayID        int        `json:"homestay_id"`
	Name              string     `json:"name"`
	NumberPeople      int        `json:"number_people"`
	MaxGuests         int        `json:"max_guests"`
	Price             float64    `json:"price"`
	Status            RoomStatus `json:"status"`
	NextAvailableDate Date       `json:"next_available_date,omitempty"`
}

// Capacity prefers max_guests, older rooms only carry number_people.
func (r Room) Capacity() int {
	if r.MaxGuests > 0 {
		return r.MaxGuests
	}

	return r.NumberPeople
}

type Booking struct {
	ID            int    `json:"id"`
	BookingNumber string `json:"booking_number,omitempty"`
	RoomID        int    `json:"room_id"`
	StartDate     Date   `json:"start_date"`
	EndDate       Date   `json:"end_date"`
	Status        Status `json:"status"`
	PaymentStatus string `json:"payment_status,omitempty"`
	// Placeholder marks a record synthesized from a bare "occupied" flag.
	Placeholder bool `json:"placeholder,omitempty"`
}

func (b Booking) Range() DateRange {
	return DateRange{Start: b.StartDate, End: b.EndDate}
}

// Active bookings hold the room: confirmed stays and unpaid pending ones.
func (b Booking) Active() bool {
	return b.Status == StatusConfirmed || b.Status == StatusPending
}

type AvailabilityResult struct {
	RoomID            int        `json:"room_id"`
	Range             DateRange  `json:"range"`
	IsAvailable       bool       `json:"is_available"`
	Status            RoomStatus `json:"status"`
	CurrentBooking    *Booking   `json:"current_booking,omitempty"`
	NextAvailableDate Date       `json:"next_available_date,omitempty"`
	UpcomingBookings  []Booking  `json:"upcoming_bookings,omitempty"`
	Checking          bool       `json:"checking"`
	Source            string     `json:"source,omitempty"`
}

type SameDayAvailability struct {
	RoomID                   int                `json:"room_id,omitempty"`
	Date                     Date               `json:"date,omitempty"`
	CanBookToday             bool               `json:"can_book_today"`
	EarlyCheckout            bool               `json:"early_checkout"`
	HousekeepingStatus       HousekeepingStatus `json:"housekeeping_status,omitempty"`
	CheckoutTime             string             `json:"checkout_time,omitempty"`
	HousekeepingCompleteTime string             `json:"housekeeping_complete_time,omitempty"`
	EarliestBookingTime      string             `json:"earliest_booking_time"`
	Message                  string             `json:"message"`
	PreviousBooking          *Booking           `json:"previous_booking,omitempty"`
	Heuristic                bool               `json:"heuristic,omitempty"`
}

type GuestContact struct {
	Name  string `json:"name"  validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,phone"`
}

func (g GuestContact) Empty() bool {
	return g.Name == "" && g.Email == "" && g.Phone == ""
}

type BookingDraft struct {
	ID              string        `json:"id,omitempty"`
	HomestayID      int           `json:"homestay_id,omitempty"`
	RoomID          int           `json:"room_id"          validate:"required,gt=0"`
	StartDate       Date          `json:"start_date"       validate:"required"`
	EndDate         Date          `json:"end_date"         validate:"required"`
	Guests          int           `json:"guests"           validate:"required,gt=0"`
	Guest           GuestContact  `json:"guest"            validate:"-"`
	PaymentMethod   PaymentMethod `json:"payment_method"   validate:"required,oneof=bank_transfer credit_card e_wallet pay_on_arrival"`
	SpecialRequests string        `json:"special_requests,omitempty"`
	NightlyPrice    float64       `json:"nightly_price,omitempty"`
}

func (d BookingDraft) Range() DateRange {
	return DateRange{Start: d.StartDate, End: d.EndDate}
}

type BookingConfirmation struct {
	ID            int     `json:"id"`
	BookingNumber string  `json:"booking_number"`
	RoomID        int     `json:"room_id"`
	StartDate     Date    `json:"start_date"`
	EndDate       Date    `json:"end_date"`
	Status        Status  `json:"status"`
	PaymentStatus string  `json:"payment_status"`
	TotalPrice    float64 `json:"total_price,omitempty"`
	GuestBooking  bool    `json:"guest_booking"`
}
