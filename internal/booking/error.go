package booking

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDate  = errors.New("invalid date")
	ErrInvalidRange = errors.New("invalid date range")
	ErrNotFound     = errors.New("record not found")
)

// UnavailableRoomError is a local rejection: the last known status of the
// room does not allow booking it.
type UnavailableRoomError struct {
	RoomID int
	Status RoomStatus
}

func (e *UnavailableRoomError) Error() string {
	return fmt.Sprintf("room %d is currently %s and cannot be booked", e.RoomID, e.Status)
}

func IsUnavailableRoomError(err error) *UnavailableRoomError {
	if err == nil {
		return nil
	}

	var unavailableErr *UnavailableRoomError

	if errors.As(err, &unavailableErr) {
		return unavailableErr
	}

	return nil
}

type InputError struct {
	fields map[string][]string
}

func NewInputError() *InputError {
	return &InputError{
		fields: make(map[string][]string),
	}
}

func IsInputError(err error) *InputError {
	if err == nil {
		return nil
	}

	var inputError *InputError

	if errors.As(err, &inputError) {
		return inputError
	}

	return nil
}

func (ie *InputError) FieldsCount() int {
	return len(ie.fields)
}

func (ie *InputError) AddError(field, msg string) {
	ie.fields[field] = append(ie.fields[field], msg)
}

func (ie *InputError) Error() string {
	return fmt.Sprintf("%+v", ie.fields)
}

func (ie *InputError) Fields() map[string][]string {
	return ie.fields
}
