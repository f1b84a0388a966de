package submission

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/lusya00/thesis-frontend-sub000/internal/booking"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ()-]{5,19}$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0] //nolint:gomnd
		if name == "-" || name == "" {
			return field.Name
		}

		return name
	})

	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})

	return v
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "provide valid email"
	case "phone":
		return "provide valid phone number"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func collect(inputErr *booking.InputError, prefix string, err error) {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		if err != nil {
			inputErr.AddError(strings.TrimSuffix(prefix, "."), err.Error())
		}

		return
	}

	for _, fe := range fieldErrs {
		inputErr.AddError(prefix+fe.Field(), messageFor(fe))
	}
}

// validateDraft runs every local check. Nothing here touches the network.
func (s *Submitter) validateDraft(draft *booking.BookingDraft, guest bool) error {
	inputErr := booking.NewInputError()

	collect(inputErr, "", s.validate.Struct(draft))

	if !draft.StartDate.IsZero() && !draft.EndDate.IsZero() {
		if err := draft.Range().Validate(booking.DateOf(s.now())); err != nil {
			inputErr.AddError("end_date", err.Error())
		}
	}

	if guest {
		contact := draft.Guest

		collect(inputErr, "guest.", s.validate.Struct(contact))

		minName := fmt.Sprintf("min=%d", s.conf.MinNameLength)
		if err := s.validate.Var(strings.TrimSpace(contact.Name), minName); err != nil && contact.Name != "" {
			inputErr.AddError("guest.name", fmt.Sprintf("must be at least %d characters", s.conf.MinNameLength))
		}
	}

	if inputErr.FieldsCount() > 0 {
		return inputErr
	}

	return nil
}
