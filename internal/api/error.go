package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrAuthRequired = errors.New("authenticated session required")
)

// Error is a non-2xx (or success=false) answer of the backend.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}

	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, msg)
}

func (e *Error) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}

	return nil
}

func IsError(err error) *Error {
	if err == nil {
		return nil
	}

	var apiErr *Error

	if errors.As(err, &apiErr) {
		return apiErr
	}

	return nil
}
