package utils

import (
	"fmt"
	"net/http"
)

// StatusError is a non-2xx reply from the attendance backend.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("Code: %d, Message: %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("Code: %d, Message: %s", e.Code, e.Message)
}

// Unauthorized reports whether the backend rejected the session.
func (e *StatusError) Unauthorized() bool {
	return e.Code == http.StatusUnauthorized
}

func New(code int, message string) error {
	return &StatusError{
		Code:    code,
		Message: message,
	}
}
