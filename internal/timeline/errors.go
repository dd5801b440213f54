package timeline

import (
	"errors"
	"fmt"
)

var (
	ErrTrackNotFound = errors.New("track not found")
	ErrEventNotFound = errors.New("event not found")
)

// ValidationError rejects a whole requested operation (malformed recurring
// rule, inverted time window, ...). No partial state change happens when one
// is returned.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "validation: " + e.Reason }

// Validationf builds a *ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is one of the not-found sentinels. Callers
// treat these as recoverable: surfaced as a message, never fatal.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTrackNotFound) || errors.Is(err, ErrEventNotFound)
}
