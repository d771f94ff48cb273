package voucher

import (
	"errors" // Error inspection
	"fmt"    // Message formatting
)

// ValidationError reports an input that fails a business rule. It is raised
// before any store write, so a failed mutation leaves the voucher unchanged.
type ValidationError struct {
	Msg string // Human-readable reason, shown inline to the user
}

// Error implements the error interface
func (e *ValidationError) Error() string { return e.Msg }

// validationf builds a ValidationError from a format string
func validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
