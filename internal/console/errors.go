package console

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBusy is returned when a form already has a submit in flight.
	ErrBusy = errors.New("console: operation already in progress")

	// ErrNoEditor is returned when an operation targets a modal that is
	// not open.
	ErrNoEditor = errors.New("console: no editor open")

	// ErrUnknownTab is returned for a tab outside the known set.
	ErrUnknownTab = errors.New("console: unknown tab")
)

// ValidationError is a client-side required-field failure. It blocks
// submission: no backend call is made.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("console: required fields missing: %s", strings.Join(e.Fields, ", "))
}

// IsValidation reports whether err is a client-side validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
