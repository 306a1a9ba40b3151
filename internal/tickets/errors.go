package tickets

import (
	"errors"
	"strings"
)

var (
	ErrNoNumbers          = errors.New("no ticket numbers requested")
	ErrHolderRequired     = errors.New("holder id is required")
	ErrDuplicateNumber    = errors.New("duplicate ticket number")
	ErrUnknownNumber      = errors.New("unknown ticket number")
	ErrNumbersUnavailable = errors.New("ticket numbers not available")
	ErrInvalidOutcome     = errors.New("invalid finalize outcome")
)

// UnavailableError lists the requested numbers that could not be reserved.
type UnavailableError struct {
	Numbers []string
}

func (e *UnavailableError) Error() string {
	return ErrNumbersUnavailable.Error() + ": " + strings.Join(e.Numbers, ", ")
}

func (e *UnavailableError) Unwrap() error {
	return ErrNumbersUnavailable
}

// UnavailableNumbers extracts the conflicting numbers from err, if any.
func UnavailableNumbers(err error) []string {
	var ue *UnavailableError
	if errors.As(err, &ue) {
		return ue.Numbers
	}
	return nil
}
