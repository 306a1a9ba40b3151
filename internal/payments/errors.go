package payments

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrGateway wraps every failure talking to the payment processor
	ErrGateway = errors.New("payment gateway error")

	ErrPaymentNotFound  = errors.New("payment not found")
	ErrMissingPaymentID = errors.New("payment id is required")
)

// APIError is a non-2xx answer from the processor
type APIError struct {
	StatusCode int
	Message    string
	Cause      string
}

func (e *APIError) Error() string {
	if e.Cause != "" {
		return fmt.Sprintf("mercado pago: status %d: %s (%s)", e.StatusCode, e.Message, e.Cause)
	}
	return fmt.Sprintf("mercado pago: status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return ErrGateway
}

// Is lets errors.Is(err, ErrPaymentNotFound) match a 404
func (e *APIError) Is(target error) bool {
	return target == ErrPaymentNotFound && e.StatusCode == http.StatusNotFound
}
