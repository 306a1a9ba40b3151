package checkout

import "errors"

var (
	ErrInvalidRequest  = errors.New("invalid checkout request")
	ErrAmountMismatch  = errors.New("amount does not match the selected numbers")
	ErrPaymentRejected = errors.New("payment rejected")
)
