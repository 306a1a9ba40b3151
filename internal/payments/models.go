package payments

import "strings"

// Status is the normalised outcome of a payment
type Status string

const (
	StatusApproved Status = "approved"
	StatusPending  Status = "pending"
	StatusRejected Status = "rejected"
)

func (s Status) String() string {
	return string(s)
}

// IsFinal reports whether the status no longer changes
func (s Status) IsFinal() bool {
	return s == StatusApproved || s == StatusRejected
}

// NormalizeStatus maps a processor status onto approved, pending or rejected.
// Anything the processor does not report as approved or still in progress
// (rejected, cancelled, refunded, charged_back, unknown) counts as rejected.
func NormalizeStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "approved":
		return StatusApproved
	case "pending", "in_process", "authorized", "in_mediation":
		return StatusPending
	default:
		return StatusRejected
	}
}

// Method ids understood by the processor
const (
	MethodPix = "pix"
)

// Payer identifies the buyer towards the processor
type Payer struct {
	Email                string
	FirstName            string
	LastName             string
	IdentificationType   string
	IdentificationNumber string
}

// PaymentRequest is what the checkout submits for a new payment
type PaymentRequest struct {
	Amount            float64
	Token             string
	Description       string
	MethodID          string
	IssuerID          string
	Installments      int
	Payer             Payer
	ExternalReference string
	IdempotencyKey    string
}

// Payment is the processor's view of a payment
type Payment struct {
	ID           string
	Status       Status
	RawStatus    string
	StatusDetail string
	QRCode       string
	QRCodeBase64 string
}
