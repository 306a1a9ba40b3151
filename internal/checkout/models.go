package checkout

import (
	"strings"

	"raffle/internal/payments"
	"raffle/internal/sales"
	"raffle/internal/tickets"
)

// Buyer is who the numbers are sold to
type Buyer struct {
	Name  string
	Phone string
}

// CardPayment carries the token produced by the browser widget
type CardPayment struct {
	Amount       float64 // zero when the client did not send one
	Token        string
	MethodID     string
	IssuerID     string
	Installments int
}

type CardCheckout struct {
	HolderID       string
	Numbers        []string
	Buyer          Buyer
	Payment        CardPayment
	IdempotencyKey string
}

type PixCheckout struct {
	HolderID       string
	Numbers        []string
	Buyer          Buyer
	Amount         float64
	IdempotencyKey string
}

// PixResult is what the buyer needs to complete the transfer
type PixResult struct {
	PaymentID    string
	Status       payments.Status
	QRCode       string
	QRCodeBase64 string
}

// Overview summarises the inventory and in-flight work for operators
type Overview struct {
	Tickets          tickets.Stats `json:"tickets"`
	ScheduledBatches int           `json:"scheduled_batches"`
	PendingPayments  int           `json:"pending_payments"`
	ActivePolls      int           `json:"active_polls"`
}

// pendingPayment links a payment that is not final yet to the batch it pays for
type pendingPayment struct {
	paymentID string
	method    sales.Method
	batch     tickets.Batch
}

func describeNumbers(numbers []string) string {
	return "Compra de números: " + strings.Join(numbers, ", ")
}

// splitName turns "Maria da Silva" into ("Maria", "da Silva")
func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

func salesStatus(s payments.Status) sales.Status {
	switch s {
	case payments.StatusApproved:
		return sales.StatusApproved
	case payments.StatusPending:
		return sales.StatusPending
	default:
		return sales.StatusRejected
	}
}
