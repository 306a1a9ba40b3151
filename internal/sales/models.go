package sales

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusApproved Status = "approved"
	StatusPending  Status = "pending"
	StatusRejected Status = "rejected"
	StatusError    Status = "error"
	// approved by the processor after the numbers were no longer held
	StatusConflict Status = "conflict"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusApproved, StatusPending, StatusRejected, StatusError, StatusConflict:
		return true
	}
	return false
}

type Method string

const (
	MethodCard Method = "card"
	MethodPix  Method = "pix"
)

// Sale is the audit record of one payment attempt. The in-memory inventory
// stays the source of truth for ticket status.
type Sale struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PaymentID  string    `gorm:"type:varchar(64);index" json:"payment_id"`
	Method     Method    `gorm:"type:varchar(10);not null" json:"method"`
	HolderID   string    `gorm:"type:varchar(255);index;not null" json:"holder_id"`
	Numbers    string    `gorm:"type:text;not null" json:"numbers"`
	Amount     float64   `gorm:"not null" json:"amount"`
	BuyerName  string    `gorm:"type:varchar(255)" json:"buyer_name"`
	BuyerPhone string    `gorm:"type:varchar(50)" json:"buyer_phone"`
	Status     Status    `gorm:"type:varchar(20);check:status IN ('approved', 'pending', 'rejected', 'error', 'conflict');not null" json:"status"`
	Detail     string    `gorm:"type:text" json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName sets the table name for Sale
func (Sale) TableName() string {
	return "sales"
}

// NewSale builds a ledger row for numbers bought by holderID
func NewSale(method Method, holderID string, numbers []string, amount float64) *Sale {
	return &Sale{
		ID:       uuid.New(),
		Method:   method,
		HolderID: holderID,
		Numbers:  JoinNumbers(numbers),
		Amount:   amount,
		Status:   StatusPending,
	}
}

// NumberList splits the stored numbers back into a slice
func (s *Sale) NumberList() []string {
	if s.Numbers == "" {
		return nil
	}
	return strings.Split(s.Numbers, ",")
}

func JoinNumbers(numbers []string) string {
	return strings.Join(numbers, ",")
}
