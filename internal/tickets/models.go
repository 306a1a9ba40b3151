package tickets

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusAvailable Status = "available"
	StatusReserved  Status = "reserved"
	StatusSold      Status = "sold"
)

// IsValid checks if the ticket status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusAvailable, StatusReserved, StatusSold:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is allowed from s.
func (s Status) IsTerminal() bool {
	return s == StatusSold
}

// Ticket is one raffle number and its current status
type Ticket struct {
	Number string `json:"number"`
	Status Status `json:"status"`
}

// Reservation is the hold record of a reserved ticket.
// It exists exactly while the ticket is reserved.
type Reservation struct {
	Number    string    `json:"number"`
	HolderID  string    `json:"holder_id"`
	BatchID   string    `json:"batch_id"`
	CreatedAt time.Time `json:"created_at"`
	// Locked is set while a payment attempt owns the reservation
	Locked bool `json:"locked"`
}

// Batch groups the numbers reserved by one successful reserve call.
// Expiry is tracked per batch.
type Batch struct {
	ID        string    `json:"batch_id"`
	HolderID  string    `json:"holder_id"`
	Numbers   []string  `json:"numbers"`
	CreatedAt time.Time `json:"created_at"`
}

// Stats counts tickets per status
type Stats struct {
	Total        int `json:"total"`
	Available    int `json:"available"`
	Reserved     int `json:"reserved"`
	Sold         int `json:"sold"`
	Reservations int `json:"reservations"`
}

// FormatNumber renders n as a zero-padded ticket number of the given width.
func FormatNumber(n, width int) string {
	return fmt.Sprintf("%0*d", width, n)
}
