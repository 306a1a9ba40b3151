package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Ticket lifecycle events published for downstream consumers
type EventType string

const (
	EventTypeTicketsSold     EventType = "TICKETS_SOLD"
	EventTypeTicketsReleased EventType = "TICKETS_RELEASED"
	EventTypePaymentConflict EventType = "PAYMENT_CONFLICT"
)

type TicketEvent struct {
	ID         uuid.UUID `json:"id"`
	Type       EventType `json:"type"`
	Numbers    []string  `json:"numbers"`
	HolderID   string    `json:"holder_id,omitempty"`
	BatchID    string    `json:"batch_id,omitempty"`
	PaymentID  string    `json:"payment_id,omitempty"`
	Method     string    `json:"method,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type EventBuilder struct {
	event *TicketEvent
}

func NewEventBuilder(eventType EventType) *EventBuilder {
	return &EventBuilder{
		event: &TicketEvent{
			ID:         uuid.New(),
			Type:       eventType,
			OccurredAt: time.Now().UTC(),
		},
	}
}

func (eb *EventBuilder) WithNumbers(numbers []string) *EventBuilder {
	eb.event.Numbers = append([]string(nil), numbers...)
	return eb
}

func (eb *EventBuilder) WithHolder(holderID string) *EventBuilder {
	eb.event.HolderID = holderID
	return eb
}

func (eb *EventBuilder) WithBatch(batchID string) *EventBuilder {
	eb.event.BatchID = batchID
	return eb
}

func (eb *EventBuilder) WithPayment(paymentID, method string) *EventBuilder {
	eb.event.PaymentID = paymentID
	eb.event.Method = method
	return eb
}

func (eb *EventBuilder) WithReason(reason string) *EventBuilder {
	eb.event.Reason = reason
	return eb
}

func (eb *EventBuilder) At(t time.Time) *EventBuilder {
	eb.event.OccurredAt = t
	return eb
}

func (eb *EventBuilder) Build() *TicketEvent {
	return eb.event
}

// GetPartitionKey keeps every event of one holder on the same partition.
// Releases by the scheduler carry no holder and fall back to the batch.
func (te *TicketEvent) GetPartitionKey() string {
	if te.HolderID != "" {
		return te.HolderID
	}
	if te.BatchID != "" {
		return te.BatchID
	}
	return te.ID.String()
}

func (te *TicketEvent) ToJSON() ([]byte, error) {
	return json.Marshal(te)
}
