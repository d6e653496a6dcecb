package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type tags dispatched on by the worker and written by the
// ingress and worker write paths.
const (
	EventTypeOrderCreated = "OrderCreated"
	EventTypeOrderPaid    = "OrderPaid"
	EventTypeOrderFailed  = "OrderFailed"

	AggregateTypeOrder = "order"
)

// OutboxRecord is a row in the outbox table. Payload is an opaque JSON
// blob — the outbox itself never parses it; only the worker's handler
// knows how to interpret a given EventType's payload.
type OutboxRecord struct {
	ID            int64
	EventID       uuid.UUID
	AggregateType string
	AggregateID   uuid.UUID
	EventType     string
	Payload       json.RawMessage
	Published     bool
	PublishedAt   *time.Time
	CreatedAt     time.Time
}

// NewOutboxRecord builds a pending outbox row with a fresh event id. The
// caller is responsible for inserting it in the same transaction as the
// aggregate mutation it describes.
func NewOutboxRecord(aggregateType string, aggregateID uuid.UUID, eventType string, payload any) (*OutboxRecord, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &OutboxRecord{
		EventID:       uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       body,
		Published:     false,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// Envelope is the canonical wire format published to the broker,
// authoritative for every consumer of topic order-events.
type Envelope struct {
	EventID       uuid.UUID       `json:"eventId"`
	EventType     string          `json:"eventType"`
	AggregateType string          `json:"aggregateType"`
	AggregateID   uuid.UUID       `json:"aggregateId"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// ToEnvelope renders the canonical broker envelope for this outbox row.
func (r *OutboxRecord) ToEnvelope() Envelope {
	return Envelope{
		EventID:       r.EventID,
		EventType:     r.EventType,
		AggregateType: r.AggregateType,
		AggregateID:   r.AggregateID,
		Payload:       r.Payload,
		CreatedAt:     r.CreatedAt,
	}
}

// OrderCreatedPayload is the typed payload for an OrderCreated event.
type OrderCreatedPayload struct {
	OrderID uuid.UUID `json:"orderId"`
	UserID  uuid.UUID `json:"userId"`
	Amount  string    `json:"amount"`
}

// AmountDecimal parses Amount into a decimal.Decimal.
func (p OrderCreatedPayload) AmountDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(p.Amount)
}

// OrderTerminalPayload is the typed payload for OrderPaid/OrderFailed.
type OrderTerminalPayload struct {
	OrderID uuid.UUID `json:"orderId"`
}
