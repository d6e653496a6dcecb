package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DeadLetterRecord is the poison sink. Inserted once per event that
// exhausts the worker's retry budget; never removed automatically.
type DeadLetterRecord struct {
	EventID     uuid.UUID
	EventType   string
	AggregateID uuid.UUID
	Payload     json.RawMessage
	FailedAt    time.Time
	Reason      string
}
