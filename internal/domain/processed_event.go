package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProcessedEventKey is the consumer-side dedup ledger entry. Its
// existence for (EventID, WorkerKind) means that worker kind has reached
// a commit point for that event — scoped per kind so independent
// consumer pipelines can each process the same event exactly once.
type ProcessedEventKey struct {
	EventID     uuid.UUID
	WorkerKind  string
	ProcessedAt time.Time
}

// WorkerKindPayment is the dedup scope for the payment event worker.
const WorkerKindPayment = "payment-worker"
