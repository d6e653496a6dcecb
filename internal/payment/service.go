// Package payment defines the abstract payment collaborator the worker
// calls while handling an OrderCreated event, and a randomized stand-in
// implementation. The real payment execution is out of scope;
// SimulatedService exists only to exercise the worker's retry and
// terminal-state logic end to end.
package payment

import (
	"context"
	"math/rand"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the outcome of a payment attempt.
type Status string

const (
	StatusApproved Status = "APPROVED"
	StatusDeclined Status = "DECLINED"
)

// TransientError marks a failure the caller should retry, as distinct
// from a Declined outcome, which is a final business decision and not
// retried.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient payment error: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Service is the external payment collaborator. Implementations must not
// block indefinitely; ctx is the worker's handler context, to which the
// worker adds no deadline of its own.
type Service interface {
	// Charge attempts to collect amount for orderID. A non-nil error that
	// is a *TransientError should be retried; any other non-nil error is
	// a terminal decline.
	Charge(ctx context.Context, orderID uuid.UUID, amount decimal.Decimal) (Status, error)
}

// SimulatedConfig controls the odds SimulatedService uses to manufacture
// outcomes.
type SimulatedConfig struct {
	// TransientRate is the probability [0,1) that an attempt fails with a
	// retryable TransientError.
	TransientRate float64
	// DeclineRate is the probability [0,1) that an attempt is declined
	// outright (checked after TransientRate).
	DeclineRate float64
}

// DefaultSimulatedConfig matches the odds the worker's retry/DLQ paths
// need to be exercised by tests without making every run flaky.
var DefaultSimulatedConfig = SimulatedConfig{
	TransientRate: 0.1,
	DeclineRate:   0.05,
}

type simulatedService struct {
	cfg  SimulatedConfig
	rand *rand.Rand
}

// NewSimulated returns a Service that randomly approves, declines, or
// transiently fails, per cfg.
func NewSimulated(cfg SimulatedConfig, seed int64) Service {
	return &simulatedService{cfg: cfg, rand: rand.New(rand.NewSource(seed))}
}

func (s *simulatedService) Charge(ctx context.Context, orderID uuid.UUID, amount decimal.Decimal) (Status, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	roll := s.rand.Float64()
	switch {
	case roll < s.cfg.TransientRate:
		return "", &TransientError{Err: errTransientUnavailable}
	case roll < s.cfg.TransientRate+s.cfg.DeclineRate:
		return StatusDeclined, nil
	default:
		return StatusApproved, nil
	}
}
