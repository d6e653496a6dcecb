package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is one of the four permitted states in the order state
// machine: CREATED -> PAYMENT_PENDING -> (PAID|FAILED).
type OrderStatus string

const (
	OrderStatusCreated        OrderStatus = "CREATED"
	OrderStatusPaymentPending OrderStatus = "PAYMENT_PENDING"
	OrderStatusPaid           OrderStatus = "PAID"
	OrderStatusFailed         OrderStatus = "FAILED"
)

// IsTerminal reports whether no further transitions are permitted from s.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusPaid || s == OrderStatusFailed
}

// Order is the core aggregate. Version increments by exactly 1 on every
// accepted update and guards every conditional update against lost
// updates without holding a lock.
type Order struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Amount    decimal.Decimal
	Status    OrderStatus
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewOrder constructs a fresh order in state CREATED with version 0.
// amount must be strictly positive and is rounded to 2 decimal places
// (the platform's fixed-point width).
func NewOrder(userID uuid.UUID, amount decimal.Decimal) (*Order, error) {
	if userID == uuid.Nil {
		return nil, ErrValidation
	}
	if amount.Cmp(decimal.Zero) <= 0 {
		return nil, ErrValidation
	}
	now := time.Now().UTC()
	return &Order{
		ID:        uuid.New(),
		UserID:    userID,
		Amount:    amount.Round(2),
		Status:    OrderStatusCreated,
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
