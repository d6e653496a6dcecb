package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOutboxRecord(t *testing.T) {
	aggregateID := uuid.New()
	payload := OrderCreatedPayload{OrderID: aggregateID, UserID: uuid.New(), Amount: "10.00"}

	rec, err := NewOutboxRecord(AggregateTypeOrder, aggregateID, EventTypeOrderCreated, payload)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, rec.EventID)
	assert.Equal(t, AggregateTypeOrder, rec.AggregateType)
	assert.Equal(t, aggregateID, rec.AggregateID)
	assert.Equal(t, EventTypeOrderCreated, rec.EventType)
	assert.False(t, rec.Published)
	assert.Nil(t, rec.PublishedAt)

	var decoded OrderCreatedPayload
	require.NoError(t, json.Unmarshal(rec.Payload, &decoded))
	assert.Equal(t, payload, decoded)
}

func TestOutboxRecord_ToEnvelope(t *testing.T) {
	aggregateID := uuid.New()
	rec, err := NewOutboxRecord(AggregateTypeOrder, aggregateID, EventTypeOrderPaid, OrderTerminalPayload{OrderID: aggregateID})
	require.NoError(t, err)

	envelope := rec.ToEnvelope()
	assert.Equal(t, rec.EventID, envelope.EventID)
	assert.Equal(t, rec.EventType, envelope.EventType)
	assert.Equal(t, rec.AggregateType, envelope.AggregateType)
	assert.Equal(t, rec.AggregateID, envelope.AggregateID)
	assert.JSONEq(t, string(rec.Payload), string(envelope.Payload))
}

func TestOrderCreatedPayload_AmountDecimal(t *testing.T) {
	payload := OrderCreatedPayload{Amount: "42.50"}
	amount, err := payload.AmountDecimal()
	require.NoError(t, err)
	assert.Equal(t, "42.5", amount.String())
}
