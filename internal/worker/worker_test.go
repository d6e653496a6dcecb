package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ordertx/internal/domain"
	"ordertx/internal/metrics"
	"ordertx/internal/payment"
)

// fakeOrders, fakeOutbox, fakeDedup and fakeDLQ are in-memory stand-ins
// for the repository interfaces, letting the handler's control flow be
// exercised without a database except for the one real transaction S3
// opens (backed here by sqlmock).
type fakeOrders struct {
	order     *domain.Order
	advanceOK bool
	commitOK  bool
}

func (f *fakeOrders) GetByID(ctx context.Context, q domain.Querier, id uuid.UUID) (*domain.Order, error) {
	return f.order, nil
}

func (f *fakeOrders) Insert(ctx context.Context, q domain.Querier, order *domain.Order) error {
	return nil
}

func (f *fakeOrders) AdvanceToPaymentPending(ctx context.Context, q domain.Querier, orderID uuid.UUID) (int64, bool, error) {
	if !f.advanceOK {
		return 0, false, nil
	}
	f.order.Status = domain.OrderStatusPaymentPending
	return f.order.Version + 1, true, nil
}

func (f *fakeOrders) CommitTerminal(ctx context.Context, q domain.Querier, orderID uuid.UUID, status domain.OrderStatus, expectedVersion int64) (bool, error) {
	if !f.commitOK {
		return false, nil
	}
	f.order.Status = status
	return true, nil
}

type fakeOutbox struct {
	inserted []domain.OutboxRecord
}

func (f *fakeOutbox) Insert(ctx context.Context, q domain.Querier, rec *domain.OutboxRecord) error {
	f.inserted = append(f.inserted, *rec)
	return nil
}
func (f *fakeOutbox) FetchPendingBatch(ctx context.Context, tx *sql.Tx, limit int) ([]domain.OutboxRecord, error) {
	return nil, nil
}
func (f *fakeOutbox) MarkPublished(ctx context.Context, q domain.Querier, id int64) error { return nil }

type fakeDedup struct {
	processed map[string]bool
	inserted  []domain.ProcessedEventKey
}

func newFakeDedup() *fakeDedup { return &fakeDedup{processed: map[string]bool{}} }

func (f *fakeDedup) Exists(ctx context.Context, q domain.Querier, eventID uuid.UUID, workerKind string) (bool, error) {
	return f.processed[eventID.String()+workerKind], nil
}

func (f *fakeDedup) Insert(ctx context.Context, q domain.Querier, key domain.ProcessedEventKey) error {
	f.processed[key.EventID.String()+key.WorkerKind] = true
	f.inserted = append(f.inserted, key)
	return nil
}

type fakeDLQ struct {
	inserted []domain.DeadLetterRecord
	failNext bool
}

func (f *fakeDLQ) Insert(ctx context.Context, q domain.Querier, rec domain.DeadLetterRecord) error {
	if f.failNext {
		return errors.New("dlq write failed")
	}
	f.inserted = append(f.inserted, rec)
	return nil
}

type fakePayments struct {
	status payment.Status
	err    error
}

func (f *fakePayments) Charge(ctx context.Context, orderID uuid.UUID, amount decimal.Decimal) (payment.Status, error) {
	return f.status, f.err
}

func newTestMetrics() *metrics.WorkerMetrics {
	return metrics.NewWorkerMetrics(prometheus.NewRegistry())
}

func envelopeFor(orderID uuid.UUID, eventID uuid.UUID) domain.Envelope {
	payloadBytes, _ := json.Marshal(domain.OrderCreatedPayload{OrderID: orderID, UserID: uuid.New(), Amount: "10.00"})
	return domain.Envelope{
		EventID:       eventID,
		EventType:     domain.EventTypeOrderCreated,
		AggregateType: domain.AggregateTypeOrder,
		AggregateID:   orderID,
		Payload:       payloadBytes,
		CreatedAt:     time.Now().UTC(),
	}
}

func TestWorker_Handle_IgnoresNonOrderCreated(t *testing.T) {
	w := &Worker{counters: &Counters{}, metrics: newTestMetrics(), logger: zap.NewNop()}
	envelope := domain.Envelope{EventType: domain.EventTypeOrderPaid, AggregateID: uuid.New(), EventID: uuid.New()}
	body, _ := json.Marshal(envelope)

	err := w.Handle(context.Background(), kafka.Message{Value: body})
	require.NoError(t, err)
}

func TestWorker_CommitTerminal_PaidOnApproval(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orderID := uuid.New()
	order := &domain.Order{ID: orderID, Status: domain.OrderStatusPaymentPending, Version: 1}

	mock.ExpectBegin()
	mock.ExpectCommit()

	ordersRepo := &fakeOrders{order: order, advanceOK: true, commitOK: true}
	outbox := &fakeOutbox{}
	dedupRepo := newFakeDedup()

	w := New(db, ordersRepo, outbox, dedupRepo, &fakeDLQ{}, &fakePayments{status: payment.StatusApproved}, newTestMetrics(), &Counters{}, zap.NewNop(), Config{MaxRetries: 3, RetryBackoff: time.Millisecond})

	envelope := envelopeFor(orderID, uuid.New())
	err = w.handleOrderCreated(context.Background(), envelope)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusPaid, order.Status)
	require.Len(t, outbox.inserted, 1)
	require.Equal(t, domain.EventTypeOrderPaid, outbox.inserted[0].EventType)
	require.Len(t, dedupRepo.inserted, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWorker_CommitTerminal_FailedOnDecline(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orderID := uuid.New()
	order := &domain.Order{ID: orderID, Status: domain.OrderStatusPaymentPending, Version: 1}

	mock.ExpectBegin()
	mock.ExpectCommit()

	ordersRepo := &fakeOrders{order: order, advanceOK: true, commitOK: true}
	outbox := &fakeOutbox{}

	w := New(db, ordersRepo, outbox, newFakeDedup(), &fakeDLQ{}, &fakePayments{status: payment.StatusDeclined}, newTestMetrics(), &Counters{}, zap.NewNop(), Config{MaxRetries: 3, RetryBackoff: time.Millisecond})

	envelope := envelopeFor(orderID, uuid.New())
	err = w.handleOrderCreated(context.Background(), envelope)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusFailed, order.Status)
	require.Equal(t, domain.EventTypeOrderFailed, outbox.inserted[0].EventType)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWorker_Handle_DuplicateSkipsProcessing(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orderID := uuid.New()
	eventID := uuid.New()
	order := &domain.Order{ID: orderID, Status: domain.OrderStatusPaid, Version: 2}

	dedupRepo := newFakeDedup()
	dedupRepo.processed[eventID.String()+domain.WorkerKindPayment] = true

	ordersRepo := &fakeOrders{order: order}
	outbox := &fakeOutbox{}

	w := New(db, ordersRepo, outbox, dedupRepo, &fakeDLQ{}, &fakePayments{status: payment.StatusApproved}, newTestMetrics(), &Counters{}, zap.NewNop(), Config{MaxRetries: 3, RetryBackoff: time.Millisecond})

	envelope := envelopeFor(orderID, eventID)
	err = w.handleOrderCreated(context.Background(), envelope)
	require.NoError(t, err)
	require.Empty(t, outbox.inserted)
	require.Equal(t, domain.OrderStatusPaid, order.Status)
}

func TestWorker_Handle_StateConflictReturnsSuccess(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orderID := uuid.New()
	order := &domain.Order{ID: orderID, Status: domain.OrderStatusPaymentPending, Version: 1}

	ordersRepo := &fakeOrders{order: order, advanceOK: false}
	outbox := &fakeOutbox{}

	w := New(db, ordersRepo, outbox, newFakeDedup(), &fakeDLQ{}, &fakePayments{status: payment.StatusApproved}, newTestMetrics(), &Counters{}, zap.NewNop(), Config{MaxRetries: 3, RetryBackoff: time.Millisecond})

	envelope := envelopeFor(orderID, uuid.New())
	err = w.handleOrderCreated(context.Background(), envelope)
	require.NoError(t, err)
	require.Empty(t, outbox.inserted)
}

func TestWorker_RunWithRetry_ExhaustsAndDeadLetters(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orderID := uuid.New()
	order := &domain.Order{ID: orderID, Status: domain.OrderStatusCreated, Version: 0}

	ordersRepo := &fakeOrders{order: order, advanceOK: true}
	dlq := &fakeDLQ{}
	transientPayments := &fakePayments{err: &payment.TransientError{Err: errors.New("collaborator down")}}

	w := New(db, ordersRepo, &fakeOutbox{}, newFakeDedup(), dlq, transientPayments, newTestMetrics(), &Counters{}, zap.NewNop(), Config{MaxRetries: 3, RetryBackoff: time.Millisecond})

	envelope := envelopeFor(orderID, uuid.New())
	err = w.runWithRetry(context.Background(), envelope)
	require.NoError(t, err)
	require.Len(t, dlq.inserted, 1)
	require.Equal(t, envelope.EventID, dlq.inserted[0].EventID)
}

func TestWorker_DeadLetter_InsertFailureDoesNotPropagate(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dlq := &fakeDLQ{failNext: true}
	w := New(db, &fakeOrders{}, &fakeOutbox{}, newFakeDedup(), dlq, &fakePayments{}, newTestMetrics(), &Counters{}, zap.NewNop(), Config{MaxRetries: 1, RetryBackoff: time.Millisecond})

	w.deadLetter(context.Background(), envelopeFor(uuid.New(), uuid.New()), errors.New("boom"))
	require.Empty(t, dlq.inserted)
}
