package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbox/payhook/internal/domain"
	"github.com/finbox/payhook/internal/gateway"
	"github.com/finbox/payhook/internal/repository/memory"
)

// countingGateway records how many times the side effect ran
type countingGateway struct {
	calls int64
	err   error
}

func (g *countingGateway) Execute(context.Context, *domain.Transaction) error {
	atomic.AddInt64(&g.calls, 1)
	return g.err
}

// capturingPublisher collects published events
type capturingPublisher struct {
	events []*domain.TransactionEvent
}

func (p *capturingPublisher) Publish(event *domain.TransactionEvent) error {
	p.events = append(p.events, event)
	return nil
}

func seedTransaction(t *testing.T, store *memory.TransactionStore, id string) {
	t.Helper()
	_, err := store.CreateIfAbsent(context.Background(), newStoredTransaction(id))
	require.NoError(t, err)
}

func newStoredTransaction(id string) *domain.Transaction {
	p := validPayload(id)
	return &domain.Transaction{
		TransactionID:      p.TransactionID,
		SourceAccount:      p.SourceAccount,
		DestinationAccount: p.DestinationAccount,
		Amount:             p.Amount,
		Currency:           p.Currency,
		Status:             domain.StatusProcessing,
		CreatedAt:          time.Now().UTC(),
	}
}

func TestProcessTransactionSucceeds(t *testing.T) {
	store := memory.NewTransactionStore()
	gw := &countingGateway{}
	publisher := &capturingPublisher{}
	uc := NewProcessUsecase(store, gw, publisher)
	ctx := context.Background()

	seedTransaction(t, store, "tx-1")

	require.NoError(t, uc.ProcessTransaction(ctx, "tx-1"))

	tx, err := store.GetByTransactionID(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessed, tx.Status)
	require.NotNil(t, tx.ProcessedAt)
	assert.Equal(t, int64(1), atomic.LoadInt64(&gw.calls))

	require.Len(t, publisher.events, 1)
	assert.Equal(t, domain.EventTransactionProcessed, publisher.events[0].Type)
	assert.Equal(t, "tx-1", publisher.events[0].TransactionID)
}

func TestProcessTransactionRedeliveryIsNoOp(t *testing.T) {
	store := memory.NewTransactionStore()
	gw := &countingGateway{}
	uc := NewProcessUsecase(store, gw, nil)
	ctx := context.Background()

	seedTransaction(t, store, "tx-1")

	require.NoError(t, uc.ProcessTransaction(ctx, "tx-1"))
	first, err := store.GetByTransactionID(ctx, "tx-1")
	require.NoError(t, err)
	require.NotNil(t, first.ProcessedAt)

	// Redelivered job: side effect must not re-run, processed_at must not move
	require.NoError(t, uc.ProcessTransaction(ctx, "tx-1"))
	second, err := store.GetByTransactionID(ctx, "tx-1")
	require.NoError(t, err)

	assert.Equal(t, int64(1), atomic.LoadInt64(&gw.calls))
	assert.True(t, second.ProcessedAt.Equal(*first.ProcessedAt))
}

func TestProcessTransactionFailureMarksFailed(t *testing.T) {
	store := memory.NewTransactionStore()
	gw := &countingGateway{err: errors.New("gateway timeout")}
	publisher := &capturingPublisher{}
	uc := NewProcessUsecase(store, gw, publisher)
	ctx := context.Background()

	seedTransaction(t, store, "tx-2")

	err := uc.ProcessTransaction(ctx, "tx-2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gateway timeout")

	tx, err := store.GetByTransactionID(ctx, "tx-2")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, tx.Status)
	assert.Nil(t, tx.ProcessedAt)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, domain.EventTransactionFailed, publisher.events[0].Type)
	assert.Contains(t, publisher.events[0].Error, "gateway timeout")
}

func TestProcessTransactionFailedStaysFailed(t *testing.T) {
	store := memory.NewTransactionStore()
	gw := &countingGateway{err: errors.New("gateway timeout")}
	uc := NewProcessUsecase(store, gw, nil)
	ctx := context.Background()

	seedTransaction(t, store, "tx-2")
	require.Error(t, uc.ProcessTransaction(ctx, "tx-2"))

	// Redelivery of a FAILED transaction does not retry the side effect
	gw.err = nil
	require.NoError(t, uc.ProcessTransaction(ctx, "tx-2"))

	tx, err := store.GetByTransactionID(ctx, "tx-2")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, tx.Status)
	assert.Equal(t, int64(1), atomic.LoadInt64(&gw.calls))
}

func TestProcessTransactionMissingRecord(t *testing.T) {
	store := memory.NewTransactionStore()
	gw := &countingGateway{}
	uc := NewProcessUsecase(store, gw, nil)

	// Job outlived its record: a signal, not an error
	assert.NoError(t, uc.ProcessTransaction(context.Background(), "unknown-id"))
	assert.Zero(t, atomic.LoadInt64(&gw.calls))
}

func TestProcessTransactionWithSimulatedGateway(t *testing.T) {
	store := memory.NewTransactionStore()
	gw := gateway.NewSimulated(gateway.SimulatedConfig{
		Latency: time.Millisecond,
		FailFunc: func(tx *domain.Transaction) error {
			if tx.TransactionID == "tx-bad" {
				return errors.New("declined")
			}
			return nil
		},
	})
	uc := NewProcessUsecase(store, gw, nil)
	ctx := context.Background()

	seedTransaction(t, store, "tx-good")
	seedTransaction(t, store, "tx-bad")

	require.NoError(t, uc.ProcessTransaction(ctx, "tx-good"))
	require.Error(t, uc.ProcessTransaction(ctx, "tx-bad"))

	good, err := store.GetByTransactionID(ctx, "tx-good")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessed, good.Status)

	bad, err := store.GetByTransactionID(ctx, "tx-bad")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, bad.Status)
}
