package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbox/payhook/internal/domain"
	"github.com/finbox/payhook/internal/repository/memory"
)

// failingQueue always rejects enqueues
type failingQueue struct{}

func (q *failingQueue) EnqueueTransaction(context.Context, string) error {
	return errors.New("broker unavailable")
}
func (q *failingQueue) DequeueTransaction(context.Context) (string, error) { return "", nil }
func (q *failingQueue) GetQueueLength(context.Context) (int64, error)      { return 0, nil }

func validPayload(id string) *domain.WebhookPayload {
	return &domain.WebhookPayload{
		TransactionID:      id,
		SourceAccount:      "acc-1",
		DestinationAccount: "acc-2",
		Amount:             decimal.RequireFromString("100.50"),
		Currency:           "USD",
	}
}

func TestReceiveAcceptsAndEnqueues(t *testing.T) {
	store := memory.NewTransactionStore()
	queue := memory.NewQueue(16)
	uc := NewIntakeUsecase(store, queue)
	ctx := context.Background()

	result, err := uc.Receive(ctx, validPayload("tx-1"))
	require.NoError(t, err)
	assert.Equal(t, "accepted", result.Ack)
	assert.Empty(t, result.Note)

	tx, err := store.GetByTransactionID(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, tx.Status)
	assert.True(t, tx.Amount.Equal(decimal.RequireFromString("100.50")))
	assert.NotNil(t, tx.LastEnqueuedAt)

	length, err := queue.GetQueueLength(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)
}

func TestReceiveDuplicateDoesNotReEnqueue(t *testing.T) {
	store := memory.NewTransactionStore()
	queue := memory.NewQueue(16)
	uc := NewIntakeUsecase(store, queue)
	ctx := context.Background()

	first, err := uc.Receive(ctx, validPayload("tx-1"))
	require.NoError(t, err)
	assert.Empty(t, first.Note)

	second, err := uc.Receive(ctx, validPayload("tx-1"))
	require.NoError(t, err)
	assert.Equal(t, "accepted", second.Ack)
	assert.Equal(t, domain.NoteDuplicate, second.Note)

	length, err := queue.GetQueueLength(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), length, "duplicate delivery must not enqueue a second job")
}

func TestReceiveConcurrentSameID(t *testing.T) {
	store := memory.NewTransactionStore()
	queue := memory.NewQueue(128)
	uc := NewIntakeUsecase(store, queue)
	ctx := context.Background()

	const deliveries = 40
	results := make(chan *domain.IntakeResult, deliveries)

	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := uc.Receive(ctx, validPayload("tx-race"))
			require.NoError(t, err)
			results <- result
		}()
	}
	wg.Wait()
	close(results)

	firstTime, duplicates := 0, 0
	for result := range results {
		assert.Equal(t, "accepted", result.Ack)
		if result.Note == domain.NoteDuplicate {
			duplicates++
		} else {
			firstTime++
		}
	}

	assert.Equal(t, 1, firstTime, "exactly one delivery wins creation")
	assert.Equal(t, deliveries-1, duplicates)

	length, err := queue.GetQueueLength(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), length, "exactly one job enqueued")

	count, err := store.CountByStatus(ctx, domain.StatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "exactly one row created")
}

func TestReceiveConcurrentDistinctIDs(t *testing.T) {
	store := memory.NewTransactionStore()
	queue := memory.NewQueue(128)
	uc := NewIntakeUsecase(store, queue)
	ctx := context.Background()

	const deliveries = 25
	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			result, err := uc.Receive(ctx, validPayload("tx-"+string(rune('a'+n))))
			require.NoError(t, err)
			assert.Empty(t, result.Note)
		}(i)
	}
	wg.Wait()

	count, err := store.CountByStatus(ctx, domain.StatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, deliveries, count)

	length, err := queue.GetQueueLength(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(deliveries), length)
}

func TestReceiveRejectsMalformedPayload(t *testing.T) {
	store := memory.NewTransactionStore()
	queue := memory.NewQueue(16)
	uc := NewIntakeUsecase(store, queue)
	ctx := context.Background()

	payload := validPayload("")
	_, err := uc.Receive(ctx, payload)

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "transaction_id", vErr.Field)

	// Nothing was written before validation
	count, err := store.CountByStatus(ctx, domain.StatusProcessing)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestReceiveAcceptsDespiteEnqueueFailure(t *testing.T) {
	store := memory.NewTransactionStore()
	uc := NewIntakeUsecase(store, &failingQueue{})
	ctx := context.Background()

	result, err := uc.Receive(ctx, validPayload("tx-1"))
	require.NoError(t, err)
	assert.Equal(t, "accepted", result.Ack)
	assert.Contains(t, result.Note, "error recorded")

	// The row exists and is left PROCESSING for reconciliation
	tx, err := store.GetByTransactionID(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, tx.Status)
	assert.Nil(t, tx.LastEnqueuedAt)
}
