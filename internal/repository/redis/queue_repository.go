package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/finbox/payhook/internal/domain"
	"github.com/finbox/payhook/pkg/logger"
)

// QueueName is the Redis list backing the processing queue
const QueueName = "transaction_queue"

// dequeueBlockTimeout bounds how long a worker blocks waiting for a job
const dequeueBlockTimeout = 5 * time.Second

type queueRepository struct {
	client *redis.Client
}

var _ domain.QueueRepository = (*queueRepository)(nil)

// NewQueueRepository creates a Redis-backed work queue
func NewQueueRepository(client *redis.Client) *queueRepository {
	return &queueRepository{client: client}
}

// EnqueueTransaction pushes a transaction ID onto the queue
func (r *queueRepository) EnqueueTransaction(ctx context.Context, transactionID string) error {
	err := r.client.LPush(ctx, QueueName, transactionID).Err()
	if err != nil {
		logger.Error("Failed to enqueue transaction",
			logger.String("transaction_id", transactionID),
			logger.ErrorField(err),
		)
		return fmt.Errorf("failed to enqueue transaction: %w", err)
	}

	logger.Debug("Transaction enqueued",
		logger.String("transaction_id", transactionID),
	)

	return nil
}

// DequeueTransaction pops the next transaction ID, blocking briefly when the
// queue is empty. An empty string with nil error means nothing was available.
func (r *queueRepository) DequeueTransaction(ctx context.Context) (string, error) {
	result, err := r.client.BRPop(ctx, dequeueBlockTimeout, QueueName).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil // No items in queue
		}
		logger.Error("Failed to dequeue transaction", logger.ErrorField(err))
		return "", fmt.Errorf("failed to dequeue transaction: %w", err)
	}

	if len(result) < 2 {
		return "", fmt.Errorf("unexpected queue result format")
	}

	transactionID := result[1]
	logger.Debug("Transaction dequeued",
		logger.String("transaction_id", transactionID),
	)

	return transactionID, nil
}

// GetQueueLength returns the number of queued jobs
func (r *queueRepository) GetQueueLength(ctx context.Context) (int64, error) {
	length, err := r.client.LLen(ctx, QueueName).Result()
	if err != nil {
		logger.Error("Failed to get queue length", logger.ErrorField(err))
		return 0, fmt.Errorf("failed to get queue length: %w", err)
	}

	return length, nil
}

// Ping checks the Redis connection
func (r *queueRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
