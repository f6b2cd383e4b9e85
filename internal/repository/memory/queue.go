package memory

import (
	"context"
	"time"

	"github.com/finbox/payhook/internal/domain"
)

// Queue is a channel-backed in-memory implementation of
// domain.QueueRepository with the same blocking dequeue shape as the Redis
// list queue.
type Queue struct {
	jobs         chan string
	blockTimeout time.Duration
}

var _ domain.QueueRepository = (*Queue)(nil)

// NewQueue creates an in-memory queue with the given buffer capacity
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Queue{
		jobs:         make(chan string, capacity),
		blockTimeout: 50 * time.Millisecond,
	}
}

// EnqueueTransaction pushes a transaction ID onto the queue
func (q *Queue) EnqueueTransaction(ctx context.Context, transactionID string) error {
	select {
	case q.jobs <- transactionID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DequeueTransaction pops the next transaction ID, returning an empty string
// when nothing arrives within the block timeout
func (q *Queue) DequeueTransaction(ctx context.Context) (string, error) {
	timer := time.NewTimer(q.blockTimeout)
	defer timer.Stop()

	select {
	case transactionID := <-q.jobs:
		return transactionID, nil
	case <-timer.C:
		return "", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// GetQueueLength returns the number of buffered jobs
func (q *Queue) GetQueueLength(_ context.Context) (int64, error) {
	return int64(len(q.jobs)), nil
}
