package worker

import (
	"context"
	"sync"
	"time"

	"github.com/finbox/payhook/internal/domain"
	"github.com/finbox/payhook/pkg/logger"
	"github.com/finbox/payhook/pkg/metrics"
)

// TransactionWorker runs a pool of consumers that pull transaction IDs from
// the queue and delegate to the process use case. Callers manage lifecycle by
// cancelling the provided context; Start blocks until every consumer drains.
type TransactionWorker struct {
	queueRepo domain.QueueRepository
	processUC domain.ProcessUsecase
	poolSize  int
	interval  time.Duration
}

// TransactionWorkerConfig defines runtime options for the worker pool.
type TransactionWorkerConfig struct {
	PoolSize        int
	PollingInterval time.Duration
}

// NewTransactionWorker builds a new transaction worker pool.
func NewTransactionWorker(queueRepo domain.QueueRepository, processUC domain.ProcessUsecase, cfg TransactionWorkerConfig) *TransactionWorker {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 1
	}

	interval := cfg.PollingInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	return &TransactionWorker{
		queueRepo: queueRepo,
		processUC: processUC,
		poolSize:  poolSize,
		interval:  interval,
	}
}

// Start launches the consumer pool and a queue-depth reporter. It blocks until
// context cancellation.
func (w *TransactionWorker) Start(ctx context.Context) {
	logger.Info("Transaction worker pool started",
		logger.Int("pool_size", w.poolSize),
	)

	var wg sync.WaitGroup
	for i := 0; i < w.poolSize; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.consume(ctx, id)
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.reportQueueDepth(ctx)
	}()

	wg.Wait()
	logger.Info("Transaction worker pool stopped")
}

func (w *TransactionWorker) consume(ctx context.Context, id int) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Transaction consumer stopping",
				logger.Int("consumer", id),
			)
			return
		case <-ticker.C:
			w.processNext(ctx, id)
		}
	}
}

func (w *TransactionWorker) processNext(ctx context.Context, id int) {
	trxID, err := w.queueRepo.DequeueTransaction(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Error("Failed to dequeue transaction",
			logger.Int("consumer", id),
			logger.ErrorField(err),
		)
		return
	}

	if trxID == "" {
		// No items available
		return
	}

	start := time.Now()
	err = w.processUC.ProcessTransaction(ctx, trxID)
	duration := time.Since(start)

	if err != nil {
		logger.Error("Failed to process queued transaction",
			logger.Int("consumer", id),
			logger.String("transaction_id", trxID),
			logger.Duration("duration", duration),
			logger.ErrorField(err),
		)
		return
	}

	logger.Info("Queued transaction handled",
		logger.Int("consumer", id),
		logger.String("transaction_id", trxID),
		logger.Duration("duration", duration),
	)
}

func (w *TransactionWorker) reportQueueDepth(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			length, err := w.queueRepo.GetQueueLength(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logger.Warn("Failed to read queue length", logger.ErrorField(err))
				}
				continue
			}
			metrics.SetQueueSize("transaction_queue", float64(length))
		}
	}
}
