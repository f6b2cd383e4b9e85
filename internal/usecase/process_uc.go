package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/finbox/payhook/internal/domain"
	"github.com/finbox/payhook/pkg/logger"
	"github.com/finbox/payhook/pkg/metrics"
)

type processUsecase struct {
	transactionRepo domain.TransactionRepository
	gateway         domain.PaymentGateway
	publisher       domain.EventPublisher
}

// NewProcessUsecase creates the worker-side processing use case. The publisher
// may be nil; terminal-state events are then skipped.
func NewProcessUsecase(
	transactionRepo domain.TransactionRepository,
	gateway domain.PaymentGateway,
	publisher domain.EventPublisher,
) domain.ProcessUsecase {
	return &processUsecase{
		transactionRepo: transactionRepo,
		gateway:         gateway,
		publisher:       publisher,
	}
}

// ProcessTransaction runs the state machine for one queued job. Redelivered
// jobs for transactions already in a terminal status are no-ops, which is what
// makes the worker safe under at-least-once queue semantics. The gateway call
// happens without any store lock held.
func (uc *processUsecase) ProcessTransaction(ctx context.Context, transactionID string) error {
	start := time.Now()

	tx, err := uc.transactionRepo.GetByTransactionID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			// The job outran or outlived its record. A signal, not a fault.
			logger.Warn("Queued transaction has no record",
				logger.String("transaction_id", transactionID),
			)
			metrics.RecordProcessing(metrics.ProcessingSkipped, time.Since(start).Seconds())
			return nil
		}
		return fmt.Errorf("failed to load transaction: %w", err)
	}

	if tx.Status.IsTerminal() {
		logger.Info("Skipping redelivered job",
			logger.String("transaction_id", transactionID),
			logger.String("status", string(tx.Status)),
		)
		metrics.RecordProcessing(metrics.ProcessingSkipped, time.Since(start).Seconds())
		return nil
	}

	if err := uc.gateway.Execute(ctx, tx); err != nil {
		uc.recordFailure(ctx, tx, err)
		metrics.RecordProcessing(metrics.ProcessingFailed, time.Since(start).Seconds())
		return fmt.Errorf("gateway execution failed: %w", err)
	}

	now := time.Now().UTC()
	if err := uc.transactionRepo.MarkProcessed(ctx, transactionID, now); err != nil {
		if errors.Is(err, domain.ErrIllegalTransition) {
			// A concurrent invocation won the transition. The side effect ran
			// once here, but the persisted state is already terminal.
			logger.Warn("Transition already applied elsewhere",
				logger.String("transaction_id", transactionID),
			)
			metrics.RecordProcessing(metrics.ProcessingSkipped, time.Since(start).Seconds())
			return nil
		}
		return fmt.Errorf("failed to mark transaction processed: %w", err)
	}

	logger.Info("Transaction processed",
		logger.String("transaction_id", transactionID),
		logger.Duration("duration", time.Since(start)),
	)
	metrics.RecordProcessing(metrics.ProcessingSucceeded, time.Since(start).Seconds())

	uc.publishEvent(&domain.TransactionEvent{
		Type:          domain.EventTransactionProcessed,
		TransactionID: transactionID,
		Status:        domain.StatusProcessed,
		OccurredAt:    now,
	})

	return nil
}

// recordFailure moves the transaction to FAILED. The update is best-effort: if
// it also fails, that failure is logged and counted rather than allowed to
// mask the original gateway error.
func (uc *processUsecase) recordFailure(ctx context.Context, tx *domain.Transaction, cause error) {
	logger.Error("Transaction processing failed",
		logger.String("transaction_id", tx.TransactionID),
		logger.ErrorField(cause),
	)

	if err := uc.transactionRepo.MarkFailed(ctx, tx.TransactionID); err != nil {
		logger.Error("Failed to record FAILED status",
			logger.String("transaction_id", tx.TransactionID),
			logger.ErrorField(err),
		)
		metrics.RecordSystemError("status_update", "worker")
		return
	}

	uc.publishEvent(&domain.TransactionEvent{
		Type:          domain.EventTransactionFailed,
		TransactionID: tx.TransactionID,
		Status:        domain.StatusFailed,
		Error:         cause.Error(),
		OccurredAt:    time.Now().UTC(),
	})
}

func (uc *processUsecase) publishEvent(event *domain.TransactionEvent) {
	if uc.publisher == nil {
		return
	}

	if err := uc.publisher.Publish(event); err != nil {
		logger.Error("Failed to publish transaction event",
			logger.String("transaction_id", event.TransactionID),
			logger.String("type", event.Type),
			logger.ErrorField(err),
		)
		metrics.RecordEventPublishFailure()
	}
}
