package usecase

import (
	"context"
	"time"

	"github.com/finbox/payhook/internal/domain"
	"github.com/finbox/payhook/pkg/logger"
	"github.com/finbox/payhook/pkg/metrics"
)

type intakeUsecase struct {
	transactionRepo domain.TransactionRepository
	queueRepo       domain.QueueRepository
}

// NewIntakeUsecase creates the webhook intake use case
func NewIntakeUsecase(
	transactionRepo domain.TransactionRepository,
	queueRepo domain.QueueRepository,
) domain.IntakeUsecase {
	return &intakeUsecase{
		transactionRepo: transactionRepo,
		queueRepo:       queueRepo,
	}
}

// Receive acknowledges a webhook delivery. Validation failures are the only
// errors returned to the caller; once the payload is valid the sender always
// gets an acceptance, with a note describing duplicates or recorded faults.
// N concurrent deliveries of the same transaction_id yield exactly one created
// row and one enqueued job.
func (uc *intakeUsecase) Receive(ctx context.Context, payload *domain.WebhookPayload) (*domain.IntakeResult, error) {
	if err := payload.Validate(); err != nil {
		metrics.RecordWebhook(metrics.WebhookRejected)
		return nil, err
	}

	tx := &domain.Transaction{
		TransactionID:      payload.TransactionID,
		SourceAccount:      payload.SourceAccount,
		DestinationAccount: payload.DestinationAccount,
		Amount:             payload.Amount,
		Currency:           payload.Currency,
		Status:             domain.StatusProcessing,
		CreatedAt:          time.Now().UTC(),
	}

	result, err := uc.transactionRepo.CreateIfAbsent(ctx, tx)
	if err != nil {
		// The sender has no useful retry story for a 5xx on a duplicate-
		// sensitive intake, so internal faults are acknowledged with a note
		// and surfaced through logs and metrics instead.
		logger.Error("Intake store write failed",
			logger.String("transaction_id", payload.TransactionID),
			logger.ErrorField(err),
		)
		metrics.RecordWebhook(metrics.WebhookDegraded)
		metrics.RecordSystemError("store_write", "intake")
		return domain.AcceptedWithNote("error recorded: " + err.Error()), nil
	}

	if !result.Created {
		logger.Info("Duplicate webhook delivery",
			logger.String("transaction_id", payload.TransactionID),
			logger.String("status", string(result.Transaction.Status)),
		)
		metrics.RecordWebhook(metrics.WebhookDuplicate)
		return domain.AcceptedWithNote(domain.NoteDuplicate), nil
	}

	if err := uc.queueRepo.EnqueueTransaction(ctx, tx.TransactionID); err != nil {
		// Row exists but the job never made the queue. The webhook is still
		// acknowledged; a reconciliation sweep over stuck PROCESSING rows is
		// the recovery path for these.
		logger.Error("Failed to enqueue processing job",
			logger.String("transaction_id", tx.TransactionID),
			logger.ErrorField(err),
		)
		metrics.RecordWebhook(metrics.WebhookDegraded)
		metrics.RecordEnqueueFailure()
		return domain.AcceptedWithNote("error recorded: " + err.Error()), nil
	}

	if err := uc.transactionRepo.RecordEnqueued(ctx, tx.TransactionID, time.Now().UTC()); err != nil {
		// The job is already queued; losing the timestamp is not worth
		// degrading the acknowledgment.
		logger.Warn("Failed to record enqueue time",
			logger.String("transaction_id", tx.TransactionID),
			logger.ErrorField(err),
		)
	}

	logger.Info("Webhook accepted",
		logger.String("transaction_id", tx.TransactionID),
		logger.String("amount", tx.Amount.String()),
		logger.String("currency", tx.Currency),
	)
	metrics.RecordWebhook(metrics.WebhookAccepted)

	return domain.Accepted(), nil
}
