package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/finbox/payhook/internal/domain"
	"github.com/finbox/payhook/pkg/logger"
)

const selectColumns = `transaction_id, source_account, destination_account, amount, currency,
		status, created_at, processed_at, last_enqueued_at`

type transactionRepository struct {
	db *sqlx.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *sqlx.DB) domain.TransactionRepository {
	return &transactionRepository{db: db}
}

// CreateIfAbsent inserts a transaction, relying on the unique index on
// transaction_id to arbitrate concurrent attempts. ON CONFLICT DO NOTHING turns
// the constraint collision into a typed duplicate outcome instead of an error:
// exactly one caller sees Created=true, everyone else gets the persisted row.
func (r *transactionRepository) CreateIfAbsent(ctx context.Context, tx *domain.Transaction) (*domain.CreateResult, error) {
	query := `
		INSERT INTO transactions (transaction_id, source_account, destination_account,
			amount, currency, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (transaction_id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		tx.TransactionID, tx.SourceAccount, tx.DestinationAccount,
		tx.Amount, tx.Currency, tx.Status, tx.CreatedAt,
	)
	if err != nil {
		logger.Error("Failed to insert transaction",
			logger.String("transaction_id", tx.TransactionID),
			logger.ErrorField(err),
		)
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rowsAffected == 1 {
		logger.Info("Transaction created",
			logger.String("transaction_id", tx.TransactionID),
		)
		return &domain.CreateResult{Created: true, Transaction: tx}, nil
	}

	// A row already exists for this idempotency key. Rows are never deleted,
	// so the follow-up read always finds it.
	existing, err := r.GetByTransactionID(ctx, tx.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load duplicate transaction: %w", err)
	}

	return &domain.CreateResult{Created: false, Transaction: existing}, nil
}

// GetByTransactionID retrieves a transaction by its idempotency key
func (r *transactionRepository) GetByTransactionID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	query := `SELECT ` + selectColumns + ` FROM transactions WHERE transaction_id = $1`

	var tx domain.Transaction
	err := r.db.GetContext(ctx, &tx, query, transactionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		logger.Error("Failed to get transaction",
			logger.String("transaction_id", transactionID),
			logger.ErrorField(err),
		)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return &tx, nil
}

// MarkProcessed transitions a transaction to PROCESSED. The status predicate
// makes the update conditional: a redelivered or racing job whose transaction
// already left PROCESSING affects zero rows and gets ErrIllegalTransition.
func (r *transactionRepository) MarkProcessed(ctx context.Context, transactionID string, processedAt time.Time) error {
	query := `
		UPDATE transactions SET status = $2, processed_at = $3
		WHERE transaction_id = $1 AND status = $4
	`

	result, err := r.db.ExecContext(ctx, query,
		transactionID, domain.StatusProcessed, processedAt, domain.StatusProcessing,
	)
	if err != nil {
		logger.Error("Failed to mark transaction processed",
			logger.String("transaction_id", transactionID),
			logger.ErrorField(err),
		)
		return fmt.Errorf("failed to mark transaction processed: %w", err)
	}

	return r.checkTransitionApplied(ctx, result, transactionID)
}

// MarkFailed transitions a transaction to FAILED, also conditional on the row
// still being PROCESSING
func (r *transactionRepository) MarkFailed(ctx context.Context, transactionID string) error {
	query := `
		UPDATE transactions SET status = $2
		WHERE transaction_id = $1 AND status = $3
	`

	result, err := r.db.ExecContext(ctx, query,
		transactionID, domain.StatusFailed, domain.StatusProcessing,
	)
	if err != nil {
		logger.Error("Failed to mark transaction failed",
			logger.String("transaction_id", transactionID),
			logger.ErrorField(err),
		)
		return fmt.Errorf("failed to mark transaction failed: %w", err)
	}

	return r.checkTransitionApplied(ctx, result, transactionID)
}

// RecordEnqueued stamps last_enqueued_at after a job was handed to the queue
func (r *transactionRepository) RecordEnqueued(ctx context.Context, transactionID string, enqueuedAt time.Time) error {
	query := `UPDATE transactions SET last_enqueued_at = $2 WHERE transaction_id = $1`

	result, err := r.db.ExecContext(ctx, query, transactionID, enqueuedAt)
	if err != nil {
		logger.Error("Failed to record enqueue time",
			logger.String("transaction_id", transactionID),
			logger.ErrorField(err),
		)
		return fmt.Errorf("failed to record enqueue time: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrTransactionNotFound
	}

	return nil
}

// CountByStatus counts transactions in a given status
func (r *transactionRepository) CountByStatus(ctx context.Context, status domain.Status) (int, error) {
	query := `SELECT COUNT(*) FROM transactions WHERE status = $1`

	var count int
	err := r.db.GetContext(ctx, &count, query, status)
	if err != nil {
		logger.Error("Failed to count transactions by status",
			logger.String("status", string(status)),
			logger.ErrorField(err),
		)
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	return count, nil
}

// checkTransitionApplied distinguishes a missing row from one that already
// reached a terminal status when a conditional update touched nothing.
func (r *transactionRepository) checkTransitionApplied(ctx context.Context, result sql.Result, transactionID string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 1 {
		return nil
	}

	if _, err := r.GetByTransactionID(ctx, transactionID); err != nil {
		return err
	}
	return domain.ErrIllegalTransition
}
