package usecase

import (
	"context"

	"github.com/finbox/payhook/internal/domain"
)

type queryUsecase struct {
	transactionRepo domain.TransactionRepository
}

// NewQueryUsecase creates the read-only transaction lookup use case
func NewQueryUsecase(transactionRepo domain.TransactionRepository) domain.QueryUsecase {
	return &queryUsecase{transactionRepo: transactionRepo}
}

// GetTransaction returns the latest committed snapshot for an identifier
func (uc *queryUsecase) GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	return uc.transactionRepo.GetByTransactionID(ctx, transactionID)
}
