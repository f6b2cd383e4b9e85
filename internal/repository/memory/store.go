package memory

import (
	"context"
	"sync"
	"time"

	"github.com/finbox/payhook/internal/domain"
)

// TransactionStore is an in-memory implementation of
// domain.TransactionRepository. A single mutex gives it the same atomicity the
// Postgres repository gets from its uniqueness constraint and conditional
// updates, which makes it a faithful stand-in for tests and local runs.
type TransactionStore struct {
	mu           sync.Mutex
	transactions map[string]*domain.Transaction
}

var _ domain.TransactionRepository = (*TransactionStore)(nil)

// NewTransactionStore creates an empty in-memory transaction store
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{
		transactions: make(map[string]*domain.Transaction),
	}
}

// CreateIfAbsent inserts the transaction unless its ID is already present
func (s *TransactionStore) CreateIfAbsent(_ context.Context, tx *domain.Transaction) (*domain.CreateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.transactions[tx.TransactionID]; ok {
		snapshot := *existing
		return &domain.CreateResult{Created: false, Transaction: &snapshot}, nil
	}

	stored := *tx
	s.transactions[tx.TransactionID] = &stored
	return &domain.CreateResult{Created: true, Transaction: tx}, nil
}

// GetByTransactionID returns a snapshot of the stored transaction
func (s *TransactionStore) GetByTransactionID(_ context.Context, transactionID string) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.transactions[transactionID]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}

	snapshot := *existing
	return &snapshot, nil
}

// MarkProcessed applies the PROCESSING -> PROCESSED transition
func (s *TransactionStore) MarkProcessed(_ context.Context, transactionID string, processedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.transactions[transactionID]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	if !existing.Status.CanTransitionTo(domain.StatusProcessed) {
		return domain.ErrIllegalTransition
	}

	existing.Status = domain.StatusProcessed
	at := processedAt
	existing.ProcessedAt = &at
	return nil
}

// MarkFailed applies the PROCESSING -> FAILED transition
func (s *TransactionStore) MarkFailed(_ context.Context, transactionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.transactions[transactionID]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	if !existing.Status.CanTransitionTo(domain.StatusFailed) {
		return domain.ErrIllegalTransition
	}

	existing.Status = domain.StatusFailed
	return nil
}

// RecordEnqueued stamps last_enqueued_at
func (s *TransactionStore) RecordEnqueued(_ context.Context, transactionID string, enqueuedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.transactions[transactionID]
	if !ok {
		return domain.ErrTransactionNotFound
	}

	at := enqueuedAt
	existing.LastEnqueuedAt = &at
	return nil
}

// CountByStatus counts stored transactions in the given status
func (s *TransactionStore) CountByStatus(_ context.Context, status domain.Status) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, tx := range s.transactions {
		if tx.Status == status {
			count++
		}
	}
	return count, nil
}
