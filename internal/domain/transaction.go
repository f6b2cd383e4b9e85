package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a transaction. The set is closed:
// PROCESSING is the only initial state, PROCESSED and FAILED are terminal.
type Status string

const (
	StatusProcessing Status = "PROCESSING"
	StatusProcessed  Status = "PROCESSED"
	StatusFailed     Status = "FAILED"
)

// IsValid checks if the status is a member of the closed set
func (s Status) IsValid() bool {
	return s == StatusProcessing || s == StatusProcessed || s == StatusFailed
}

// IsTerminal reports whether no further transition is allowed from this status
func (s Status) IsTerminal() bool {
	return s == StatusProcessed || s == StatusFailed
}

// CanTransitionTo validates a status transition. The only legal moves are
// PROCESSING -> PROCESSED and PROCESSING -> FAILED.
func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusProcessing && next.IsTerminal()
}

// Transaction represents a webhook-delivered transaction. TransactionID is the
// caller-supplied idempotency key, unique at the storage layer. All fields
// except Status, ProcessedAt and LastEnqueuedAt are immutable after creation.
type Transaction struct {
	TransactionID      string          `json:"transaction_id" db:"transaction_id"`
	SourceAccount      string          `json:"source_account" db:"source_account"`
	DestinationAccount string          `json:"destination_account" db:"destination_account"`
	Amount             decimal.Decimal `json:"amount" db:"amount"`
	Currency           string          `json:"currency" db:"currency"`
	Status             Status          `json:"status" db:"status"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	ProcessedAt        *time.Time      `json:"processed_at" db:"processed_at"`
	LastEnqueuedAt     *time.Time      `json:"last_enqueued_at,omitempty" db:"last_enqueued_at"`
}

// Sentinel errors shared across layers
var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrIllegalTransition   = errors.New("illegal status transition")
)

// ValidationError describes a malformed webhook payload. It is the only error
// class the intake surface reports back to the sender as a rejection.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid payload: " + e.Field + " " + e.Reason
}

// CreateResult is the typed outcome of CreateIfAbsent. Exactly one of the two
// cases holds: Created is true and Transaction is the freshly inserted row, or
// Created is false and Transaction is the pre-existing row for the same ID.
type CreateResult struct {
	Created     bool
	Transaction *Transaction
}

// TransactionRepository defines operations for transaction data access.
// CreateIfAbsent must be atomic with respect to the uniqueness constraint on
// transaction_id: of N concurrent calls with the same ID exactly one observes
// Created=true. MarkProcessed and MarkFailed are conditional updates that only
// apply while the row is still PROCESSING, so two racing workers cannot both
// win a transition.
type TransactionRepository interface {
	CreateIfAbsent(ctx context.Context, tx *Transaction) (*CreateResult, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*Transaction, error)
	MarkProcessed(ctx context.Context, transactionID string, processedAt time.Time) error
	MarkFailed(ctx context.Context, transactionID string) error
	RecordEnqueued(ctx context.Context, transactionID string, enqueuedAt time.Time) error
	CountByStatus(ctx context.Context, status Status) (int, error)
}

// QueueRepository defines the contract for the durable work queue that
// transports transaction IDs to workers. Delivery is at-least-once and
// unordered; consumers must tolerate redelivery.
type QueueRepository interface {
	EnqueueTransaction(ctx context.Context, transactionID string) error
	DequeueTransaction(ctx context.Context) (string, error)
	GetQueueLength(ctx context.Context) (int64, error)
}

// PaymentGateway performs the external side effect for a transaction. Execute
// may take substantial wall-clock time and is never called while holding a
// store lock.
type PaymentGateway interface {
	Execute(ctx context.Context, tx *Transaction) error
}

// IntakeUsecase accepts webhook deliveries. Receive only returns an error for
// payload validation failures; every other outcome is an acknowledgment.
type IntakeUsecase interface {
	Receive(ctx context.Context, payload *WebhookPayload) (*IntakeResult, error)
}

// ProcessUsecase is the worker-side state machine for a single queued job
type ProcessUsecase interface {
	ProcessTransaction(ctx context.Context, transactionID string) error
}

// QueryUsecase is the read-only lookup of a transaction snapshot
type QueryUsecase interface {
	GetTransaction(ctx context.Context, transactionID string) (*Transaction, error)
}

// WebhookPayload is the inbound webhook body
type WebhookPayload struct {
	TransactionID      string          `json:"transaction_id"`
	SourceAccount      string          `json:"source_account"`
	DestinationAccount string          `json:"destination_account"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
}

// Validate checks payload shape before any store interaction
func (p *WebhookPayload) Validate() error {
	if p.TransactionID == "" {
		return &ValidationError{Field: "transaction_id", Reason: "must not be empty"}
	}
	if p.SourceAccount == "" {
		return &ValidationError{Field: "source_account", Reason: "must not be empty"}
	}
	if p.DestinationAccount == "" {
		return &ValidationError{Field: "destination_account", Reason: "must not be empty"}
	}
	if p.Amount.Sign() <= 0 {
		return &ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if len(p.Currency) < 3 || len(p.Currency) > 12 {
		return &ValidationError{Field: "currency", Reason: "must be a currency code"}
	}
	return nil
}

// NoteDuplicate tags the acknowledgment for a repeated delivery
const NoteDuplicate = "duplicate"

// IntakeResult is the acknowledgment for an accepted webhook. Note is empty for
// a first-time accept, "duplicate" for a repeated delivery, or an
// "error recorded: ..." tag when an internal fault was swallowed.
type IntakeResult struct {
	Ack  string `json:"ack"`
	Note string `json:"note,omitempty"`
}

// Accepted builds a first-time acknowledgment
func Accepted() *IntakeResult {
	return &IntakeResult{Ack: "accepted"}
}

// AcceptedWithNote builds an acknowledgment carrying an informational tag
func AcceptedWithNote(note string) *IntakeResult {
	return &IntakeResult{Ack: "accepted", Note: note}
}
