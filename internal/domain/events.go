package domain

import "time"

// Event types published when a transaction reaches a terminal status
const (
	EventTransactionProcessed = "transaction.processed"
	EventTransactionFailed    = "transaction.failed"
)

// TransactionEvent is the message emitted to operational tooling when a
// transaction leaves PROCESSING. Failure events carry the error text so
// operators can inspect FAILED rows without querying the store.
type TransactionEvent struct {
	Type          string    `json:"type"`
	TransactionID string    `json:"transaction_id"`
	Status        Status    `json:"status"`
	Error         string    `json:"error,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// EventPublisher delivers terminal-state events to an external broker.
// Publishing is best-effort: a publish failure never affects the status
// transition that triggered it.
type EventPublisher interface {
	Publish(event *TransactionEvent) error
}
