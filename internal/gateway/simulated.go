package gateway

import (
	"context"
	"time"

	"github.com/finbox/payhook/internal/domain"
	"github.com/finbox/payhook/pkg/logger"
)

// SimulatedConfig configures the stand-in gateway. FailFunc, when set, decides
// per transaction whether the call fails; it exists so processing-failure paths
// can be driven deterministically.
type SimulatedConfig struct {
	Latency  time.Duration
	FailFunc func(tx *domain.Transaction) error
}

// Simulated is a placeholder payment gateway. It models the latency of a real
// external settlement call without performing one.
type Simulated struct {
	latency  time.Duration
	failFunc func(tx *domain.Transaction) error
}

var _ domain.PaymentGateway = (*Simulated)(nil)

// NewSimulated creates a simulated payment gateway
func NewSimulated(cfg SimulatedConfig) *Simulated {
	return &Simulated{
		latency:  cfg.Latency,
		failFunc: cfg.FailFunc,
	}
}

// Execute simulates the external settlement call. It honors context
// cancellation during the simulated latency window.
func (g *Simulated) Execute(ctx context.Context, tx *domain.Transaction) error {
	logger.Info("Calling payment gateway",
		logger.String("transaction_id", tx.TransactionID),
		logger.String("amount", tx.Amount.String()),
		logger.String("currency", tx.Currency),
	)

	if g.latency > 0 {
		timer := time.NewTimer(g.latency)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if g.failFunc != nil {
		if err := g.failFunc(tx); err != nil {
			return err
		}
	}

	return nil
}
