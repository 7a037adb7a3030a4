package service

import (
	"context"
	"time"

	"library-backend/internal/domain"
	"library-backend/internal/logger"
	"library-backend/internal/metrics"
	"library-backend/internal/repository"
)

// TxRunner runs units of work against the store, retrying transient write
// conflicts a bounded number of times. Domain rule failures are returned as is.
type TxRunner struct {
	store    repository.Store
	attempts int
	backoff  time.Duration
	metrics  *metrics.Metrics
}

func NewTxRunner(store repository.Store, attempts int, backoff time.Duration, m *metrics.Metrics) *TxRunner {
	if attempts < 1 {
		attempts = 1
	}
	return &TxRunner{store: store, attempts: attempts, backoff: backoff, metrics: m}
}

func (r *TxRunner) Run(ctx context.Context, operation string, fn func(ctx context.Context, repos repository.Repositories) error) error {
	var err error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		err = r.store.WithinTx(ctx, fn)
		if err == nil || !domain.IsRetryable(err) {
			return err
		}
		if attempt == r.attempts {
			break
		}
		r.metrics.IncRetry(operation)
		logger.WarnContext(ctx, "Retrying transaction after write conflict", "operation", operation, "attempt", attempt, "error", err)

		timer := time.NewTimer(r.backoff * time.Duration(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return domain.WrapError(domain.KindTransient, err, "write conflict persisted, retry later")
}
