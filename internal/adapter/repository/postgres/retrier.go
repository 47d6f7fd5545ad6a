package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/iho/bankrecon/internal/infrastructure/metrics"
)

// Retrier implements usecase.Retrier. It re-runs an operation that lost a
// row-level race (deadlock, serialization failure, lock timeout) with
// exponential backoff. Any other error stops the loop immediately.
type Retrier struct {
	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
	maxElapsedTime  time.Duration
	metrics         *metrics.Metrics
}

// RetrierOption customises a Retrier.
type RetrierOption func(*Retrier)

// WithMaxRetries caps the number of retries after the first attempt.
func WithMaxRetries(n int) RetrierOption {
	return func(r *Retrier) { r.maxRetries = n }
}

// WithBackoff sets the initial and maximum wait between attempts and the
// total time budget.
func WithBackoff(initial, maxWait, elapsed time.Duration) RetrierOption {
	return func(r *Retrier) {
		r.initialInterval = initial
		r.maxInterval = maxWait
		r.maxElapsedTime = elapsed
	}
}

// NewRetrier creates a Retrier. metrics may be nil.
func NewRetrier(m *metrics.Metrics, opts ...RetrierOption) *Retrier {
	r := &Retrier{
		maxRetries:      3,
		initialInterval: 50 * time.Millisecond,
		maxInterval:     time.Second,
		maxElapsedTime:  10 * time.Second,
		metrics:         m,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retry runs operation until it succeeds, fails permanently, exhausts the
// retry budget or ctx is done.
func (r *Retrier) Retry(ctx context.Context, operation func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initialInterval
	b.MaxInterval = r.maxInterval
	b.MaxElapsedTime = r.maxElapsedTime

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.maxRetries)), ctx)

	attempt := 0
	notify := func(err error, wait time.Duration) {
		if r.metrics != nil {
			r.metrics.DBRetries.Inc()
		}
		zerolog.Ctx(ctx).Warn().
			Err(err).
			Int("attempt", attempt).
			Str("reason", retryReason(err)).
			Dur("backoff", wait).
			Msg("retryable database error, retrying")
	}

	return backoff.RetryNotify(func() error {
		attempt++
		err := operation()
		if err == nil {
			return nil
		}
		if retryReason(err) == "" {
			return backoff.Permanent(err)
		}
		return err
	}, policy, notify)
}

// retryReason names the race an error reports, or returns "" when retrying
// cannot help.
func retryReason(err error) string {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return ""
	}
	switch pgErr.Code {
	case pgErrDeadlock:
		return "deadlock"
	case pgErrSerializationFailure:
		return "serialization_failure"
	case pgErrLockNotAvailable:
		return "lock_not_available"
	default:
		return ""
	}
}
