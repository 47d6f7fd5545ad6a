package usecase

import "time"

const (
	// DefaultTransactionTimeout bounds every database transaction opened by a
	// use case.
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultOutstandingLookback bounds the payment records listed as
	// outstanding when no lookback is configured.
	DefaultOutstandingLookback = 90 * 24 * time.Hour

	// SystemActor is recorded when no caller identity is supplied.
	SystemActor = "system"
)
