package postgres

import (
	"context"
	"errors"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iho/bankrecon/internal/domain"
)

// PostgreSQL error codes.
const (
	pgErrUniqueViolation      = "23505"
	pgErrForeignKeyViolation  = "23503"
	pgErrCheckViolation       = "23514"
	pgErrDeadlock             = "40P01"
	pgErrSerializationFailure = "40001"
	pgErrLockNotAvailable     = "55P03"
)

// uniqueConstraints maps unique constraint and index names to domain errors.
var uniqueConstraints = map[string]error{
	"bank_accounts_account_number_key":           domain.ErrDuplicateAccountNumber,
	"reconciliation_sessions_one_in_progress":    domain.ErrActiveSessionExists,
	"reconciliation_matches_active_transaction":  domain.ErrTransactionAlreadyMatched,
	"reconciliation_matches_active_payment":      domain.ErrPaymentAlreadyMatched,
	"reconciliation_discrepancies_natural_key":   domain.ErrDuplicateDiscrepancy,
	"reconciliation_sessions_account_number_key": domain.ErrConflict,
	"reconciliation_discrepancies_number_key":    domain.ErrConflict,
}

// translateError maps driver errors onto domain error kinds. notFound is
// returned for pgx.ErrNoRows. Serialization failures, deadlocks and lock
// timeouts are returned unchanged so Retrier can recognise them.
func translateError(err error, notFound error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) && notFound != nil {
		return notFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			if mapped, ok := uniqueConstraints[pgErr.ConstraintName]; ok {
				return mapped
			}
			return domain.ErrConflict
		case pgErrForeignKeyViolation:
			return domain.Invalid("referenced record does not exist (%s)", pgErr.ConstraintName)
		case pgErrCheckViolation:
			return domain.Invalid("value rejected by %s", pgErr.ConstraintName)
		case pgErrDeadlock, pgErrSerializationFailure, pgErrLockNotAvailable:
			return err
		}
		return err
	}

	if isConnectionError(err) {
		return domain.Unavailable(err)
	}

	return err
}

func isConnectionError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return pgconn.Timeout(err) || pgconn.SafeToRetry(err)
}
