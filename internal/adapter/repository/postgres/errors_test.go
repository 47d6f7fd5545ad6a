package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iho/bankrecon/internal/domain"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		notFound error
		want     error
	}{
		{"nil", nil, domain.ErrAccountNotFound, nil},
		{"no rows", pgx.ErrNoRows, domain.ErrAccountNotFound, domain.ErrAccountNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), domain.ErrMatchNotFound, domain.ErrMatchNotFound},
		{"duplicate account number",
			&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "bank_accounts_account_number_key"},
			nil, domain.ErrDuplicateAccountNumber},
		{"second in-progress session",
			&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "reconciliation_sessions_one_in_progress"},
			nil, domain.ErrActiveSessionExists},
		{"transaction claimed",
			&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "reconciliation_matches_active_transaction"},
			nil, domain.ErrTransactionAlreadyMatched},
		{"payment claimed",
			&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "reconciliation_matches_active_payment"},
			nil, domain.ErrPaymentAlreadyMatched},
		{"duplicate discrepancy",
			&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "reconciliation_discrepancies_natural_key"},
			nil, domain.ErrDuplicateDiscrepancy},
		{"unknown unique", &pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "other"}, nil, domain.ErrConflict},
		{"foreign key", &pgconn.PgError{Code: pgErrForeignKeyViolation}, nil, domain.ErrValidation},
		{"check", &pgconn.PgError{Code: pgErrCheckViolation}, nil, domain.ErrValidation},
		{"deadline", context.DeadlineExceeded, nil, domain.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.err, tt.notFound)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("expected nil, got %v", got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Fatalf("translateError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTranslateErrorKeepsRetryableErrors(t *testing.T) {
	for _, code := range []string{pgErrSerializationFailure, pgErrDeadlock, pgErrLockNotAvailable} {
		got := translateError(&pgconn.PgError{Code: code}, nil)
		if retryReason(got) == "" {
			t.Fatalf("expected %s to stay retryable, got %v", code, got)
		}
	}
}
