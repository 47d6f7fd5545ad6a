package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the engine wraps exactly one of these,
// so callers branch with errors.Is(err, domain.ErrConflict) and friends.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrValidation  = errors.New("validation failed")
	ErrUnavailable = errors.New("backing store unavailable")
)

var (
	// Account errors
	ErrAccountNotFound        = fmt.Errorf("%w: bank account not found", ErrNotFound)
	ErrAccountClosed          = fmt.Errorf("%w: bank account is closed", ErrConflict)
	ErrDuplicateAccountNumber = fmt.Errorf("%w: account number already registered", ErrValidation)

	// Transaction errors
	ErrTransactionNotFound       = fmt.Errorf("%w: bank transaction not found", ErrNotFound)
	ErrTransactionMatched        = fmt.Errorf("%w: bank transaction is matched", ErrConflict)
	ErrTransactionNotUnmatched   = fmt.Errorf("%w: bank transaction is not unmatched", ErrConflict)
	ErrTransactionDeleted        = fmt.Errorf("%w: bank transaction is deleted", ErrConflict)
	ErrTransactionAlreadyMatched = fmt.Errorf("%w: bank transaction already has an active match", ErrConflict)

	// Payment record errors
	ErrPaymentNotFound       = fmt.Errorf("%w: payment record not found", ErrNotFound)
	ErrPaymentAlreadyMatched = fmt.Errorf("%w: payment record already has an active match", ErrConflict)
	ErrDirectionMismatch     = fmt.Errorf("%w: transaction and payment directions differ", ErrValidation)
	ErrCurrencyMismatch      = fmt.Errorf("%w: transaction and payment currencies differ", ErrValidation)

	// Rule errors
	ErrRuleNotFound = fmt.Errorf("%w: matching rule not found", ErrNotFound)

	// Session errors
	ErrSessionNotFound      = fmt.Errorf("%w: reconciliation session not found", ErrNotFound)
	ErrNoActiveSession      = fmt.Errorf("%w: no active session for account", ErrNotFound)
	ErrActiveSessionExists  = fmt.Errorf("%w: active session exists", ErrConflict)
	ErrSessionNotInProgress = fmt.Errorf("%w: session is not in progress", ErrConflict)
	ErrSessionCompleted     = fmt.Errorf("%w: session is completed", ErrConflict)
	ErrAccountMismatch      = fmt.Errorf("%w: transaction belongs to another account", ErrValidation)

	// Match errors
	ErrMatchNotFound = fmt.Errorf("%w: match not found", ErrNotFound)
	ErrMatchReversed = fmt.Errorf("%w: match already reversed", ErrConflict)

	// Discrepancy errors
	ErrDiscrepancyNotFound  = fmt.Errorf("%w: discrepancy not found", ErrNotFound)
	ErrDiscrepancyResolved  = fmt.Errorf("%w: discrepancy already resolved", ErrConflict)
	ErrDuplicateDiscrepancy = fmt.Errorf("%w: discrepancy already recorded", ErrConflict)
)

// Unavailable wraps a backing store failure into the Unavailable kind.
func Unavailable(err error) error {
	if err == nil || errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// Invalid builds a Validation error with a field specific message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
