package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a bank statement line.
type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeFee        TransactionType = "fee"
	TransactionTypeInterest   TransactionType = "interest"
	TransactionTypeOther      TransactionType = "other"
)

// IsValid reports whether t is a known transaction type.
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeFee,
		TransactionTypeInterest, TransactionTypeOther:
		return true
	}
	return false
}

// MatchStatus tracks whether a transaction is claimed by a match.
type MatchStatus string

const (
	MatchStatusUnmatched       MatchStatus = "unmatched"
	MatchStatusAutoMatched     MatchStatus = "auto_matched"
	MatchStatusManuallyMatched MatchStatus = "manually_matched"
	MatchStatusExcluded        MatchStatus = "excluded"
)

// IsValid reports whether s is a known match status.
func (s MatchStatus) IsValid() bool {
	switch s {
	case MatchStatusUnmatched, MatchStatusAutoMatched, MatchStatusManuallyMatched, MatchStatusExcluded:
		return true
	}
	return false
}

// IsMatched reports whether s represents an active claim.
func (s MatchStatus) IsMatched() bool {
	return s == MatchStatusAutoMatched || s == MatchStatusManuallyMatched
}

// CanTransitionTo encodes the only reachable match status edges:
// unmatched -> {auto, manual, excluded} and {auto, manual} -> unmatched.
func (s MatchStatus) CanTransitionTo(next MatchStatus) bool {
	switch s {
	case MatchStatusUnmatched:
		return next == MatchStatusAutoMatched || next == MatchStatusManuallyMatched || next == MatchStatusExcluded
	case MatchStatusAutoMatched, MatchStatusManuallyMatched:
		return next == MatchStatusUnmatched
	}
	return false
}

// TransactionState is the record lifecycle of a bank transaction.
type TransactionState string

const (
	TransactionStatePosted  TransactionState = "posted"
	TransactionStateDeleted TransactionState = "deleted"
)

// TransactionSource records how a transaction entered the store.
type TransactionSource string

const (
	TransactionSourceImport TransactionSource = "import"
	TransactionSourceManual TransactionSource = "manual"
)

// ManualReferencePrefix marks references synthesized for manual entries.
const ManualReferencePrefix = "MAN-"

// BankTransaction is a single dated, signed-amount statement line.
type BankTransaction struct {
	ID              string
	AccountID       string
	Type            TransactionType
	Date            time.Time
	Reference       string
	Description     string
	Amount          decimal.Decimal
	Source          TransactionSource
	MatchStatus     MatchStatus
	State           TransactionState
	ExclusionReason string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Direction is the money flow of the transaction from the account's view.
func (t *BankTransaction) Direction() Direction {
	if t.Amount.IsNegative() {
		return DirectionDebit
	}
	return DirectionCredit
}

// IsDeleted reports whether the transaction was soft-deleted.
func (t *BankTransaction) IsDeleted() bool {
	return t.State == TransactionStateDeleted
}

// CountsTowardBalance reports whether the amount is part of the book balance.
func (t *BankTransaction) CountsTowardBalance() bool {
	return !t.IsDeleted() && t.MatchStatus != MatchStatusExcluded
}

// IsManual reports whether the reference was synthesized for a manual entry.
func (t *BankTransaction) IsManual() bool {
	return strings.HasPrefix(t.Reference, ManualReferencePrefix)
}

// NormalizeAmount applies the sign convention of the transaction type:
// deposits and interest are credits, withdrawals and fees are debits, other
// entries keep the caller's sign.
func NormalizeAmount(t TransactionType, amount decimal.Decimal) decimal.Decimal {
	switch t {
	case TransactionTypeDeposit, TransactionTypeInterest:
		return amount.Abs()
	case TransactionTypeWithdrawal, TransactionTypeFee:
		return amount.Abs().Neg()
	default:
		return amount
	}
}

// ManualReference builds the reference of a manually entered transaction.
func ManualReference(id string) string {
	return ManualReferencePrefix + id
}

// TransactionFilter narrows ListTransactions results.
type TransactionFilter struct {
	AccountID   string
	MatchStatus *MatchStatus
	From        *time.Time
	To          *time.Time
}

// DateOnly truncates t to its UTC calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
