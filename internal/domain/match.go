package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MatchType records who decided a match.
type MatchType string

const (
	MatchTypeAutoMatched     MatchType = "auto_matched"
	MatchTypeManuallyMatched MatchType = "manually_matched"
)

// TransactionStatus returns the match status a transaction takes on when
// claimed by a match of this type.
func (t MatchType) TransactionStatus() MatchStatus {
	if t == MatchTypeAutoMatched {
		return MatchStatusAutoMatched
	}
	return MatchStatusManuallyMatched
}

// MatchState is the lifecycle of a match row. Reversed rows are kept.
type MatchState string

const (
	MatchStateActive   MatchState = "active"
	MatchStateReversed MatchState = "reversed"
)

// ReconciliationMatch pairs one bank transaction with one payment record.
type ReconciliationMatch struct {
	ID                string
	SessionID         string
	BankTransactionID string
	PaymentRecordID   string
	Type              MatchType
	MatchedAmount     decimal.Decimal
	Confidence        float64
	RuleID            string
	CreatedBy         string
	Notes             string
	State             MatchState
	ReversedBy        string
	ReversedAt        *time.Time
	CreatedAt         time.Time
}

// IsActive reports whether the match still claims both sides.
func (m *ReconciliationMatch) IsActive() bool {
	return m.State == MatchStateActive
}

// Reverse marks the match reversed.
func (m *ReconciliationMatch) Reverse(by string, at time.Time) error {
	if !m.IsActive() {
		return ErrMatchReversed
	}
	m.State = MatchStateReversed
	m.ReversedBy = by
	m.ReversedAt = &at
	return nil
}

// MatchSuggestion is a ranked candidate for a bank transaction.
type MatchSuggestion struct {
	Payment  *InternalPaymentRecord
	RuleID   string
	Score    Score
	DateDiff int
}
