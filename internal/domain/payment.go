package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the flow of money relative to the bank account.
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// InternalPaymentRecord is a payment entry from the POS ledger.
// The engine only reads these.
type InternalPaymentRecord struct {
	ID        string
	Currency  string
	Amount    decimal.Decimal
	Direction Direction
	Date      time.Time
	Reference string
	Method    string
}

// CandidateQuery is the tolerance window handed to the payment lookup.
type CandidateQuery struct {
	Currency     string
	Amount       decimal.Decimal
	ToleranceAbs decimal.Decimal
	DateFrom     time.Time
	DateTo       time.Time
	Direction    Direction
}

// CandidateQueryFor builds the lookup window of rule around txn.
func CandidateQueryFor(txn *BankTransaction, currency string, rule *MatchingRule) CandidateQuery {
	day := DateOnly(txn.Date)
	return CandidateQuery{
		Currency:     currency,
		Amount:       txn.Amount.Abs(),
		ToleranceAbs: rule.AmountTolerance,
		DateFrom:     day.AddDate(0, 0, -rule.DateToleranceDays),
		DateTo:       day.AddDate(0, 0, rule.DateToleranceDays),
		Direction:    txn.Direction(),
	}
}
