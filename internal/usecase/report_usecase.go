package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankrecon/internal/domain"
)

// ReportUseCase derives read models from persisted state. It holds no state
// of its own.
type ReportUseCase struct {
	accountRepo     BankAccountRepository
	txnRepo         BankTransactionRepository
	sessionRepo     SessionRepository
	matchRepo       MatchRepository
	discrepancyRepo DiscrepancyRepository
	payments        PaymentLookup
	lookback        time.Duration
}

// NewReportUseCase creates a new ReportUseCase. A non-positive lookback
// falls back to DefaultOutstandingLookback.
func NewReportUseCase(
	accountRepo BankAccountRepository,
	txnRepo BankTransactionRepository,
	sessionRepo SessionRepository,
	matchRepo MatchRepository,
	discrepancyRepo DiscrepancyRepository,
	payments PaymentLookup,
	lookback time.Duration,
) *ReportUseCase {
	if lookback <= 0 {
		lookback = DefaultOutstandingLookback
	}
	return &ReportUseCase{
		accountRepo:     accountRepo,
		txnRepo:         txnRepo,
		sessionRepo:     sessionRepo,
		matchRepo:       matchRepo,
		discrepancyRepo: discrepancyRepo,
		payments:        payments,
		lookback:        lookback,
	}
}

// SessionSummary is the headline view of a session.
type SessionSummary struct {
	SessionID               string
	SessionNumber           string
	AccountID               string
	Status                  domain.SessionStatus
	StatementClosingBalance decimal.Decimal
	BookBalance             decimal.Decimal
	Difference              decimal.Decimal
	MatchedCount            int
	UnmatchedCount          int
	OpenDiscrepancies       int
	TotalDiscrepancyAmount  decimal.Decimal
	GeneratedAt             time.Time
}

// SessionSummary reports balances, match counts and the unresolved
// discrepancy total of a session. The book balance is taken as of the period
// end so later statement lines do not skew the difference.
func (uc *ReportUseCase) SessionSummary(ctx context.Context, sessionID string) (*SessionSummary, error) {
	session, err := uc.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	account, err := uc.accountRepo.GetByID(ctx, session.AccountID)
	if err != nil {
		return nil, err
	}

	posted, err := uc.txnRepo.SumPosted(ctx, session.AccountID, session.PeriodEnd)
	if err != nil {
		return nil, err
	}
	bookBalance := account.OpeningBalance.Add(posted)

	matched, err := uc.matchRepo.CountActiveBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	unmatchedStatus := domain.MatchStatusUnmatched
	from, to := session.PeriodStart, session.PeriodEnd
	unmatched, err := uc.txnRepo.List(ctx, domain.TransactionFilter{
		AccountID:   session.AccountID,
		MatchStatus: &unmatchedStatus,
		From:        &from,
		To:          &to,
	})
	if err != nil {
		return nil, err
	}

	discrepancies, err := uc.discrepancyRepo.ListBySession(ctx, sessionID, nil)
	if err != nil {
		return nil, err
	}

	summary := &SessionSummary{
		SessionID:               session.ID,
		SessionNumber:           session.SessionNumber,
		AccountID:               session.AccountID,
		Status:                  session.Status,
		StatementClosingBalance: session.StatementClosingBalance,
		BookBalance:             bookBalance,
		Difference:              session.StatementClosingBalance.Sub(bookBalance),
		MatchedCount:            matched,
		UnmatchedCount:          len(unmatched),
		TotalDiscrepancyAmount:  decimal.Zero,
		GeneratedAt:             time.Now().UTC(),
	}
	for _, d := range discrepancies {
		if d.IsUnresolved() {
			summary.OpenDiscrepancies++
			summary.TotalDiscrepancyAmount = summary.TotalDiscrepancyAmount.Add(d.Amount)
		}
	}

	return summary, nil
}

// OutstandingItems lists what is still unreconciled on both sides.
type OutstandingItems struct {
	AccountID                string
	AsOf                     time.Time
	UnmatchedTransactions    []*domain.BankTransaction
	UnmatchedPaymentRecords  []*domain.InternalPaymentRecord
	UnmatchedTransactionsSum decimal.Decimal
	UnmatchedPaymentsSum     decimal.Decimal
}

// OutstandingItems returns unmatched transactions dated on or before asOf
// and unclaimed payment records inside the lookback window ending at asOf.
func (uc *ReportUseCase) OutstandingItems(ctx context.Context, accountID string, asOf time.Time) (*OutstandingItems, error) {
	account, err := uc.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	asOf = domain.DateOnly(asOf)
	unmatchedStatus := domain.MatchStatusUnmatched
	txns, err := uc.txnRepo.List(ctx, domain.TransactionFilter{
		AccountID:   accountID,
		MatchStatus: &unmatchedStatus,
		To:          &asOf,
	})
	if err != nil {
		return nil, err
	}

	payments, err := uc.payments.ListRange(ctx, account.Currency, asOf.Add(-uc.lookback), asOf)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(payments))
	for _, p := range payments {
		ids = append(ids, p.ID)
	}
	claimed := map[string]bool{}
	if len(ids) > 0 {
		if claimed, err = uc.matchRepo.ClaimedPayments(ctx, ids); err != nil {
			return nil, err
		}
	}

	report := &OutstandingItems{
		AccountID:                accountID,
		AsOf:                     asOf,
		UnmatchedTransactions:    txns,
		UnmatchedPaymentRecords:  make([]*domain.InternalPaymentRecord, 0, len(payments)),
		UnmatchedTransactionsSum: decimal.Zero,
		UnmatchedPaymentsSum:     decimal.Zero,
	}
	for _, t := range txns {
		report.UnmatchedTransactionsSum = report.UnmatchedTransactionsSum.Add(t.Amount)
	}
	for _, p := range payments {
		if claimed[p.ID] {
			continue
		}
		report.UnmatchedPaymentRecords = append(report.UnmatchedPaymentRecords, p)
		amount := p.Amount
		if p.Direction == domain.DirectionDebit {
			amount = amount.Neg()
		}
		report.UnmatchedPaymentsSum = report.UnmatchedPaymentsSum.Add(amount)
	}

	return report, nil
}

// BalanceComparison compares the book balance at a date with the closing
// balance of the latest completed statement.
type BalanceComparison struct {
	AccountID        string
	AsOf             time.Time
	BookBalance      decimal.Decimal
	StatementBalance decimal.Decimal
	StatementSession string
	HasStatement     bool
	Difference       decimal.Decimal
	IsReconciled     bool
}

// BalanceComparison computes the book balance as opening balance plus every
// counted transaction dated on or before asOf, and compares it with the
// latest completed session whose period ends on or before asOf.
func (uc *ReportUseCase) BalanceComparison(ctx context.Context, accountID string, asOf time.Time) (*BalanceComparison, error) {
	account, err := uc.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	asOf = domain.DateOnly(asOf)
	posted, err := uc.txnRepo.SumPosted(ctx, accountID, asOf)
	if err != nil {
		return nil, err
	}

	result := &BalanceComparison{
		AccountID:        accountID,
		AsOf:             asOf,
		BookBalance:      account.OpeningBalance.Add(posted),
		StatementBalance: decimal.Zero,
	}

	latest, err := uc.sessionRepo.LatestCompleted(ctx, accountID, asOf)
	switch {
	case err == nil:
		result.HasStatement = true
		result.StatementBalance = latest.StatementClosingBalance
		result.StatementSession = latest.ID
	case !errors.Is(err, domain.ErrSessionNotFound):
		return nil, err
	}

	result.Difference = result.StatementBalance.Sub(result.BookBalance)
	result.IsReconciled = result.HasStatement && result.Difference.IsZero()
	return result, nil
}

// CompareAllAccounts runs BalanceComparison for every registered account.
func (uc *ReportUseCase) CompareAllAccounts(ctx context.Context, asOf time.Time) ([]*BalanceComparison, error) {
	limit, offset := domain.ValidatePagination(1000, 0)

	var results []*BalanceComparison
	for {
		accounts, err := uc.accountRepo.List(ctx, limit, offset)
		if err != nil {
			return nil, err
		}
		for _, account := range accounts {
			result, err := uc.BalanceComparison(ctx, account.ID, asOf)
			if err != nil {
				return nil, fmt.Errorf("failed to compare account %s: %w", account.ID, err)
			}
			results = append(results, result)
		}
		if len(accounts) < limit {
			return results, nil
		}
		offset += limit
	}
}
