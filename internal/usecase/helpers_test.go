package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/iho/bankrecon/internal/domain"
	"github.com/iho/bankrecon/internal/infrastructure/metrics"
	"github.com/iho/bankrecon/internal/usecase"
	"github.com/iho/bankrecon/internal/usecase/mocks"
)

var (
	periodStart = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	periodEnd   = time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	midMarch    = time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
)

type fixture struct {
	store         *mocks.Store
	metrics       *metrics.Metrics
	accounts      *usecase.AccountUseCase
	transactions  *usecase.TransactionUseCase
	rules         *usecase.RuleUseCase
	sessions      *usecase.SessionUseCase
	matching      *usecase.MatchingUseCase
	discrepancies *usecase.DiscrepancyUseCase
	reports       *usecase.ReportUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithPayments(t, nil)
}

func newFixtureWithPayments(t *testing.T, payments usecase.PaymentLookup) *fixture {
	t.Helper()

	store := mocks.NewStore()
	if payments == nil {
		payments = store.Payments()
	}
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())

	return &fixture{
		store:   store,
		metrics: m,
		accounts: usecase.NewAccountUseCase(
			store, store.Accounts(), store.Sessions(), store.Outbox(), store, m),
		transactions: usecase.NewTransactionUseCase(
			store, store.Accounts(), store.Transactions(), store.Outbox(), store, m),
		rules: usecase.NewRuleUseCase(store.Rules(), store),
		sessions: usecase.NewSessionUseCase(
			store, store.Accounts(), store.Sessions(), store.Outbox(), store, m),
		matching: usecase.NewMatchingUseCase(
			store, store.Accounts(), store.Transactions(), store.Rules(), store.Sessions(),
			store.Matches(), store.Outbox(), payments, store, nil, m),
		discrepancies: usecase.NewDiscrepancyUseCase(
			store, store.Sessions(), store.Transactions(), store.Discrepancies(), store.Outbox(), payments, store, m),
		reports: usecase.NewReportUseCase(
			store.Accounts(), store.Transactions(), store.Sessions(), store.Matches(), store.Discrepancies(), payments, 0),
	}
}

func (f *fixture) account(t *testing.T, opening int64) *domain.BankAccount {
	t.Helper()
	number := "ACC-" + f.store.Generate()
	account, err := f.accounts.CreateAccount(context.Background(), usecase.CreateAccountInput{
		BankName:       "Equity Bank",
		AccountNumber:  number,
		AccountName:    "Main till",
		Currency:       "KES",
		OpeningBalance: decimal.NewFromInt(opening),
		Actor:          "alice",
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return account
}

func (f *fixture) deposit(t *testing.T, accountID string, amount int64, day time.Time, reference string) *domain.BankTransaction {
	t.Helper()
	return f.addTxn(t, accountID, domain.TransactionTypeDeposit, amount, day, reference)
}

func (f *fixture) addTxn(t *testing.T, accountID string, typ domain.TransactionType, amount int64, day time.Time, reference string) *domain.BankTransaction {
	t.Helper()
	txn, err := f.transactions.AddTransaction(context.Background(), usecase.AddTransactionInput{
		AccountID: accountID,
		Type:      typ,
		Date:      day,
		Reference: reference,
		Amount:    decimal.NewFromInt(amount),
	})
	if err != nil {
		t.Fatalf("add transaction: %v", err)
	}
	return txn
}

func (f *fixture) session(t *testing.T, accountID string) *domain.ReconciliationSession {
	t.Helper()
	session, err := f.sessions.StartSession(context.Background(), usecase.StartSessionInput{
		AccountID:               accountID,
		PeriodStart:             periodStart,
		PeriodEnd:               periodEnd,
		StatementClosingBalance: decimal.NewFromInt(0),
		InitiatedBy:             "alice",
	})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	return session
}

func (f *fixture) rule(t *testing.T, name string, priority int, minConfidence float64) *domain.MatchingRule {
	t.Helper()
	rule, err := f.rules.CreateRule(context.Background(), usecase.RuleInput{
		Name:              name,
		Priority:          priority,
		AmountTolerance:   decimal.NewFromInt(10),
		DateToleranceDays: 3,
		MinConfidence:     minConfidence,
	})
	if err != nil {
		t.Fatalf("create rule: %v", err)
	}
	return rule
}

func credit(id string, amount int64, day time.Time, reference string) *domain.InternalPaymentRecord {
	return &domain.InternalPaymentRecord{
		ID:        id,
		Currency:  "KES",
		Amount:    decimal.NewFromInt(amount),
		Direction: domain.DirectionCredit,
		Date:      day,
		Reference: reference,
		Method:    "mpesa",
	}
}

func ptr[T any](v T) *T { return &v }
