package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/bankrecon/internal/adapter/repository/postgres"
	"github.com/iho/bankrecon/internal/domain"
	infrapostgres "github.com/iho/bankrecon/internal/infrastructure/postgres"
	"github.com/iho/bankrecon/internal/usecase"
)

// TestDB provides isolated test database connections.
type TestDB struct {
	Pool *pgxpool.Pool
	t    *testing.T
}

// NewTestDB connects to DATABASE_URL and applies migrations. The test is
// skipped when DATABASE_URL is unset.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	migrationsPath := "migrations"
	for _, candidate := range []string{"migrations", "../migrations", "../../migrations"} {
		if _, err := os.Stat(candidate); err == nil {
			migrationsPath = candidate
			break
		}
	}

	if err := infrapostgres.RunMigrations(dbURL, migrationsPath, zerolog.Nop()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := infrapostgres.NewPool(ctx, dbURL, 20, 2)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	return &TestDB{Pool: pool, t: t}
}

// Cleanup closes the database connection.
func (db *TestDB) Cleanup() {
	db.Pool.Close()
}

// TruncateAll removes all data from tables.
func (db *TestDB) TruncateAll(ctx context.Context) {
	db.t.Helper()

	_, err := db.Pool.Exec(ctx, `
		TRUNCATE TABLE reconciliation_discrepancies CASCADE;
		TRUNCATE TABLE reconciliation_matches CASCADE;
		TRUNCATE TABLE reconciliation_sessions CASCADE;
		TRUNCATE TABLE bank_transactions CASCADE;
		TRUNCATE TABLE bank_accounts CASCADE;
		TRUNCATE TABLE matching_rules CASCADE;
		TRUNCATE TABLE payment_records CASCADE;
		TRUNCATE TABLE outbox_events CASCADE;
	`)
	if err != nil {
		db.t.Fatalf("failed to truncate tables: %v", err)
	}
}

// InsertPayment writes a replicated POS payment record.
func (db *TestDB) InsertPayment(ctx context.Context, currency string, amount decimal.Decimal, direction domain.Direction, date time.Time, reference string) *domain.InternalPaymentRecord {
	db.t.Helper()

	p := &domain.InternalPaymentRecord{
		ID:        GenerateID(),
		Currency:  currency,
		Amount:    amount,
		Direction: direction,
		Date:      domain.DateOnly(date),
		Reference: reference,
	}

	_, err := db.Pool.Exec(ctx, `
		INSERT INTO payment_records (id, currency, amount, direction, payment_date, reference)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.Currency, p.Amount.String(), string(p.Direction), p.Date, p.Reference)
	if err != nil {
		db.t.Fatalf("failed to insert payment record: %v", err)
	}

	return p
}

// Stack is the use case layer wired to the test database.
type Stack struct {
	Accounts      *usecase.AccountUseCase
	Transactions  *usecase.TransactionUseCase
	Rules         *usecase.RuleUseCase
	Sessions      *usecase.SessionUseCase
	Matching      *usecase.MatchingUseCase
	Discrepancies *usecase.DiscrepancyUseCase
	Reports       *usecase.ReportUseCase
	Outbox        *postgres.OutboxRepository
}

// NewStack wires every use case to db without metrics.
func (db *TestDB) NewStack() *Stack {
	pool := db.Pool
	txManager := postgres.NewTxManager(pool, nil)
	idGen := postgres.NewULIDGenerator()
	accountRepo := postgres.NewBankAccountRepository(pool)
	txnRepo := postgres.NewBankTransactionRepository(pool)
	ruleRepo := postgres.NewRuleRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)
	matchRepo := postgres.NewMatchRepository(pool)
	discrepancyRepo := postgres.NewDiscrepancyRepository(pool)
	outboxRepo := postgres.NewOutboxRepository(pool)
	payments := postgres.NewPaymentLookup(pool)

	return &Stack{
		Accounts:     usecase.NewAccountUseCase(txManager, accountRepo, sessionRepo, outboxRepo, idGen, nil),
		Transactions: usecase.NewTransactionUseCase(txManager, accountRepo, txnRepo, outboxRepo, idGen, nil),
		Rules:        usecase.NewRuleUseCase(ruleRepo, idGen),
		Sessions:     usecase.NewSessionUseCase(txManager, accountRepo, sessionRepo, outboxRepo, idGen, nil),
		Matching: usecase.NewMatchingUseCase(txManager, accountRepo, txnRepo, ruleRepo, sessionRepo,
			matchRepo, outboxRepo, payments, idGen, postgres.NewRetrier(nil), nil),
		Discrepancies: usecase.NewDiscrepancyUseCase(txManager, sessionRepo, txnRepo, discrepancyRepo,
			outboxRepo, payments, idGen, nil),
		Reports: usecase.NewReportUseCase(accountRepo, txnRepo, sessionRepo, matchRepo, discrepancyRepo, payments, 0),
		Outbox:  outboxRepo,
	}
}

// CreateTestAccount registers an active account with the given opening
// balance.
func (s *Stack) CreateTestAccount(t *testing.T, ctx context.Context, currency string, opening decimal.Decimal) *domain.BankAccount {
	t.Helper()

	account, err := s.Accounts.CreateAccount(ctx, usecase.CreateAccountInput{
		BankName:       "Test Bank",
		AccountNumber:  GenerateID(),
		AccountName:    "Collections",
		Currency:       currency,
		OpeningBalance: opening,
		Actor:          "tester",
	})
	if err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

// GenerateID generates a new ULID.
func GenerateID() string {
	return ulid.Make().String()
}
