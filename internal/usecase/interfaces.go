package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankrecon/internal/domain"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mock_interfaces.go -package=mocks

// BankAccountRepository defines data access for bank accounts.
type BankAccountRepository interface {
	Create(ctx context.Context, tx Transaction, account *domain.BankAccount) error
	GetByID(ctx context.Context, id string) (*domain.BankAccount, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.BankAccount, error)
	List(ctx context.Context, limit, offset int) ([]*domain.BankAccount, error)
	// AdjustBalance adds delta to the current balance in a single statement.
	AdjustBalance(ctx context.Context, tx Transaction, id string, delta decimal.Decimal, updatedAt time.Time) error
	UpdateStatus(ctx context.Context, tx Transaction, id string, status domain.AccountStatus, updatedAt time.Time) error
	UpdateChannel(ctx context.Context, tx Transaction, id, shortCode string, updatedAt time.Time) error
}

// BankTransactionRepository defines data access for bank transactions.
type BankTransactionRepository interface {
	Create(ctx context.Context, tx Transaction, txn *domain.BankTransaction) error
	GetByID(ctx context.Context, id string) (*domain.BankTransaction, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.BankTransaction, error)
	// List returns posted transactions matching filter in ascending id order.
	List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.BankTransaction, error)
	// Update persists match status, state and exclusion reason.
	Update(ctx context.Context, tx Transaction, txn *domain.BankTransaction) error
	// SumPosted totals the signed amounts counting toward the balance dated on
	// or before through.
	SumPosted(ctx context.Context, accountID string, through time.Time) (decimal.Decimal, error)
}

// RuleRepository defines data access for matching rules.
type RuleRepository interface {
	Create(ctx context.Context, rule *domain.MatchingRule) error
	GetByID(ctx context.Context, id string) (*domain.MatchingRule, error)
	// List returns every rule that is not deleted.
	List(ctx context.Context) ([]*domain.MatchingRule, error)
	ListActive(ctx context.Context) ([]*domain.MatchingRule, error)
	Update(ctx context.Context, rule *domain.MatchingRule) error
}

// SessionRepository defines data access for reconciliation sessions.
type SessionRepository interface {
	// Create fails with domain.ErrActiveSessionExists when the account already
	// has an in-progress session.
	Create(ctx context.Context, tx Transaction, session *domain.ReconciliationSession) error
	GetByID(ctx context.Context, id string) (*domain.ReconciliationSession, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.ReconciliationSession, error)
	GetActiveByAccount(ctx context.Context, accountID string) (*domain.ReconciliationSession, error)
	LatestCompleted(ctx context.Context, accountID string, endingBy time.Time) (*domain.ReconciliationSession, error)
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.ReconciliationSession, error)
	NextNumber(ctx context.Context, tx Transaction, accountID string) (int64, error)
	Update(ctx context.Context, tx Transaction, session *domain.ReconciliationSession) error
}

// MatchRepository defines data access for reconciliation matches.
type MatchRepository interface {
	// Create fails with domain.ErrTransactionAlreadyMatched or
	// domain.ErrPaymentAlreadyMatched when either side is actively claimed.
	Create(ctx context.Context, tx Transaction, match *domain.ReconciliationMatch) error
	GetByID(ctx context.Context, id string) (*domain.ReconciliationMatch, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.ReconciliationMatch, error)
	ListBySession(ctx context.Context, sessionID string) ([]*domain.ReconciliationMatch, error)
	// ClaimedPayments returns the subset of paymentIDs held by an active match.
	ClaimedPayments(ctx context.Context, paymentIDs []string) (map[string]bool, error)
	MarkReversed(ctx context.Context, tx Transaction, match *domain.ReconciliationMatch) error
	CountActiveBySession(ctx context.Context, sessionID string) (int, error)
}

// DiscrepancyRepository defines data access for discrepancies.
type DiscrepancyRepository interface {
	// Create fails with domain.ErrDuplicateDiscrepancy when the natural key
	// is already taken.
	Create(ctx context.Context, tx Transaction, d *domain.ReconciliationDiscrepancy) error
	GetByID(ctx context.Context, id string) (*domain.ReconciliationDiscrepancy, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.ReconciliationDiscrepancy, error)
	GetByKey(ctx context.Context, key domain.DiscrepancyKey) (*domain.ReconciliationDiscrepancy, error)
	ListBySession(ctx context.Context, sessionID string, status *domain.ResolutionStatus) ([]*domain.ReconciliationDiscrepancy, error)
	NextNumber(ctx context.Context, tx Transaction, sessionID string) (int64, error)
	Update(ctx context.Context, tx Transaction, d *domain.ReconciliationDiscrepancy) error
}

// PaymentLookup is the read-only view of the POS payment ledger.
type PaymentLookup interface {
	FindCandidates(ctx context.Context, q domain.CandidateQuery) ([]*domain.InternalPaymentRecord, error)
	GetByID(ctx context.Context, id string) (*domain.InternalPaymentRecord, error)
	ListRange(ctx context.Context, currency string, from, to time.Time) ([]*domain.InternalPaymentRecord, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error)
	DeletePublished(ctx context.Context, before time.Time) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation on transient storage errors.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a key whose request failed so it can be retried.
	Release(ctx context.Context, key string) error
}
