package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/bankrecon/internal/domain"
	"github.com/iho/bankrecon/internal/infrastructure/metrics"
)

// AccountUseCase owns bank account registration, balance and lifecycle.
type AccountUseCase struct {
	txManager   TransactionManager
	accountRepo BankAccountRepository
	sessionRepo SessionRepository
	outboxRepo  OutboxRepository
	idGen       IDGenerator
	metrics     *metrics.Metrics
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(
	txManager TransactionManager,
	accountRepo BankAccountRepository,
	sessionRepo SessionRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
) *AccountUseCase {
	return &AccountUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		sessionRepo: sessionRepo,
		outboxRepo:  outboxRepo,
		idGen:       idGen,
		metrics:     metrics,
	}
}

// CreateAccountInput represents input for registering a bank account.
type CreateAccountInput struct {
	BankName       string
	AccountNumber  string
	AccountName    string
	Currency       string
	OpeningBalance decimal.Decimal
	Actor          string
}

// CreateAccount registers an active account whose current balance equals
// its opening balance.
func (uc *AccountUseCase) CreateAccount(ctx context.Context, input CreateAccountInput) (*domain.BankAccount, error) {
	now := time.Now().UTC()
	account := &domain.BankAccount{
		ID:             uc.idGen.Generate(),
		BankName:       strings.TrimSpace(input.BankName),
		AccountNumber:  strings.TrimSpace(input.AccountNumber),
		AccountName:    strings.TrimSpace(input.AccountName),
		Currency:       strings.ToUpper(strings.TrimSpace(input.Currency)),
		OpeningBalance: input.OpeningBalance,
		CurrentBalance: input.OpeningBalance,
		Status:         domain.AccountStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := domain.ValidateBankAccount(account); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if err := uc.accountRepo.Create(txCtx, tx, account); err != nil {
		return nil, err
	}

	if err := recordEvent(txCtx, uc.outboxRepo, tx, uc.idGen,
		domain.AggregateTypeAccount, account.ID, domain.EventTypeAccountCreated,
		map[string]any{
			"account_id":      account.ID,
			"account_number":  account.AccountNumber,
			"currency":        account.Currency,
			"opening_balance": account.OpeningBalance.String(),
			"actor":           actorOrSystem(input.Actor),
		}, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.AccountsCreated.Inc()
	}

	zerolog.Ctx(ctx).Info().
		Str("account_id", account.ID).
		Str("currency", account.Currency).
		Msg("bank account registered")

	return account, nil
}

// GetAccount retrieves an account by ID.
func (uc *AccountUseCase) GetAccount(ctx context.Context, id string) (*domain.BankAccount, error) {
	return uc.accountRepo.GetByID(ctx, id)
}

// ListAccountsInput represents input for listing accounts.
type ListAccountsInput struct {
	Limit  int
	Offset int
}

// ListAccounts lists accounts with pagination.
func (uc *AccountUseCase) ListAccounts(ctx context.Context, input ListAccountsInput) ([]*domain.BankAccount, error) {
	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)
	return uc.accountRepo.List(ctx, limit, offset)
}

// CloseAccount irreversibly closes an account. An account with a session
// still in progress cannot be closed.
func (uc *AccountUseCase) CloseAccount(ctx context.Context, id, actor string) (*domain.BankAccount, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	account, err := uc.accountRepo.GetByIDForUpdate(txCtx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := account.EnsureWritable(); err != nil {
		return nil, err
	}

	active, err := uc.sessionRepo.GetActiveByAccount(txCtx, id)
	switch {
	case err == nil && active != nil:
		return nil, domain.ErrActiveSessionExists
	case err != nil && !errors.Is(err, domain.ErrNoActiveSession):
		return nil, err
	}

	now := time.Now().UTC()
	if err := uc.accountRepo.UpdateStatus(txCtx, tx, id, domain.AccountStatusClosed, now); err != nil {
		return nil, err
	}
	account.Status = domain.AccountStatusClosed
	account.UpdatedAt = now

	if err := recordEvent(txCtx, uc.outboxRepo, tx, uc.idGen,
		domain.AggregateTypeAccount, id, domain.EventTypeAccountClosed,
		map[string]any{
			"account_id":      id,
			"current_balance": account.CurrentBalance.String(),
			"actor":           actorOrSystem(actor),
		}, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.AccountsClosed.Inc()
	}

	return account, nil
}

// LinkExternalChannel attaches a mobile-money short code used to correlate
// imported feeds with the account. The code is stored, never interpreted.
func (uc *AccountUseCase) LinkExternalChannel(ctx context.Context, id, shortCode, actor string) (*domain.BankAccount, error) {
	shortCode = strings.TrimSpace(shortCode)
	if err := domain.ValidateShortCode(shortCode); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	account, err := uc.accountRepo.GetByIDForUpdate(txCtx, tx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := uc.accountRepo.UpdateChannel(txCtx, tx, id, shortCode, now); err != nil {
		return nil, err
	}
	account.ChannelShortCode = shortCode
	account.UpdatedAt = now

	if err := recordEvent(txCtx, uc.outboxRepo, tx, uc.idGen,
		domain.AggregateTypeAccount, id, domain.EventTypeAccountChannelLinked,
		map[string]any{
			"account_id": id,
			"short_code": shortCode,
			"actor":      actorOrSystem(actor),
		}, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return account, nil
}

// recordTransactionEffect applies a signed balance delta atomically with the
// transaction mutation running in tx.
func recordTransactionEffect(ctx context.Context, repo BankAccountRepository, tx Transaction, accountID string, delta decimal.Decimal, at time.Time) error {
	if delta.IsZero() {
		return nil
	}
	return repo.AdjustBalance(ctx, tx, accountID, delta, at)
}
