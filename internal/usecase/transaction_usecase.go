package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/bankrecon/internal/domain"
	"github.com/iho/bankrecon/internal/infrastructure/metrics"
)

// TransactionUseCase owns bank transaction records and their lifecycle
// outside of matching.
type TransactionUseCase struct {
	txManager   TransactionManager
	accountRepo BankAccountRepository
	txnRepo     BankTransactionRepository
	outboxRepo  OutboxRepository
	idGen       IDGenerator
	metrics     *metrics.Metrics
}

// NewTransactionUseCase creates a new TransactionUseCase.
func NewTransactionUseCase(
	txManager TransactionManager,
	accountRepo BankAccountRepository,
	txnRepo BankTransactionRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
) *TransactionUseCase {
	return &TransactionUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		txnRepo:     txnRepo,
		outboxRepo:  outboxRepo,
		idGen:       idGen,
		metrics:     metrics,
	}
}

// AddTransactionInput is a statement line delivered by an importer or keyed
// in by hand.
type AddTransactionInput struct {
	AccountID   string
	Type        domain.TransactionType
	Date        time.Time
	Reference   string
	Description string
	Amount      decimal.Decimal
	Manual      bool
	Actor       string
}

// AddTransaction stores an unmatched transaction and applies its balance
// effect in the same database transaction.
func (uc *TransactionUseCase) AddTransaction(ctx context.Context, input AddTransactionInput) (*domain.BankTransaction, error) {
	now := time.Now().UTC()
	txn := &domain.BankTransaction{
		ID:          uc.idGen.Generate(),
		AccountID:   input.AccountID,
		Type:        input.Type,
		Date:        domain.DateOnly(input.Date),
		Reference:   strings.TrimSpace(input.Reference),
		Description: strings.TrimSpace(input.Description),
		Amount:      domain.NormalizeAmount(input.Type, input.Amount),
		Source:      domain.TransactionSourceImport,
		MatchStatus: domain.MatchStatusUnmatched,
		State:       domain.TransactionStatePosted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if input.Manual {
		txn.Source = domain.TransactionSourceManual
		txn.Reference = domain.ManualReference(txn.ID)
	}
	if err := domain.ValidateTransaction(txn); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	account, err := uc.accountRepo.GetByIDForUpdate(txCtx, tx, input.AccountID)
	if err != nil {
		return nil, err
	}
	if err := account.EnsureWritable(); err != nil {
		return nil, err
	}

	if err := uc.txnRepo.Create(txCtx, tx, txn); err != nil {
		return nil, err
	}
	if err := recordTransactionEffect(txCtx, uc.accountRepo, tx, account.ID, txn.Amount, now); err != nil {
		return nil, err
	}

	if err := recordEvent(txCtx, uc.outboxRepo, tx, uc.idGen,
		domain.AggregateTypeTransaction, txn.ID, domain.EventTypeTransactionAdded,
		map[string]any{
			"transaction_id": txn.ID,
			"account_id":     txn.AccountID,
			"type":           string(txn.Type),
			"amount":         txn.Amount.String(),
			"reference":      txn.Reference,
			"source":         string(txn.Source),
			"actor":          actorOrSystem(input.Actor),
		}, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.TransactionsAdded.WithLabelValues(string(txn.Source)).Inc()
	}

	zerolog.Ctx(ctx).Debug().
		Str("transaction_id", txn.ID).
		Str("account_id", txn.AccountID).
		Str("amount", txn.Amount.String()).
		Msg("bank transaction added")

	return txn, nil
}

// GetTransaction retrieves a transaction by ID.
func (uc *TransactionUseCase) GetTransaction(ctx context.Context, id string) (*domain.BankTransaction, error) {
	return uc.txnRepo.GetByID(ctx, id)
}

// ListTransactions returns the account's posted transactions, optionally
// narrowed by match status and date range. It never mutates state.
func (uc *TransactionUseCase) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]*domain.BankTransaction, error) {
	if filter.MatchStatus != nil && !filter.MatchStatus.IsValid() {
		return nil, domain.Invalid("unknown match status %q", *filter.MatchStatus)
	}
	if _, err := uc.accountRepo.GetByID(ctx, filter.AccountID); err != nil {
		return nil, err
	}
	return uc.txnRepo.List(ctx, filter)
}

// ExcludeTransaction takes an unmatched transaction out of reconciliation
// and out of the book balance.
func (uc *TransactionUseCase) ExcludeTransaction(ctx context.Context, id, reason, actor string) (*domain.BankTransaction, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, domain.Invalid("exclusion reason is required")
	}

	return uc.mutate(ctx, id, actor, func(txn *domain.BankTransaction) (decimal.Decimal, string, error) {
		if txn.MatchStatus.IsMatched() {
			return decimal.Zero, "", domain.ErrTransactionMatched
		}
		if !txn.MatchStatus.CanTransitionTo(domain.MatchStatusExcluded) {
			return decimal.Zero, "", domain.ErrTransactionNotUnmatched
		}
		txn.MatchStatus = domain.MatchStatusExcluded
		txn.ExclusionReason = strings.TrimSpace(reason)
		return txn.Amount.Neg(), domain.EventTypeTransactionExcluded, nil
	})
}

// DeleteTransaction soft-deletes an unmatched or excluded transaction.
// Matched transactions must be unmatched first.
func (uc *TransactionUseCase) DeleteTransaction(ctx context.Context, id, actor string) (*domain.BankTransaction, error) {
	return uc.mutate(ctx, id, actor, func(txn *domain.BankTransaction) (decimal.Decimal, string, error) {
		if txn.MatchStatus.IsMatched() {
			return decimal.Zero, "", domain.ErrTransactionMatched
		}
		delta := decimal.Zero
		if txn.CountsTowardBalance() {
			delta = txn.Amount.Neg()
		}
		txn.State = domain.TransactionStateDeleted
		return delta, domain.EventTypeTransactionDeleted, nil
	})
}

func (uc *TransactionUseCase) mutate(
	ctx context.Context,
	id, actor string,
	apply func(txn *domain.BankTransaction) (decimal.Decimal, string, error),
) (*domain.BankTransaction, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	txn, err := uc.txnRepo.GetByIDForUpdate(txCtx, tx, id)
	if err != nil {
		return nil, err
	}
	if txn.IsDeleted() {
		return nil, domain.ErrTransactionDeleted
	}

	account, err := uc.accountRepo.GetByIDForUpdate(txCtx, tx, txn.AccountID)
	if err != nil {
		return nil, err
	}
	if err := account.EnsureWritable(); err != nil {
		return nil, err
	}

	delta, eventType, err := apply(txn)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	txn.UpdatedAt = now
	if err := uc.txnRepo.Update(txCtx, tx, txn); err != nil {
		return nil, err
	}
	if err := recordTransactionEffect(txCtx, uc.accountRepo, tx, account.ID, delta, now); err != nil {
		return nil, err
	}

	if err := recordEvent(txCtx, uc.outboxRepo, tx, uc.idGen,
		domain.AggregateTypeTransaction, txn.ID, eventType,
		map[string]any{
			"transaction_id": txn.ID,
			"account_id":     txn.AccountID,
			"amount":         txn.Amount.String(),
			"balance_delta":  delta.String(),
			"reason":         txn.ExclusionReason,
			"actor":          actorOrSystem(actor),
		}, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.TransactionsRemoved.WithLabelValues(eventType).Inc()
	}

	return txn, nil
}
