package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/bankrecon/internal/domain"
	"github.com/iho/bankrecon/internal/infrastructure/metrics"
)

// SessionUseCase owns the reconciliation session state machine.
type SessionUseCase struct {
	txManager   TransactionManager
	accountRepo BankAccountRepository
	sessionRepo SessionRepository
	outboxRepo  OutboxRepository
	idGen       IDGenerator
	metrics     *metrics.Metrics
}

// NewSessionUseCase creates a new SessionUseCase.
func NewSessionUseCase(
	txManager TransactionManager,
	accountRepo BankAccountRepository,
	sessionRepo SessionRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
) *SessionUseCase {
	return &SessionUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		sessionRepo: sessionRepo,
		outboxRepo:  outboxRepo,
		idGen:       idGen,
		metrics:     metrics,
	}
}

// StartSessionInput represents input for opening a session.
type StartSessionInput struct {
	AccountID               string
	PeriodStart             time.Time
	PeriodEnd               time.Time
	StatementClosingBalance decimal.Decimal
	InitiatedBy             string
}

// StartSession opens an in-progress session. The store rejects a second
// in-progress session for the same account with domain.ErrActiveSessionExists.
func (uc *SessionUseCase) StartSession(ctx context.Context, input StartSessionInput) (*domain.ReconciliationSession, error) {
	if err := domain.ValidatePeriod(input.PeriodStart, input.PeriodEnd); err != nil {
		return nil, err
	}

	session, err := uc.startSession(ctx, input)
	if uc.metrics != nil {
		uc.metrics.SessionsStarted.WithLabelValues(startOutcome(err)).Inc()
	}
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("session_id", session.ID).
		Str("session_number", session.SessionNumber).
		Str("account_id", session.AccountID).
		Msg("reconciliation session started")

	return session, nil
}

func (uc *SessionUseCase) startSession(ctx context.Context, input StartSessionInput) (*domain.ReconciliationSession, error) {
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

	seq, err := uc.sessionRepo.NextNumber(txCtx, tx, account.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &domain.ReconciliationSession{
		ID:                      uc.idGen.Generate(),
		AccountID:               account.ID,
		SessionNumber:           domain.FormatSessionNumber(seq),
		PeriodStart:             domain.DateOnly(input.PeriodStart),
		PeriodEnd:               domain.DateOnly(input.PeriodEnd),
		StatementClosingBalance: input.StatementClosingBalance,
		Status:                  domain.SessionStatusInProgress,
		InitiatedBy:             actorOrSystem(input.InitiatedBy),
		StartedAt:               now,
		CreatedAt:               now,
		UpdatedAt:               now,
	}

	if err := uc.sessionRepo.Create(txCtx, tx, session); err != nil {
		return nil, err
	}

	if err := recordEvent(txCtx, uc.outboxRepo, tx, uc.idGen,
		domain.AggregateTypeSession, session.ID, domain.EventTypeSessionStarted,
		map[string]any{
			"session_id":                session.ID,
			"session_number":            session.SessionNumber,
			"account_id":                session.AccountID,
			"period_start":              session.PeriodStart.Format(time.DateOnly),
			"period_end":                session.PeriodEnd.Format(time.DateOnly),
			"statement_closing_balance": session.StatementClosingBalance.String(),
			"actor":                     session.InitiatedBy,
		}, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return session, nil
}

func startOutcome(err error) string {
	switch {
	case err == nil:
		return "started"
	case errors.Is(err, domain.ErrActiveSessionExists):
		return "conflict"
	default:
		return "error"
	}
}

// GetSession retrieves a session by ID.
func (uc *SessionUseCase) GetSession(ctx context.Context, id string) (*domain.ReconciliationSession, error) {
	return uc.sessionRepo.GetByID(ctx, id)
}

// GetActiveSession returns the account's in-progress session or
// domain.ErrNoActiveSession.
func (uc *SessionUseCase) GetActiveSession(ctx context.Context, accountID string) (*domain.ReconciliationSession, error) {
	if _, err := uc.accountRepo.GetByID(ctx, accountID); err != nil {
		return nil, err
	}
	return uc.sessionRepo.GetActiveByAccount(ctx, accountID)
}

// ListSessions lists an account's sessions, newest first.
func (uc *SessionUseCase) ListSessions(ctx context.Context, accountID string, limit, offset int) ([]*domain.ReconciliationSession, error) {
	limit, offset = domain.ValidatePagination(limit, offset)
	return uc.sessionRepo.ListByAccount(ctx, accountID, limit, offset)
}

// CompleteSession closes the session as completed. Outstanding discrepancies
// do not block completion.
func (uc *SessionUseCase) CompleteSession(ctx context.Context, id, completedBy, notes string) (*domain.ReconciliationSession, error) {
	return uc.close(ctx, id, domain.SessionStatusCompleted, domain.EventTypeSessionCompleted, completedBy, notes)
}

// RejectSession closes the session as rejected. Matches made during the
// session are kept.
func (uc *SessionUseCase) RejectSession(ctx context.Context, id, completedBy, reason string) (*domain.ReconciliationSession, error) {
	return uc.close(ctx, id, domain.SessionStatusRejected, domain.EventTypeSessionRejected, completedBy, reason)
}

func (uc *SessionUseCase) close(
	ctx context.Context,
	id string,
	status domain.SessionStatus,
	eventType, actor, notes string,
) (*domain.ReconciliationSession, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	session, err := uc.sessionRepo.GetByIDForUpdate(txCtx, tx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	actor = actorOrSystem(actor)
	if err := session.Close(status, actor, notes, now); err != nil {
		return nil, err
	}

	if err := uc.sessionRepo.Update(txCtx, tx, session); err != nil {
		return nil, err
	}

	if err := recordEvent(txCtx, uc.outboxRepo, tx, uc.idGen,
		domain.AggregateTypeSession, session.ID, eventType,
		map[string]any{
			"session_id": session.ID,
			"account_id": session.AccountID,
			"status":     string(session.Status),
			"notes":      notes,
			"actor":      actor,
		}, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.SessionsClosed.WithLabelValues(string(status)).Inc()
	}

	zerolog.Ctx(ctx).Info().
		Str("session_id", session.ID).
		Str("status", string(session.Status)).
		Msg("reconciliation session closed")

	return session, nil
}
