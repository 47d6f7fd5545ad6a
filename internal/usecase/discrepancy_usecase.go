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

// DiscrepancyUseCase owns discrepancy creation and the resolution workflow.
type DiscrepancyUseCase struct {
	txManager       TransactionManager
	sessionRepo     SessionRepository
	txnRepo         BankTransactionRepository
	discrepancyRepo DiscrepancyRepository
	outboxRepo      OutboxRepository
	payments        PaymentLookup
	idGen           IDGenerator
	metrics         *metrics.Metrics
}

// NewDiscrepancyUseCase creates a new DiscrepancyUseCase.
func NewDiscrepancyUseCase(
	txManager TransactionManager,
	sessionRepo SessionRepository,
	txnRepo BankTransactionRepository,
	discrepancyRepo DiscrepancyRepository,
	outboxRepo OutboxRepository,
	payments PaymentLookup,
	idGen IDGenerator,
	metrics *metrics.Metrics,
) *DiscrepancyUseCase {
	return &DiscrepancyUseCase{
		txManager:       txManager,
		sessionRepo:     sessionRepo,
		txnRepo:         txnRepo,
		discrepancyRepo: discrepancyRepo,
		outboxRepo:      outboxRepo,
		payments:        payments,
		idGen:           idGen,
		metrics:         metrics,
	}
}

// CreateDiscrepancyInput describes a gap found during a session.
type CreateDiscrepancyInput struct {
	SessionID         string
	Type              domain.DiscrepancyType
	BankTransactionID string
	PaymentRecordID   string
	Amount            decimal.Decimal
	Description       string
	Actor             string
}

// CreateDiscrepancy records an open discrepancy. Creation is idempotent on
// (session, type, bank transaction, payment record): a retry returns the
// row created first and reports created=false.
func (uc *DiscrepancyUseCase) CreateDiscrepancy(ctx context.Context, input CreateDiscrepancyInput) (*domain.ReconciliationDiscrepancy, bool, error) {
	if !input.Type.IsValid() {
		return nil, false, domain.Invalid("unknown discrepancy type %q", input.Type)
	}
	if err := domain.ValidateDiscrepancyAmount(input.Amount); err != nil {
		return nil, false, err
	}

	key := domain.DiscrepancyKey{
		SessionID:         input.SessionID,
		Type:              input.Type,
		BankTransactionID: input.BankTransactionID,
		PaymentRecordID:   input.PaymentRecordID,
	}
	if existing, err := uc.discrepancyRepo.GetByKey(ctx, key); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, domain.ErrDiscrepancyNotFound) {
		return nil, false, err
	}

	d, err := uc.create(ctx, input)
	if errors.Is(err, domain.ErrDuplicateDiscrepancy) {
		existing, getErr := uc.discrepancyRepo.GetByKey(ctx, key)
		if getErr != nil {
			return nil, false, getErr
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if uc.metrics != nil {
		uc.metrics.DiscrepanciesCreated.WithLabelValues(string(d.Type)).Inc()
	}

	zerolog.Ctx(ctx).Info().
		Str("discrepancy_id", d.ID).
		Str("number", d.Number).
		Str("type", string(d.Type)).
		Msg("discrepancy recorded")

	return d, true, nil
}

func (uc *DiscrepancyUseCase) create(ctx context.Context, input CreateDiscrepancyInput) (*domain.ReconciliationDiscrepancy, error) {
	if input.PaymentRecordID != "" && uc.payments != nil {
		if _, err := uc.payments.GetByID(ctx, input.PaymentRecordID); err != nil {
			return nil, err
		}
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	session, err := uc.sessionRepo.GetByIDForUpdate(txCtx, tx, input.SessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsInProgress() {
		return nil, domain.ErrSessionNotInProgress
	}

	if input.BankTransactionID != "" {
		txn, err := uc.txnRepo.GetByID(txCtx, input.BankTransactionID)
		if err != nil {
			return nil, err
		}
		if txn.AccountID != session.AccountID {
			return nil, domain.ErrAccountMismatch
		}
	}

	seq, err := uc.discrepancyRepo.NextNumber(txCtx, tx, session.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	d := &domain.ReconciliationDiscrepancy{
		ID:                uc.idGen.Generate(),
		SessionID:         session.ID,
		Number:            domain.FormatDiscrepancyNumber(session.SessionNumber, seq),
		Type:              input.Type,
		BankTransactionID: input.BankTransactionID,
		PaymentRecordID:   input.PaymentRecordID,
		Amount:            input.Amount,
		Description:       strings.TrimSpace(input.Description),
		Status:            domain.ResolutionOpen,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := uc.discrepancyRepo.Create(txCtx, tx, d); err != nil {
		return nil, err
	}

	if err := recordEvent(txCtx, uc.outboxRepo, tx, uc.idGen,
		domain.AggregateTypeDiscrepancy, d.ID, domain.EventTypeDiscrepancyCreated,
		map[string]any{
			"discrepancy_id":    d.ID,
			"number":            d.Number,
			"session_id":        d.SessionID,
			"type":              string(d.Type),
			"transaction_id":    d.BankTransactionID,
			"payment_record_id": d.PaymentRecordID,
			"amount":            d.Amount.String(),
			"actor":             actorOrSystem(input.Actor),
		}, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return d, nil
}

// ResolveDiscrepancy moves an open or escalated discrepancy to resolved.
// Resolving a resolved discrepancy changes nothing.
func (uc *DiscrepancyUseCase) ResolveDiscrepancy(ctx context.Context, id, notes, resolvedBy string) (*domain.ReconciliationDiscrepancy, error) {
	return uc.transition(ctx, id, domain.EventTypeDiscrepancyResolved, resolvedBy,
		func(d *domain.ReconciliationDiscrepancy, actor string, at time.Time) (bool, error) {
			return d.Resolve(strings.TrimSpace(notes), actor, at), nil
		})
}

// EscalateDiscrepancy moves an open discrepancy to escalated. Escalating
// twice is a no-op; resolved discrepancies cannot be escalated.
func (uc *DiscrepancyUseCase) EscalateDiscrepancy(ctx context.Context, id, notes, escalatedBy string) (*domain.ReconciliationDiscrepancy, error) {
	return uc.transition(ctx, id, domain.EventTypeDiscrepancyEscalated, escalatedBy,
		func(d *domain.ReconciliationDiscrepancy, actor string, at time.Time) (bool, error) {
			return d.Escalate(strings.TrimSpace(notes), actor, at)
		})
}

func (uc *DiscrepancyUseCase) transition(
	ctx context.Context,
	id, eventType, actor string,
	apply func(d *domain.ReconciliationDiscrepancy, actor string, at time.Time) (bool, error),
) (*domain.ReconciliationDiscrepancy, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	d, err := uc.discrepancyRepo.GetByIDForUpdate(txCtx, tx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	actor = actorOrSystem(actor)
	changed, err := apply(d, actor, now)
	if err != nil {
		return nil, err
	}
	if !changed {
		return d, nil
	}

	if err := uc.discrepancyRepo.Update(txCtx, tx, d); err != nil {
		return nil, err
	}

	if err := recordEvent(txCtx, uc.outboxRepo, tx, uc.idGen,
		domain.AggregateTypeDiscrepancy, d.ID, eventType,
		map[string]any{
			"discrepancy_id": d.ID,
			"session_id":     d.SessionID,
			"status":         string(d.Status),
			"notes":          d.ResolutionNotes,
			"actor":          actor,
		}, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil && d.Status == domain.ResolutionResolved {
		uc.metrics.DiscrepanciesResolved.Inc()
	}

	return d, nil
}

// GetDiscrepancy retrieves a discrepancy by ID.
func (uc *DiscrepancyUseCase) GetDiscrepancy(ctx context.Context, id string) (*domain.ReconciliationDiscrepancy, error) {
	return uc.discrepancyRepo.GetByID(ctx, id)
}

// ListDiscrepancies lists a session's discrepancies in creation order,
// optionally filtered by resolution status.
func (uc *DiscrepancyUseCase) ListDiscrepancies(ctx context.Context, sessionID string, status *domain.ResolutionStatus) ([]*domain.ReconciliationDiscrepancy, error) {
	if status != nil && !status.IsValid() {
		return nil, domain.Invalid("unknown resolution status %q", *status)
	}
	if _, err := uc.sessionRepo.GetByID(ctx, sessionID); err != nil {
		return nil, err
	}
	return uc.discrepancyRepo.ListBySession(ctx, sessionID, status)
}
