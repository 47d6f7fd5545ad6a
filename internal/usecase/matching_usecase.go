package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/bankrecon/internal/domain"
	"github.com/iho/bankrecon/internal/infrastructure/metrics"
)

// MatchingUseCase generates, scores and ranks candidate matches and creates
// or reverses matches.
type MatchingUseCase struct {
	txManager   TransactionManager
	accountRepo BankAccountRepository
	txnRepo     BankTransactionRepository
	ruleRepo    RuleRepository
	sessionRepo SessionRepository
	matchRepo   MatchRepository
	outboxRepo  OutboxRepository
	payments    PaymentLookup
	idGen       IDGenerator
	retrier     Retrier
	metrics     *metrics.Metrics
}

// NewMatchingUseCase creates a new MatchingUseCase. retrier and metrics may
// be nil.
func NewMatchingUseCase(
	txManager TransactionManager,
	accountRepo BankAccountRepository,
	txnRepo BankTransactionRepository,
	ruleRepo RuleRepository,
	sessionRepo SessionRepository,
	matchRepo MatchRepository,
	outboxRepo OutboxRepository,
	payments PaymentLookup,
	idGen IDGenerator,
	retrier Retrier,
	metrics *metrics.Metrics,
) *MatchingUseCase {
	return &MatchingUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		txnRepo:     txnRepo,
		ruleRepo:    ruleRepo,
		sessionRepo: sessionRepo,
		matchRepo:   matchRepo,
		outboxRepo:  outboxRepo,
		payments:    payments,
		idGen:       idGen,
		retrier:     retrier,
		metrics:     metrics,
	}
}

// GetMatchSuggestions returns the ranked candidates for an unmatched
// transaction across all active rules, keeping each payment record's best
// score. It does not mutate state.
func (uc *MatchingUseCase) GetMatchSuggestions(ctx context.Context, transactionID string) ([]domain.MatchSuggestion, error) {
	txn, err := uc.txnRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.IsDeleted() {
		return nil, domain.ErrTransactionDeleted
	}
	if txn.MatchStatus != domain.MatchStatusUnmatched {
		return nil, domain.ErrTransactionNotUnmatched
	}

	account, err := uc.accountRepo.GetByID(ctx, txn.AccountID)
	if err != nil {
		return nil, err
	}

	rules, err := uc.scoringRules(ctx)
	if err != nil {
		return nil, err
	}

	best := make(map[string]domain.MatchSuggestion)
	for _, rule := range rules {
		candidates, err := uc.candidates(ctx, txn, account.Currency, rule)
		if err != nil {
			return nil, err
		}
		for _, c := range candidates {
			if prev, ok := best[c.Payment.ID]; !ok || c.Score.Total > prev.Score.Total {
				best[c.Payment.ID] = c
			}
		}
	}

	suggestions := make([]domain.MatchSuggestion, 0, len(best))
	for _, s := range best {
		suggestions = append(suggestions, s)
	}
	domain.RankSuggestions(suggestions)

	if uc.metrics != nil {
		uc.metrics.SuggestionLookups.Inc()
	}

	return suggestions, nil
}

// scoringRules returns the active rules, or the built-in default rule when
// none are configured.
func (uc *MatchingUseCase) scoringRules(ctx context.Context) ([]*domain.MatchingRule, error) {
	rules, err := activeRules(ctx, uc.ruleRepo)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return []*domain.MatchingRule{domain.DefaultMatchingRule()}, nil
	}
	return rules, nil
}

// candidates runs one rule against txn: it fetches payment records inside
// the rule's tolerance window, drops records already claimed by an active
// match or below the reference threshold, scores the rest and ranks them.
func (uc *MatchingUseCase) candidates(
	ctx context.Context,
	txn *domain.BankTransaction,
	currency string,
	rule *domain.MatchingRule,
) ([]domain.MatchSuggestion, error) {
	q := domain.CandidateQueryFor(txn, currency, rule)
	payments, err := uc.payments.FindCandidates(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(payments))
	for _, p := range payments {
		ids = append(ids, p.ID)
	}
	claimed, err := uc.matchRepo.ClaimedPayments(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]domain.MatchSuggestion, 0, len(payments))
	for _, p := range payments {
		if claimed[p.ID] || !inWindow(txn, p, q) {
			continue
		}
		// A candidate on both tolerance edges with no reference overlap
		// scores zero but is still offered.
		score := domain.ScoreCandidate(txn, p, rule)
		if score.Similarity < rule.ReferenceSimilarity {
			continue
		}
		out = append(out, domain.MatchSuggestion{
			Payment:  p,
			RuleID:   rule.ID,
			Score:    score,
			DateDiff: domain.DaysBetween(txn.Date, p.Date),
		})
	}
	domain.RankSuggestions(out)
	return out, nil
}

// inWindow re-checks the lookup result against the query window.
func inWindow(txn *domain.BankTransaction, p *domain.InternalPaymentRecord, q domain.CandidateQuery) bool {
	if p.Direction != q.Direction || !strings.EqualFold(p.Currency, q.Currency) {
		return false
	}
	if txn.Amount.Abs().Sub(p.Amount.Abs()).Abs().GreaterThan(q.ToleranceAbs) {
		return false
	}
	day := domain.DateOnly(p.Date)
	return !day.Before(q.DateFrom) && !day.After(q.DateTo)
}

// ManualMatchInput represents a reviewer's pairing decision.
type ManualMatchInput struct {
	SessionID     string
	TransactionID string
	PaymentID     string
	Notes         string
	Actor         string
}

// CreateManualMatch pairs a transaction with a payment record chosen by a
// reviewer. A confidence is still computed and stored. Either side being
// already claimed fails with a conflict and writes nothing.
func (uc *MatchingUseCase) CreateManualMatch(ctx context.Context, input ManualMatchInput) (*domain.ReconciliationMatch, error) {
	payment, err := uc.payments.GetByID(ctx, input.PaymentID)
	if err != nil {
		return nil, err
	}

	rules, err := uc.scoringRules(ctx)
	if err != nil {
		return nil, err
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

	txn, err := uc.txnRepo.GetByIDForUpdate(txCtx, tx, input.TransactionID)
	if err != nil {
		return nil, err
	}
	if err := checkClaimable(txn, session); err != nil {
		return nil, err
	}

	account, err := uc.accountRepo.GetByID(txCtx, txn.AccountID)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(account.Currency, payment.Currency) {
		return nil, domain.ErrCurrencyMismatch
	}
	if txn.Direction() != payment.Direction {
		return nil, domain.ErrDirectionMismatch
	}

	claimed, err := uc.matchRepo.ClaimedPayments(txCtx, []string{payment.ID})
	if err != nil {
		return nil, err
	}
	if claimed[payment.ID] {
		return nil, domain.ErrPaymentAlreadyMatched
	}

	var (
		score  domain.Score
		ruleID string
	)
	for _, rule := range rules {
		if s := domain.ScoreCandidate(txn, payment, rule); ruleID == "" || s.Total > score.Total {
			score, ruleID = s, rule.ID
		}
	}

	match, err := uc.createMatch(txCtx, tx, session, txn, payment, domain.MatchTypeManuallyMatched, score.Total, ruleID, input.Notes, input.Actor)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	uc.observeMatch(match)
	return match, nil
}

// checkClaimable verifies txn can take part in a new match in session.
func checkClaimable(txn *domain.BankTransaction, session *domain.ReconciliationSession) error {
	if txn.IsDeleted() {
		return domain.ErrTransactionDeleted
	}
	if txn.AccountID != session.AccountID {
		return domain.ErrAccountMismatch
	}
	if txn.MatchStatus.IsMatched() {
		return domain.ErrTransactionAlreadyMatched
	}
	if txn.MatchStatus != domain.MatchStatusUnmatched {
		return domain.ErrTransactionNotUnmatched
	}
	return nil
}

// createMatch writes the match row, flips the transaction status and records
// the event. All three happen in tx.
func (uc *MatchingUseCase) createMatch(
	ctx context.Context,
	tx Transaction,
	session *domain.ReconciliationSession,
	txn *domain.BankTransaction,
	payment *domain.InternalPaymentRecord,
	matchType domain.MatchType,
	confidence float64,
	ruleID, notes, actor string,
) (*domain.ReconciliationMatch, error) {
	next := matchType.TransactionStatus()
	if !txn.MatchStatus.CanTransitionTo(next) {
		return nil, domain.ErrTransactionNotUnmatched
	}

	now := time.Now().UTC()
	match := &domain.ReconciliationMatch{
		ID:                uc.idGen.Generate(),
		SessionID:         session.ID,
		BankTransactionID: txn.ID,
		PaymentRecordID:   payment.ID,
		Type:              matchType,
		MatchedAmount:     txn.Amount.Abs(),
		Confidence:        confidence,
		RuleID:            ruleID,
		CreatedBy:         actorOrSystem(actor),
		Notes:             strings.TrimSpace(notes),
		State:             domain.MatchStateActive,
		CreatedAt:         now,
	}
	if err := uc.matchRepo.Create(ctx, tx, match); err != nil {
		return nil, err
	}

	txn.MatchStatus = next
	txn.UpdatedAt = now
	if err := uc.txnRepo.Update(ctx, tx, txn); err != nil {
		return nil, err
	}

	if err := recordEvent(ctx, uc.outboxRepo, tx, uc.idGen,
		domain.AggregateTypeMatch, match.ID, domain.EventTypeMatchCreated,
		map[string]any{
			"match_id":          match.ID,
			"session_id":        match.SessionID,
			"transaction_id":    match.BankTransactionID,
			"payment_record_id": match.PaymentRecordID,
			"type":              string(match.Type),
			"matched_amount":    match.MatchedAmount.String(),
			"confidence":        match.Confidence,
			"rule_id":           match.RuleID,
			"actor":             match.CreatedBy,
		}, now); err != nil {
		return nil, err
	}

	return match, nil
}

func (uc *MatchingUseCase) observeMatch(m *domain.ReconciliationMatch) {
	if uc.metrics == nil {
		return
	}
	uc.metrics.MatchesCreated.WithLabelValues(string(m.Type)).Inc()
	uc.metrics.MatchConfidence.Observe(m.Confidence)
}

// Unmatch reverses a match and returns the transaction to unmatched in one
// database transaction. The reversed row is kept. Matches of a completed
// session are frozen.
func (uc *MatchingUseCase) Unmatch(ctx context.Context, matchID, actor string) (*domain.ReconciliationMatch, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	match, err := uc.matchRepo.GetByIDForUpdate(txCtx, tx, matchID)
	if err != nil {
		return nil, err
	}

	session, err := uc.sessionRepo.GetByIDForUpdate(txCtx, tx, match.SessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == domain.SessionStatusCompleted {
		return nil, domain.ErrSessionCompleted
	}

	now := time.Now().UTC()
	actor = actorOrSystem(actor)
	if err := match.Reverse(actor, now); err != nil {
		return nil, err
	}
	if err := uc.matchRepo.MarkReversed(txCtx, tx, match); err != nil {
		return nil, err
	}

	txn, err := uc.txnRepo.GetByIDForUpdate(txCtx, tx, match.BankTransactionID)
	if err != nil {
		return nil, err
	}
	if !txn.MatchStatus.CanTransitionTo(domain.MatchStatusUnmatched) {
		return nil, fmt.Errorf("%w: transaction %s is %s", domain.ErrConflict, txn.ID, txn.MatchStatus)
	}
	txn.MatchStatus = domain.MatchStatusUnmatched
	txn.UpdatedAt = now
	if err := uc.txnRepo.Update(txCtx, tx, txn); err != nil {
		return nil, err
	}

	if err := recordEvent(txCtx, uc.outboxRepo, tx, uc.idGen,
		domain.AggregateTypeMatch, match.ID, domain.EventTypeMatchReversed,
		map[string]any{
			"match_id":          match.ID,
			"session_id":        match.SessionID,
			"transaction_id":    match.BankTransactionID,
			"payment_record_id": match.PaymentRecordID,
			"actor":             actor,
		}, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.MatchesReversed.Inc()
	}

	return match, nil
}

// GetMatch retrieves a match by ID.
func (uc *MatchingUseCase) GetMatch(ctx context.Context, id string) (*domain.ReconciliationMatch, error) {
	return uc.matchRepo.GetByID(ctx, id)
}

// ListMatches returns every match of a session, reversed ones included.
func (uc *MatchingUseCase) ListMatches(ctx context.Context, sessionID string) ([]*domain.ReconciliationMatch, error) {
	if _, err := uc.sessionRepo.GetByID(ctx, sessionID); err != nil {
		return nil, err
	}
	return uc.matchRepo.ListBySession(ctx, sessionID)
}

// AutoRunResult reports what ProcessSession did.
type AutoRunResult struct {
	SessionID string
	Matches   []*domain.ReconciliationMatch
	Unmatched []string
	// Skipped lists transactions claimed concurrently by another writer.
	Skipped []string
}

// ProcessSession auto-matches the unmatched transactions of the session's
// account dated inside the session period. Transactions are visited in
// ascending ID order and rules in evaluation order; the first rule whose
// best eligible candidate reaches the rule's minimum confidence wins. Each
// claim commits on its own, so a record taken by a concurrent writer makes
// the run fall through to the next eligible candidate.
func (uc *MatchingUseCase) ProcessSession(ctx context.Context, sessionID, actor string) (*AutoRunResult, error) {
	start := time.Now()
	log := zerolog.Ctx(ctx)

	session, err := uc.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsInProgress() {
		return nil, domain.ErrSessionNotInProgress
	}

	account, err := uc.accountRepo.GetByID(ctx, session.AccountID)
	if err != nil {
		return nil, err
	}

	rules, err := activeRules(ctx, uc.ruleRepo)
	if err != nil {
		return nil, err
	}

	unmatched := domain.MatchStatusUnmatched
	from, to := session.PeriodStart, session.PeriodEnd
	txns, err := uc.txnRepo.List(ctx, domain.TransactionFilter{
		AccountID:   session.AccountID,
		MatchStatus: &unmatched,
		From:        &from,
		To:          &to,
	})
	if err != nil {
		return nil, err
	}

	result := &AutoRunResult{SessionID: sessionID}
	for _, txn := range txns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		match, err := uc.autoMatch(ctx, session, account.Currency, txn, rules, actor)
		switch {
		case err == nil && match != nil:
			result.Matches = append(result.Matches, match)
			uc.observeMatch(match)
		case err == nil:
			result.Unmatched = append(result.Unmatched, txn.ID)
		case errors.Is(err, domain.ErrTransactionAlreadyMatched),
			errors.Is(err, domain.ErrTransactionNotUnmatched),
			errors.Is(err, domain.ErrTransactionDeleted):
			result.Skipped = append(result.Skipped, txn.ID)
		default:
			return nil, err
		}
	}

	if uc.metrics != nil {
		uc.metrics.AutoRunDuration.Observe(time.Since(start).Seconds())
	}

	log.Info().
		Str("session_id", sessionID).
		Int("rules", len(rules)).
		Int("considered", len(txns)).
		Int("matched", len(result.Matches)).
		Int("unmatched", len(result.Unmatched)).
		Int("skipped", len(result.Skipped)).
		Dur("duration", time.Since(start)).
		Msg("auto-run finished")

	return result, nil
}

func (uc *MatchingUseCase) autoMatch(
	ctx context.Context,
	session *domain.ReconciliationSession,
	currency string,
	txn *domain.BankTransaction,
	rules []*domain.MatchingRule,
	actor string,
) (*domain.ReconciliationMatch, error) {
	for _, rule := range rules {
		candidates, err := uc.candidates(ctx, txn, currency, rule)
		if err != nil {
			return nil, err
		}

		for _, c := range candidates {
			if !rule.Accepts(c.Score.Total) {
				break
			}

			match, err := uc.claim(ctx, session.ID, txn.ID, c, actor)
			if err == nil {
				return match, nil
			}
			if errors.Is(err, domain.ErrPaymentAlreadyMatched) {
				if uc.metrics != nil {
					uc.metrics.ClaimConflicts.Inc()
				}
				zerolog.Ctx(ctx).Debug().
					Str("transaction_id", txn.ID).
					Str("payment_record_id", c.Payment.ID).
					Msg("payment record claimed concurrently, trying next candidate")
				continue
			}
			return nil, err
		}
	}
	return nil, nil
}

// claim atomically binds txn to the suggested payment record.
func (uc *MatchingUseCase) claim(
	ctx context.Context,
	sessionID, txnID string,
	s domain.MatchSuggestion,
	actor string,
) (*domain.ReconciliationMatch, error) {
	var match *domain.ReconciliationMatch

	op := func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		session, err := uc.sessionRepo.GetByIDForUpdate(txCtx, tx, sessionID)
		if err != nil {
			return err
		}
		if !session.IsInProgress() {
			return domain.ErrSessionNotInProgress
		}

		txn, err := uc.txnRepo.GetByIDForUpdate(txCtx, tx, txnID)
		if err != nil {
			return err
		}
		if err := checkClaimable(txn, session); err != nil {
			return err
		}

		m, err := uc.createMatch(txCtx, tx, session, txn, s.Payment, domain.MatchTypeAutoMatched, s.Score.Total, s.RuleID, "", actor)
		if err != nil {
			return err
		}
		if err := tx.Commit(txCtx); err != nil {
			return err
		}
		match = m
		return nil
	}

	var err error
	if uc.retrier != nil {
		err = uc.retrier.Retry(ctx, op)
	} else {
		err = op()
	}
	return match, err
}
