package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/bankrecon/internal/domain"
	"github.com/iho/bankrecon/internal/usecase"
)

const matchColumns = `id, session_id, bank_transaction_id, payment_record_id, type, matched_amount,
	confidence, rule_id, created_by, notes, state, reversed_by, reversed_at, created_at`

const createMatch = `INSERT INTO reconciliation_matches (` + matchColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

const getMatchByID = `SELECT ` + matchColumns + `
FROM reconciliation_matches WHERE id = $1`

const getMatchByIDForUpdate = getMatchByID + ` FOR UPDATE`

const listMatchesBySession = `SELECT ` + matchColumns + `
FROM reconciliation_matches WHERE session_id = $1 ORDER BY id`

const listClaimedPayments = `SELECT payment_record_id
FROM reconciliation_matches
WHERE state = 'active' AND payment_record_id = ANY($1)`

const reverseMatch = `UPDATE reconciliation_matches
SET state = $2, reversed_by = $3, reversed_at = $4
WHERE id = $1 AND state = 'active'`

const countActiveMatchesBySession = `SELECT COUNT(*)
FROM reconciliation_matches WHERE session_id = $1 AND state = 'active'`

// MatchRepository implements usecase.MatchRepository.
type MatchRepository struct {
	db DBTX
}

// NewMatchRepository creates a new MatchRepository.
func NewMatchRepository(db DBTX) *MatchRepository {
	return &MatchRepository{db: db}
}

// Create inserts a match. The partial unique indexes on active matches
// reject a second claim on either side.
func (r *MatchRepository) Create(ctx context.Context, tx usecase.Transaction, m *domain.ReconciliationMatch) error {
	_, err := pgxTx(tx).Exec(ctx, createMatch,
		m.ID,
		m.SessionID,
		m.BankTransactionID,
		m.PaymentRecordID,
		string(m.Type),
		decimalToNumeric(m.MatchedAmount),
		m.Confidence,
		m.RuleID,
		m.CreatedBy,
		m.Notes,
		string(m.State),
		m.ReversedBy,
		optionalTimestamptz(m.ReversedAt),
		timeToPgTimestamptz(m.CreatedAt),
	)
	return translateError(err, nil)
}

// GetByID retrieves a match by ID.
func (r *MatchRepository) GetByID(ctx context.Context, id string) (*domain.ReconciliationMatch, error) {
	m, err := scanMatch(r.db.QueryRow(ctx, getMatchByID, id))
	if err != nil {
		return nil, translateError(err, domain.ErrMatchNotFound)
	}
	return m, nil
}

// GetByIDForUpdate retrieves a match by ID with a FOR UPDATE lock.
func (r *MatchRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.ReconciliationMatch, error) {
	m, err := scanMatch(pgxTx(tx).QueryRow(ctx, getMatchByIDForUpdate, id))
	if err != nil {
		return nil, translateError(err, domain.ErrMatchNotFound)
	}
	return m, nil
}

// ListBySession lists every match of a session, reversed ones included.
func (r *MatchRepository) ListBySession(ctx context.Context, sessionID string) ([]*domain.ReconciliationMatch, error) {
	rows, err := r.db.Query(ctx, listMatchesBySession, sessionID)
	if err != nil {
		return nil, translateError(err, nil)
	}

	matches, err := collect(rows, scanMatch)
	if err != nil {
		return nil, translateError(err, nil)
	}
	return matches, nil
}

// ClaimedPayments returns the subset of paymentIDs held by an active match.
func (r *MatchRepository) ClaimedPayments(ctx context.Context, paymentIDs []string) (map[string]bool, error) {
	claimed := make(map[string]bool)
	if len(paymentIDs) == 0 {
		return claimed, nil
	}

	rows, err := r.db.Query(ctx, listClaimedPayments, paymentIDs)
	if err != nil {
		return nil, translateError(err, nil)
	}

	ids, err := collect(rows, func(row rowScanner) (string, error) {
		var id string
		err := row.Scan(&id)
		return id, err
	})
	if err != nil {
		return nil, translateError(err, nil)
	}

	for _, id := range ids {
		claimed[id] = true
	}
	return claimed, nil
}

// MarkReversed persists the reversal of an active match.
func (r *MatchRepository) MarkReversed(ctx context.Context, tx usecase.Transaction, m *domain.ReconciliationMatch) error {
	tag, err := pgxTx(tx).Exec(ctx, reverseMatch,
		m.ID,
		string(m.State),
		m.ReversedBy,
		optionalTimestamptz(m.ReversedAt),
	)
	if err != nil {
		return translateError(err, nil)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMatchReversed
	}
	return nil
}

// CountActiveBySession counts the session's active matches.
func (r *MatchRepository) CountActiveBySession(ctx context.Context, sessionID string) (int, error) {
	var count int64
	if err := r.db.QueryRow(ctx, countActiveMatchesBySession, sessionID).Scan(&count); err != nil {
		return 0, translateError(err, nil)
	}
	return int(count), nil
}

func scanMatch(row rowScanner) (*domain.ReconciliationMatch, error) {
	var (
		m                 domain.ReconciliationMatch
		matchType, state  string
		amount            pgtype.Numeric
		reversed, created pgtype.Timestamptz
	)
	if err := row.Scan(
		&m.ID,
		&m.SessionID,
		&m.BankTransactionID,
		&m.PaymentRecordID,
		&matchType,
		&amount,
		&m.Confidence,
		&m.RuleID,
		&m.CreatedBy,
		&m.Notes,
		&state,
		&m.ReversedBy,
		&reversed,
		&created,
	); err != nil {
		return nil, err
	}

	m.Type = domain.MatchType(matchType)
	m.MatchedAmount = numericToDecimal(amount)
	m.State = domain.MatchState(state)
	m.ReversedAt = timestamptzPtr(reversed)
	m.CreatedAt = created.Time
	return &m, nil
}
