package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/bankrecon/internal/domain"
	"github.com/iho/bankrecon/internal/usecase"
)

const sessionColumns = `id, account_id, session_number, period_start, period_end,
	statement_closing_balance, status, initiated_by, completed_by, notes,
	started_at, completed_at, created_at, updated_at`

const createSession = `INSERT INTO reconciliation_sessions (` + sessionColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

const getSessionByID = `SELECT ` + sessionColumns + `
FROM reconciliation_sessions WHERE id = $1`

const getSessionByIDForUpdate = getSessionByID + ` FOR UPDATE`

const getActiveSessionByAccount = `SELECT ` + sessionColumns + `
FROM reconciliation_sessions WHERE account_id = $1 AND status = 'in_progress'`

const getLatestCompletedSession = `SELECT ` + sessionColumns + `
FROM reconciliation_sessions
WHERE account_id = $1 AND status = 'completed' AND period_end <= $2
ORDER BY period_end DESC, completed_at DESC
LIMIT 1`

const listSessionsByAccount = `SELECT ` + sessionColumns + `
FROM reconciliation_sessions
WHERE account_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`

// Sessions are never deleted, so the count is a gapless sequence.
const nextSessionNumber = `SELECT COUNT(*) + 1 FROM reconciliation_sessions WHERE account_id = $1`

const updateSession = `UPDATE reconciliation_sessions
SET status = $2, completed_by = $3, notes = $4, completed_at = $5, updated_at = $6
WHERE id = $1`

// SessionRepository implements usecase.SessionRepository.
type SessionRepository struct {
	db DBTX
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a session. The partial unique index on in-progress sessions
// turns a second concurrent start into domain.ErrActiveSessionExists.
func (r *SessionRepository) Create(ctx context.Context, tx usecase.Transaction, s *domain.ReconciliationSession) error {
	_, err := pgxTx(tx).Exec(ctx, createSession,
		s.ID,
		s.AccountID,
		s.SessionNumber,
		dateToPgDate(s.PeriodStart),
		dateToPgDate(s.PeriodEnd),
		decimalToNumeric(s.StatementClosingBalance),
		string(s.Status),
		s.InitiatedBy,
		s.CompletedBy,
		s.Notes,
		timeToPgTimestamptz(s.StartedAt),
		optionalTimestamptz(s.CompletedAt),
		timeToPgTimestamptz(s.CreatedAt),
		timeToPgTimestamptz(s.UpdatedAt),
	)
	return translateError(err, nil)
}

// GetByID retrieves a session by ID.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*domain.ReconciliationSession, error) {
	s, err := scanSession(r.db.QueryRow(ctx, getSessionByID, id))
	if err != nil {
		return nil, translateError(err, domain.ErrSessionNotFound)
	}
	return s, nil
}

// GetByIDForUpdate retrieves a session by ID with a FOR UPDATE lock.
func (r *SessionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.ReconciliationSession, error) {
	s, err := scanSession(pgxTx(tx).QueryRow(ctx, getSessionByIDForUpdate, id))
	if err != nil {
		return nil, translateError(err, domain.ErrSessionNotFound)
	}
	return s, nil
}

// GetActiveByAccount returns the account's in-progress session.
func (r *SessionRepository) GetActiveByAccount(ctx context.Context, accountID string) (*domain.ReconciliationSession, error) {
	s, err := scanSession(r.db.QueryRow(ctx, getActiveSessionByAccount, accountID))
	if err != nil {
		return nil, translateError(err, domain.ErrNoActiveSession)
	}
	return s, nil
}

// LatestCompleted returns the completed session with the latest period end
// on or before endingBy.
func (r *SessionRepository) LatestCompleted(ctx context.Context, accountID string, endingBy time.Time) (*domain.ReconciliationSession, error) {
	s, err := scanSession(r.db.QueryRow(ctx, getLatestCompletedSession, accountID, dateToPgDate(endingBy)))
	if err != nil {
		return nil, translateError(err, domain.ErrSessionNotFound)
	}
	return s, nil
}

// ListByAccount lists an account's sessions, newest first.
func (r *SessionRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.ReconciliationSession, error) {
	rows, err := r.db.Query(ctx, listSessionsByAccount, accountID, int32(limit), int32(offset))
	if err != nil {
		return nil, translateError(err, nil)
	}

	sessions, err := collect(rows, scanSession)
	if err != nil {
		return nil, translateError(err, nil)
	}
	return sessions, nil
}

// NextNumber returns the next per-account session sequence. Callers hold
// the account row lock.
func (r *SessionRepository) NextNumber(ctx context.Context, tx usecase.Transaction, accountID string) (int64, error) {
	var next int64
	if err := pgxTx(tx).QueryRow(ctx, nextSessionNumber, accountID).Scan(&next); err != nil {
		return 0, translateError(err, nil)
	}
	return next, nil
}

// Update persists the closing fields of a session.
func (r *SessionRepository) Update(ctx context.Context, tx usecase.Transaction, s *domain.ReconciliationSession) error {
	tag, err := pgxTx(tx).Exec(ctx, updateSession,
		s.ID,
		string(s.Status),
		s.CompletedBy,
		s.Notes,
		optionalTimestamptz(s.CompletedAt),
		timeToPgTimestamptz(s.UpdatedAt),
	)
	if err != nil {
		return translateError(err, nil)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func scanSession(row rowScanner) (*domain.ReconciliationSession, error) {
	var (
		s                      domain.ReconciliationSession
		periodStart, periodEnd pgtype.Date
		closing                pgtype.Numeric
		status                 string
		started, completed     pgtype.Timestamptz
		created, updated       pgtype.Timestamptz
	)
	if err := row.Scan(
		&s.ID,
		&s.AccountID,
		&s.SessionNumber,
		&periodStart,
		&periodEnd,
		&closing,
		&status,
		&s.InitiatedBy,
		&s.CompletedBy,
		&s.Notes,
		&started,
		&completed,
		&created,
		&updated,
	); err != nil {
		return nil, err
	}

	s.PeriodStart = pgDateToTime(periodStart)
	s.PeriodEnd = pgDateToTime(periodEnd)
	s.StatementClosingBalance = numericToDecimal(closing)
	s.Status = domain.SessionStatus(status)
	s.StartedAt = started.Time
	s.CompletedAt = timestamptzPtr(completed)
	s.CreatedAt = created.Time
	s.UpdatedAt = updated.Time
	return &s, nil
}
