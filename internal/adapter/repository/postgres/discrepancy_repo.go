package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/bankrecon/internal/domain"
	"github.com/iho/bankrecon/internal/usecase"
)

const discrepancyColumns = `id, session_id, number, type, bank_transaction_id, payment_record_id,
	amount, description, status, resolution_notes, resolved_by, resolved_at,
	escalated_by, escalated_at, created_at, updated_at`

const createDiscrepancy = `INSERT INTO reconciliation_discrepancies (` + discrepancyColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

const getDiscrepancyByID = `SELECT ` + discrepancyColumns + `
FROM reconciliation_discrepancies WHERE id = $1`

const getDiscrepancyByIDForUpdate = getDiscrepancyByID + ` FOR UPDATE`

const getDiscrepancyByKey = `SELECT ` + discrepancyColumns + `
FROM reconciliation_discrepancies
WHERE session_id = $1 AND type = $2 AND bank_transaction_id = $3 AND payment_record_id = $4`

const listDiscrepanciesBySession = `SELECT ` + discrepancyColumns + `
FROM reconciliation_discrepancies
WHERE session_id = $1 AND ($2::text = '' OR status = $2)
ORDER BY id`

const nextDiscrepancyNumber = `SELECT COUNT(*) + 1 FROM reconciliation_discrepancies WHERE session_id = $1`

const updateDiscrepancy = `UPDATE reconciliation_discrepancies
SET status = $2, resolution_notes = $3, resolved_by = $4, resolved_at = $5,
	escalated_by = $6, escalated_at = $7, updated_at = $8
WHERE id = $1`

// DiscrepancyRepository implements usecase.DiscrepancyRepository. Absent
// transaction and payment references are stored as empty strings so the
// natural key constraint sees them as equal.
type DiscrepancyRepository struct {
	db DBTX
}

// NewDiscrepancyRepository creates a new DiscrepancyRepository.
func NewDiscrepancyRepository(db DBTX) *DiscrepancyRepository {
	return &DiscrepancyRepository{db: db}
}

// Create inserts a discrepancy.
func (r *DiscrepancyRepository) Create(ctx context.Context, tx usecase.Transaction, d *domain.ReconciliationDiscrepancy) error {
	_, err := pgxTx(tx).Exec(ctx, createDiscrepancy,
		d.ID,
		d.SessionID,
		d.Number,
		string(d.Type),
		d.BankTransactionID,
		d.PaymentRecordID,
		decimalToNumeric(d.Amount),
		d.Description,
		string(d.Status),
		d.ResolutionNotes,
		d.ResolvedBy,
		optionalTimestamptz(d.ResolvedAt),
		d.EscalatedBy,
		optionalTimestamptz(d.EscalatedAt),
		timeToPgTimestamptz(d.CreatedAt),
		timeToPgTimestamptz(d.UpdatedAt),
	)
	return translateError(err, nil)
}

// GetByID retrieves a discrepancy by ID.
func (r *DiscrepancyRepository) GetByID(ctx context.Context, id string) (*domain.ReconciliationDiscrepancy, error) {
	d, err := scanDiscrepancy(r.db.QueryRow(ctx, getDiscrepancyByID, id))
	if err != nil {
		return nil, translateError(err, domain.ErrDiscrepancyNotFound)
	}
	return d, nil
}

// GetByIDForUpdate retrieves a discrepancy by ID with a FOR UPDATE lock.
func (r *DiscrepancyRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.ReconciliationDiscrepancy, error) {
	d, err := scanDiscrepancy(pgxTx(tx).QueryRow(ctx, getDiscrepancyByIDForUpdate, id))
	if err != nil {
		return nil, translateError(err, domain.ErrDiscrepancyNotFound)
	}
	return d, nil
}

// GetByKey retrieves a discrepancy by its natural key.
func (r *DiscrepancyRepository) GetByKey(ctx context.Context, key domain.DiscrepancyKey) (*domain.ReconciliationDiscrepancy, error) {
	d, err := scanDiscrepancy(r.db.QueryRow(ctx, getDiscrepancyByKey,
		key.SessionID,
		string(key.Type),
		key.BankTransactionID,
		key.PaymentRecordID,
	))
	if err != nil {
		return nil, translateError(err, domain.ErrDiscrepancyNotFound)
	}
	return d, nil
}

// ListBySession lists a session's discrepancies in creation order.
func (r *DiscrepancyRepository) ListBySession(ctx context.Context, sessionID string, status *domain.ResolutionStatus) ([]*domain.ReconciliationDiscrepancy, error) {
	var filter string
	if status != nil {
		filter = string(*status)
	}

	rows, err := r.db.Query(ctx, listDiscrepanciesBySession, sessionID, filter)
	if err != nil {
		return nil, translateError(err, nil)
	}

	discrepancies, err := collect(rows, scanDiscrepancy)
	if err != nil {
		return nil, translateError(err, nil)
	}
	return discrepancies, nil
}

// NextNumber returns the next sequence within a session. Callers hold the
// session row lock.
func (r *DiscrepancyRepository) NextNumber(ctx context.Context, tx usecase.Transaction, sessionID string) (int64, error) {
	var next int64
	if err := pgxTx(tx).QueryRow(ctx, nextDiscrepancyNumber, sessionID).Scan(&next); err != nil {
		return 0, translateError(err, nil)
	}
	return next, nil
}

// Update persists the resolution workflow fields.
func (r *DiscrepancyRepository) Update(ctx context.Context, tx usecase.Transaction, d *domain.ReconciliationDiscrepancy) error {
	tag, err := pgxTx(tx).Exec(ctx, updateDiscrepancy,
		d.ID,
		string(d.Status),
		d.ResolutionNotes,
		d.ResolvedBy,
		optionalTimestamptz(d.ResolvedAt),
		d.EscalatedBy,
		optionalTimestamptz(d.EscalatedAt),
		timeToPgTimestamptz(d.UpdatedAt),
	)
	if err != nil {
		return translateError(err, nil)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDiscrepancyNotFound
	}
	return nil
}

func scanDiscrepancy(row rowScanner) (*domain.ReconciliationDiscrepancy, error) {
	var (
		d                   domain.ReconciliationDiscrepancy
		discType, status    string
		amount              pgtype.Numeric
		resolved, escalated pgtype.Timestamptz
		created, updated    pgtype.Timestamptz
	)
	if err := row.Scan(
		&d.ID,
		&d.SessionID,
		&d.Number,
		&discType,
		&d.BankTransactionID,
		&d.PaymentRecordID,
		&amount,
		&d.Description,
		&status,
		&d.ResolutionNotes,
		&d.ResolvedBy,
		&resolved,
		&d.EscalatedBy,
		&escalated,
		&created,
		&updated,
	); err != nil {
		return nil, err
	}

	d.Type = domain.DiscrepancyType(discType)
	d.Amount = numericToDecimal(amount)
	d.Status = domain.ResolutionStatus(status)
	d.ResolvedAt = timestamptzPtr(resolved)
	d.EscalatedAt = timestamptzPtr(escalated)
	d.CreatedAt = created.Time
	d.UpdatedAt = updated.Time
	return &d, nil
}
