package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/bankrecon/internal/domain"
)

const paymentRecordColumns = `id, currency, amount, direction, payment_date, reference, method`

const findPaymentCandidates = `SELECT ` + paymentRecordColumns + `
FROM payment_records
WHERE currency = $1 AND direction = $2
	AND payment_date BETWEEN $3 AND $4
	AND amount BETWEEN $5 AND $6
ORDER BY id`

const getPaymentRecordByID = `SELECT ` + paymentRecordColumns + `
FROM payment_records WHERE id = $1`

const listPaymentRecordsInRange = `SELECT ` + paymentRecordColumns + `
FROM payment_records
WHERE currency = $1 AND payment_date BETWEEN $2 AND $3
ORDER BY id`

// PaymentLookup implements usecase.PaymentLookup over the payment_records
// table replicated from the POS ledger.
type PaymentLookup struct {
	db DBTX
}

// NewPaymentLookup creates a new PaymentLookup.
func NewPaymentLookup(db DBTX) *PaymentLookup {
	return &PaymentLookup{db: db}
}

// FindCandidates returns the payment records inside the tolerance window.
func (p *PaymentLookup) FindCandidates(ctx context.Context, q domain.CandidateQuery) ([]*domain.InternalPaymentRecord, error) {
	rows, err := p.db.Query(ctx, findPaymentCandidates,
		strings.ToUpper(q.Currency),
		string(q.Direction),
		dateToPgDate(q.DateFrom),
		dateToPgDate(q.DateTo),
		decimalToNumeric(q.Amount.Sub(q.ToleranceAbs)),
		decimalToNumeric(q.Amount.Add(q.ToleranceAbs)),
	)
	if err != nil {
		return nil, translateError(err, nil)
	}

	records, err := collect(rows, scanPaymentRecord)
	if err != nil {
		return nil, translateError(err, nil)
	}
	return records, nil
}

// GetByID retrieves a payment record by ID.
func (p *PaymentLookup) GetByID(ctx context.Context, id string) (*domain.InternalPaymentRecord, error) {
	rec, err := scanPaymentRecord(p.db.QueryRow(ctx, getPaymentRecordByID, id))
	if err != nil {
		return nil, translateError(err, domain.ErrPaymentNotFound)
	}
	return rec, nil
}

// ListRange returns records in currency dated between from and to inclusive.
func (p *PaymentLookup) ListRange(ctx context.Context, currency string, from, to time.Time) ([]*domain.InternalPaymentRecord, error) {
	rows, err := p.db.Query(ctx, listPaymentRecordsInRange,
		strings.ToUpper(currency),
		dateToPgDate(from),
		dateToPgDate(to),
	)
	if err != nil {
		return nil, translateError(err, nil)
	}

	records, err := collect(rows, scanPaymentRecord)
	if err != nil {
		return nil, translateError(err, nil)
	}
	return records, nil
}

func scanPaymentRecord(row rowScanner) (*domain.InternalPaymentRecord, error) {
	var (
		rec       domain.InternalPaymentRecord
		amount    pgtype.Numeric
		direction string
		date      pgtype.Date
	)
	if err := row.Scan(
		&rec.ID,
		&rec.Currency,
		&amount,
		&direction,
		&date,
		&rec.Reference,
		&rec.Method,
	); err != nil {
		return nil, err
	}

	rec.Amount = numericToDecimal(amount)
	rec.Direction = domain.Direction(direction)
	rec.Date = pgDateToTime(date)
	return &rec, nil
}
