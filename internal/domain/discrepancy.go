package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DiscrepancyType classifies a gap between bank and book.
type DiscrepancyType string

const (
	DiscrepancyMissingFromPOS  DiscrepancyType = "missing_from_pos"
	DiscrepancyMissingFromBank DiscrepancyType = "missing_from_bank"
	DiscrepancyAmountMismatch  DiscrepancyType = "amount_mismatch"
	DiscrepancyOther           DiscrepancyType = "other"
)

// IsValid reports whether t is a known discrepancy type.
func (t DiscrepancyType) IsValid() bool {
	switch t {
	case DiscrepancyMissingFromPOS, DiscrepancyMissingFromBank, DiscrepancyAmountMismatch, DiscrepancyOther:
		return true
	}
	return false
}

// ResolutionStatus is the workflow state of a discrepancy.
type ResolutionStatus string

const (
	ResolutionOpen      ResolutionStatus = "open"
	ResolutionResolved  ResolutionStatus = "resolved"
	ResolutionEscalated ResolutionStatus = "escalated"
)

// IsValid reports whether s is a known resolution status.
func (s ResolutionStatus) IsValid() bool {
	return s == ResolutionOpen || s == ResolutionResolved || s == ResolutionEscalated
}

// ReconciliationDiscrepancy is a tracked, resolvable gap found in a session.
type ReconciliationDiscrepancy struct {
	ID                string
	SessionID         string
	Number            string
	Type              DiscrepancyType
	BankTransactionID string
	PaymentRecordID   string
	Amount            decimal.Decimal
	Description       string
	Status            ResolutionStatus
	ResolutionNotes   string
	ResolvedBy        string
	ResolvedAt        *time.Time
	EscalatedBy       string
	EscalatedAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Key returns the natural key used to deduplicate retried creations.
func (d *ReconciliationDiscrepancy) Key() DiscrepancyKey {
	return DiscrepancyKey{
		SessionID:         d.SessionID,
		Type:              d.Type,
		BankTransactionID: d.BankTransactionID,
		PaymentRecordID:   d.PaymentRecordID,
	}
}

// IsUnresolved reports whether the discrepancy still needs attention.
func (d *ReconciliationDiscrepancy) IsUnresolved() bool {
	return d.Status != ResolutionResolved
}

// Resolve moves the discrepancy to resolved. It reports false when the
// discrepancy was already resolved and nothing changed.
func (d *ReconciliationDiscrepancy) Resolve(notes, by string, at time.Time) bool {
	if d.Status == ResolutionResolved {
		return false
	}
	d.Status = ResolutionResolved
	d.ResolutionNotes = notes
	d.ResolvedBy = by
	d.ResolvedAt = &at
	d.UpdatedAt = at
	return true
}

// Escalate moves an open discrepancy to escalated. Escalating twice is a
// no-op; resolved discrepancies cannot be escalated.
func (d *ReconciliationDiscrepancy) Escalate(notes, by string, at time.Time) (bool, error) {
	switch d.Status {
	case ResolutionResolved:
		return false, ErrDiscrepancyResolved
	case ResolutionEscalated:
		return false, nil
	}
	d.Status = ResolutionEscalated
	d.ResolutionNotes = notes
	d.EscalatedBy = by
	d.EscalatedAt = &at
	d.UpdatedAt = at
	return true, nil
}

// DiscrepancyKey is the idempotency key of discrepancy creation.
type DiscrepancyKey struct {
	SessionID         string
	Type              DiscrepancyType
	BankTransactionID string
	PaymentRecordID   string
}

// FormatDiscrepancyNumber renders the discrepancy sequence within a session.
func FormatDiscrepancyNumber(sessionNumber string, seq int64) string {
	return fmt.Sprintf("%s-D%03d", sessionNumber, seq)
}
