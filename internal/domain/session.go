package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SessionStatus is the state of a reconciliation session.
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusRejected   SessionStatus = "rejected"
)

// IsTerminal reports whether no further transitions are possible.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusRejected
}

// ReconciliationSession is a bounded unit of reconciliation work over one
// account and statement period.
type ReconciliationSession struct {
	ID                      string
	AccountID               string
	SessionNumber           string
	PeriodStart             time.Time
	PeriodEnd               time.Time
	StatementClosingBalance decimal.Decimal
	Status                  SessionStatus
	InitiatedBy             string
	CompletedBy             string
	Notes                   string
	StartedAt               time.Time
	CompletedAt             *time.Time
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// IsInProgress reports whether the session still accepts work.
func (s *ReconciliationSession) IsInProgress() bool {
	return s.Status == SessionStatusInProgress
}

// Close moves an in-progress session to a terminal status.
func (s *ReconciliationSession) Close(status SessionStatus, by, notes string, at time.Time) error {
	if !s.IsInProgress() {
		return ErrSessionNotInProgress
	}
	if !status.IsTerminal() {
		return Invalid("session cannot be closed with status %q", status)
	}

	s.Status = status
	s.CompletedBy = by
	s.Notes = notes
	s.CompletedAt = &at
	s.UpdatedAt = at
	return nil
}

// Covers reports whether day lies inside the statement period.
func (s *ReconciliationSession) Covers(day time.Time) bool {
	d := DateOnly(day)
	return !d.Before(DateOnly(s.PeriodStart)) && !d.After(DateOnly(s.PeriodEnd))
}

// FormatSessionNumber renders the per-account session sequence number.
func FormatSessionNumber(seq int64) string {
	return fmt.Sprintf("REC-%05d", seq)
}
