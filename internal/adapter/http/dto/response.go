package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankrecon/internal/domain"
	"github.com/iho/bankrecon/internal/usecase"
)

// AccountResponse represents a bank account in API responses.
type AccountResponse struct {
	ID               string          `json:"id"`
	BankName         string          `json:"bank_name"`
	AccountNumber    string          `json:"account_number"`
	AccountName      string          `json:"account_name"`
	Currency         string          `json:"currency"`
	OpeningBalance   decimal.Decimal `json:"opening_balance"`
	CurrentBalance   decimal.Decimal `json:"current_balance"`
	Status           string          `json:"status"`
	ChannelShortCode string          `json:"channel_short_code,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// AccountFromDomain converts a domain account to a response.
func AccountFromDomain(a *domain.BankAccount) *AccountResponse {
	return &AccountResponse{
		ID:               a.ID,
		BankName:         a.BankName,
		AccountNumber:    a.AccountNumber,
		AccountName:      a.AccountName,
		Currency:         a.Currency,
		OpeningBalance:   a.OpeningBalance,
		CurrentBalance:   a.CurrentBalance,
		Status:           string(a.Status),
		ChannelShortCode: a.ChannelShortCode,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

// ListAccountsResponse represents a page of accounts.
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Total    int64              `json:"total"`
}

// TransactionResponse represents a bank transaction.
type TransactionResponse struct {
	ID              string          `json:"id"`
	AccountID       string          `json:"account_id"`
	Type            string          `json:"type"`
	Date            string          `json:"date"`
	Reference       string          `json:"reference"`
	Description     string          `json:"description,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Source          string          `json:"source"`
	MatchStatus     string          `json:"match_status"`
	State           string          `json:"state"`
	ExclusionReason string          `json:"exclusion_reason,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TransactionFromDomain converts a domain transaction to a response.
func TransactionFromDomain(t *domain.BankTransaction) *TransactionResponse {
	return &TransactionResponse{
		ID:              t.ID,
		AccountID:       t.AccountID,
		Type:            string(t.Type),
		Date:            t.Date.Format(time.DateOnly),
		Reference:       t.Reference,
		Description:     t.Description,
		Amount:          t.Amount,
		Source:          string(t.Source),
		MatchStatus:     string(t.MatchStatus),
		State:           string(t.State),
		ExclusionReason: t.ExclusionReason,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

// TransactionsFromDomain converts domain transactions to responses.
func TransactionsFromDomain(txns []*domain.BankTransaction) []*TransactionResponse {
	result := make([]*TransactionResponse, len(txns))
	for i, t := range txns {
		result[i] = TransactionFromDomain(t)
	}
	return result
}

// PaymentResponse represents a payment record from the POS ledger.
type PaymentResponse struct {
	ID        string          `json:"id"`
	Currency  string          `json:"currency"`
	Amount    decimal.Decimal `json:"amount"`
	Direction string          `json:"direction"`
	Date      string          `json:"date"`
	Reference string          `json:"reference,omitempty"`
	Method    string          `json:"method,omitempty"`
}

// PaymentFromDomain converts a payment record to a response.
func PaymentFromDomain(p *domain.InternalPaymentRecord) *PaymentResponse {
	return &PaymentResponse{
		ID:        p.ID,
		Currency:  p.Currency,
		Amount:    p.Amount,
		Direction: string(p.Direction),
		Date:      p.Date.Format(time.DateOnly),
		Reference: p.Reference,
		Method:    p.Method,
	}
}

// RuleResponse represents a matching rule.
type RuleResponse struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	Priority            int             `json:"priority"`
	AmountTolerance     decimal.Decimal `json:"amount_tolerance"`
	DateToleranceDays   int             `json:"date_tolerance_days"`
	ReferenceSimilarity float64         `json:"reference_similarity"`
	MinConfidence       float64         `json:"min_confidence"`
	Status              string          `json:"status"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// RuleFromDomain converts a domain rule to a response.
func RuleFromDomain(r *domain.MatchingRule) *RuleResponse {
	return &RuleResponse{
		ID:                  r.ID,
		Name:                r.Name,
		Priority:            r.Priority,
		AmountTolerance:     r.AmountTolerance,
		DateToleranceDays:   r.DateToleranceDays,
		ReferenceSimilarity: r.ReferenceSimilarity,
		MinConfidence:       r.MinConfidence,
		Status:              string(r.Status),
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

// SessionResponse represents a reconciliation session.
type SessionResponse struct {
	ID                      string          `json:"id"`
	AccountID               string          `json:"account_id"`
	SessionNumber           string          `json:"session_number"`
	PeriodStart             string          `json:"period_start"`
	PeriodEnd               string          `json:"period_end"`
	StatementClosingBalance decimal.Decimal `json:"statement_closing_balance"`
	Status                  string          `json:"status"`
	InitiatedBy             string          `json:"initiated_by"`
	CompletedBy             string          `json:"completed_by,omitempty"`
	Notes                   string          `json:"notes,omitempty"`
	StartedAt               time.Time       `json:"started_at"`
	CompletedAt             *time.Time      `json:"completed_at,omitempty"`
}

// SessionFromDomain converts a domain session to a response.
func SessionFromDomain(s *domain.ReconciliationSession) *SessionResponse {
	return &SessionResponse{
		ID:                      s.ID,
		AccountID:               s.AccountID,
		SessionNumber:           s.SessionNumber,
		PeriodStart:             s.PeriodStart.Format(time.DateOnly),
		PeriodEnd:               s.PeriodEnd.Format(time.DateOnly),
		StatementClosingBalance: s.StatementClosingBalance,
		Status:                  string(s.Status),
		InitiatedBy:             s.InitiatedBy,
		CompletedBy:             s.CompletedBy,
		Notes:                   s.Notes,
		StartedAt:               s.StartedAt,
		CompletedAt:             s.CompletedAt,
	}
}

// MatchResponse represents a reconciliation match.
type MatchResponse struct {
	ID                string          `json:"id"`
	SessionID         string          `json:"session_id"`
	BankTransactionID string          `json:"bank_transaction_id"`
	PaymentRecordID   string          `json:"payment_record_id"`
	Type              string          `json:"type"`
	MatchedAmount     decimal.Decimal `json:"matched_amount"`
	Confidence        float64         `json:"confidence"`
	RuleID            string          `json:"rule_id,omitempty"`
	CreatedBy         string          `json:"created_by"`
	Notes             string          `json:"notes,omitempty"`
	State             string          `json:"state"`
	ReversedBy        string          `json:"reversed_by,omitempty"`
	ReversedAt        *time.Time      `json:"reversed_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// MatchFromDomain converts a domain match to a response.
func MatchFromDomain(m *domain.ReconciliationMatch) *MatchResponse {
	return &MatchResponse{
		ID:                m.ID,
		SessionID:         m.SessionID,
		BankTransactionID: m.BankTransactionID,
		PaymentRecordID:   m.PaymentRecordID,
		Type:              string(m.Type),
		MatchedAmount:     m.MatchedAmount,
		Confidence:        m.Confidence,
		RuleID:            m.RuleID,
		CreatedBy:         m.CreatedBy,
		Notes:             m.Notes,
		State:             string(m.State),
		ReversedBy:        m.ReversedBy,
		ReversedAt:        m.ReversedAt,
		CreatedAt:         m.CreatedAt,
	}
}

// MatchesFromDomain converts domain matches to responses.
func MatchesFromDomain(matches []*domain.ReconciliationMatch) []*MatchResponse {
	result := make([]*MatchResponse, len(matches))
	for i, m := range matches {
		result[i] = MatchFromDomain(m)
	}
	return result
}

// ScoreResponse breaks a confidence score into its components.
type ScoreResponse struct {
	Amount     float64 `json:"amount"`
	Date       float64 `json:"date"`
	Reference  float64 `json:"reference"`
	Similarity float64 `json:"similarity"`
	Total      float64 `json:"total"`
}

// SuggestionResponse is a ranked match candidate.
type SuggestionResponse struct {
	Payment  *PaymentResponse `json:"payment"`
	RuleID   string           `json:"rule_id"`
	Score    ScoreResponse    `json:"score"`
	DateDiff int              `json:"date_diff_days"`
}

// SuggestionsFromDomain converts suggestions to responses.
func SuggestionsFromDomain(suggestions []domain.MatchSuggestion) []*SuggestionResponse {
	result := make([]*SuggestionResponse, len(suggestions))
	for i, s := range suggestions {
		result[i] = &SuggestionResponse{
			Payment: PaymentFromDomain(s.Payment),
			RuleID:  s.RuleID,
			Score: ScoreResponse{
				Amount:     s.Score.Amount,
				Date:       s.Score.Date,
				Reference:  s.Score.Reference,
				Similarity: s.Score.Similarity,
				Total:      s.Score.Total,
			},
			DateDiff: s.DateDiff,
		}
	}
	return result
}

// AutoRunResponse reports what an auto-match run did.
type AutoRunResponse struct {
	SessionID string           `json:"session_id"`
	Matches   []*MatchResponse `json:"matches"`
	Unmatched []string         `json:"unmatched"`
	Skipped   []string         `json:"skipped,omitempty"`
}

// AutoRunFromUseCase converts an auto-run result to a response.
func AutoRunFromUseCase(r *usecase.AutoRunResult) *AutoRunResponse {
	unmatched := r.Unmatched
	if unmatched == nil {
		unmatched = []string{}
	}
	return &AutoRunResponse{
		SessionID: r.SessionID,
		Matches:   MatchesFromDomain(r.Matches),
		Unmatched: unmatched,
		Skipped:   r.Skipped,
	}
}

// DiscrepancyResponse represents a discrepancy.
type DiscrepancyResponse struct {
	ID                string          `json:"id"`
	SessionID         string          `json:"session_id"`
	Number            string          `json:"number"`
	Type              string          `json:"type"`
	BankTransactionID string          `json:"bank_transaction_id,omitempty"`
	PaymentRecordID   string          `json:"payment_record_id,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	Description       string          `json:"description,omitempty"`
	Status            string          `json:"status"`
	ResolutionNotes   string          `json:"resolution_notes,omitempty"`
	ResolvedBy        string          `json:"resolved_by,omitempty"`
	ResolvedAt        *time.Time      `json:"resolved_at,omitempty"`
	EscalatedBy       string          `json:"escalated_by,omitempty"`
	EscalatedAt       *time.Time      `json:"escalated_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// DiscrepancyFromDomain converts a domain discrepancy to a response.
func DiscrepancyFromDomain(d *domain.ReconciliationDiscrepancy) *DiscrepancyResponse {
	return &DiscrepancyResponse{
		ID:                d.ID,
		SessionID:         d.SessionID,
		Number:            d.Number,
		Type:              string(d.Type),
		BankTransactionID: d.BankTransactionID,
		PaymentRecordID:   d.PaymentRecordID,
		Amount:            d.Amount,
		Description:       d.Description,
		Status:            string(d.Status),
		ResolutionNotes:   d.ResolutionNotes,
		ResolvedBy:        d.ResolvedBy,
		ResolvedAt:        d.ResolvedAt,
		EscalatedBy:       d.EscalatedBy,
		EscalatedAt:       d.EscalatedAt,
		CreatedAt:         d.CreatedAt,
	}
}

// SessionSummaryResponse is the headline view of a session.
type SessionSummaryResponse struct {
	SessionID               string          `json:"session_id"`
	SessionNumber           string          `json:"session_number"`
	AccountID               string          `json:"account_id"`
	Status                  string          `json:"status"`
	StatementClosingBalance decimal.Decimal `json:"statement_closing_balance"`
	BookBalance             decimal.Decimal `json:"book_balance"`
	Difference              decimal.Decimal `json:"difference"`
	MatchedCount            int             `json:"matched_count"`
	UnmatchedCount          int             `json:"unmatched_count"`
	OpenDiscrepancies       int             `json:"open_discrepancies"`
	TotalDiscrepancyAmount  decimal.Decimal `json:"total_discrepancy_amount"`
	GeneratedAt             time.Time       `json:"generated_at"`
}

// SessionSummaryFromUseCase converts a session summary to a response.
func SessionSummaryFromUseCase(s *usecase.SessionSummary) *SessionSummaryResponse {
	return &SessionSummaryResponse{
		SessionID:               s.SessionID,
		SessionNumber:           s.SessionNumber,
		AccountID:               s.AccountID,
		Status:                  string(s.Status),
		StatementClosingBalance: s.StatementClosingBalance,
		BookBalance:             s.BookBalance,
		Difference:              s.Difference,
		MatchedCount:            s.MatchedCount,
		UnmatchedCount:          s.UnmatchedCount,
		OpenDiscrepancies:       s.OpenDiscrepancies,
		TotalDiscrepancyAmount:  s.TotalDiscrepancyAmount,
		GeneratedAt:             s.GeneratedAt,
	}
}

// OutstandingItemsResponse lists unreconciled items on both sides.
type OutstandingItemsResponse struct {
	AccountID                string                 `json:"account_id"`
	AsOf                     string                 `json:"as_of"`
	UnmatchedTransactions    []*TransactionResponse `json:"unmatched_transactions"`
	UnmatchedPaymentRecords  []*PaymentResponse     `json:"unmatched_payment_records"`
	UnmatchedTransactionsSum decimal.Decimal        `json:"unmatched_transactions_sum"`
	UnmatchedPaymentsSum     decimal.Decimal        `json:"unmatched_payments_sum"`
}

// OutstandingItemsFromUseCase converts an outstanding items report.
func OutstandingItemsFromUseCase(o *usecase.OutstandingItems) *OutstandingItemsResponse {
	payments := make([]*PaymentResponse, len(o.UnmatchedPaymentRecords))
	for i, p := range o.UnmatchedPaymentRecords {
		payments[i] = PaymentFromDomain(p)
	}
	return &OutstandingItemsResponse{
		AccountID:                o.AccountID,
		AsOf:                     o.AsOf.Format(time.DateOnly),
		UnmatchedTransactions:    TransactionsFromDomain(o.UnmatchedTransactions),
		UnmatchedPaymentRecords:  payments,
		UnmatchedTransactionsSum: o.UnmatchedTransactionsSum,
		UnmatchedPaymentsSum:     o.UnmatchedPaymentsSum,
	}
}

// BalanceComparisonResponse compares book and statement balances.
type BalanceComparisonResponse struct {
	AccountID        string          `json:"account_id"`
	AsOf             string          `json:"as_of"`
	BookBalance      decimal.Decimal `json:"book_balance"`
	StatementBalance decimal.Decimal `json:"statement_balance"`
	StatementSession string          `json:"statement_session_id,omitempty"`
	HasStatement     bool            `json:"has_statement"`
	Difference       decimal.Decimal `json:"difference"`
	IsReconciled     bool            `json:"is_reconciled"`
}

// BalanceComparisonFromUseCase converts a balance comparison.
func BalanceComparisonFromUseCase(b *usecase.BalanceComparison) *BalanceComparisonResponse {
	return &BalanceComparisonResponse{
		AccountID:        b.AccountID,
		AsOf:             b.AsOf.Format(time.DateOnly),
		BookBalance:      b.BookBalance,
		StatementBalance: b.StatementBalance,
		StatementSession: b.StatementSession,
		HasStatement:     b.HasStatement,
		Difference:       b.Difference,
		IsReconciled:     b.IsReconciled,
	}
}

// EventResponse represents an outbox event.
type EventResponse struct {
	ID            string         `json:"id"`
	AggregateType string         `json:"aggregate_type"`
	AggregateID   string         `json:"aggregate_id"`
	EventType     string         `json:"event_type"`
	Payload       map[string]any `json:"payload"`
	CreatedAt     time.Time      `json:"created_at"`
	Published     bool           `json:"published"`
}

// EventFromDomain converts an outbox event to a response.
func EventFromDomain(e *domain.OutboxEvent) *EventResponse {
	return &EventResponse{
		ID:            e.ID,
		AggregateType: e.AggregateType,
		AggregateID:   e.AggregateID,
		EventType:     e.EventType,
		Payload:       e.Payload,
		CreatedAt:     e.CreatedAt,
		Published:     e.Published,
	}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
