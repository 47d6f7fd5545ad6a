package dto

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankrecon/internal/domain"
	"github.com/iho/bankrecon/internal/usecase"
)

// ParseDate parses a YYYY-MM-DD calendar day.
func ParseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, domain.Invalid("%s must be a YYYY-MM-DD date", field)
	}
	return t, nil
}

// CreateAccountRequest represents a request to register a bank account.
type CreateAccountRequest struct {
	BankName       string          `json:"bank_name"`
	AccountNumber  string          `json:"account_number"`
	AccountName    string          `json:"account_name"`
	Currency       string          `json:"currency"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateAccountRequest) ToUseCaseInput(actor string) usecase.CreateAccountInput {
	return usecase.CreateAccountInput{
		BankName:       r.BankName,
		AccountNumber:  r.AccountNumber,
		AccountName:    r.AccountName,
		Currency:       r.Currency,
		OpeningBalance: r.OpeningBalance,
		Actor:          actor,
	}
}

// LinkChannelRequest links an account to an external payment channel.
type LinkChannelRequest struct {
	ShortCode string `json:"short_code"`
}

// AddTransactionRequest represents a bank statement line.
type AddTransactionRequest struct {
	Type        string          `json:"type"`
	Date        string          `json:"date"`
	Reference   string          `json:"reference"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Manual      bool            `json:"manual"`
}

// ToUseCaseInput converts to use case input.
func (r *AddTransactionRequest) ToUseCaseInput(accountID, actor string) (usecase.AddTransactionInput, error) {
	date, err := ParseDate("date", r.Date)
	if err != nil {
		return usecase.AddTransactionInput{}, err
	}
	return usecase.AddTransactionInput{
		AccountID:   accountID,
		Type:        domain.TransactionType(r.Type),
		Date:        date,
		Reference:   r.Reference,
		Description: r.Description,
		Amount:      r.Amount,
		Manual:      r.Manual,
		Actor:       actor,
	}, nil
}

// ExcludeTransactionRequest carries the mandatory exclusion reason.
type ExcludeTransactionRequest struct {
	Reason string `json:"reason"`
}

// RuleRequest creates or replaces a matching rule.
type RuleRequest struct {
	Name                string          `json:"name"`
	Priority            int             `json:"priority"`
	AmountTolerance     decimal.Decimal `json:"amount_tolerance"`
	DateToleranceDays   int             `json:"date_tolerance_days"`
	ReferenceSimilarity float64         `json:"reference_similarity"`
	MinConfidence       float64         `json:"min_confidence"`
	Disabled            bool            `json:"disabled"`
}

// ToUseCaseInput converts to use case input.
func (r *RuleRequest) ToUseCaseInput() usecase.RuleInput {
	return usecase.RuleInput{
		Name:                r.Name,
		Priority:            r.Priority,
		AmountTolerance:     r.AmountTolerance,
		DateToleranceDays:   r.DateToleranceDays,
		ReferenceSimilarity: r.ReferenceSimilarity,
		MinConfidence:       r.MinConfidence,
		Disabled:            r.Disabled,
	}
}

// StartSessionRequest opens a reconciliation session.
type StartSessionRequest struct {
	AccountID               string          `json:"account_id"`
	PeriodStart             string          `json:"period_start"`
	PeriodEnd               string          `json:"period_end"`
	StatementClosingBalance decimal.Decimal `json:"statement_closing_balance"`
}

// ToUseCaseInput converts to use case input.
func (r *StartSessionRequest) ToUseCaseInput(actor string) (usecase.StartSessionInput, error) {
	start, err := ParseDate("period_start", r.PeriodStart)
	if err != nil {
		return usecase.StartSessionInput{}, err
	}
	end, err := ParseDate("period_end", r.PeriodEnd)
	if err != nil {
		return usecase.StartSessionInput{}, err
	}
	return usecase.StartSessionInput{
		AccountID:               r.AccountID,
		PeriodStart:             start,
		PeriodEnd:               end,
		StatementClosingBalance: r.StatementClosingBalance,
		InitiatedBy:             actor,
	}, nil
}

// CloseSessionRequest completes or rejects a session.
type CloseSessionRequest struct {
	Notes string `json:"notes"`
}

// ManualMatchRequest pairs a transaction with a payment record.
type ManualMatchRequest struct {
	TransactionID string `json:"transaction_id"`
	PaymentID     string `json:"payment_id"`
	Notes         string `json:"notes"`
}

// ToUseCaseInput converts to use case input.
func (r *ManualMatchRequest) ToUseCaseInput(sessionID, actor string) usecase.ManualMatchInput {
	return usecase.ManualMatchInput{
		SessionID:     sessionID,
		TransactionID: r.TransactionID,
		PaymentID:     r.PaymentID,
		Notes:         r.Notes,
		Actor:         actor,
	}
}

// CreateDiscrepancyRequest records a discrepancy in a session.
type CreateDiscrepancyRequest struct {
	Type              string          `json:"type"`
	BankTransactionID string          `json:"bank_transaction_id"`
	PaymentRecordID   string          `json:"payment_record_id"`
	Amount            decimal.Decimal `json:"amount"`
	Description       string          `json:"description"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateDiscrepancyRequest) ToUseCaseInput(sessionID, actor string) usecase.CreateDiscrepancyInput {
	return usecase.CreateDiscrepancyInput{
		SessionID:         sessionID,
		Type:              domain.DiscrepancyType(r.Type),
		BankTransactionID: r.BankTransactionID,
		PaymentRecordID:   r.PaymentRecordID,
		Amount:            r.Amount,
		Description:       r.Description,
		Actor:             actor,
	}
}

// DiscrepancyActionRequest resolves or escalates a discrepancy.
type DiscrepancyActionRequest struct {
	Notes string `json:"notes"`
}
