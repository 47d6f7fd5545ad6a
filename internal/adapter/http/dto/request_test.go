package dto

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankrecon/internal/domain"
	"github.com/iho/bankrecon/internal/usecase"
)

func TestParseDate(t *testing.T) {
	got, err := ParseDate("date", " 2024-03-15 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("ParseDate() = %v, want %v", got, want)
	}

	_, err = ParseDate("period_start", "15/03/2024")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateAccountRequest_ToUseCaseInput(t *testing.T) {
	req := &CreateAccountRequest{
		BankName:       "First Bank",
		AccountNumber:  "001-234",
		AccountName:    "Operating",
		Currency:       "USD",
		OpeningBalance: decimal.RequireFromString("100.00"),
	}

	got := req.ToUseCaseInput("alice")
	want := usecase.CreateAccountInput{
		BankName:       "First Bank",
		AccountNumber:  "001-234",
		AccountName:    "Operating",
		Currency:       "USD",
		OpeningBalance: decimal.RequireFromString("100.00"),
		Actor:          "alice",
	}

	if got.BankName != want.BankName || got.AccountNumber != want.AccountNumber ||
		got.AccountName != want.AccountName || got.Currency != want.Currency ||
		!got.OpeningBalance.Equal(want.OpeningBalance) || got.Actor != want.Actor {
		t.Fatalf("ToUseCaseInput() = %+v, want %+v", got, want)
	}
}

func TestAddTransactionRequest_ToUseCaseInput(t *testing.T) {
	tests := []struct {
		name        string
		request     *AddTransactionRequest
		expectError bool
	}{
		{
			name: "valid date",
			request: &AddTransactionRequest{
				Type:      "deposit",
				Date:      "2024-03-01",
				Reference: "INV-1",
				Amount:    decimal.RequireFromString("250.00"),
				Manual:    true,
			},
		},
		{
			name:        "invalid date",
			request:     &AddTransactionRequest{Type: "deposit", Date: "yesterday"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.request.ToUseCaseInput("acc-1", "bob")

			if tt.expectError {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.AccountID != "acc-1" || got.Actor != "bob" || !got.Manual {
				t.Fatalf("unexpected input: %+v", got)
			}
			if got.Type != domain.TransactionTypeDeposit {
				t.Fatalf("Type = %q", got.Type)
			}
			if got.Date.Format(time.DateOnly) != "2024-03-01" {
				t.Fatalf("Date = %v", got.Date)
			}
		})
	}
}

func TestStartSessionRequest_ToUseCaseInput(t *testing.T) {
	req := &StartSessionRequest{
		AccountID:               "acc-1",
		PeriodStart:             "2024-03-01",
		PeriodEnd:               "2024-03-31",
		StatementClosingBalance: decimal.RequireFromString("1500.00"),
	}

	got, err := req.ToUseCaseInput("carol")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.AccountID != "acc-1" || got.InitiatedBy != "carol" {
		t.Fatalf("unexpected input: %+v", got)
	}
	if !got.PeriodEnd.After(got.PeriodStart) {
		t.Fatalf("period not parsed: %v..%v", got.PeriodStart, got.PeriodEnd)
	}

	req.PeriodEnd = ""
	if _, err := req.ToUseCaseInput("carol"); err == nil {
		t.Fatalf("expected error for missing period_end")
	}
}

func TestManualMatchRequest_ToUseCaseInput(t *testing.T) {
	req := &ManualMatchRequest{TransactionID: "txn-1", PaymentID: "pay-1", Notes: "split"}

	got := req.ToUseCaseInput("sess-1", "dave")
	want := usecase.ManualMatchInput{
		SessionID:     "sess-1",
		TransactionID: "txn-1",
		PaymentID:     "pay-1",
		Notes:         "split",
		Actor:         "dave",
	}
	if got != want {
		t.Fatalf("ToUseCaseInput() = %+v, want %+v", got, want)
	}
}

func TestCreateDiscrepancyRequest_ToUseCaseInput(t *testing.T) {
	req := &CreateDiscrepancyRequest{
		Type:              "amount_mismatch",
		BankTransactionID: "txn-1",
		Amount:            decimal.RequireFromString("-4.50"),
	}

	got := req.ToUseCaseInput("sess-1", "erin")
	if got.SessionID != "sess-1" || got.Actor != "erin" {
		t.Fatalf("unexpected input: %+v", got)
	}
	if got.Type != domain.DiscrepancyAmountMismatch {
		t.Fatalf("Type = %q", got.Type)
	}
	if !got.Amount.Equal(decimal.RequireFromString("-4.5")) {
		t.Fatalf("Amount = %s", got.Amount)
	}
}
