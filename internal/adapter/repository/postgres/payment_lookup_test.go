package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"

	"github.com/iho/bankrecon/internal/domain"
)

var paymentCols = []string{"id", "currency", "amount", "direction", "payment_date", "reference", "method"}

func TestPaymentLookupFindCandidatesWindow(t *testing.T) {
	mock := newMockPool(t)
	lookup := NewPaymentLookup(mock)

	q := domain.CandidateQuery{
		Currency:     "usd",
		Amount:       decimal.NewFromInt(150),
		ToleranceAbs: decimal.RequireFromString("1.5"),
		DateFrom:     time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC),
		DateTo:       time.Date(2024, 3, 22, 0, 0, 0, 0, time.UTC),
		Direction:    domain.DirectionCredit,
	}

	mock.ExpectQuery("FROM payment_records WHERE currency = (.+) AND direction").
		WithArgs("USD", "credit", day(2024, 3, 8), day(2024, 3, 22), num("148.5"), num("151.5")).
		WillReturnRows(pgxmock.NewRows(paymentCols).
			AddRow("p-1", "USD", num("150.00"), "credit", day(2024, 3, 15), "INV-1", "card").
			AddRow("p-2", "USD", num("149.00"), "credit", day(2024, 3, 20), "", "cash"))

	records, err := lookup.FindCandidates(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Direction != domain.DirectionCredit || records[0].Reference != "INV-1" {
		t.Fatalf("unexpected record: %+v", records[0])
	}
	if !records[1].Date.Equal(time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v", records[1].Date)
	}

	assertExpectations(t, mock)
}

func TestPaymentLookupGetByIDNotFound(t *testing.T) {
	mock := newMockPool(t)
	lookup := NewPaymentLookup(mock)

	mock.ExpectQuery("FROM payment_records WHERE id").
		WithArgs("p-404").
		WillReturnError(pgx.ErrNoRows)

	if _, err := lookup.GetByID(context.Background(), "p-404"); !errors.Is(err, domain.ErrPaymentNotFound) {
		t.Fatalf("expected ErrPaymentNotFound, got %v", err)
	}
}

func TestPaymentLookupListRange(t *testing.T) {
	mock := newMockPool(t)
	lookup := NewPaymentLookup(mock)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM payment_records WHERE currency = (.+) AND payment_date BETWEEN").
		WithArgs("EUR", day(2024, 1, 1), day(2024, 3, 31)).
		WillReturnRows(pgxmock.NewRows(paymentCols).
			AddRow("p-9", "EUR", num("80.00"), "debit", day(2024, 2, 2), "REF", "transfer"))

	records, err := lookup.ListRange(context.Background(), "EUR", from, to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Direction != domain.DirectionDebit {
		t.Fatalf("unexpected records: %+v", records)
	}

	assertExpectations(t, mock)
}
