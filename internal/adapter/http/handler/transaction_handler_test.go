package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankrecon/internal/domain"
	"github.com/iho/bankrecon/internal/usecase"
)

type transactionServiceStub struct {
	addFn     func(ctx context.Context, input usecase.AddTransactionInput) (*domain.BankTransaction, error)
	getFn     func(ctx context.Context, id string) (*domain.BankTransaction, error)
	listFn    func(ctx context.Context, filter domain.TransactionFilter) ([]*domain.BankTransaction, error)
	excludeFn func(ctx context.Context, id, reason, actor string) (*domain.BankTransaction, error)
	deleteFn  func(ctx context.Context, id, actor string) (*domain.BankTransaction, error)
}

func (s *transactionServiceStub) AddTransaction(ctx context.Context, input usecase.AddTransactionInput) (*domain.BankTransaction, error) {
	return s.addFn(ctx, input)
}

func (s *transactionServiceStub) GetTransaction(ctx context.Context, id string) (*domain.BankTransaction, error) {
	return s.getFn(ctx, id)
}

func (s *transactionServiceStub) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]*domain.BankTransaction, error) {
	return s.listFn(ctx, filter)
}

func (s *transactionServiceStub) ExcludeTransaction(ctx context.Context, id, reason, actor string) (*domain.BankTransaction, error) {
	return s.excludeFn(ctx, id, reason, actor)
}

func (s *transactionServiceStub) DeleteTransaction(ctx context.Context, id, actor string) (*domain.BankTransaction, error) {
	return s.deleteFn(ctx, id, actor)
}

func TestTransactionHandler_Add(t *testing.T) {
	var captured usecase.AddTransactionInput
	handler := NewTransactionHandler(&transactionServiceStub{
		addFn: func(ctx context.Context, input usecase.AddTransactionInput) (*domain.BankTransaction, error) {
			captured = input
			return &domain.BankTransaction{
				ID:          "txn-1",
				AccountID:   input.AccountID,
				Date:        input.Date,
				Amount:      decimal.NewFromInt(-25),
				MatchStatus: domain.MatchStatusUnmatched,
			}, nil
		},
	})

	body := `{"type":"fee","date":"2024-03-05","reference":"FEE-1","amount":"25"}`
	req := withURLParam(httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body)), "id", "acc-1")
	rec := httptest.NewRecorder()

	handler.Add(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.AccountID != "acc-1" || !captured.Date.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected input: %+v", captured)
	}
}

func TestTransactionHandler_Add_BadDate(t *testing.T) {
	handler := NewTransactionHandler(&transactionServiceStub{})

	body := `{"type":"deposit","date":"05/03/2024","amount":"25"}`
	req := withURLParam(httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body)), "id", "acc-1")
	rec := httptest.NewRecorder()

	handler.Add(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestTransactionHandler_List_Filters(t *testing.T) {
	var captured domain.TransactionFilter
	handler := NewTransactionHandler(&transactionServiceStub{
		listFn: func(ctx context.Context, filter domain.TransactionFilter) ([]*domain.BankTransaction, error) {
			captured = filter
			return nil, nil
		},
	})

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/?match_status=unmatched&from=2024-03-01&to=2024-03-31", nil), "id", "acc-1")
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.AccountID != "acc-1" || captured.MatchStatus == nil || *captured.MatchStatus != domain.MatchStatusUnmatched {
		t.Fatalf("unexpected filter: %+v", captured)
	}
	if captured.From == nil || captured.To == nil || captured.To.Day() != 31 {
		t.Fatalf("expected date bounds, got %+v", captured)
	}
}

func TestTransactionHandler_List_BadFilter(t *testing.T) {
	handler := NewTransactionHandler(&transactionServiceStub{})

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/?to=yesterday", nil), "id", "acc-1")
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestTransactionHandler_Exclude_Matched(t *testing.T) {
	var gotReason, gotActor string
	handler := NewTransactionHandler(&transactionServiceStub{
		excludeFn: func(ctx context.Context, id, reason, actor string) (*domain.BankTransaction, error) {
			gotReason, gotActor = reason, actor
			return nil, domain.ErrTransactionMatched
		},
	})

	req := withURLParam(httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"reason":"duplicate line"}`)), "id", "txn-1")
	req.Header.Set(ActorHeader, "bob")
	rec := httptest.NewRecorder()

	handler.Exclude(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if gotReason != "duplicate line" || gotActor != "bob" {
		t.Fatalf("unexpected call: reason=%q actor=%q", gotReason, gotActor)
	}
}

func TestTransactionHandler_Delete_NotFound(t *testing.T) {
	handler := NewTransactionHandler(&transactionServiceStub{
		deleteFn: func(ctx context.Context, id, actor string) (*domain.BankTransaction, error) {
			return nil, domain.ErrTransactionNotFound
		},
	})

	rec := httptest.NewRecorder()
	handler.Delete(rec, withURLParam(httptest.NewRequest(http.MethodDelete, "/", nil), "id", "missing"))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
