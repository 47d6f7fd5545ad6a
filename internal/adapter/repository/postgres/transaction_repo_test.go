package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"

	"github.com/iho/bankrecon/internal/domain"
)

var bankTransactionCols = []string{
	"id", "account_id", "type", "txn_date", "reference", "description", "amount",
	"source", "match_status", "state", "exclusion_reason", "created_at", "updated_at",
}

func TestBuildTransactionListQuery(t *testing.T) {
	status := domain.MatchStatusUnmatched
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		filter    domain.TransactionFilter
		wantConds []string
		wantArgs  int
	}{
		{
			name:      "posted only",
			filter:    domain.TransactionFilter{},
			wantConds: []string{"state = 'posted'"},
		},
		{
			name:      "account",
			filter:    domain.TransactionFilter{AccountID: "acc-1"},
			wantConds: []string{"account_id = $1"},
			wantArgs:  1,
		},
		{
			name: "every filter",
			filter: domain.TransactionFilter{
				AccountID:   "acc-1",
				MatchStatus: &status,
				From:        &from,
				To:          &to,
			},
			wantConds: []string{"account_id = $1", "match_status = $2", "txn_date >= $3", "txn_date <= $4"},
			wantArgs:  4,
		},
		{
			name:      "date bound without account",
			filter:    domain.TransactionFilter{To: &to},
			wantConds: []string{"txn_date <= $1"},
			wantArgs:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildTransactionListQuery(tt.filter)
			for _, cond := range tt.wantConds {
				if !strings.Contains(query, cond) {
					t.Fatalf("query %q missing %q", query, cond)
				}
			}
			if len(args) != tt.wantArgs {
				t.Fatalf("expected %d args, got %d", tt.wantArgs, len(args))
			}
			if !strings.HasSuffix(query, "ORDER BY id") {
				t.Fatalf("expected id ordering, got %q", query)
			}
		})
	}
}

func TestBankTransactionRepositoryList(t *testing.T) {
	mock := newMockPool(t)
	repo := NewBankTransactionRepository(mock)

	rows := pgxmock.NewRows(bankTransactionCols).
		AddRow("t-1", "acc-1", "deposit", day(2024, 3, 1), "INV-1", "card batch", num("150.00"),
			"import", "unmatched", "posted", "", ts(fixedTime), ts(fixedTime)).
		AddRow("t-2", "acc-1", "fee", day(2024, 3, 2), "MAN-t-2", "", num("-2.50"),
			"manual", "excluded", "posted", "bank fee", ts(fixedTime), ts(fixedTime))
	mock.ExpectQuery("SELECT (.+) FROM bank_transactions WHERE state = 'posted' AND account_id").
		WithArgs("acc-1").
		WillReturnRows(rows)

	txns, err := repo.List(context.Background(), domain.TransactionFilter{AccountID: "acc-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txns) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txns))
	}
	if !txns[0].Date.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v", txns[0].Date)
	}
	if txns[1].Direction() != domain.DirectionDebit || !txns[1].IsManual() {
		t.Fatalf("unexpected second transaction: %+v", txns[1])
	}
	if txns[1].ExclusionReason != "bank fee" || txns[1].CountsTowardBalance() {
		t.Fatalf("expected excluded transaction, got %+v", txns[1])
	}

	assertExpectations(t, mock)
}

func TestBankTransactionRepositorySumPosted(t *testing.T) {
	mock := newMockPool(t)
	repo := NewBankTransactionRepository(mock)

	through := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(amount\\), 0\\)").
		WithArgs("acc-1", dateToPgDate(through)).
		WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow(num("-215.00")))

	sum, err := repo.SumPosted(context.Background(), "acc-1", through)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sum.Equal(decimal.NewFromInt(-215)) {
		t.Fatalf("expected -215, got %s", sum)
	}

	assertExpectations(t, mock)
}

func TestBankTransactionRepositoryUpdate(t *testing.T) {
	mock := newMockPool(t)
	repo := NewBankTransactionRepository(mock)
	tx := beginMockTx(t, mock)

	mock.ExpectExec("UPDATE bank_transactions").
		WithArgs("t-1", "manually_matched", "posted", "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE bank_transactions").
		WithArgs("gone", "excluded", "posted", "dup", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ctx := context.Background()
	err := repo.Update(ctx, tx, &domain.BankTransaction{
		ID:          "t-1",
		MatchStatus: domain.MatchStatusManuallyMatched,
		State:       domain.TransactionStatePosted,
		UpdatedAt:   fixedTime,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = repo.Update(ctx, tx, &domain.BankTransaction{
		ID:              "gone",
		MatchStatus:     domain.MatchStatusExcluded,
		State:           domain.TransactionStatePosted,
		ExclusionReason: "dup",
		UpdatedAt:       fixedTime,
	})
	if !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}

	assertExpectations(t, mock)
}
