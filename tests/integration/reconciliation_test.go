package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankrecon/internal/domain"
	"github.com/iho/bankrecon/internal/usecase"
	"github.com/iho/bankrecon/tests/testutil"
)

var (
	periodStart = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	periodEnd   = time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
)

func TestReconciliationFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()

	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()
	testDB.TruncateAll(ctx)

	stack := testDB.NewStack()
	account := stack.CreateTestAccount(t, ctx, "KES", decimal.NewFromInt(1000))

	if _, err := stack.Rules.CreateRule(ctx, usecase.RuleInput{
		Name:                "exact",
		Priority:            1,
		AmountTolerance:     decimal.Zero,
		DateToleranceDays:   3,
		ReferenceSimilarity: 0.8,
		MinConfidence:       90,
	}); err != nil {
		t.Fatalf("failed to create rule: %v", err)
	}

	deposit, err := stack.Transactions.AddTransaction(ctx, usecase.AddTransactionInput{
		AccountID: account.ID,
		Type:      domain.TransactionTypeDeposit,
		Date:      periodStart.AddDate(0, 0, 9),
		Reference: "INV-1001",
		Amount:    decimal.NewFromInt(250),
	})
	if err != nil {
		t.Fatalf("failed to add deposit: %v", err)
	}
	fee, err := stack.Transactions.AddTransaction(ctx, usecase.AddTransactionInput{
		AccountID: account.ID,
		Type:      domain.TransactionTypeFee,
		Date:      periodStart.AddDate(0, 0, 14),
		Reference: "Monthly fee",
		Amount:    decimal.NewFromInt(-15),
	})
	if err != nil {
		t.Fatalf("failed to add fee: %v", err)
	}

	payment := testDB.InsertPayment(ctx, "KES", decimal.NewFromInt(250), domain.DirectionCredit,
		periodStart.AddDate(0, 0, 10), "INV-1001")

	session, err := stack.Sessions.StartSession(ctx, usecase.StartSessionInput{
		AccountID:               account.ID,
		PeriodStart:             periodStart,
		PeriodEnd:               periodEnd,
		StatementClosingBalance: decimal.NewFromInt(1235),
		InitiatedBy:             "alice",
	})
	if err != nil {
		t.Fatalf("failed to start session: %v", err)
	}
	if session.SessionNumber != "REC-00001" {
		t.Errorf("expected REC-00001, got %s", session.SessionNumber)
	}

	t.Run("second in-progress session is rejected", func(t *testing.T) {
		_, err := stack.Sessions.StartSession(ctx, usecase.StartSessionInput{
			AccountID:               account.ID,
			PeriodStart:             periodStart,
			PeriodEnd:               periodEnd,
			StatementClosingBalance: decimal.NewFromInt(1235),
		})
		if !errors.Is(err, domain.ErrActiveSessionExists) {
			t.Fatalf("expected ErrActiveSessionExists, got %v", err)
		}
	})

	t.Run("auto-run matches the deposit only", func(t *testing.T) {
		result, err := stack.Matching.ProcessSession(ctx, session.ID, "alice")
		if err != nil {
			t.Fatalf("auto-run failed: %v", err)
		}
		if len(result.Matches) != 1 || result.Matches[0].PaymentRecordID != payment.ID {
			t.Fatalf("expected one match on %s, got %+v", payment.ID, result.Matches)
		}
		if len(result.Unmatched) != 1 || result.Unmatched[0] != fee.ID {
			t.Fatalf("expected fee unmatched, got %v", result.Unmatched)
		}

		matched, err := stack.Transactions.GetTransaction(ctx, deposit.ID)
		if err != nil {
			t.Fatalf("failed to reload deposit: %v", err)
		}
		if matched.MatchStatus != domain.MatchStatusAutoMatched {
			t.Errorf("expected auto_matched, got %s", matched.MatchStatus)
		}
	})

	t.Run("discrepancy creation is idempotent", func(t *testing.T) {
		input := usecase.CreateDiscrepancyInput{
			SessionID:         session.ID,
			Type:              domain.DiscrepancyMissingFromPOS,
			BankTransactionID: fee.ID,
			Amount:            decimal.NewFromInt(15),
			Actor:             "alice",
		}
		first, created, err := stack.Discrepancies.CreateDiscrepancy(ctx, input)
		if err != nil || !created {
			t.Fatalf("expected new discrepancy, got created=%v err=%v", created, err)
		}
		second, created, err := stack.Discrepancies.CreateDiscrepancy(ctx, input)
		if err != nil || created {
			t.Fatalf("expected existing discrepancy, got created=%v err=%v", created, err)
		}
		if first.ID != second.ID {
			t.Errorf("expected same discrepancy, got %s and %s", first.ID, second.ID)
		}
		if first.Number != "REC-00001-D001" {
			t.Errorf("expected REC-00001-D001, got %s", first.Number)
		}
	})

	t.Run("summary and balance comparison", func(t *testing.T) {
		summary, err := stack.Reports.SessionSummary(ctx, session.ID)
		if err != nil {
			t.Fatalf("summary failed: %v", err)
		}
		if !summary.Difference.IsZero() {
			t.Errorf("expected zero difference, got %s", summary.Difference)
		}
		if summary.MatchedCount != 1 || summary.UnmatchedCount != 1 || summary.OpenDiscrepancies != 1 {
			t.Errorf("unexpected summary: %+v", summary)
		}

		if _, err := stack.Sessions.CompleteSession(ctx, session.ID, "alice", "signed off"); err != nil {
			t.Fatalf("failed to complete session: %v", err)
		}

		comparison, err := stack.Reports.BalanceComparison(ctx, account.ID, periodEnd)
		if err != nil {
			t.Fatalf("balance comparison failed: %v", err)
		}
		if !comparison.IsReconciled {
			t.Errorf("expected reconciled, got %+v", comparison)
		}
	})

	t.Run("completed session freezes its matches", func(t *testing.T) {
		matches, err := stack.Matching.ListMatches(ctx, session.ID)
		if err != nil || len(matches) != 1 {
			t.Fatalf("expected one match, got %d (err %v)", len(matches), err)
		}
		if _, err := stack.Matching.Unmatch(ctx, matches[0].ID, "alice"); !errors.Is(err, domain.ErrSessionCompleted) {
			t.Fatalf("expected ErrSessionCompleted, got %v", err)
		}
	})
}
