package domain

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var scoringDay = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func scoringRule() *MatchingRule {
	return &MatchingRule{
		ID:                "r1",
		Name:              "standard",
		AmountTolerance:   decimal.NewFromInt(10),
		DateToleranceDays: 5,
		MinConfidence:     90,
		Status:            RuleStatusActive,
	}
}

func TestScoreCandidate_ExactMatch(t *testing.T) {
	txn := &BankTransaction{Amount: decimal.NewFromInt(500), Date: scoringDay, Reference: "INV-1001"}
	pay := &InternalPaymentRecord{ID: "p1", Amount: decimal.NewFromInt(500), Direction: DirectionCredit, Date: scoringDay, Reference: "INV-1001"}

	s := ScoreCandidate(txn, pay, scoringRule())
	if s.Total != MaxConfidence {
		t.Fatalf("expected %v, got %v (%+v)", MaxConfidence, s.Total, s)
	}
	if s.Similarity != 1 {
		t.Fatalf("expected similarity 1, got %v", s.Similarity)
	}
}

func TestScoreCandidate_Components(t *testing.T) {
	tests := []struct {
		name      string
		txnAmount int64
		payAmount int64
		days      int
		wantAmt   float64
		wantDate  float64
	}{
		{name: "half tolerance", txnAmount: 500, payAmount: 495, days: 0, wantAmt: 20, wantDate: 30},
		{name: "outside amount tolerance", txnAmount: 500, payAmount: 480, days: 0, wantAmt: 0, wantDate: 30},
		{name: "date decay", txnAmount: 500, payAmount: 500, days: 1, wantAmt: 40, wantDate: 24},
		{name: "outside date tolerance", txnAmount: 500, payAmount: 500, days: 7, wantAmt: 40, wantDate: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := &BankTransaction{Amount: decimal.NewFromInt(tt.txnAmount), Date: scoringDay}
			pay := &InternalPaymentRecord{
				ID:        "p",
				Amount:    decimal.NewFromInt(tt.payAmount),
				Direction: DirectionCredit,
				Date:      scoringDay.AddDate(0, 0, tt.days),
			}
			s := ScoreCandidate(txn, pay, scoringRule())
			if s.Amount != tt.wantAmt {
				t.Errorf("amount component: expected %v, got %v", tt.wantAmt, s.Amount)
			}
			if s.Date != tt.wantDate {
				t.Errorf("date component: expected %v, got %v", tt.wantDate, s.Date)
			}
			if s.Reference != 0 {
				t.Errorf("reference component: expected 0 without references, got %v", s.Reference)
			}
		})
	}
}

func TestScoreCandidate_DirectionMismatchScoresZero(t *testing.T) {
	txn := &BankTransaction{Amount: decimal.NewFromInt(-500), Date: scoringDay, Reference: "INV-1"}
	pay := &InternalPaymentRecord{ID: "p", Amount: decimal.NewFromInt(500), Direction: DirectionCredit, Date: scoringDay, Reference: "INV-1"}

	if s := ScoreCandidate(txn, pay, scoringRule()); s.Total != 0 {
		t.Fatalf("expected 0, got %v", s.Total)
	}
}

func TestScoreCandidate_BoundedAndDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	refs := []string{"", "INV-1001", "INV1002", "mpesa QX12", "RENT MARCH", "x"}

	for i := 0; i < 500; i++ {
		amount := decimal.NewFromInt(rng.Int63n(2000) - 1000).Add(decimal.New(rng.Int63n(100), -2))
		if amount.IsZero() {
			amount = decimal.NewFromInt(1)
		}
		dir := DirectionCredit
		if rng.Intn(2) == 0 {
			dir = DirectionDebit
		}
		txn := &BankTransaction{
			Amount:      amount,
			Date:        scoringDay.AddDate(0, 0, rng.Intn(20)-10),
			Reference:   refs[rng.Intn(len(refs))],
			Description: refs[rng.Intn(len(refs))],
		}
		pay := &InternalPaymentRecord{
			ID:        "p",
			Amount:    decimal.NewFromInt(rng.Int63n(1000)),
			Direction: dir,
			Date:      scoringDay,
			Reference: refs[rng.Intn(len(refs))],
		}
		rule := &MatchingRule{
			AmountTolerance:   decimal.NewFromInt(rng.Int63n(50)),
			DateToleranceDays: rng.Intn(10),
		}

		first := ScoreCandidate(txn, pay, rule)
		if first.Total < 0 || first.Total > MaxConfidence {
			t.Fatalf("score out of range: %+v", first)
		}
		if second := ScoreCandidate(txn, pay, rule); second != first {
			t.Fatalf("score not deterministic: %+v vs %+v", first, second)
		}
	}
}

func TestScoreCandidate_MonotonicInAmountDistance(t *testing.T) {
	rule := scoringRule()
	txn := &BankTransaction{Amount: decimal.NewFromInt(1000), Date: scoringDay}

	prev := MaxConfidence + 1
	for cents := int64(0); cents <= 1200; cents += 25 {
		pay := &InternalPaymentRecord{
			ID:        "p",
			Amount:    decimal.NewFromInt(1000).Sub(decimal.New(cents, -2)),
			Direction: DirectionCredit,
			Date:      scoringDay,
		}
		s := ScoreCandidate(txn, pay, rule)
		if s.Total > prev {
			t.Fatalf("score increased as amount moved away: %v > %v at %d cents", s.Total, prev, cents)
		}
		prev = s.Total
	}
}

func TestScoreCandidate_MonotonicInDateDistance(t *testing.T) {
	rule := scoringRule()
	txn := &BankTransaction{Amount: decimal.NewFromInt(1000), Date: scoringDay}

	prev := MaxConfidence + 1
	for days := 0; days <= 10; days++ {
		pay := &InternalPaymentRecord{
			ID:        "p",
			Amount:    decimal.NewFromInt(1000),
			Direction: DirectionCredit,
			Date:      scoringDay.AddDate(0, 0, -days),
		}
		s := ScoreCandidate(txn, pay, rule)
		if s.Total > prev {
			t.Fatalf("score increased as date moved away: %v > %v at %d days", s.Total, prev, days)
		}
		prev = s.Total
	}
}

func TestReferenceSimilarity(t *testing.T) {
	tests := []struct {
		name        string
		reference   string
		description string
		payment     string
		min, max    float64
	}{
		{name: "identical", reference: "INV-1001", payment: "INV-1001", min: 1, max: 1},
		{name: "punctuation and case ignored", reference: "inv 1001", payment: "INV-1001", min: 1, max: 1},
		{name: "contained in description", reference: "X", description: "Payment for INV-1001 thanks", payment: "INV-1001", min: 1, max: 1},
		{name: "close typo", reference: "INV-1010", payment: "INV-1001", min: 0.7, max: 0.99},
		{name: "unrelated", reference: "RENT", payment: "QX99ZZ", min: 0, max: 0.2},
		{name: "empty payment reference", reference: "INV-1", payment: "", min: 0, max: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReferenceSimilarity(tt.reference, tt.description, tt.payment)
			if got < tt.min || got > tt.max {
				t.Fatalf("expected similarity in [%v,%v], got %v", tt.min, tt.max, got)
			}
		})
	}
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)
	b := time.Date(2026, 3, 8, 0, 1, 0, 0, time.UTC)
	if got := DaysBetween(a, b); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	if got := DaysBetween(b, a); got != 2 {
		t.Fatalf("expected symmetric 2, got %d", got)
	}
}

func TestRankSuggestions(t *testing.T) {
	mk := func(id string, total float64, diff int) MatchSuggestion {
		return MatchSuggestion{Payment: &InternalPaymentRecord{ID: id}, Score: Score{Total: total}, DateDiff: diff}
	}
	suggestions := []MatchSuggestion{
		mk("p4", 80, 0),
		mk("p3", 95, 2),
		mk("p2", 95, 1),
		mk("p1", 95, 1),
	}

	RankSuggestions(suggestions)

	want := []string{"p1", "p2", "p3", "p4"}
	for i, s := range suggestions {
		if s.Payment.ID != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], s.Payment.ID)
		}
	}
}
