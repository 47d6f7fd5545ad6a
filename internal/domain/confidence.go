package domain

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// Confidence component weights. They sum to MaxConfidence.
const (
	AmountWeight    = 40.0
	DateWeight      = 30.0
	ReferenceWeight = 30.0
	MaxConfidence   = 100.0
)

// Score is the confidence breakdown of one transaction/payment pairing.
type Score struct {
	Amount     float64
	Date       float64
	Reference  float64
	Similarity float64
	Total      float64
}

// ScoreCandidate computes the confidence that payment is the book side of
// txn under rule. It is a pure function of its arguments.
func ScoreCandidate(txn *BankTransaction, payment *InternalPaymentRecord, rule *MatchingRule) Score {
	if txn.Direction() != payment.Direction {
		return Score{}
	}

	diff := txn.Amount.Abs().Sub(payment.Amount.Abs()).Abs()
	days := DaysBetween(txn.Date, payment.Date)
	similarity := ReferenceSimilarity(txn.Reference, txn.Description, payment.Reference)

	s := Score{
		Amount:     amountComponent(diff, rule.AmountTolerance),
		Date:       dateComponent(days, rule.DateToleranceDays),
		Reference:  ReferenceWeight * similarity,
		Similarity: round2(similarity),
	}
	s.Total = round2(math.Min(MaxConfidence, s.Amount+s.Date+s.Reference))
	s.Amount = round2(s.Amount)
	s.Date = round2(s.Date)
	s.Reference = round2(s.Reference)
	return s
}

func amountComponent(diff, tolerance decimal.Decimal) float64 {
	if diff.IsZero() {
		return AmountWeight
	}
	if !tolerance.IsPositive() || diff.GreaterThanOrEqual(tolerance) {
		return 0
	}
	ratio, _ := diff.Div(tolerance).Float64()
	return clamp(AmountWeight * (1 - ratio))
}

func dateComponent(days, toleranceDays int) float64 {
	if days == 0 {
		return DateWeight
	}
	if toleranceDays <= 0 || days >= toleranceDays {
		return 0
	}
	return clamp(DateWeight * (1 - float64(days)/float64(toleranceDays)))
}

// ReferenceSimilarity returns a ratio in [0,1] comparing the bank reference
// and description against the payment reference. A payment reference fully
// contained in either bank field counts as an exact hit.
func ReferenceSimilarity(reference, description, paymentReference string) float64 {
	target := normalizeReference(paymentReference)
	if target == "" {
		return 0
	}

	best := 0.0
	for _, field := range []string{reference, description} {
		source := normalizeReference(field)
		if source == "" {
			continue
		}
		if strings.Contains(source, target) {
			return 1
		}
		if r := editRatio(source, target); r > best {
			best = r
		}
	}
	return best
}

func editRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 0
	}
	// DefaultOptions charges 2 for a substitution, so the distance never
	// exceeds the combined length.
	distance := levenshtein.DistanceForStrings(ra, rb, levenshtein.DefaultOptions)
	return math.Max(0, 1-float64(distance)/float64(total))
}

func normalizeReference(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DaysBetween returns the absolute number of calendar days between a and b.
func DaysBetween(a, b time.Time) int {
	d := DateOnly(a).Sub(DateOnly(b)) / (24 * time.Hour)
	if d < 0 {
		d = -d
	}
	return int(d)
}

// RankSuggestions sorts by descending confidence, then by smallest date
// distance, then by ascending payment record ID.
func RankSuggestions(suggestions []MatchSuggestion) {
	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if a.Score.Total != b.Score.Total {
			return a.Score.Total > b.Score.Total
		}
		if a.DateDiff != b.DateDiff {
			return a.DateDiff < b.DateDiff
		}
		return a.Payment.ID < b.Payment.ID
	})
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(MaxConfidence, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
