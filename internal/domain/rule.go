package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// RuleStatus is the lifecycle of a matching rule.
type RuleStatus string

const (
	RuleStatusActive   RuleStatus = "active"
	RuleStatusDisabled RuleStatus = "disabled"
	RuleStatusDeleted  RuleStatus = "deleted"
)

// IsValid reports whether s is a known rule status.
func (s RuleStatus) IsValid() bool {
	return s == RuleStatusActive || s == RuleStatusDisabled || s == RuleStatusDeleted
}

// MatchingRule configures one pass of candidate generation and scoring.
type MatchingRule struct {
	ID                  string
	Name                string
	Priority            int
	AmountTolerance     decimal.Decimal
	DateToleranceDays   int
	ReferenceSimilarity float64 // minimum similarity ratio in [0,1]
	MinConfidence       float64 // auto-accept threshold in [0,100]
	Status              RuleStatus
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsActive reports whether the rule takes part in matching.
func (r *MatchingRule) IsActive() bool {
	return r.Status == RuleStatusActive
}

// Accepts reports whether confidence clears the auto-match threshold.
func (r *MatchingRule) Accepts(confidence float64) bool {
	return confidence >= r.MinConfidence
}

// DefaultMatchingRule is used for suggestions and manual-match scoring when
// no rule is configured.
func DefaultMatchingRule() *MatchingRule {
	return &MatchingRule{
		ID:                  "default",
		Name:                "default",
		Priority:            0,
		AmountTolerance:     decimal.NewFromInt(1),
		DateToleranceDays:   7,
		ReferenceSimilarity: 0,
		MinConfidence:       100,
		Status:              RuleStatusActive,
	}
}

// SortRules orders rules by ascending priority, then ascending ID, so equal
// priorities still evaluate in a total order.
func SortRules(rules []*MatchingRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority < rules[j].Priority
		}
		return rules[i].ID < rules[j].ID
	})
}
