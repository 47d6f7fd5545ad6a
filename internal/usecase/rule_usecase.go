package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankrecon/internal/domain"
)

// RuleUseCase manages the ordered set of matching rules.
type RuleUseCase struct {
	ruleRepo RuleRepository
	idGen    IDGenerator
}

// NewRuleUseCase creates a new RuleUseCase.
func NewRuleUseCase(ruleRepo RuleRepository, idGen IDGenerator) *RuleUseCase {
	return &RuleUseCase{
		ruleRepo: ruleRepo,
		idGen:    idGen,
	}
}

// RuleInput carries the configurable fields of a matching rule.
type RuleInput struct {
	Name                string
	Priority            int
	AmountTolerance     decimal.Decimal
	DateToleranceDays   int
	ReferenceSimilarity float64
	MinConfidence       float64
	Disabled            bool
}

// CreateRule validates and stores a new rule.
func (uc *RuleUseCase) CreateRule(ctx context.Context, input RuleInput) (*domain.MatchingRule, error) {
	now := time.Now().UTC()
	rule := &domain.MatchingRule{
		ID:        uc.idGen.Generate(),
		CreatedAt: now,
	}
	applyRuleInput(rule, input, now)

	if err := domain.ValidateRule(rule); err != nil {
		return nil, err
	}
	if err := uc.ruleRepo.Create(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// GetRule retrieves a rule by ID. Deleted rules are reported as not found.
func (uc *RuleUseCase) GetRule(ctx context.Context, id string) (*domain.MatchingRule, error) {
	rule, err := uc.ruleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rule.Status == domain.RuleStatusDeleted {
		return nil, domain.ErrRuleNotFound
	}
	return rule, nil
}

// UpdateRule replaces the configurable fields of a rule.
func (uc *RuleUseCase) UpdateRule(ctx context.Context, id string, input RuleInput) (*domain.MatchingRule, error) {
	rule, err := uc.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}

	applyRuleInput(rule, input, time.Now().UTC())
	if err := domain.ValidateRule(rule); err != nil {
		return nil, err
	}
	if err := uc.ruleRepo.Update(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// DeleteRule soft-deletes a rule. Matches that reference it keep the ID.
func (uc *RuleUseCase) DeleteRule(ctx context.Context, id string) error {
	rule, err := uc.GetRule(ctx, id)
	if err != nil {
		return err
	}
	rule.Status = domain.RuleStatusDeleted
	rule.UpdatedAt = time.Now().UTC()
	return uc.ruleRepo.Update(ctx, rule)
}

// ListRules returns active and disabled rules in evaluation order.
func (uc *RuleUseCase) ListRules(ctx context.Context) ([]*domain.MatchingRule, error) {
	rules, err := uc.ruleRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	domain.SortRules(rules)
	return rules, nil
}

// ActiveRules returns the rules matching runs with, lowest priority first and
// rule ID breaking ties.
func (uc *RuleUseCase) ActiveRules(ctx context.Context) ([]*domain.MatchingRule, error) {
	return activeRules(ctx, uc.ruleRepo)
}

func activeRules(ctx context.Context, repo RuleRepository) ([]*domain.MatchingRule, error) {
	rules, err := repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	domain.SortRules(rules)
	return rules, nil
}

func applyRuleInput(rule *domain.MatchingRule, input RuleInput, now time.Time) {
	rule.Name = strings.TrimSpace(input.Name)
	rule.Priority = input.Priority
	rule.AmountTolerance = input.AmountTolerance
	rule.DateToleranceDays = input.DateToleranceDays
	rule.ReferenceSimilarity = input.ReferenceSimilarity
	rule.MinConfidence = input.MinConfidence
	rule.Status = domain.RuleStatusActive
	if input.Disabled {
		rule.Status = domain.RuleStatusDisabled
	}
	rule.UpdatedAt = now
}
