package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/bankrecon/internal/domain"
)

const matchingRuleColumns = `id, name, priority, amount_tolerance, date_tolerance_days,
	reference_similarity, min_confidence, status, created_at, updated_at`

const createMatchingRule = `INSERT INTO matching_rules (` + matchingRuleColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

const getMatchingRuleByID = `SELECT ` + matchingRuleColumns + `
FROM matching_rules WHERE id = $1`

const listMatchingRules = `SELECT ` + matchingRuleColumns + `
FROM matching_rules WHERE status <> 'deleted' ORDER BY priority, id`

const listActiveMatchingRules = `SELECT ` + matchingRuleColumns + `
FROM matching_rules WHERE status = 'active' ORDER BY priority, id`

const updateMatchingRule = `UPDATE matching_rules
SET name = $2, priority = $3, amount_tolerance = $4, date_tolerance_days = $5,
	reference_similarity = $6, min_confidence = $7, status = $8, updated_at = $9
WHERE id = $1`

// RuleRepository implements usecase.RuleRepository. Rules are written
// outside of business transactions.
type RuleRepository struct {
	db DBTX
}

// NewRuleRepository creates a new RuleRepository.
func NewRuleRepository(db DBTX) *RuleRepository {
	return &RuleRepository{db: db}
}

// Create inserts a new rule.
func (r *RuleRepository) Create(ctx context.Context, rule *domain.MatchingRule) error {
	_, err := r.db.Exec(ctx, createMatchingRule,
		rule.ID,
		rule.Name,
		int32(rule.Priority),
		decimalToNumeric(rule.AmountTolerance),
		int32(rule.DateToleranceDays),
		rule.ReferenceSimilarity,
		rule.MinConfidence,
		string(rule.Status),
		timeToPgTimestamptz(rule.CreatedAt),
		timeToPgTimestamptz(rule.UpdatedAt),
	)
	return translateError(err, nil)
}

// GetByID retrieves a rule by ID, including deleted ones.
func (r *RuleRepository) GetByID(ctx context.Context, id string) (*domain.MatchingRule, error) {
	rule, err := scanMatchingRule(r.db.QueryRow(ctx, getMatchingRuleByID, id))
	if err != nil {
		return nil, translateError(err, domain.ErrRuleNotFound)
	}
	return rule, nil
}

// List returns every rule that is not deleted.
func (r *RuleRepository) List(ctx context.Context) ([]*domain.MatchingRule, error) {
	return r.list(ctx, listMatchingRules)
}

// ListActive returns the rules that take part in matching.
func (r *RuleRepository) ListActive(ctx context.Context) ([]*domain.MatchingRule, error) {
	return r.list(ctx, listActiveMatchingRules)
}

func (r *RuleRepository) list(ctx context.Context, query string) ([]*domain.MatchingRule, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, translateError(err, nil)
	}

	rules, err := collect(rows, scanMatchingRule)
	if err != nil {
		return nil, translateError(err, nil)
	}
	return rules, nil
}

// Update persists every mutable rule field.
func (r *RuleRepository) Update(ctx context.Context, rule *domain.MatchingRule) error {
	tag, err := r.db.Exec(ctx, updateMatchingRule,
		rule.ID,
		rule.Name,
		int32(rule.Priority),
		decimalToNumeric(rule.AmountTolerance),
		int32(rule.DateToleranceDays),
		rule.ReferenceSimilarity,
		rule.MinConfidence,
		string(rule.Status),
		timeToPgTimestamptz(rule.UpdatedAt),
	)
	if err != nil {
		return translateError(err, nil)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRuleNotFound
	}
	return nil
}

func scanMatchingRule(row rowScanner) (*domain.MatchingRule, error) {
	var (
		rule             domain.MatchingRule
		priority, days   int32
		tolerance        pgtype.Numeric
		status           string
		created, updated pgtype.Timestamptz
	)
	if err := row.Scan(
		&rule.ID,
		&rule.Name,
		&priority,
		&tolerance,
		&days,
		&rule.ReferenceSimilarity,
		&rule.MinConfidence,
		&status,
		&created,
		&updated,
	); err != nil {
		return nil, err
	}

	rule.Priority = int(priority)
	rule.AmountTolerance = numericToDecimal(tolerance)
	rule.DateToleranceDays = int(days)
	rule.Status = domain.RuleStatus(status)
	rule.CreatedAt = created.Time
	rule.UpdatedAt = updated.Time
	return &rule, nil
}
