package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/iho/bankrecon/internal/domain"
	"github.com/iho/bankrecon/internal/usecase"
)

type ruleServiceStub struct {
	createFn func(ctx context.Context, input usecase.RuleInput) (*domain.MatchingRule, error)
	getFn    func(ctx context.Context, id string) (*domain.MatchingRule, error)
	updateFn func(ctx context.Context, id string, input usecase.RuleInput) (*domain.MatchingRule, error)
	deleteFn func(ctx context.Context, id string) error
	listFn   func(ctx context.Context) ([]*domain.MatchingRule, error)
}

func (s *ruleServiceStub) CreateRule(ctx context.Context, input usecase.RuleInput) (*domain.MatchingRule, error) {
	return s.createFn(ctx, input)
}

func (s *ruleServiceStub) GetRule(ctx context.Context, id string) (*domain.MatchingRule, error) {
	return s.getFn(ctx, id)
}

func (s *ruleServiceStub) UpdateRule(ctx context.Context, id string, input usecase.RuleInput) (*domain.MatchingRule, error) {
	return s.updateFn(ctx, id, input)
}

func (s *ruleServiceStub) DeleteRule(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}

func (s *ruleServiceStub) ListRules(ctx context.Context) ([]*domain.MatchingRule, error) {
	return s.listFn(ctx)
}

func TestRuleHandler_Create_Invalid(t *testing.T) {
	handler := NewRuleHandler(&ruleServiceStub{
		createFn: func(ctx context.Context, input usecase.RuleInput) (*domain.MatchingRule, error) {
			if input.ReferenceSimilarity != 1.5 {
				t.Errorf("unexpected input: %+v", input)
			}
			return nil, domain.Invalid("reference similarity must be between 0 and 1")
		},
	})

	body := `{"name":"loose","priority":1,"amount_tolerance":"0.5","reference_similarity":1.5}`
	rec := httptest.NewRecorder()
	handler.Create(rec, httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRuleHandler_Update(t *testing.T) {
	var gotID string
	handler := NewRuleHandler(&ruleServiceStub{
		updateFn: func(ctx context.Context, id string, input usecase.RuleInput) (*domain.MatchingRule, error) {
			gotID = id
			status := domain.RuleStatusActive
			if input.Disabled {
				status = domain.RuleStatusDisabled
			}
			return &domain.MatchingRule{ID: id, Name: input.Name, Priority: input.Priority, Status: status}, nil
		},
	})

	body := `{"name":"exact","priority":2,"disabled":true}`
	req := withURLParam(httptest.NewRequest(http.MethodPut, "/", bytes.NewBufferString(body)), "id", "rule-1")
	rec := httptest.NewRecorder()

	handler.Update(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if gotID != "rule-1" || resp["status"] != string(domain.RuleStatusDisabled) {
		t.Fatalf("unexpected response: %v", resp)
	}
}

func TestRuleHandler_Delete(t *testing.T) {
	handler := NewRuleHandler(&ruleServiceStub{
		deleteFn: func(ctx context.Context, id string) error {
			if id == "missing" {
				return domain.ErrRuleNotFound
			}
			return nil
		},
	})

	rec := httptest.NewRecorder()
	handler.Delete(rec, withURLParam(httptest.NewRequest(http.MethodDelete, "/", nil), "id", "rule-1"))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.Delete(rec, withURLParam(httptest.NewRequest(http.MethodDelete, "/", nil), "id", "missing"))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRuleHandler_List(t *testing.T) {
	handler := NewRuleHandler(&ruleServiceStub{
		listFn: func(ctx context.Context) ([]*domain.MatchingRule, error) {
			return []*domain.MatchingRule{
				{ID: "r-1", Name: "exact", Priority: 1, Status: domain.RuleStatusActive},
				{ID: "r-2", Name: "fuzzy", Priority: 2, Status: domain.RuleStatusDisabled},
			}, nil
		},
	})

	rec := httptest.NewRecorder()
	handler.List(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	var resp []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp) != 2 || resp[0]["id"] != "r-1" {
		t.Fatalf("unexpected response: %v", resp)
	}
}
