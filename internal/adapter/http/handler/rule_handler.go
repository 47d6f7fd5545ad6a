package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/bankrecon/internal/adapter/http/dto"
	"github.com/iho/bankrecon/internal/domain"
	"github.com/iho/bankrecon/internal/usecase"
)

// RuleService defines the behavior needed by RuleHandler.
type RuleService interface {
	CreateRule(ctx context.Context, input usecase.RuleInput) (*domain.MatchingRule, error)
	GetRule(ctx context.Context, id string) (*domain.MatchingRule, error)
	UpdateRule(ctx context.Context, id string, input usecase.RuleInput) (*domain.MatchingRule, error)
	DeleteRule(ctx context.Context, id string) error
	ListRules(ctx context.Context) ([]*domain.MatchingRule, error)
}

// RuleHandler handles matching rule HTTP requests.
type RuleHandler struct {
	ruleUC RuleService
}

// NewRuleHandler creates a new RuleHandler.
func NewRuleHandler(ruleUC RuleService) *RuleHandler {
	return &RuleHandler{ruleUC: ruleUC}
}

// Create adds a matching rule.
func (h *RuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.RuleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rule, err := h.ruleUC.CreateRule(r.Context(), req.ToUseCaseInput())
	if err != nil {
		respondError(w, r, "failed to create rule", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.RuleFromDomain(rule))
}

// Get retrieves a rule by ID.
func (h *RuleHandler) Get(w http.ResponseWriter, r *http.Request) {
	rule, err := h.ruleUC.GetRule(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, "failed to get rule", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.RuleFromDomain(rule))
}

// Update replaces a rule's parameters.
func (h *RuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.RuleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rule, err := h.ruleUC.UpdateRule(r.Context(), chi.URLParam(r, "id"), req.ToUseCaseInput())
	if err != nil {
		respondError(w, r, "failed to update rule", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.RuleFromDomain(rule))
}

// Delete retires a rule.
func (h *RuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.ruleUC.DeleteRule(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, "failed to delete rule", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// List lists rules in evaluation order.
func (h *RuleHandler) List(w http.ResponseWriter, r *http.Request) {
	rules, err := h.ruleUC.ListRules(r.Context())
	if err != nil {
		respondError(w, r, "failed to list rules", err)
		return
	}

	resp := make([]*dto.RuleResponse, len(rules))
	for i, rule := range rules {
		resp[i] = dto.RuleFromDomain(rule)
	}
	writeJSON(w, http.StatusOK, resp)
}
