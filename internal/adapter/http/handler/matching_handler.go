package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/bankrecon/internal/adapter/http/dto"
	"github.com/iho/bankrecon/internal/domain"
	"github.com/iho/bankrecon/internal/usecase"
)

// MatchingService defines the behavior needed by MatchingHandler.
type MatchingService interface {
	GetMatchSuggestions(ctx context.Context, transactionID string) ([]domain.MatchSuggestion, error)
	CreateManualMatch(ctx context.Context, input usecase.ManualMatchInput) (*domain.ReconciliationMatch, error)
	Unmatch(ctx context.Context, matchID, actor string) (*domain.ReconciliationMatch, error)
	GetMatch(ctx context.Context, id string) (*domain.ReconciliationMatch, error)
	ListMatches(ctx context.Context, sessionID string) ([]*domain.ReconciliationMatch, error)
	ProcessSession(ctx context.Context, sessionID, actor string) (*usecase.AutoRunResult, error)
}

// MatchingHandler handles suggestion and match HTTP requests.
type MatchingHandler struct {
	matchingUC MatchingService
}

// NewMatchingHandler creates a new MatchingHandler.
func NewMatchingHandler(matchingUC MatchingService) *MatchingHandler {
	return &MatchingHandler{matchingUC: matchingUC}
}

// Suggestions ranks payment records for an unmatched transaction.
func (h *MatchingHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.matchingUC.GetMatchSuggestions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, "failed to get suggestions", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SuggestionsFromDomain(suggestions))
}

// CreateManual pairs a transaction and a payment record in a session.
func (h *MatchingHandler) CreateManual(w http.ResponseWriter, r *http.Request) {
	var req dto.ManualMatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	match, err := h.matchingUC.CreateManualMatch(r.Context(), req.ToUseCaseInput(chi.URLParam(r, "id"), actorFrom(r)))
	if err != nil {
		respondError(w, r, "failed to create match", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.MatchFromDomain(match))
}

// AutoMatch runs the automatic matcher over a session.
func (h *MatchingHandler) AutoMatch(w http.ResponseWriter, r *http.Request) {
	result, err := h.matchingUC.ProcessSession(r.Context(), chi.URLParam(r, "id"), actorFrom(r))
	if err != nil {
		respondError(w, r, "failed to run auto-match", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AutoRunFromUseCase(result))
}

// List lists a session's matches.
func (h *MatchingHandler) List(w http.ResponseWriter, r *http.Request) {
	matches, err := h.matchingUC.ListMatches(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, "failed to list matches", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MatchesFromDomain(matches))
}

// Get retrieves a match by ID.
func (h *MatchingHandler) Get(w http.ResponseWriter, r *http.Request) {
	match, err := h.matchingUC.GetMatch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, "failed to get match", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MatchFromDomain(match))
}

// Unmatch reverses an active match.
func (h *MatchingHandler) Unmatch(w http.ResponseWriter, r *http.Request) {
	match, err := h.matchingUC.Unmatch(r.Context(), chi.URLParam(r, "id"), actorFrom(r))
	if err != nil {
		respondError(w, r, "failed to reverse match", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MatchFromDomain(match))
}
