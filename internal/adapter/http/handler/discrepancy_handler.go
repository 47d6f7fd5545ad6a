package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/bankrecon/internal/adapter/http/dto"
	"github.com/iho/bankrecon/internal/domain"
	"github.com/iho/bankrecon/internal/usecase"
)

// DiscrepancyService defines the behavior needed by DiscrepancyHandler.
type DiscrepancyService interface {
	CreateDiscrepancy(ctx context.Context, input usecase.CreateDiscrepancyInput) (*domain.ReconciliationDiscrepancy, bool, error)
	ResolveDiscrepancy(ctx context.Context, id, notes, resolvedBy string) (*domain.ReconciliationDiscrepancy, error)
	EscalateDiscrepancy(ctx context.Context, id, notes, escalatedBy string) (*domain.ReconciliationDiscrepancy, error)
	GetDiscrepancy(ctx context.Context, id string) (*domain.ReconciliationDiscrepancy, error)
	ListDiscrepancies(ctx context.Context, sessionID string, status *domain.ResolutionStatus) ([]*domain.ReconciliationDiscrepancy, error)
}

// DiscrepancyHandler handles discrepancy HTTP requests.
type DiscrepancyHandler struct {
	discrepancyUC DiscrepancyService
}

// NewDiscrepancyHandler creates a new DiscrepancyHandler.
func NewDiscrepancyHandler(discrepancyUC DiscrepancyService) *DiscrepancyHandler {
	return &DiscrepancyHandler{discrepancyUC: discrepancyUC}
}

// Create records a discrepancy. A repeat of an existing discrepancy returns
// the stored row with 200 instead of 201.
func (h *DiscrepancyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateDiscrepancyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	d, created, err := h.discrepancyUC.CreateDiscrepancy(r.Context(), req.ToUseCaseInput(chi.URLParam(r, "id"), actorFrom(r)))
	if err != nil {
		respondError(w, r, "failed to create discrepancy", err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, dto.DiscrepancyFromDomain(d))
}

// List lists a session's discrepancies, optionally filtered by status.
func (h *DiscrepancyHandler) List(w http.ResponseWriter, r *http.Request) {
	var status *domain.ResolutionStatus
	if s := r.URL.Query().Get("status"); s != "" {
		rs := domain.ResolutionStatus(s)
		status = &rs
	}

	list, err := h.discrepancyUC.ListDiscrepancies(r.Context(), chi.URLParam(r, "id"), status)
	if err != nil {
		respondError(w, r, "failed to list discrepancies", err)
		return
	}

	resp := make([]*dto.DiscrepancyResponse, len(list))
	for i, d := range list {
		resp[i] = dto.DiscrepancyFromDomain(d)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get retrieves a discrepancy by ID.
func (h *DiscrepancyHandler) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.discrepancyUC.GetDiscrepancy(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, "failed to get discrepancy", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.DiscrepancyFromDomain(d))
}

// Resolve marks a discrepancy resolved.
func (h *DiscrepancyHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "failed to resolve discrepancy", h.discrepancyUC.ResolveDiscrepancy)
}

// Escalate marks a discrepancy escalated.
func (h *DiscrepancyHandler) Escalate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "failed to escalate discrepancy", h.discrepancyUC.EscalateDiscrepancy)
}

func (h *DiscrepancyHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	message string,
	fn func(ctx context.Context, id, notes, actor string) (*domain.ReconciliationDiscrepancy, error),
) {
	var req dto.DiscrepancyActionRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}

	d, err := fn(r.Context(), chi.URLParam(r, "id"), req.Notes, actorFrom(r))
	if err != nil {
		respondError(w, r, message, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.DiscrepancyFromDomain(d))
}
