package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/bankrecon/internal/adapter/http/dto"
	"github.com/iho/bankrecon/internal/usecase"
)

// ReportService defines the behavior needed by ReportHandler.
type ReportService interface {
	SessionSummary(ctx context.Context, sessionID string) (*usecase.SessionSummary, error)
	OutstandingItems(ctx context.Context, accountID string, asOf time.Time) (*usecase.OutstandingItems, error)
	BalanceComparison(ctx context.Context, accountID string, asOf time.Time) (*usecase.BalanceComparison, error)
	CompareAllAccounts(ctx context.Context, asOf time.Time) ([]*usecase.BalanceComparison, error)
}

// ReportHandler serves read-only reconciliation reports.
type ReportHandler struct {
	reportUC ReportService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportUC ReportService) *ReportHandler {
	return &ReportHandler{reportUC: reportUC}
}

// SessionSummary reports the headline figures of a session.
func (h *ReportHandler) SessionSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.reportUC.SessionSummary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, "failed to build session summary", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SessionSummaryFromUseCase(summary))
}

// OutstandingItems lists unreconciled items as of the as_of date.
func (h *ReportHandler) OutstandingItems(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseDateQuery(r, "as_of")
	if err != nil {
		respondError(w, r, "invalid as_of", err)
		return
	}

	report, err := h.reportUC.OutstandingItems(r.Context(), chi.URLParam(r, "id"), asOf)
	if err != nil {
		respondError(w, r, "failed to build outstanding items", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.OutstandingItemsFromUseCase(report))
}

// BalanceComparison compares book and statement balances for one account.
func (h *ReportHandler) BalanceComparison(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseDateQuery(r, "as_of")
	if err != nil {
		respondError(w, r, "invalid as_of", err)
		return
	}

	result, err := h.reportUC.BalanceComparison(r.Context(), chi.URLParam(r, "id"), asOf)
	if err != nil {
		respondError(w, r, "failed to compare balances", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceComparisonFromUseCase(result))
}

// CompareAll compares balances for every account.
func (h *ReportHandler) CompareAll(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseDateQuery(r, "as_of")
	if err != nil {
		respondError(w, r, "invalid as_of", err)
		return
	}

	results, err := h.reportUC.CompareAllAccounts(r.Context(), asOf)
	if err != nil {
		respondError(w, r, "failed to compare balances", err)
		return
	}

	resp := make([]*dto.BalanceComparisonResponse, len(results))
	for i, c := range results {
		resp[i] = dto.BalanceComparisonFromUseCase(c)
	}
	writeJSON(w, http.StatusOK, resp)
}
