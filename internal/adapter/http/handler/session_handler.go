package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/bankrecon/internal/adapter/http/dto"
	"github.com/iho/bankrecon/internal/domain"
	"github.com/iho/bankrecon/internal/usecase"
)

// SessionService defines the behavior needed by SessionHandler.
type SessionService interface {
	StartSession(ctx context.Context, input usecase.StartSessionInput) (*domain.ReconciliationSession, error)
	GetSession(ctx context.Context, id string) (*domain.ReconciliationSession, error)
	GetActiveSession(ctx context.Context, accountID string) (*domain.ReconciliationSession, error)
	ListSessions(ctx context.Context, accountID string, limit, offset int) ([]*domain.ReconciliationSession, error)
	CompleteSession(ctx context.Context, id, completedBy, notes string) (*domain.ReconciliationSession, error)
	RejectSession(ctx context.Context, id, completedBy, reason string) (*domain.ReconciliationSession, error)
}

// SessionHandler handles reconciliation session HTTP requests.
type SessionHandler struct {
	sessionUC SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionUC SessionService) *SessionHandler {
	return &SessionHandler{sessionUC: sessionUC}
}

// Start opens a session.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req dto.StartSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput(actorFrom(r))
	if err != nil {
		respondError(w, r, "invalid session", err)
		return
	}

	session, err := h.sessionUC.StartSession(r.Context(), input)
	if err != nil {
		respondError(w, r, "failed to start session", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.SessionFromDomain(session))
}

// Get retrieves a session by ID.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessionUC.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, "failed to get session", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SessionFromDomain(session))
}

// Active returns the account's in-progress session.
func (h *SessionHandler) Active(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessionUC.GetActiveSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, "failed to get active session", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SessionFromDomain(session))
}

// List lists an account's sessions, newest first.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	sessions, err := h.sessionUC.ListSessions(r.Context(), chi.URLParam(r, "id"), limit, offset)
	if err != nil {
		respondError(w, r, "failed to list sessions", err)
		return
	}

	resp := make([]*dto.SessionResponse, len(sessions))
	for i, s := range sessions {
		resp[i] = dto.SessionFromDomain(s)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Complete closes a session as completed.
func (h *SessionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.close(w, r, "failed to complete session", h.sessionUC.CompleteSession)
}

// Reject closes a session as rejected.
func (h *SessionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.close(w, r, "failed to reject session", h.sessionUC.RejectSession)
}

func (h *SessionHandler) close(
	w http.ResponseWriter,
	r *http.Request,
	message string,
	fn func(ctx context.Context, id, actor, notes string) (*domain.ReconciliationSession, error),
) {
	var req dto.CloseSessionRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}

	session, err := fn(r.Context(), chi.URLParam(r, "id"), actorFrom(r), req.Notes)
	if err != nil {
		respondError(w, r, message, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SessionFromDomain(session))
}
