package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/bankrecon/internal/adapter/http/dto"
	"github.com/iho/bankrecon/internal/domain"
)

// EventSource reads the outbox history of an aggregate.
type EventSource interface {
	GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error)
}

// EventHandler exposes the audit trail recorded in the outbox.
type EventHandler struct {
	events EventSource
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(events EventSource) *EventHandler {
	return &EventHandler{events: events}
}

// List lists events for the aggregate named in the URL, oldest first.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := domain.ValidatePagination(parseIntQuery(r, "limit", 50), parseIntQuery(r, "offset", 0))

	events, err := h.events.GetByAggregate(r.Context(), chi.URLParam(r, "type"), chi.URLParam(r, "id"), limit, offset)
	if err != nil {
		respondError(w, r, "failed to list events", err)
		return
	}

	resp := make([]*dto.EventResponse, len(events))
	for i, e := range events {
		resp[i] = dto.EventFromDomain(e)
	}
	writeJSON(w, http.StatusOK, resp)
}
