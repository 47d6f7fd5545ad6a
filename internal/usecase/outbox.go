package usecase

import (
	"context"
	"time"

	"github.com/iho/bankrecon/internal/domain"
)

// recordEvent appends a fact to the outbox inside tx.
func recordEvent(
	ctx context.Context,
	outbox OutboxRepository,
	tx Transaction,
	idGen IDGenerator,
	aggregateType, aggregateID, eventType string,
	payload map[string]any,
	at time.Time,
) error {
	event := domain.NewOutboxEvent(idGen.Generate(), aggregateType, aggregateID, eventType, payload, at)
	return outbox.Create(ctx, tx, event)
}

func actorOrSystem(actor string) string {
	if actor == "" {
		return SystemActor
	}
	return actor
}
