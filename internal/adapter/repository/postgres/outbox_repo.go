package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/bankrecon/internal/domain"
	"github.com/iho/bankrecon/internal/usecase"
)

const outboxColumns = `id, aggregate_id, aggregate_type, event_type, payload, created_at, published_at, published`

const createOutboxEvent = `INSERT INTO outbox_events (` + outboxColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

const getUnpublishedEvents = `SELECT ` + outboxColumns + `
FROM outbox_events
WHERE NOT published
ORDER BY created_at, id
LIMIT $1`

const markEventPublished = `UPDATE outbox_events SET published = TRUE, published_at = $2 WHERE id = $1`

const getEventsByAggregate = `SELECT ` + outboxColumns + `
FROM outbox_events
WHERE aggregate_type = $1 AND aggregate_id = $2
ORDER BY created_at, id
LIMIT $3 OFFSET $4`

const deletePublishedEvents = `DELETE FROM outbox_events WHERE published AND published_at < $1`

// OutboxRepository implements usecase.OutboxRepository.
type OutboxRepository struct {
	db DBTX
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(db DBTX) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Create creates a new outbox event within a transaction.
func (r *OutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}

	_, err = pgxTx(tx).Exec(ctx, createOutboxEvent,
		event.ID,
		event.AggregateID,
		event.AggregateType,
		event.EventType,
		payload,
		timeToPgTimestamptz(event.CreatedAt),
		optionalTimestamptz(event.PublishedAt),
		event.Published,
	)
	return translateError(err, nil)
}

// GetUnpublished retrieves unpublished events, oldest first.
func (r *OutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	rows, err := r.db.Query(ctx, getUnpublishedEvents, int32(limit))
	if err != nil {
		return nil, translateError(err, nil)
	}

	events, err := collect(rows, scanOutboxEvent)
	if err != nil {
		return nil, translateError(err, nil)
	}
	return events, nil
}

// MarkPublished marks an event as published.
func (r *OutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	_, err := r.db.Exec(ctx, markEventPublished, id, timeToPgTimestamptz(publishedAt))
	return translateError(err, nil)
}

// GetByAggregate retrieves events for a specific aggregate.
func (r *OutboxRepository) GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error) {
	rows, err := r.db.Query(ctx, getEventsByAggregate, aggregateType, aggregateID, int32(limit), int32(offset))
	if err != nil {
		return nil, translateError(err, nil)
	}

	events, err := collect(rows, scanOutboxEvent)
	if err != nil {
		return nil, translateError(err, nil)
	}
	return events, nil
}

// DeletePublished deletes published events older than the given time.
func (r *OutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	_, err := r.db.Exec(ctx, deletePublishedEvents, timeToPgTimestamptz(before))
	return translateError(err, nil)
}

func scanOutboxEvent(row rowScanner) (*domain.OutboxEvent, error) {
	var (
		e                  domain.OutboxEvent
		payload            []byte
		created, published pgtype.Timestamptz
	)
	if err := row.Scan(
		&e.ID,
		&e.AggregateID,
		&e.AggregateType,
		&e.EventType,
		&payload,
		&created,
		&published,
		&e.Published,
	); err != nil {
		return nil, err
	}

	if payload != nil {
		_ = json.Unmarshal(payload, &e.Payload)
	}
	e.CreatedAt = created.Time
	e.PublishedAt = timestamptzPtr(published)
	return &e, nil
}
