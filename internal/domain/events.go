package domain

import "time"

// Event types
const (
	EventTypeAccountCreated       = "account.created"
	EventTypeAccountClosed        = "account.closed"
	EventTypeAccountChannelLinked = "account.channel_linked"
	EventTypeTransactionAdded     = "transaction.added"
	EventTypeTransactionExcluded  = "transaction.excluded"
	EventTypeTransactionDeleted   = "transaction.deleted"
	EventTypeMatchCreated         = "match.created"
	EventTypeMatchReversed        = "match.reversed"
	EventTypeSessionStarted       = "session.started"
	EventTypeSessionCompleted     = "session.completed"
	EventTypeSessionRejected      = "session.rejected"
	EventTypeDiscrepancyCreated   = "discrepancy.created"
	EventTypeDiscrepancyResolved  = "discrepancy.resolved"
	EventTypeDiscrepancyEscalated = "discrepancy.escalated"
)

// Aggregate types
const (
	AggregateTypeAccount     = "bank_account"
	AggregateTypeTransaction = "bank_transaction"
	AggregateTypeMatch       = "match"
	AggregateTypeSession     = "session"
	AggregateTypeDiscrepancy = "discrepancy"
)

// OutboxEvent is a fact appended in the same database transaction as the
// state change it describes, and relayed to readers later.
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// NewOutboxEvent builds an unpublished event.
func NewOutboxEvent(id, aggregateType, aggregateID, eventType string, payload map[string]any, at time.Time) *OutboxEvent {
	return &OutboxEvent{
		ID:            id,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     at,
	}
}
