package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/bankrecon/internal/domain"
	"github.com/iho/bankrecon/internal/usecase"
)

// PaymentCache wraps a usecase.PaymentLookup and caches single record
// lookups. Payment records are immutable once replicated, so entries only
// expire by TTL. Window queries always go to the underlying lookup.
type PaymentCache struct {
	next   usecase.PaymentLookup
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewPaymentCache creates a new PaymentCache.
func NewPaymentCache(next usecase.PaymentLookup, client redis.UniversalClient, ttl time.Duration) *PaymentCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &PaymentCache{
		next:   next,
		client: client,
		prefix: "bankrecon:payment:",
		ttl:    ttl,
	}
}

type cachedPayment struct {
	ID        string          `json:"id"`
	Currency  string          `json:"currency"`
	Amount    decimal.Decimal `json:"amount"`
	Direction string          `json:"direction"`
	Date      time.Time       `json:"date"`
	Reference string          `json:"reference"`
	Method    string          `json:"method"`
}

// GetByID serves the record from Redis when present. Cache failures fall
// back to the underlying lookup.
func (c *PaymentCache) GetByID(ctx context.Context, id string) (*domain.InternalPaymentRecord, error) {
	key := c.prefix + id

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cp cachedPayment
		if jsonErr := json.Unmarshal(raw, &cp); jsonErr == nil {
			return cp.toDomain(), nil
		}
	case !errors.Is(err, redis.Nil):
		zerolog.Ctx(ctx).Warn().Err(err).Str("payment_record_id", id).Msg("payment cache read failed")
	}

	record, err := c.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(fromDomain(record)); err == nil {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("payment_record_id", id).Msg("payment cache write failed")
		}
	}
	return record, nil
}

// FindCandidates delegates to the underlying lookup.
func (c *PaymentCache) FindCandidates(ctx context.Context, q domain.CandidateQuery) ([]*domain.InternalPaymentRecord, error) {
	return c.next.FindCandidates(ctx, q)
}

// ListRange delegates to the underlying lookup.
func (c *PaymentCache) ListRange(ctx context.Context, currency string, from, to time.Time) ([]*domain.InternalPaymentRecord, error) {
	return c.next.ListRange(ctx, currency, from, to)
}

func fromDomain(p *domain.InternalPaymentRecord) cachedPayment {
	return cachedPayment{
		ID:        p.ID,
		Currency:  p.Currency,
		Amount:    p.Amount,
		Direction: string(p.Direction),
		Date:      p.Date,
		Reference: p.Reference,
		Method:    p.Method,
	}
}

func (cp cachedPayment) toDomain() *domain.InternalPaymentRecord {
	return &domain.InternalPaymentRecord{
		ID:        cp.ID,
		Currency:  cp.Currency,
		Amount:    cp.Amount,
		Direction: domain.Direction(cp.Direction),
		Date:      cp.Date,
		Reference: cp.Reference,
		Method:    cp.Method,
	}
}
