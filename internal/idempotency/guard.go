package idempotency

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/banking/fraud-risk-service/internal/domain"
)

const keyPrefix = "seen:transaction:"

// Store is the slice of Redis used by the guard.
type Store interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

// Guard deduplicates at-least-once event delivery by remembering handled
// transaction ids for a TTL window. It is best effort: a crash between
// scoring and marking still allows a duplicate through, which the guard
// deliberately does not try to close.
type Guard struct {
	store Store
	ttl   time.Duration
}

// NewGuard creates an idempotency guard.
func NewGuard(store Store, ttl time.Duration) *Guard {
	return &Guard{store: store, ttl: ttl}
}

// HasProcessed reports whether the transaction was handled inside the TTL
// window.
func (g *Guard) HasProcessed(ctx context.Context, transactionID uuid.UUID) (bool, error) {
	n, err := g.store.Exists(ctx, keyPrefix+transactionID.String()).Result()
	if err != nil {
		return false, domain.NewExternalServiceError("idempotency-store", err)
	}
	return n > 0, nil
}

// MarkProcessed records the transaction as handled. The returned bool is
// false when another worker marked it first.
func (g *Guard) MarkProcessed(ctx context.Context, transactionID uuid.UUID) (bool, error) {
	set, err := g.store.SetNX(ctx, keyPrefix+transactionID.String(), 1, g.ttl).Result()
	if err != nil {
		return false, domain.NewExternalServiceError("idempotency-store", err)
	}
	return set, nil
}
