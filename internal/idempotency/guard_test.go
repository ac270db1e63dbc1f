package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/fraud-risk-service/internal/domain"
)

type fakeGuardStore struct {
	keys map[string]struct{}
	ttls map[string]time.Duration
	err  error
}

func newFakeGuardStore() *fakeGuardStore {
	return &fakeGuardStore{keys: map[string]struct{}{}, ttls: map[string]time.Duration{}}
}

func (f *fakeGuardStore) SetNX(_ context.Context, key string, _ interface{}, ttl time.Duration) *redis.BoolCmd {
	if f.err != nil {
		return redis.NewBoolResult(false, f.err)
	}
	if _, exists := f.keys[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	f.keys[key] = struct{}{}
	f.ttls[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (f *fakeGuardStore) Exists(_ context.Context, keys ...string) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	var n int64
	for _, key := range keys {
		if _, ok := f.keys[key]; ok {
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestMarkThenHasProcessed(t *testing.T) {
	store := newFakeGuardStore()
	g := NewGuard(store, 24*time.Hour)
	id := uuid.New()

	seen, err := g.HasProcessed(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, seen)

	marked, err := g.MarkProcessed(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, marked)

	seen, err = g.HasProcessed(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, seen)
	assert.Equal(t, 24*time.Hour, store.ttls["seen:transaction:"+id.String()])
}

func TestMarkProcessedLosesRaceGracefully(t *testing.T) {
	store := newFakeGuardStore()
	g := NewGuard(store, time.Hour)
	id := uuid.New()

	first, err := g.MarkProcessed(context.Background(), id)
	require.NoError(t, err)
	second, err := g.MarkProcessed(context.Background(), id)
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second, "only one worker wins the mark")
}

func TestGuardWrapsStoreFailures(t *testing.T) {
	store := newFakeGuardStore()
	store.err = errors.New("connection refused")
	g := NewGuard(store, time.Hour)

	_, err := g.HasProcessed(context.Background(), uuid.New())
	var svcErr *domain.ExternalServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "idempotency-store", svcErr.Service)

	_, err = g.MarkProcessed(context.Background(), uuid.New())
	require.ErrorAs(t, err, &svcErr)
}
