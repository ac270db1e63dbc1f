package velocity

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/banking/fraud-risk-service/internal/domain"
	"github.com/banking/fraud-risk-service/internal/pkg/logger"
)

// window is one of the three fixed rolling windows. The label doubles as
// the key segment and the duration as the key expiry.
type window struct {
	label string
	ttl   time.Duration
}

var windows = [3]window{
	{"5m", 5 * time.Minute},
	{"1h", time.Hour},
	{"24h", 24 * time.Hour},
}

const (
	fieldCount  = "count"
	fieldAmount = "amount"
)

// Store is the slice of Redis used by the counter: a hash per window for
// the count and amount accumulators, and one HyperLogLog each for
// approximate distinct merchants and locations. Writes go through a
// transactional pipeline so one transaction costs one round trip.
type Store interface {
	TxPipeline() redis.Pipeliner
	PFCount(ctx context.Context, keys ...string) *redis.IntCmd
	HMGet(ctx context.Context, key string, fields ...string) *redis.SliceCmd
}

// LocalCache is the read-through layer in front of the distributed
// counters. bigcache satisfies it.
type LocalCache interface {
	Get(key string) ([]byte, error)
	Set(key string, entry []byte) error
	Delete(key string) error
}

// Counter maintains per-account rolling activity counters in Redis with a
// local read-through cache.
//
// Expiry is re-armed on every increment rather than anchored to the first
// write, so a continuously active account's window never ages out during
// continuous activity. The counters behave as "activity since the last
// quiet period" of the window's length, not as a strict trailing window.
type Counter struct {
	store Store
	local LocalCache
	log   *logger.Logger
}

// NewCounter creates a velocity counter.
func NewCounter(store Store, local LocalCache, log *logger.Logger) *Counter {
	return &Counter{
		store: store,
		local: local,
		log:   log.Named("velocity_counter"),
	}
}

// Increment records a transaction in every window and evicts the local
// cache entry so the next read observes the new counts. Called once per
// observed transaction, before scoring. All window structures are
// written in a single pipelined round trip.
func (c *Counter) Increment(ctx context.Context, tx *domain.Transaction) error {
	account := tx.AccountID.String()

	pipe := c.store.TxPipeline()
	for _, w := range windows {
		hashKey := counterKey(w.label, account)
		pipe.HIncrBy(ctx, hashKey, fieldCount, 1)
		pipe.HIncrByFloat(ctx, hashKey, fieldAmount, tx.Amount.Float64())
		pipe.Expire(ctx, hashKey, w.ttl)

		if tx.Merchant != nil {
			key := merchantsKey(w.label, account)
			pipe.PFAdd(ctx, key, tx.Merchant.ID)
			pipe.Expire(ctx, key, w.ttl)
		}
		if tx.Location != nil {
			key := locationsKey(w.label, account)
			pipe.PFAdd(ctx, key, locationElement(*tx.Location))
			pipe.Expire(ctx, key, w.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.NewExternalServiceError("velocity-store", err)
	}

	if err := c.local.Delete(account); err != nil {
		// A stale local entry self-heals at its TTL; not worth failing
		// the increment.
		c.log.Debug("local cache eviction failed", logger.ErrorField(err))
	}

	return nil
}

// Fetch assembles the account's velocity metrics, serving from the local
// cache when possible.
func (c *Counter) Fetch(ctx context.Context, tx *domain.Transaction) (domain.VelocityMetrics, error) {
	account := tx.AccountID.String()

	if cached, err := c.local.Get(account); err == nil {
		var metrics domain.VelocityMetrics
		if err := json.Unmarshal(cached, &metrics); err == nil {
			return metrics, nil
		}
		// Corrupt entry: fall through to the store and overwrite it.
	}

	var metrics domain.VelocityMetrics
	for i, w := range windows {
		wm, err := c.fetchWindow(ctx, w, account)
		if err != nil {
			return domain.EmptyVelocityMetrics(), err
		}
		switch i {
		case 0:
			metrics.Last5Minutes = wm
		case 1:
			metrics.LastHour = wm
		case 2:
			metrics.LastDay = wm
		}
	}

	if encoded, err := json.Marshal(metrics); err == nil {
		if err := c.local.Set(account, encoded); err != nil {
			c.log.Debug("local cache populate failed", logger.ErrorField(err))
		}
	}

	return metrics, nil
}

func (c *Counter) fetchWindow(ctx context.Context, w window, account string) (domain.WindowMetrics, error) {
	var wm domain.WindowMetrics

	values, err := c.store.HMGet(ctx, counterKey(w.label, account), fieldCount, fieldAmount).Result()
	if err != nil && err != redis.Nil {
		return wm, domain.NewExternalServiceError("velocity-store", err)
	}
	if len(values) == 2 {
		wm.TransactionCount = parseInt(values[0])
		wm.TotalAmount = parseFloat(values[1])
	}

	merchants, err := c.store.PFCount(ctx, merchantsKey(w.label, account)).Result()
	if err != nil && err != redis.Nil {
		return wm, domain.NewExternalServiceError("velocity-store", err)
	}
	wm.UniqueMerchants = merchants

	locations, err := c.store.PFCount(ctx, locationsKey(w.label, account)).Result()
	if err != nil && err != redis.Nil {
		return wm, domain.NewExternalServiceError("velocity-store", err)
	}
	wm.UniqueLocations = locations

	return wm, nil
}

func counterKey(label, account string) string {
	return fmt.Sprintf("velocity:%s:%s", label, account)
}

func merchantsKey(label, account string) string {
	return fmt.Sprintf("velocity:merchants:%s:%s", label, account)
}

func locationsKey(label, account string) string {
	return fmt.Sprintf("velocity:locations:%s:%s", label, account)
}

// locationElement buckets coordinates to ~100m so jittery GPS fixes from
// one place count as one distinct location.
func locationElement(loc domain.Location) string {
	return fmt.Sprintf("%.3f,%.3f", loc.Latitude, loc.Longitude)
}

func parseInt(v interface{}) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func parseFloat(v interface{}) float64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
