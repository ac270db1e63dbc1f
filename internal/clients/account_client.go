package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/banking/fraud-risk-service/internal/config"
	"github.com/banking/fraud-risk-service/internal/domain"
	"github.com/banking/fraud-risk-service/internal/pkg/logger"
	"github.com/banking/fraud-risk-service/internal/resilience"
)

const profileKeyPrefix = "accountProfiles:"

// ProfileCache is the slice of Redis backing the last-good profile cache.
type ProfileCache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// AccountClient looks up account profiles through the resilience chain.
// Every successful lookup refreshes a last-good cache entry; when the
// chain gives up, the cached value is served before the failure
// propagates. A confirmed not-found is terminal: no retry, no cache
// fallback, no breaker accounting.
//
// The client doubles as the geographic validator's location history: the
// profile carries the account's most recent observed location.
type AccountClient struct {
	baseURL  string
	http     *http.Client
	cache    ProfileCache
	cacheTTL time.Duration
	policy   *resilience.Client[*domain.AccountProfile]
	log      *logger.Logger
}

// NewAccountClient creates the resilient account profile client.
func NewAccountClient(cfg config.ClientsConfig, policy config.PolicyConfig, cache ProfileCache, log *logger.Logger, opts ...resilience.Option[*domain.AccountProfile]) *AccountClient {
	c := &AccountClient{
		baseURL:  cfg.AccountProfileURL,
		http:     &http.Client{},
		cache:    cache,
		cacheTTL: cfg.ProfileCacheTTL,
		log:      log.Named("account_client"),
	}

	noFallback := func(_ context.Context, cause error) (*domain.AccountProfile, error) {
		return nil, cause
	}
	opts = append(opts, resilience.WithTerminal[*domain.AccountProfile](func(err error) bool {
		return errors.Is(err, domain.ErrAccountNotFound)
	}))
	c.policy = resilience.New("account-profile", policy, noFallback, log, opts...)

	return c
}

// Profile returns the account's profile, serving the last-good cached
// value when the live lookup fails for anything other than a confirmed
// not-found.
func (c *AccountClient) Profile(ctx context.Context, accountID uuid.UUID) (*domain.AccountProfile, error) {
	profile, err := c.policy.Call(ctx, func(ctx context.Context) (*domain.AccountProfile, error) {
		return c.fetch(ctx, accountID)
	})
	if err == nil {
		return profile, nil
	}
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, err
	}

	if cached := c.cachedProfile(ctx, accountID); cached != nil {
		c.log.Debug("serving cached account profile",
			logger.StringField("account_id", accountID.String()))
		return cached, nil
	}
	return nil, err
}

// LastKnownLocation implements the geographic validator's history port:
// the most recent location observed strictly before the given instant.
func (c *AccountClient) LastKnownLocation(ctx context.Context, accountID uuid.UUID, before time.Time) (*domain.Location, error) {
	profile, err := c.Profile(ctx, accountID)
	if err != nil {
		return nil, err
	}
	loc := profile.LastKnownLocation
	if loc == nil || !loc.ObservedAt.Before(before) {
		return nil, nil
	}
	return loc, nil
}

func (c *AccountClient) fetch(ctx context.Context, accountID uuid.UUID) (*domain.AccountProfile, error) {
	url := fmt.Sprintf("%s/v1/accounts/%s/profile", c.baseURL, accountID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, domain.NewExternalServiceError("account-profile", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domain.NewExternalServiceError("account-profile", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil, domain.ErrAccountNotFound
	default:
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil, domain.NewExternalServiceError("account-profile",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var profile domain.AccountProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, domain.NewExternalServiceError("account-profile", err)
	}

	c.storeProfile(ctx, &profile)
	return &profile, nil
}

func (c *AccountClient) storeProfile(ctx context.Context, profile *domain.AccountProfile) {
	encoded, err := json.Marshal(profile)
	if err != nil {
		return
	}
	key := profileKeyPrefix + profile.AccountID.String()
	if err := c.cache.Set(ctx, key, encoded, c.cacheTTL).Err(); err != nil {
		c.log.Debug("profile cache write failed", logger.ErrorField(err))
	}
}

func (c *AccountClient) cachedProfile(ctx context.Context, accountID uuid.UUID) *domain.AccountProfile {
	raw, err := c.cache.Get(ctx, profileKeyPrefix+accountID.String()).Bytes()
	if err != nil {
		return nil
	}
	var profile domain.AccountProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil
	}
	return &profile
}
