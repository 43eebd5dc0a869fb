package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/luismarin-dev/ordena-backend/pkg/config"
	"github.com/luismarin-dev/ordena-backend/pkg/logger"
	"github.com/luismarin-dev/ordena-backend/pkg/redis"
)

// StaticTokenSource returns the same token on every call. Used in tests and
// for deployments that inject a long-lived token directly.
type StaticTokenSource string

func (s StaticTokenSource) Token(_ context.Context) (string, error) {
	if s == "" {
		return "", fmt.Errorf("static token is empty")
	}
	return string(s), nil
}

// CachedTokenSource resolves tokens from redis first and refreshes them from
// the platform's token endpoint on a miss. The cache TTL is shorter than the
// platform's token lifetime so a cached token is always still valid.
type CachedTokenSource struct {
	cache      *redis.Client
	httpClient *http.Client
	tokenURL   string
	merchantID string
	ttl        time.Duration
	logger     *logger.Logger

	mu sync.Mutex
}

// NewCachedTokenSource builds the production token source.
func NewCachedTokenSource(cfg config.StorefrontConfig, cache *redis.Client, logg *logger.Logger) (*CachedTokenSource, error) {
	tokenURL := strings.TrimSpace(cfg.TokenURL)
	if tokenURL == "" {
		return nil, fmt.Errorf("storefront token url is required")
	}
	if cache == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ttl := cfg.TokenCacheTTL
	if ttl <= 0 {
		ttl = 50 * time.Minute
	}

	return &CachedTokenSource{
		cache:      cache,
		httpClient: &http.Client{Timeout: timeout},
		tokenURL:   tokenURL,
		merchantID: strings.TrimSpace(cfg.MerchantID),
		ttl:        ttl,
		logger:     logg,
	}, nil
}

// Token returns the cached token or refreshes it. The mutex only serializes
// refreshes within one process; concurrent processes may refresh in parallel,
// which the platform tolerates.
func (s *CachedTokenSource) Token(ctx context.Context) (string, error) {
	key := s.cache.TokenKey(s.merchantID)

	cached, err := s.cache.Get(ctx, key)
	if err == nil && cached != "" {
		return cached, nil
	}
	if err != nil && !redis.IsNil(err) && s.logger != nil {
		s.logger.Warn(ctx, "storefront token cache read failed, refreshing")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have refreshed while we waited on the lock.
	cached, err = s.cache.Get(ctx, key)
	if err == nil && cached != "" {
		return cached, nil
	}

	token, err := s.refresh(ctx)
	if err != nil {
		return "", err
	}

	if err := s.cache.Set(ctx, key, token, s.ttl); err != nil && s.logger != nil {
		s.logger.Warn(ctx, "storefront token cache write failed")
	}
	return token, nil
}

func (s *CachedTokenSource) refresh(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, nil)
	if err != nil {
		return "", &Error{Op: "refresh_token", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", &Error{Op: "refresh_token", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyLimit))
	if err != nil {
		return "", &Error{Op: "refresh_token", StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &Error{Op: "refresh_token", StatusCode: resp.StatusCode, Body: truncateBody(data)}
	}

	var payload struct {
		Token string `json:"token"`
		Data  struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", &Error{Op: "refresh_token", StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	token := payload.Token
	if token == "" {
		token = payload.Data.Token
	}
	if token == "" {
		return "", &Error{Op: "refresh_token", StatusCode: resp.StatusCode, Err: fmt.Errorf("token missing from response")}
	}
	return token, nil
}
