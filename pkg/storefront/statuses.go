package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/luismarin-dev/ordena-backend/pkg/logger"
	"github.com/luismarin-dev/ordena-backend/pkg/redis"
)

// StatusLister is the slice of Client that the status cache needs.
type StatusLister interface {
	MerchantID() string
	ListStatuses(ctx context.Context) ([]OrderStatus, error)
}

// StatusCache resolves status slugs ("preparing") to the platform's numeric
// status IDs. The taxonomy changes rarely, so it is cached in redis per
// merchant and refreshed on expiry or on an unknown slug.
type StatusCache struct {
	client StatusLister
	cache  *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// NewStatusCache builds the cache. A nil redis client disables caching and
// every lookup hits the platform.
func NewStatusCache(client StatusLister, cache *redis.Client, ttl time.Duration, logg *logger.Logger) *StatusCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &StatusCache{
		client: client,
		cache:  cache,
		ttl:    ttl,
		logger: logg,
	}
}

// ResolveStatusID maps a slug to its numeric status ID.
func (s *StatusCache) ResolveStatusID(ctx context.Context, slug string) (int64, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return 0, fmt.Errorf("status slug is empty")
	}

	if mapping, ok := s.cachedMapping(ctx); ok {
		if id, ok := mapping[slug]; ok {
			return id, nil
		}
		// A stale taxonomy can miss a newly added slug; fall through and
		// refresh before giving up.
	}

	mapping, err := s.refresh(ctx)
	if err != nil {
		return 0, err
	}
	id, ok := mapping[slug]
	if !ok {
		return 0, fmt.Errorf("unknown order status %q", slug)
	}
	return id, nil
}

func (s *StatusCache) cachedMapping(ctx context.Context) (map[string]int64, bool) {
	if s.cache == nil {
		return nil, false
	}

	raw, err := s.cache.Get(ctx, s.cache.StatusesKey(s.client.MerchantID()))
	if err != nil {
		if !redis.IsNil(err) && s.logger != nil {
			s.logger.Warn(ctx, "storefront status cache read failed")
		}
		return nil, false
	}

	var mapping map[string]int64
	if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
		return nil, false
	}
	return mapping, len(mapping) > 0
}

func (s *StatusCache) refresh(ctx context.Context) (map[string]int64, error) {
	statuses, err := s.client.ListStatuses(ctx)
	if err != nil {
		return nil, err
	}

	mapping := make(map[string]int64, len(statuses))
	for _, status := range statuses {
		slug := strings.ToLower(strings.TrimSpace(status.Slug))
		if slug == "" || status.ID == 0 {
			continue
		}
		mapping[slug] = status.ID
	}

	if s.cache != nil && len(mapping) > 0 {
		encoded, err := json.Marshal(mapping)
		if err == nil {
			if err := s.cache.Set(ctx, s.cache.StatusesKey(s.client.MerchantID()), string(encoded), s.ttl); err != nil && s.logger != nil {
				s.logger.Warn(ctx, "storefront status cache write failed")
			}
		}
	}
	return mapping, nil
}
