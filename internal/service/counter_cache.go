package service

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/set-night/coworker/internal/domain"
)

type MannedCounterLookup interface {
	GetMannedCounters(ctx context.Context, req domain.GetMannedCounterRequest) (*domain.GetMannedCounterResponse, error)
}

// CounterCache memoizes manned-counter lookups per company, office and
// priority list for ttl.
type CounterCache struct {
	next  MannedCounterLookup
	cache *cache.Cache
}

func NewCounterCache(next MannedCounterLookup, ttl time.Duration) *CounterCache {
	return &CounterCache{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

func counterKey(req domain.GetMannedCounterRequest) string {
	return req.Company + "\x00" + req.Office + "\x00" + strings.Join(req.PriorityMannedCounterNames, "\x1f")
}

func (c *CounterCache) GetMannedCounters(ctx context.Context, req domain.GetMannedCounterRequest) (*domain.GetMannedCounterResponse, error) {
	key := counterKey(req)
	if x, found := c.cache.Get(key); found {
		return &domain.GetMannedCounterResponse{MannedCounterInfo: x.([]domain.MannedCounter)}, nil
	}

	resp, err := c.next.GetMannedCounters(ctx, req)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, resp.MannedCounterInfo, cache.DefaultExpiration)
	return resp, nil
}
