package pricing

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"solana-wallet-tracker/internal/observability"
)

// DefaultTTL is how long a fetched price stays fresh.
const DefaultTTL = 5 * time.Minute

// Cache is a single-entry TTL cache over a price Source. Expired reads
// trigger exactly one outbound refresh even under concurrent demand;
// refresh failures fall back to the last known value (zero if nothing
// was ever cached) so price annotation never fails the caller.
type Cache struct {
	source  Source
	ttl     time.Duration
	now     func() time.Time
	metrics *observability.Metrics

	group singleflight.Group

	mu        sync.RWMutex
	value     float64
	fetchedAt time.Time
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithMetrics records refresh attempts and failures on m.
func WithMetrics(m *observability.Metrics) CacheOption {
	return func(c *Cache) {
		c.metrics = m
	}
}

// NewCache creates a price cache over source with the given TTL.
// A non-positive TTL falls back to DefaultTTL.
func NewCache(source Source, ttl time.Duration, opts ...CacheOption) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		source: source,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached price while fresh, refreshing otherwise.
// Never returns an error: on refresh failure the last known value is
// returned instead.
func (c *Cache) Get(ctx context.Context) float64 {
	c.mu.RLock()
	value := c.value
	fresh := !c.fetchedAt.IsZero() && c.now().Sub(c.fetchedAt) < c.ttl
	c.mu.RUnlock()

	if fresh {
		return value
	}

	// Concurrently expired readers share one refresh.
	refreshed, _, _ := c.group.Do("sol-usd", func() (interface{}, error) {
		if c.metrics != nil {
			c.metrics.PriceRefreshes.Inc()
		}
		v, err := c.source.FetchUSD(ctx)
		if err != nil {
			if c.metrics != nil {
				c.metrics.PriceRefreshErrors.Inc()
			}
			c.mu.RLock()
			last := c.value
			c.mu.RUnlock()
			return last, nil
		}

		c.mu.Lock()
		c.value = v
		c.fetchedAt = c.now()
		c.mu.Unlock()
		return v, nil
	})

	return refreshed.(float64)
}
