// Package cache holds the latest price per instrument for low-latency lookups.
//
// The pipeline coordinator is the only writer; the request-serving layer
// reads concurrently. Entries are replaced whole so a reader never observes
// a price paired with another update's timestamp.
package cache

import (
	"sync"

	"github.com/quantfolio/market-data/internal/model"
)

// PriceCache maps instrument -> latest price. Safe for one writer and
// many concurrent readers.
type PriceCache struct {
	mu     sync.RWMutex
	latest map[string]model.CachedPrice
}

// New creates an empty PriceCache.
func New() *PriceCache {
	return &PriceCache{
		latest: make(map[string]model.CachedPrice),
	}
}

// Set overwrites the cached price for an instrument. The entry is replaced
// as a unit. Invalid input leaves the cache untouched.
func (c *PriceCache) Set(tick model.Tick) error {
	if err := tick.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	c.latest[tick.Instrument] = model.CachedPrice{
		Instrument: tick.Instrument,
		Price:      tick.Price,
		ObservedAt: tick.ObservedAt,
	}
	c.mu.Unlock()
	return nil
}

// Get returns the latest cached price for an instrument, if any.
func (c *PriceCache) Get(instrument string) (model.CachedPrice, bool) {
	c.mu.RLock()
	p, ok := c.latest[instrument]
	c.mu.RUnlock()
	return p, ok
}

// Len returns the number of instruments currently cached.
func (c *PriceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.latest)
}

// Instruments returns the cached instrument names in unspecified order.
func (c *PriceCache) Instruments() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.latest))
	for k := range c.latest {
		out = append(out, k)
	}
	return out
}
