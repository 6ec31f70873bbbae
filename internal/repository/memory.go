package repository

import (
	"context"
	"sync"
	"time"

	"courtbook/internal/models"

	"github.com/jonboulle/clockwork"
)

// MemoryTariffCache is a process-local, lock-free tariff cache. Expired
// entries are dropped lazily on read.
type MemoryTariffCache struct {
	entries sync.Map
	clock   clockwork.Clock
}

type cacheEntry struct {
	quote     models.TariffQuote
	expiresAt time.Time
}

func NewMemoryTariffCache(clock clockwork.Clock) *MemoryTariffCache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryTariffCache{clock: clock}
}

func (c *MemoryTariffCache) Get(_ context.Context, key string) (*models.TariffQuote, bool, error) {
	val, ok := c.entries.Load(key)
	if !ok {
		return nil, false, nil
	}
	entry := val.(*cacheEntry)
	if !c.clock.Now().Before(entry.expiresAt) {
		c.entries.CompareAndDelete(key, val)
		return nil, false, nil
	}
	quote := entry.quote
	return &quote, true, nil
}

func (c *MemoryTariffCache) Set(_ context.Context, key string, quote *models.TariffQuote, ttl time.Duration) error {
	c.entries.Store(key, &cacheEntry{quote: *quote, expiresAt: c.clock.Now().Add(ttl)})
	return nil
}
