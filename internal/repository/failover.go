package repository

import (
	"context"
	"sync/atomic"
	"time"

	"courtbook/internal/domain"
	"courtbook/internal/models"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverTariffCache serves from the primary cache and switches to the
// fallback when the primary errors, probing the primary again once a minute.
type FailoverTariffCache struct {
	primary   domain.TariffCache
	fallback  domain.TariffCache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64 // unix nanos
	clock     clockwork.Clock
}

func NewFailoverTariffCache(primary, fallback domain.TariffCache, clock clockwork.Clock, logger *zerolog.Logger) *FailoverTariffCache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &FailoverTariffCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		clock:    clock,
	}
}

func (c *FailoverTariffCache) markDown(err error) {
	c.logger.Error().Err(err).Msg("Primary tariff cache failed, falling back to memory")
	c.isDown.Store(true)
	c.lastCheck.Store(c.clock.Now().UnixNano())
}

// usePrimary reports whether the primary should be tried for this call.
func (c *FailoverTariffCache) usePrimary() bool {
	if !c.isDown.Load() {
		return true
	}
	return c.clock.Now().Sub(time.Unix(0, c.lastCheck.Load())) > recoveryInterval
}

func (c *FailoverTariffCache) Get(ctx context.Context, key string) (*models.TariffQuote, bool, error) {
	if c.usePrimary() {
		quote, ok, err := c.primary.Get(ctx, key)
		if err == nil {
			if c.isDown.CompareAndSwap(true, false) {
				c.logger.Info().Msg("Primary tariff cache recovered")
			}
			return quote, ok, nil
		}
		c.markDown(err)
	}
	return c.fallback.Get(ctx, key)
}

func (c *FailoverTariffCache) Set(ctx context.Context, key string, quote *models.TariffQuote, ttl time.Duration) error {
	if c.usePrimary() {
		err := c.primary.Set(ctx, key, quote, ttl)
		if err == nil {
			c.isDown.Store(false)
			return nil
		}
		c.markDown(err)
	}
	return c.fallback.Set(ctx, key, quote, ttl)
}
