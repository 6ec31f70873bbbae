package repository

import (
	"context"
	"testing"
	"time"

	"courtbook/internal/models"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTariffCache(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := NewMemoryTariffCache(clock)
	ctx := context.Background()

	quote := &models.TariffQuote{RuleID: "t1", Origin: models.TariffOriginVenue, Price: 60000, Currency: "COP"}
	require.NoError(t, cache.Set(ctx, "k", quote, 5*time.Minute))

	got, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, quote, got)

	// Callers cannot mutate the cached copy.
	got.Price = 1
	again, _, _ := cache.Get(ctx, "k")
	assert.Equal(t, int64(60000), again.Price)

	clock.Advance(5 * time.Minute)
	_, ok, err = cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
