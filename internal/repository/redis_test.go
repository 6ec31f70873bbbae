package repository

import (
	"context"
	"testing"
	"time"

	"courtbook/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisTariffCache(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	cache := NewRedisTariffCache(client)
	ctx := context.Background()
	quote := &models.TariffQuote{RuleID: "t1", Origin: models.TariffOriginCourt, Price: 80000, Currency: "COP"}

	t.Run("SetAndGet", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "v1:c1:2025-06-16:10:00:11:00", quote, time.Minute))

		got, ok, err := cache.Get(ctx, "v1:c1:2025-06-16:10:00:11:00")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, quote, got)
		assert.True(t, s.Exists("tariff:v1:c1:2025-06-16:10:00:11:00"))
	})

	t.Run("Miss", func(t *testing.T) {
		got, ok, err := cache.Get(ctx, "absent")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, got)
	})

	t.Run("Expiry", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "short", quote, time.Minute))
		s.FastForward(2 * time.Minute)

		_, ok, err := cache.Get(ctx, "short")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("CorruptValue", func(t *testing.T) {
		require.NoError(t, s.Set("tariff:corrupt", "{not json"))
		_, _, err := cache.Get(ctx, "corrupt")
		assert.Error(t, err)
	})

	t.Run("ServerDown", func(t *testing.T) {
		s.Close()
		_, _, err := cache.Get(ctx, "anything")
		assert.Error(t, err)
		assert.Error(t, Ping(ctx, client))
	})
}

func TestRedisTariffCache_NilClient(t *testing.T) {
	cache := NewRedisTariffCache(nil)
	_, _, err := cache.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.Error(t, cache.Set(context.Background(), "k", &models.TariffQuote{}, time.Minute))
	assert.NoError(t, Close(nil))
}
