package reports

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestBuildKeyInitialisesVersion(t *testing.T) {
	cache, mr := newTestCache(t)

	key, err := cache.BuildKey(context.Background(), "pnl", "ATC", "2026-01")
	require.NoError(t, err)
	assert.Equal(t, "pnl:ATC:2026-01:1", key)

	stored, err := mr.Get("reports:version")
	require.NoError(t, err)
	assert.Equal(t, "1", stored)
}

func TestFetchJSONPopulatesAndHits(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(context.Context) (any, error) {
		loads++
		return map[string]float64{"revenue": 1250.50}, nil
	}

	var first map[string]float64
	require.NoError(t, cache.FetchJSON(ctx, "pnl:ATC:1", &first, loader))
	assert.Equal(t, 1250.50, first["revenue"])
	assert.Equal(t, 1, loads)

	var second map[string]float64
	require.NoError(t, cache.FetchJSON(ctx, "pnl:ATC:1", &second, loader))
	assert.Equal(t, 1250.50, second["revenue"])
	assert.Equal(t, 1, loads)
}

func TestBumpRotatesKeys(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	before, err := cache.BuildKey(ctx, "pnl", "ATC")
	require.NoError(t, err)

	require.NoError(t, cache.Bump(ctx))

	after, err := cache.BuildKey(ctx, "pnl", "ATC")
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
	assert.Equal(t, "pnl:ATC:2", after)
}

func TestCacheDegradesWithoutClient(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, "pnl", "ATC")
	require.NoError(t, err)
	assert.Equal(t, "pnl:ATC", key)

	loads := 0
	var out map[string]string
	require.NoError(t, cache.FetchJSON(ctx, key, &out, func(context.Context) (any, error) {
		loads++
		return map[string]string{"status": "fresh"}, nil
	}))
	assert.Equal(t, "fresh", out["status"])

	require.NoError(t, cache.FetchJSON(ctx, key, &out, func(context.Context) (any, error) {
		loads++
		return map[string]string{"status": "fresh"}, nil
	}))
	assert.Equal(t, 2, loads)

	require.NoError(t, cache.Bump(ctx))
}
