package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), client
}

func TestCacheVersionAndBump(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)

	ver, err := cache.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), ver)

	key, err := cache.BuildKey(ctx, "monthly_pl", "2025-01:2025-03")
	require.NoError(t, err)
	assert.Equal(t, "reports:monthly_pl:2025-01:2025-03:v1", key)

	require.NoError(t, cache.Bump(ctx))
	key, err = cache.BuildKey(ctx, "monthly_pl", "2025-01:2025-03")
	require.NoError(t, err)
	assert.Equal(t, "reports:monthly_pl:2025-01:2025-03:v2", key)
}

func TestCacheFetchJSON(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)
	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return MonthlyPL{Period: "2025-01", Revenue: 10}, nil
	}

	var first MonthlyPL
	hit, err := cache.FetchJSON(ctx, "k", &first, loader)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 10.0, first.Revenue)

	var second MonthlyPL
	hit, err = cache.FetchJSON(ctx, "k", &second, loader)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)

	boom := errors.New("boom")
	_, err = cache.FetchJSON(ctx, "other", &second, func(context.Context) (any, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

func TestNilCacheComputesDirectly(t *testing.T) {
	var cache *Cache
	key, err := cache.BuildKey(context.Background(), "sales", "client")
	require.NoError(t, err)
	assert.Equal(t, "reports:sales:client", key)
	require.NoError(t, cache.Bump(context.Background()))

	var out int
	hit, err := cache.FetchJSON(context.Background(), key, &out, func(context.Context) (any, error) { return 7, nil })
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 7, out)
}

func TestListenForInvalidation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cache, _ := newTestCache(t)

	seen := make(chan int64, 1)
	require.NoError(t, cache.ListenForInvalidation(ctx, func(ver int64) { seen <- ver }))
	require.NoError(t, cache.Bump(ctx))

	select {
	case ver := <-seen:
		assert.Equal(t, int64(1), ver)
	case <-time.After(2 * time.Second):
		t.Fatal("bump notification not received")
	}
}
