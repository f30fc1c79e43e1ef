package rendition

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKey(t *testing.T) {
	var a = CacheKey(`GET`, `/one`)

	assert.True(t, strings.HasPrefix(a, CacheKeyPrefix))
	assert.Equal(t, a, CacheKey(`GET`, `/one`))
	assert.NotEqual(t, a, CacheKey(`GET`, `/two`))
	assert.NotEqual(t, a, CacheKey(`HEAD`, `/one`))
}

func TestMemoryCacheGetSet(t *testing.T) {
	var ctx = context.Background()
	var cache = NewMemoryCache(0, 0)

	_, err := cache.Get(ctx, `k`)
	assert.True(t, errors.Is(err, ErrCacheMiss))

	require.NoError(t, cache.Set(ctx, `k`, &CachedResponse{
		StatusCode: 200,
		Body:       `hello`,
	}, 0))

	res, err := cache.Get(ctx, `k`)
	require.NoError(t, err)
	assert.Equal(t, `hello`, res.Body)
	assert.Equal(t, 1, cache.Len())

	require.NoError(t, cache.Close())
	assert.Equal(t, 0, cache.Len())
}

func TestMemoryCacheExpires(t *testing.T) {
	var ctx = context.Background()
	var cache = NewMemoryCache(10, time.Hour)

	require.NoError(t, cache.Set(ctx, `k`, &CachedResponse{Body: `x`}, time.Nanosecond))
	time.Sleep(time.Millisecond)

	_, err := cache.Get(ctx, `k`)
	assert.True(t, errors.Is(err, ErrCacheMiss))
	assert.Equal(t, 0, cache.Len())
}

func TestMemoryCacheEvictsOldest(t *testing.T) {
	var ctx = context.Background()
	var cache = NewMemoryCache(2, time.Hour)

	require.NoError(t, cache.Set(ctx, `a`, &CachedResponse{Body: `a`}, 0))
	time.Sleep(time.Millisecond)
	require.NoError(t, cache.Set(ctx, `b`, &CachedResponse{Body: `b`}, 0))
	time.Sleep(time.Millisecond)
	require.NoError(t, cache.Set(ctx, `c`, &CachedResponse{Body: `c`}, 0))

	assert.Equal(t, 2, cache.Len())

	_, err := cache.Get(ctx, `a`)
	assert.True(t, errors.Is(err, ErrCacheMiss))

	_, err = cache.Get(ctx, `c`)
	assert.NoError(t, err)
}

func TestCacheConfigNewCache(t *testing.T) {
	cache, err := CacheConfig{}.NewCache()
	require.NoError(t, err)
	assert.Nil(t, cache)

	cache, err = CacheConfig{Type: `memory`, MaxEntries: 5}.NewCache()
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, cache)

	_, err = CacheConfig{Type: `memcached`}.NewCache()
	assert.Error(t, err)
}

func TestRedisCache(t *testing.T) {
	var address = os.Getenv(`RENDITION_TEST_REDIS`)

	if address == `` {
		t.Skip("RENDITION_TEST_REDIS not set")
	}

	var ctx = context.Background()

	cache, err := NewRedisCache(CacheConfig{
		Address: address,
		TTL:     time.Minute,
	})

	require.NoError(t, err)
	defer cache.Close()

	var key = CacheKey(`GET`, `/redis-test`)

	require.NoError(t, cache.Set(ctx, key, &CachedResponse{
		StatusCode:  200,
		ContentType: `text/plain`,
		Body:        `from redis`,
	}, 0))

	res, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `from redis`, res.Body)
	assert.Equal(t, `text/plain`, res.ContentType)

	_, err = cache.Get(ctx, CacheKey(`GET`, `/never-set`))
	assert.True(t, errors.Is(err, ErrCacheMiss))
}

func TestSQLiteCache(t *testing.T) {
	var ctx = context.Background()

	cache, err := CacheConfig{
		Type: `sqlite`,
		Path: filepath.Join(t.TempDir(), `cache.db`),
	}.NewCache()

	require.NoError(t, err)
	require.IsType(t, &SQLiteCache{}, cache)
	defer cache.Close()

	_, err = cache.Get(ctx, `k`)
	assert.True(t, errors.Is(err, ErrCacheMiss))

	require.NoError(t, cache.Set(ctx, `k`, &CachedResponse{
		StatusCode:  200,
		ContentType: `text/html`,
		Body:        `<p>stored</p>`,
	}, 0))

	res, err := cache.Get(ctx, `k`)
	require.NoError(t, err)
	assert.Equal(t, &CachedResponse{
		StatusCode:  200,
		ContentType: `text/html`,
		Body:        `<p>stored</p>`,
	}, res)

	require.NoError(t, cache.Set(ctx, `k`, &CachedResponse{StatusCode: 200, Body: `replaced`}, 0))

	res, err = cache.Get(ctx, `k`)
	require.NoError(t, err)
	assert.Equal(t, `replaced`, res.Body)

	require.NoError(t, cache.Set(ctx, `short`, &CachedResponse{StatusCode: 200, Body: `x`}, time.Nanosecond))
	time.Sleep(time.Millisecond)

	_, err = cache.Get(ctx, `short`)
	assert.True(t, errors.Is(err, ErrCacheMiss))
}
