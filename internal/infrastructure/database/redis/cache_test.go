package redis_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/database/redis"
	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/monitoring/logging"
	"github.com/Adstedt/contentmax-sub005/pkg/errors"
)

type snapshot struct {
	RunID string `json:"run_id"`
	Nodes int    `json:"nodes"`
}

func testClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	client := redis.NewClientWithRedis(rdb, logging.NewNopLogger())
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestCache_SetGetRoundTrip(t *testing.T) {
	client, _ := testClient(t)
	cache := redis.NewCache(client, logging.NewNopLogger())
	ctx := context.Background()

	want := snapshot{RunID: "run-1", Nodes: 42}
	require.NoError(t, cache.Set(ctx, "runs:run-1", want, time.Minute))

	var got snapshot
	require.NoError(t, cache.Get(ctx, "runs:run-1", &got))
	assert.Equal(t, want, got)
}

func TestCache_GetMiss(t *testing.T) {
	client, _ := testClient(t)
	cache := redis.NewCache(client, logging.NewNopLogger())

	var got snapshot
	err := cache.Get(context.Background(), "runs:absent", &got)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestCache_KeysArePrefixed(t *testing.T) {
	client, mr := testClient(t)
	cache := redis.NewCache(client, logging.NewNopLogger(), redis.WithPrefix("cm:"))
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "runs:run-1", snapshot{RunID: "run-1"}, time.Minute))
	assert.True(t, mr.Exists("cm:runs:run-1"))
}

func TestCache_DeleteAndExists(t *testing.T) {
	client, _ := testClient(t)
	cache := redis.NewCache(client, logging.NewNopLogger())
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", 1, time.Minute))
	require.NoError(t, cache.Set(ctx, "b", 2, time.Minute))

	ok, err := cache.Exists(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, cache.Delete(ctx, "a", "b"))

	ok, err = cache.Exists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_SetAppliesTTL(t *testing.T) {
	client, mr := testClient(t)
	cache := redis.NewCache(client, logging.NewNopLogger(), redis.WithPrefix("cm:"))

	require.NoError(t, cache.Set(context.Background(), "a", 1, time.Minute))

	ttl := mr.TTL("cm:a")
	// TTL carries up to 10% jitter in either direction.
	assert.InDelta(t, time.Minute.Seconds(), ttl.Seconds(), time.Minute.Seconds()*0.11)
	assert.Positive(t, ttl)
}

func TestCache_GetOrSet_LoadsOnceOnMiss(t *testing.T) {
	client, _ := testClient(t)
	cache := redis.NewCache(client, logging.NewNopLogger())
	ctx := context.Background()

	var calls atomic.Int32
	loader := func(ctx context.Context) (interface{}, error) {
		calls.Add(1)
		return snapshot{RunID: "run-9", Nodes: 7}, nil
	}

	var got snapshot
	require.NoError(t, cache.GetOrSet(ctx, "runs:run-9", &got, time.Minute, loader))
	assert.Equal(t, 7, got.Nodes)
	assert.EqualValues(t, 1, calls.Load())

	// Second call hits the cache.
	var again snapshot
	require.NoError(t, cache.GetOrSet(ctx, "runs:run-9", &again, time.Minute, loader))
	assert.Equal(t, got, again)
	assert.EqualValues(t, 1, calls.Load())
}

func TestCache_GetOrSet_PropagatesLoaderError(t *testing.T) {
	client, _ := testClient(t)
	cache := redis.NewCache(client, logging.NewNopLogger())

	sentinel := errors.New(errors.ErrCodeSourceUnavailable, "feed down")
	var got snapshot
	err := cache.GetOrSet(context.Background(), "runs:bad", &got, time.Minute,
		func(ctx context.Context) (interface{}, error) { return nil, sentinel })
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSourceUnavailable))
}

func TestCache_GetOrSet_DeduplicatesConcurrentLoads(t *testing.T) {
	client, _ := testClient(t)
	cache := redis.NewCache(client, logging.NewNopLogger())
	ctx := context.Background()

	var calls atomic.Int32
	release := make(chan struct{})
	loader := func(ctx context.Context) (interface{}, error) {
		calls.Add(1)
		<-release
		return snapshot{RunID: "run-5", Nodes: 3}, nil
	}

	const workers = 8
	var wg sync.WaitGroup
	results := make([]snapshot, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = cache.GetOrSet(ctx, "runs:run-5", &results[i], time.Minute, loader)
		}(i)
	}

	// Let every goroutine reach the singleflight gate before releasing.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, 3, results[i].Nodes)
	}
	assert.EqualValues(t, 1, calls.Load())
}

func TestClient_PingAfterCloseFails(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	client := redis.NewClientWithRedis(rdb, logging.NewNopLogger())

	require.NoError(t, client.Ping(context.Background()))
	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	err := client.Ping(context.Background())
	assert.ErrorIs(t, err, redis.ErrClientClosed)
}
