package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheGetSet(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	_, err := mc.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	buf := []byte("v1")
	require.NoError(t, mc.Set(ctx, "k", buf, time.Minute))
	buf[0] = 'x'
	got, err := mc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(got))

	// repeated reads must not change the stored value
	got, err = mc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(got))
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	now := time.Unix(1_700_000_000, 0)
	mc.now = func() time.Time { return now }
	require.NoError(t, mc.Set(ctx, "k", []byte("v"), time.Second))

	ok, err := mc.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(2 * time.Second)
	_, err = mc.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	now := time.Unix(1_700_000_000, 0)
	mc.now = func() time.Time { return now }

	require.NoError(t, mc.Set(ctx, "a", []byte("1"), 0))
	now = now.Add(time.Second)
	require.NoError(t, mc.Set(ctx, "b", []byte("2"), 0))
	now = now.Add(time.Second)
	_, err := mc.Get(ctx, "a")
	require.NoError(t, err)
	now = now.Add(time.Second)
	require.NoError(t, mc.Set(ctx, "c", []byte("3"), 0))

	assert.Equal(t, 2, mc.Len())
	_, err = mc.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = mc.Get(ctx, "a")
	assert.NoError(t, err)
}

func TestMemoryCacheDeleteByPattern(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	for _, k := range []string{"bands:AAPL:1", "bands:AAPL:2", "bands:MSFT:1"} {
		require.NoError(t, mc.Set(ctx, k, []byte("x"), time.Minute))
	}
	require.NoError(t, mc.DeleteByPattern(ctx, BuildPattern("bands:AAPL:")))
	assert.Equal(t, 1, mc.Len())
	ok, _ := mc.Exists(ctx, "bands:MSFT:1")
	assert.True(t, ok)
}

func TestLayeredCacheBackfillsL1(t *testing.T) {
	ctx := context.Background()
	remote := NewMemoryCache()
	lc := NewLayeredCache(remote, WithLayeredMemorySize(10))
	defer lc.Close()

	require.NoError(t, remote.Set(ctx, "k", []byte("remote"), time.Minute))
	got, err := lc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "remote", string(got))

	require.NoError(t, remote.Delete(ctx, "k"))
	got, err = lc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "remote", string(got))

	require.NoError(t, lc.Delete(ctx, "k"))
	_, err = lc.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	type payload struct {
		N int    `json:"n"`
		S string `json:"s"`
	}
	require.NoError(t, SetJSON(ctx, mc, "p", payload{N: 3, S: "x"}, time.Minute))
	got, err := GetJSON[payload](ctx, mc, "p")
	require.NoError(t, err)
	assert.Equal(t, payload{N: 3, S: "x"}, got)

	_, err = GetJSON[payload](ctx, mc, "nope")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestGenerateKeyWithParams(t *testing.T) {
	assert.Equal(t, "bands:AAPL:1d:20", GenerateKeyWithParams("bands", "AAPL", "1d", 20))
	assert.Len(t, HashKey("x"), 32)
}
