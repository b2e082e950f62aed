package cache

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terramesh/martin/core/tilecodec"
	"github.com/terramesh/martin/core/tilecoord"
)

func key(id string) Key {
	return Key{SourceID: id, Coord: tilecoord.Coord{Z: 1, X: 2, Y: 3}}
}

func TestCachePutGet(t *testing.T) {
	c := New(1 << 20)
	data := tilecodec.TileData{Bytes: []byte("hello")}

	c.Put(key("a"), 1, data)

	got, ok := c.Get(key("a"), 1)
	require.True(t, ok)
	assert.Equal(t, data.Bytes, got.Bytes)
}

func TestCacheGetMissOnStaleGeneration(t *testing.T) {
	c := New(1 << 20)
	c.Put(key("a"), 1, tilecodec.TileData{Bytes: []byte("x")})

	_, ok := c.Get(key("a"), 2)
	assert.False(t, ok)
}

func TestCacheEvictsOverByteBudget(t *testing.T) {
	c := New(10)
	c.Put(key("a"), 1, tilecodec.TileData{Bytes: make([]byte, 6)})
	c.Put(key("b"), 1, tilecodec.TileData{Bytes: make([]byte, 6)})

	assert.LessOrEqual(t, c.Bytes(), int64(10))
	assert.Equal(t, 1, c.Len())
}

func TestCacheFetchCoalescesConcurrentCallers(t *testing.T) {
	c := New(1 << 20)
	var calls int64

	const n = 16
	results := make(chan tilecodec.TileData, n)
	errs := make(chan error, n)

	start := make(chan struct{})
	for i := 0; i < n; i++ {
		go func() {
			<-start
			data, err := c.Fetch(key("a"), 1, func() (tilecodec.TileData, error) {
				atomic.AddInt64(&calls, 1)
				return tilecodec.TileData{Bytes: []byte("computed")}, nil
			})
			results <- data
			errs <- err
		}()
	}
	close(start)

	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
		assert.Equal(t, []byte("computed"), (<-results).Bytes)
	}

	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

func TestCacheFetchReturnsCachedWithoutCallingFetch(t *testing.T) {
	c := New(1 << 20)
	c.Put(key("a"), 1, tilecodec.TileData{Bytes: []byte("cached")})

	called := false
	data, err := c.Fetch(key("a"), 1, func() (tilecodec.TileData, error) {
		called = true
		return tilecodec.TileData{}, nil
	})
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, []byte("cached"), data.Bytes)
}
