// Package cache is the byte-bounded tile cache (C7): an LRU keyed by
// source id, coordinate, accept-encoding and url query, with
// singleflight request coalescing and generation-based invalidation tied
// to the catalog's refresh counter.
//
// The eviction policy is adapted from the teacher's in-memory tileset
// handling (the teacher never cached — it served straight from SQLite —
// so this package instead follows the PMTiles reference's directory-cache
// shape: hashicorp/golang-lru/v2 for eviction bookkeeping, with the byte
// accounting layered on top since golang-lru counts entries, not bytes).
package cache

import (
	"fmt"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/singleflight"

	"github.com/terramesh/martin/core/tilecodec"
	"github.com/terramesh/martin/core/tilecoord"
)

// Key identifies one cache entry.
type Key struct {
	SourceID string
	Coord    tilecoord.Coord
	Accept   tilecodec.Encoding
	Query    string
}

func (k Key) string() string {
	return fmt.Sprintf("%s|%s|%d|%x", k.SourceID, k.Coord, k.Accept, xxh3.HashString(k.Query))
}

type entry struct {
	data       tilecodec.TileData
	generation uint64
	size       int
}

// Cache is a process-wide, byte-bounded tile cache. All methods are safe
// for concurrent use.
type Cache struct {
	mu        sync.Mutex
	lru       *lru.Cache[string, entry]
	maxBytes  int64
	curBytes  int64
	group     singleflight.Group
}

// New builds a Cache bounded at maxBytes. The underlying LRU is sized
// generously on entry count (capacity won't realistically bind first,
// byte accounting will) and shrinks on its own eviction callback.
func New(maxBytes int64) *Cache {
	c := &Cache{maxBytes: maxBytes}
	l, _ := lru.NewWithEvict[string, entry](1<<20, func(_ string, e entry) {
		c.curBytes -= int64(e.size)
	})
	c.lru = l
	return c
}

// Get returns the cached tile for key if present and from the given
// generation; a stale-generation hit is treated as a miss so callers never
// serve a tile from a source the catalog no longer holds.
func (c *Cache) Get(key Key, generation uint64) (tilecodec.TileData, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Get(key.string())
	if !ok || e.generation != generation {
		return tilecodec.TileData{}, false
	}
	return e.data, true
}

// Put inserts data under key tagged with generation, evicting
// least-recently-used entries until the cache is back under maxBytes.
func (c *Cache) Put(key Key, generation uint64, data tilecodec.TileData) {
	size := len(data.Bytes)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Add(key.string(), entry{data: data, generation: generation, size: size})
	c.curBytes += int64(size)

	for c.curBytes > c.maxBytes {
		if _, _, ok := c.lru.RemoveOldest(); !ok {
			break
		}
	}
}

// Fetch coalesces concurrent callers requesting the same key via
// singleflight, so a cache stampede on a hot tile results in exactly one
// upstream fetch, per the single-flight requirement in §4.7/§8.
func (c *Cache) Fetch(key Key, generation uint64, fetch func() (tilecodec.TileData, error)) (tilecodec.TileData, error) {
	if data, ok := c.Get(key, generation); ok {
		return data, nil
	}

	v, err, _ := c.group.Do(key.string()+"|"+strconv.FormatUint(generation, 10), func() (any, error) {
		if data, ok := c.Get(key, generation); ok {
			return data, nil
		}
		data, err := fetch()
		if err != nil {
			return tilecodec.TileData{}, err
		}
		c.Put(key, generation, data)
		return data, nil
	})
	if err != nil {
		return tilecodec.TileData{}, err
	}
	return v.(tilecodec.TileData), nil
}

// Len reports the number of entries currently cached, for the /health
// payload.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Bytes reports the current byte accounting, for the /health payload.
func (c *Cache) Bytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.curBytes
}
