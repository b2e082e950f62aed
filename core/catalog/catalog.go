// Package catalog is the source registry (C6): the TileSource interface
// every engine implements, and the Catalog that holds the current set of
// sources and swaps it atomically on refresh.
//
// The registry mirrors the teacher's core/mbtiles tileset map — a
// process-wide lookup by id, built once at startup — generalized from a
// single map[string]*Tileset to a map[string]TileSource so MBTiles,
// PMTiles, COG, PostGIS and composite sources share one lookup path, and
// made swappable so POST /refresh (§6) can rebuild it without a restart.
package catalog

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/terramesh/martin/core/tilecodec"
	"github.com/terramesh/martin/core/tilecoord"
	"github.com/terramesh/martin/errs"
)

// TileSource is the polymorphic interface every engine (MBTiles, PMTiles,
// COG, PostGIS table/function, composite) satisfies, the tagged-variant
// dispatch point §4 describes instead of a class hierarchy.
type TileSource interface {
	ID() string
	Bounds() tilecoord.BBox
	ZoomRange() (min, max uint8)
	Format() tilecodec.Format
	SupportsURLQuery() bool
	GetTile(ctx context.Context, c tilecoord.Coord, rawQuery string) (tilecodec.TileData, error)
}

// Descriptor carries the metadata TileJSON synthesis needs beyond the bare
// TileSource contract. Sources that have richer metadata (name,
// description, attribution, center) implement this optional interface;
// catalog falls back to zero values for ones that don't.
type Descriptor interface {
	Name() string
	Description() string
	Attribution() string
	Center() tilecoord.Center
}

// Catalog holds the current generation of registered sources. Reads never
// block a concurrent Replace: the active map is an atomic pointer swapped
// wholesale, the copy-on-refresh pattern §4.6/§6 requires so in-flight
// requests keep serving from the generation they started with.
type Catalog struct {
	sources    atomic.Pointer[map[string]TileSource]
	generation atomic.Uint64
}

// New returns an empty Catalog.
func New() *Catalog {
	c := &Catalog{}
	empty := map[string]TileSource{}
	c.sources.Store(&empty)
	return c
}

// Replace installs sources as the catalog's new generation, used both at
// startup and by a POST /refresh.
func (c *Catalog) Replace(sources []TileSource) {
	m := make(map[string]TileSource, len(sources))
	for _, s := range sources {
		m[s.ID()] = s
	}
	c.sources.Store(&m)
	c.generation.Add(1)
}

// Generation is incremented on every Replace; the cache uses it to
// invalidate entries from a stale catalog generation without an explicit
// per-source flush.
func (c *Catalog) Generation() uint64 {
	return c.generation.Load()
}

// Get looks up a single source by id.
func (c *Catalog) Get(id string) (TileSource, bool) {
	m := *c.sources.Load()
	s, ok := m[id]
	return s, ok
}

// Resolve looks up every id and, for more than one, wraps them in a
// Composite — the comma-separated source-id request surface §6 and §4.6
// both describe. A lookup failure for any single id fails the whole
// request with NotFound, matching the "all or nothing" behavior the
// pipeline needs to give a clean 404 instead of a partial tile.
func (c *Catalog) Resolve(ids []string) (TileSource, error) {
	if len(ids) == 0 {
		return nil, errs.Newf(errs.BadRequest, "", "no source ids given")
	}

	sources := make([]TileSource, 0, len(ids))
	for _, id := range ids {
		s, ok := c.Get(id)
		if !ok {
			return nil, errs.Newf(errs.NotFound, id, "unknown source %q", id)
		}
		sources = append(sources, s)
	}

	if len(sources) == 1 {
		return sources[0], nil
	}
	return NewComposite(ids[0]+"+"+ids[len(ids)-1], sources), nil
}

// List returns every registered source, sorted by id, for the /catalog
// endpoint (§6).
func (c *Catalog) List() []TileSource {
	m := *c.sources.Load()
	out := make([]TileSource, 0, len(m))
	for _, s := range m {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
