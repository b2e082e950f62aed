package catalog

import (
	"context"
	"sync"

	"github.com/terramesh/martin/core/tilecodec"
	"github.com/terramesh/martin/core/tilecoord"
	"github.com/terramesh/martin/errs"
)

// Composite is a virtual source over several child sources: GetTile fetches
// every child concurrently and merges the results with
// tilecodec.MergeMVT, the multi-source request path §4.6/§8 describes.
// Composite sources are built on the fly by Catalog.Resolve, not
// registered directly.
type Composite struct {
	id       string
	children []TileSource
}

// NewComposite builds a Composite over children, keeping their order —
// MergeMVT's layer concatenation is order-sensitive, and the order here is
// the order the caller named ids in the comma-separated request path.
func NewComposite(id string, children []TileSource) *Composite {
	return &Composite{id: id, children: children}
}

func (c *Composite) ID() string { return c.id }

func (c *Composite) Bounds() tilecoord.BBox {
	b := tilecoord.BBox{-180, -90, 180, 90}
	for i, child := range c.children {
		cb := child.Bounds()
		if i == 0 {
			b = cb
			continue
		}
		if cb[0] < b[0] {
			b[0] = cb[0]
		}
		if cb[1] < b[1] {
			b[1] = cb[1]
		}
		if cb[2] > b[2] {
			b[2] = cb[2]
		}
		if cb[3] > b[3] {
			b[3] = cb[3]
		}
	}
	return b
}

func (c *Composite) ZoomRange() (min, max uint8) {
	min, max = 0, 22
	for i, child := range c.children {
		cmin, cmax := child.ZoomRange()
		if i == 0 {
			min, max = cmin, cmax
			continue
		}
		if cmin < min {
			min = cmin
		}
		if cmax > max {
			max = cmax
		}
	}
	return min, max
}

func (c *Composite) Format() tilecodec.Format { return tilecodec.MVT }

func (c *Composite) SupportsURLQuery() bool {
	for _, child := range c.children {
		if child.SupportsURLQuery() {
			return true
		}
	}
	return false
}

type childResult struct {
	tile tilecodec.TileData
	err  error
}

// GetTile fetches every child source concurrently and merges the non-empty
// MVT results in input order. A NotFound from one child is treated as an
// empty contribution rather than failing the whole composite, since a
// composite commonly spans sources with different zoom ranges.
func (c *Composite) GetTile(ctx context.Context, coord tilecoord.Coord, rawQuery string) (tilecodec.TileData, error) {
	results := make([]childResult, len(c.children))

	var wg sync.WaitGroup
	for i, child := range c.children {
		wg.Add(1)
		go func(i int, child TileSource) {
			defer wg.Done()
			tile, err := child.GetTile(ctx, coord, rawQuery)
			results[i] = childResult{tile: tile, err: err}
		}(i, child)
	}
	wg.Wait()

	tiles := make([]tilecodec.TileData, 0, len(results))
	for _, r := range results {
		if r.err != nil {
			if k := errs.KindOf(r.err); k == errs.NotFound {
				continue
			}
			return tilecodec.TileData{}, r.err
		}
		tiles = append(tiles, r.tile)
	}

	return tilecodec.MergeMVT(tiles)
}
