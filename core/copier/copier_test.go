package copier

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terramesh/martin/config"
	"github.com/terramesh/martin/core/cache"
	"github.com/terramesh/martin/core/catalog"
	"github.com/terramesh/martin/core/mbtiles"
	"github.com/terramesh/martin/core/pipeline"
	"github.com/terramesh/martin/core/tilecodec"
	"github.com/terramesh/martin/core/tilecoord"
)

func TestEnumerateWholeWorldZoom0(t *testing.T) {
	coords := enumerate(tilecoord.BBox{-180, -85.05113, 180, 85.05113}, 0, 0)
	require.Len(t, coords, 1)
	assert.Equal(t, tilecoord.Coord{Z: 0, X: 0, Y: 0}, coords[0])
}

func TestEnumerateZoomRangeSpan(t *testing.T) {
	coords := enumerate(tilecoord.BBox{-180, -85.05113, 180, 85.05113}, 0, 1)
	// z0 contributes 1 tile, z1 contributes 4.
	assert.Len(t, coords, 5)
}

type constSource struct {
	id string
}

func (s *constSource) ID() string                { return s.id }
func (s *constSource) Bounds() tilecoord.BBox     { return tilecoord.BBox{-180, -90, 180, 90} }
func (s *constSource) ZoomRange() (uint8, uint8)  { return 0, 4 }
func (s *constSource) Format() tilecodec.Format   { return tilecodec.MVT }
func (s *constSource) SupportsURLQuery() bool     { return false }
func (s *constSource) GetTile(_ context.Context, c tilecoord.Coord, _ string) (tilecodec.TileData, error) {
	return tilecodec.TileData{Bytes: []byte(c.String()), Format: tilecodec.MVT, Encoding: tilecodec.Identity}, nil
}

func TestCopyWritesEveryEnumeratedTile(t *testing.T) {
	cat := catalog.New()
	cat.Replace([]catalog.TileSource{&constSource{id: "a"}})
	p := pipeline.New(cat, cache.New(1<<20), config.Config{RequestTimeout: time.Second})

	dst, err := mbtiles.Create(filepath.Join(t.TempDir(), "out.mbtiles"), mbtiles.Flat)
	require.NoError(t, err)
	defer dst.Close()

	opts := Options{
		SourceIDs:   []string{"a"},
		Bounds:      tilecoord.BBox{-180, -85.05113, 180, 85.05113},
		MinZoom:     0,
		MaxZoom:     1,
		Concurrency: 4,
	}

	require.NoError(t, Copy(context.Background(), p, dst, opts))

	got, err := dst.GetTile(tilecoord.Coord{Z: 0, X: 0, Y: 0})
	require.NoError(t, err)
	assert.Equal(t, []byte("0/0/0"), got)
}

func TestCopyResumeSkipsMatchingTiles(t *testing.T) {
	cat := catalog.New()
	cat.Replace([]catalog.TileSource{&constSource{id: "a"}})
	p := pipeline.New(cat, cache.New(1<<20), config.Config{RequestTimeout: time.Second})

	dst, err := mbtiles.Create(filepath.Join(t.TempDir(), "out.mbtiles"), mbtiles.FlatWithHash)
	require.NoError(t, err)
	defer dst.Close()

	require.NoError(t, dst.PutTile(tilecoord.Coord{Z: 0, X: 0, Y: 0}, []byte("0/0/0")))

	opts := Options{
		SourceIDs:   []string{"a"},
		Bounds:      tilecoord.BBox{-180, -85.05113, 180, 85.05113},
		MinZoom:     0,
		MaxZoom:     0,
		Concurrency: 2,
		Resume:      true,
	}

	require.NoError(t, Copy(context.Background(), p, dst, opts))

	got, err := dst.GetTile(tilecoord.Coord{Z: 0, X: 0, Y: 0})
	require.NoError(t, err)
	assert.Equal(t, []byte("0/0/0"), got)
}
