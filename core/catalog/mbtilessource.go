package catalog

import (
	"context"
	"strconv"
	"strings"

	"github.com/terramesh/martin/core/mbtiles"
	"github.com/terramesh/martin/core/tilecodec"
	"github.com/terramesh/martin/core/tilecoord"
	"github.com/terramesh/martin/errs"
)

// MBTilesSource adapts an open *mbtiles.DB to TileSource. It is built once
// at catalog discovery time from the metadata the archive itself carries;
// url queries are not supported (§4.2 has no notion of them).
type MBTilesSource struct {
	id   string
	db   *mbtiles.DB
	meta map[string]string

	bounds  tilecoord.BBox
	center  tilecoord.Center
	minzoom uint8
	maxzoom uint8
}

// NewMBTilesSource reads md's bounds/center/minzoom/maxzoom fields (if
// present) and returns a source ready for the catalog.
func NewMBTilesSource(id string, db *mbtiles.DB) (*MBTilesSource, error) {
	md, err := db.GetMetadata()
	if err != nil {
		return nil, err
	}

	s := &MBTilesSource{id: id, db: db, meta: md, bounds: tilecoord.BBox{-180, -85.05113, 180, 85.05113}}

	if v, ok := md["bounds"]; ok {
		if b, ok := parseFloatList4(v); ok {
			s.bounds = b
		}
	}
	if v, ok := md["center"]; ok {
		if c, ok := parseFloatList3(v); ok {
			s.center = c
		}
	}
	if v, ok := md["minzoom"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			s.minzoom = uint8(n)
		}
	}
	s.maxzoom = 22
	if v, ok := md["maxzoom"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			s.maxzoom = uint8(n)
		}
	}

	return s, nil
}

func (s *MBTilesSource) ID() string                  { return s.id }
func (s *MBTilesSource) Bounds() tilecoord.BBox       { return s.bounds }
func (s *MBTilesSource) ZoomRange() (min, max uint8)  { return s.minzoom, s.maxzoom }
func (s *MBTilesSource) Format() tilecodec.Format     { return s.db.Format }
func (s *MBTilesSource) SupportsURLQuery() bool       { return false }
func (s *MBTilesSource) Name() string                 { return s.meta["name"] }
func (s *MBTilesSource) Description() string          { return s.meta["description"] }
func (s *MBTilesSource) Attribution() string          { return s.meta["attribution"] }
func (s *MBTilesSource) Center() tilecoord.Center      { return s.center }

func (s *MBTilesSource) GetTile(_ context.Context, c tilecoord.Coord, _ string) (tilecodec.TileData, error) {
	data, err := s.db.GetTile(c)
	if err != nil {
		return tilecodec.TileData{}, err
	}
	if data == nil {
		return tilecodec.TileData{}, errs.Newf(errs.NotFound, s.id, "tile %s not found", c)
	}
	format, enc := tilecodec.Sniff(data)
	if s.db.Format != 0 {
		format = s.db.Format
	}
	return tilecodec.TileData{Bytes: data, Format: format, Encoding: enc}, nil
}

func parseFloatList4(s string) (tilecoord.BBox, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return tilecoord.BBox{}, false
	}
	var out tilecoord.BBox
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return tilecoord.BBox{}, false
		}
		out[i] = f
	}
	return out, true
}

func parseFloatList3(s string) (tilecoord.Center, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return tilecoord.Center{}, false
	}
	var out tilecoord.Center
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return tilecoord.Center{}, false
		}
		out[i] = f
	}
	return out, true
}
