// Package tilecoord is the shared (z, x, y) coordinate type used by every
// engine and by the request pipeline, generalizing the teacher's
// mbtiles.TileCoord/ParseTileCoord (which baked in the TMS y-flip) into a
// pure XYZ value — each engine that needs the TMS flip (MBTiles) does it
// at its own storage boundary instead of in the shared type.
package tilecoord

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/terramesh/martin/errs"
)

// Coord is a tile address in XYZ convention: y=0 at the top.
type Coord struct {
	Z uint8
	X uint32
	Y uint32
}

func (c Coord) String() string {
	return fmt.Sprintf("%d/%d/%d", c.Z, c.X, c.Y)
}

// Valid reports whether x and y are within [0, 2^z), the invariant from §3.
func (c Coord) Valid() bool {
	span := uint32(1) << c.Z
	return c.X < span && c.Y < span
}

// TMSRow returns the tile row in TMS convention (y flipped) for the given
// zoom, the convention MBTiles stores tile_row in internally (§3).
func (c Coord) TMSRow() uint32 {
	return (uint32(1) << c.Z) - 1 - c.Y
}

// Parse parses z, x and a y parameter that may carry a trailing file
// extension (e.g. "42.pbf"), returning the stripped extension alongside
// the coordinate. It is the XYZ-only counterpart of the teacher's
// mbtiles.ParseTileCoord, which additionally flipped y to TMS; this Parse
// leaves that flip to callers that need it.
func Parse(z, x, y string) (Coord, string, error) {
	z64, err := strconv.ParseUint(z, 10, 8)
	if err != nil {
		return Coord{}, "", errs.Newf(errs.BadRequest, "", "invalid zoom level %q: %v", z, err)
	}

	x64, err := strconv.ParseUint(x, 10, 32)
	if err != nil {
		return Coord{}, "", errs.Newf(errs.BadRequest, "", "invalid x coordinate %q: %v", x, err)
	}

	ext := ""
	ys := y
	if i := strings.LastIndex(ys, "."); i >= 0 {
		ext = ys[i+1:]
		ys = ys[:i]
	}

	y64, err := strconv.ParseUint(ys, 10, 32)
	if err != nil {
		return Coord{}, "", errs.Newf(errs.BadRequest, "", "invalid y coordinate %q: %v", y, err)
	}

	c := Coord{Z: uint8(z64), X: uint32(x64), Y: uint32(y64)}
	if !c.Valid() {
		return Coord{}, "", errs.Newf(errs.BadRequest, "", "coordinate %s out of bounds for zoom %d", c, c.Z)
	}

	return c, ext, nil
}

// BBox is a geographic bounding box in (west, south, east, north) order.
type BBox [4]float64

// Center is a (lon, lat, zoom) default viewport.
type Center [3]float64
