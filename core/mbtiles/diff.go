package mbtiles

import (
	"bytes"
	"compress/gzip"
	"io"

	"github.com/zeebo/xxh3"

	"github.com/terramesh/martin/core/tilecoord"
)

// DiffOptions controls what Diff emits beyond the plain tile-level patch.
type DiffOptions struct {
	// BinDiff enables the bsdiffrawgz table for tile pairs that are both
	// present and both gzip-MVT, per §4.2 and §9.
	BinDiff bool
}

// Diff computes a patch from a to b and writes it into patch, an already
// Create'd MBTiles handle. For every (z,x,y) where the two archives
// differ, the patch's tiles table gets b's blob (or a NULL row if the
// tile was removed in b). Metadata rows agg_tiles_hash_before_apply and
// agg_tiles_hash_after_apply record the two sides' aggregate hashes so
// ApplyPatch can check them before/after.
func Diff(a, b, patch *DB, opts DiffOptions) error {
	aHash, err := a.AggregateHash()
	if err != nil {
		return err
	}
	bHash, err := b.AggregateHash()
	if err != nil {
		return err
	}

	aCoords, err := a.AllCoords()
	if err != nil {
		return err
	}
	bCoords, err := b.AllCoords()
	if err != nil {
		return err
	}

	union := unionSorted(aCoords, bCoords)

	for _, c := range union {
		aTile, err := a.GetTile(c)
		if err != nil {
			return err
		}
		bTile, err := b.GetTile(c)
		if err != nil {
			return err
		}

		if bytes.Equal(aTile, bTile) {
			continue
		}

		if bTile == nil {
			if err := patch.putNullTile(c); err != nil {
				return err
			}
			continue
		}

		if err := patch.PutTile(c, bTile); err != nil {
			return err
		}

		if opts.BinDiff && aTile != nil && isGzipMVT(aTile) && isGzipMVT(bTile) {
			if err := writeBinDiff(patch, c, aTile, bTile); err != nil {
				return err
			}
		}
	}

	if err := patch.PutMetadata("agg_tiles_hash_before_apply", aHash); err != nil {
		return err
	}
	if err := patch.PutMetadata("agg_tiles_hash_after_apply", bHash); err != nil {
		return err
	}

	return nil
}

func (db *DB) putNullTile(c tilecoord.Coord) error {
	row := c.TMSRow()
	switch db.Layout {
	case Normalized:
		_, err := db.database.Exec(`INSERT OR REPLACE INTO map (zoom_level, tile_column, tile_row, tile_id) VALUES (?, ?, ?, NULL)`, c.Z, c.X, row)
		return wrapWriteErr(db.Path, err)
	case FlatWithHash:
		_, err := db.database.Exec(`INSERT OR REPLACE INTO tiles_with_hash (zoom_level, tile_column, tile_row, tile_data, tile_hash) VALUES (?, ?, ?, NULL, NULL)`, c.Z, c.X, row)
		return wrapWriteErr(db.Path, err)
	default:
		_, err := db.database.Exec(`INSERT OR REPLACE INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, NULL)`, c.Z, c.X, row)
		return wrapWriteErr(db.Path, err)
	}
}

func unionSorted(a, b []tilecoord.Coord) []tilecoord.Coord {
	seen := make(map[tilecoord.Coord]bool, len(a)+len(b))
	out := make([]tilecoord.Coord, 0, len(a)+len(b))
	for _, c := range a {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	for _, c := range b {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	// a and b are each already sorted by (z,x,y); a plain insertion keeps
	// the union sorted without pulling in sort.Slice for what is, after
	// dedup, a short merge.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && less(out[j], out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func less(a, b tilecoord.Coord) bool {
	if a.Z != b.Z {
		return a.Z < b.Z
	}
	if a.X != b.X {
		return a.X < b.X
	}
	return a.Y < b.Y
}

func isGzipMVT(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b
}

func gunzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func xxh3Hex(data []byte) uint64 {
	return xxh3.Hash(data)
}
