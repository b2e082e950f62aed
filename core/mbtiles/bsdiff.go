package mbtiles

import (
	"github.com/gabstv/go-bsdiff/pkg/bsdiff"
	"github.com/gabstv/go-bsdiff/pkg/bspatch"

	"github.com/terramesh/martin/core/tilecoord"
	"github.com/terramesh/martin/errs"
)

// bsdiffrawgz holds a binary patch between two gzip-MVT tiles, keyed by the
// coordinate and an xxh3-64 hash of the pre-patch (source) tile so
// ApplyPatch can refuse to apply a patch against content it doesn't
// recognize instead of silently corrupting the target.
const createBinDiffTable = `CREATE TABLE IF NOT EXISTS bsdiffrawgz (
	zoom_level INTEGER,
	tile_column INTEGER,
	tile_row INTEGER,
	source_hash INTEGER,
	patch BLOB
)`

const createBinDiffIndex = `CREATE UNIQUE INDEX IF NOT EXISTS bsdiffrawgz_zxy ON bsdiffrawgz (zoom_level, tile_column, tile_row)`

// writeBinDiff stores a bsdiff between the decompressed contents of aTile
// (before) and bTile (after) in patch's bsdiffrawgz table, keyed by c and
// the xxh3-64 hash of aTile itself (the compressed source blob, which is
// what ApplyPatch has on hand to verify against before it ever decompresses
// anything).
func writeBinDiff(patch *DB, c tilecoord.Coord, aTile, bTile []byte) error {
	if _, err := patch.database.Exec(createBinDiffTable); err != nil {
		return errs.New(errs.Decode, patch.Path, err)
	}
	if _, err := patch.database.Exec(createBinDiffIndex); err != nil {
		return errs.New(errs.Decode, patch.Path, err)
	}

	aRaw, err := gunzip(aTile)
	if err != nil {
		return errs.New(errs.Decode, patch.Path, err)
	}
	bRaw, err := gunzip(bTile)
	if err != nil {
		return errs.New(errs.Decode, patch.Path, err)
	}

	diff, err := bsdiff.Bytes(aRaw, bRaw)
	if err != nil {
		return errs.New(errs.Decode, patch.Path, err)
	}

	sourceHash := xxh3Hex(aTile)
	_, err = patch.database.Exec(
		`INSERT OR REPLACE INTO bsdiffrawgz (zoom_level, tile_column, tile_row, source_hash, patch) VALUES (?, ?, ?, ?, ?)`,
		c.Z, c.X, c.TMSRow(), int64(sourceHash), diff,
	)
	return wrapWriteErr(patch.Path, err)
}

func applyBinDiff(sourceRawGz []byte, patchBytes []byte) ([]byte, error) {
	sourceRaw, err := gunzip(sourceRawGz)
	if err != nil {
		return nil, err
	}
	patched, err := bspatch.Bytes(sourceRaw, patchBytes)
	if err != nil {
		return nil, err
	}
	return gzipBytes(patched)
}
