package mbtiles

import (
	"github.com/terramesh/martin/core/tilecoord"
	"github.com/terramesh/martin/errs"
)

// ApplyPatch overlays patch onto target in place: any bsdiffrawgz entries
// are applied first, against target's existing tile content, then every
// coordinate patch carries a tiles row for is written to target (a NULL
// tile_data row deletes it from target). Before touching anything it checks
// target's current aggregate hash against the patch's recorded
// "before" value, and after applying, the "after" value — the two-sided
// check §4.2 requires so a patch built against the wrong base is rejected
// instead of silently corrupting target.
func ApplyPatch(target, patch *DB) error {
	md, err := patch.GetMetadata()
	if err != nil {
		return err
	}

	before := md["agg_tiles_hash_before_apply"]
	after := md["agg_tiles_hash_after_apply"]

	if before != "" {
		targetHash, err := target.AggregateHash()
		if err != nil {
			return err
		}
		if !equalFoldHash(targetHash, before) {
			return errs.Newf(errs.BadRequest, target.Path,
				"patch base mismatch: target aggregate hash %s, patch expects %s", targetHash, before)
		}
	}

	if err := applyAllBinDiffs(target, patch); err != nil {
		return err
	}

	coords, err := patch.AllCoords()
	if err != nil {
		return err
	}

	for _, c := range coords {
		data, err := patch.GetTile(c)
		if err != nil {
			return err
		}
		if data == nil {
			if err := target.DeleteTile(c); err != nil {
				return err
			}
			continue
		}
		if err := target.PutTile(c, data); err != nil {
			return err
		}
	}

	if after != "" {
		targetHash, err := target.AggregateHash()
		if err != nil {
			return err
		}
		if !equalFoldHash(targetHash, after) {
			return errs.Newf(errs.Decode, target.Path,
				"patch applied but aggregate hash mismatch: got %s, expected %s", targetHash, after)
		}
	}

	return nil
}

// applyAllBinDiffs walks every (z,x,y) the patch's bsdiffrawgz table names,
// verifies the target still holds the exact source tile the bin-diff was
// built against, and writes the patched result back.
func applyAllBinDiffs(target, patch *DB) error {
	var n int
	if err := patch.database.QueryRow(`SELECT count(*) FROM sqlite_master WHERE name = 'bsdiffrawgz'`).Scan(&n); err != nil {
		return errs.New(errs.Decode, patch.Path, err)
	}
	if n == 0 {
		return nil
	}

	rows, err := patch.database.Query(`SELECT zoom_level, tile_column, tile_row, source_hash, patch FROM bsdiffrawgz`)
	if err != nil {
		return errs.New(errs.Decode, patch.Path, err)
	}
	defer rows.Close()

	type entry struct {
		z, x, row  int
		sourceHash int64
		diff       []byte
	}
	var entries []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.z, &e.x, &e.row, &e.sourceHash, &e.diff); err != nil {
			return errs.New(errs.Decode, patch.Path, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return errs.New(errs.Decode, patch.Path, err)
	}

	for _, e := range entries {
		y := (1<<uint(e.z) - 1) - e.row
		c := tilecoord.Coord{Z: uint8(e.z), X: uint32(e.x), Y: uint32(y)}

		existing, err := target.GetTile(c)
		if err != nil {
			return err
		}
		if existing == nil {
			return errs.Newf(errs.BadRequest, target.Path, "bin-diff target tile %s missing", c)
		}

		if xxh3Hex(existing) != uint64(e.sourceHash) {
			return errs.Newf(errs.BadRequest, target.Path,
				"bin-diff source hash mismatch at %s, target tile changed since patch was built", c)
		}

		patched, err := applyBinDiff(existing, e.diff)
		if err != nil {
			return errs.New(errs.Decode, target.Path, err)
		}

		if err := target.PutTile(c, patched); err != nil {
			return err
		}
	}

	return nil
}

func equalFoldHash(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'a' <= ca && ca <= 'z' {
			ca -= 'a' - 'A'
		}
		if 'a' <= cb && cb <= 'z' {
			cb -= 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
