package mbtiles

import (
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"strings"

	"github.com/terramesh/martin/core/tilecoord"
	"github.com/terramesh/martin/errs"
)

// GetTile reads the tile at c, converting from XYZ to the TMS row MBTiles
// stores internally (§3). A nil, nil return means the tile is absent;
// a non-nil zero-length slice is the "known empty" tile.
func (db *DB) GetTile(c tilecoord.Coord) ([]byte, error) {
	var data []byte
	err := db.database.QueryRow(
		`SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?`,
		c.Z, c.X, c.TMSRow(),
	).Scan(&data)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errs.New(errs.Decode, db.Path, err)
	}
	return data, nil
}

// PutTile writes data at c, computing tile_id as lowercase-hex MD5 for the
// normalized layout's content-addressed dedup, per §3.
func (db *DB) PutTile(c tilecoord.Coord, data []byte) error {
	row := c.TMSRow()

	switch db.Layout {
	case Flat:
		_, err := db.database.Exec(
			`INSERT OR REPLACE INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)`,
			c.Z, c.X, row, data,
		)
		return wrapWriteErr(db.Path, err)

	case FlatWithHash:
		hash := tileHashHex(data)
		_, err := db.database.Exec(
			`INSERT OR REPLACE INTO tiles_with_hash (zoom_level, tile_column, tile_row, tile_data, tile_hash) VALUES (?, ?, ?, ?, ?)`,
			c.Z, c.X, row, data, hash,
		)
		return wrapWriteErr(db.Path, err)

	case Normalized:
		tileID := tileHashHex(data)
		if _, err := db.database.Exec(
			`INSERT OR IGNORE INTO images (tile_id, tile_data) VALUES (?, ?)`, tileID, data,
		); err != nil {
			return wrapWriteErr(db.Path, err)
		}
		_, err := db.database.Exec(
			`INSERT OR REPLACE INTO map (zoom_level, tile_column, tile_row, tile_id) VALUES (?, ?, ?, ?)`,
			c.Z, c.X, row, tileID,
		)
		return wrapWriteErr(db.Path, err)
	}
	return nil
}

// DeleteTile removes the tile at c, used by ApplyPatch when a diff entry
// carries a NULL tile_data (tile removed between the two sides).
func (db *DB) DeleteTile(c tilecoord.Coord) error {
	row := c.TMSRow()
	table := "tiles"
	if db.Layout == Normalized {
		table = "map"
	} else if db.Layout == FlatWithHash {
		table = "tiles_with_hash"
	}
	_, err := db.database.Exec(
		`DELETE FROM `+table+` WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?`,
		c.Z, c.X, row,
	)
	return wrapWriteErr(db.Path, err)
}

// AllCoords returns every (z,x,y) present in the archive, in XYZ
// convention, sorted by (z,x,y) — the order the aggregate hash and diff
// both require.
func (db *DB) AllCoords() ([]tilecoord.Coord, error) {
	rows, err := db.database.Query(`SELECT zoom_level, tile_column, tile_row FROM tiles ORDER BY zoom_level, tile_column, tile_row`)
	if err != nil {
		return nil, errs.New(errs.Decode, db.Path, err)
	}
	defer rows.Close()

	var out []tilecoord.Coord
	for rows.Next() {
		var z uint8
		var x, row uint32
		if err := rows.Scan(&z, &x, &row); err != nil {
			return nil, errs.New(errs.Decode, db.Path, err)
		}
		y := (uint32(1)<<z - 1) - row
		out = append(out, tilecoord.Coord{Z: z, X: x, Y: y})
	}
	return out, rows.Err()
}

func tileHashHex(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

func wrapWriteErr(source string, err error) error {
	if err == nil {
		return nil
	}
	return errs.New(errs.Decode, source, err)
}

// HasTileMatching reports whether the tile at c already exists with
// tile_data whose MD5 equals contentHash (lowercase hex) — used by
// martin-cp's resumability check so a restarted copy skips tiles it
// already wrote with identical content.
func (db *DB) HasTileMatching(c tilecoord.Coord, contentHash string) (bool, error) {
	existing, err := db.GetTile(c)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}
	return strings.EqualFold(tileHashHex(existing), contentHash), nil
}
