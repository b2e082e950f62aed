package mbtiles

import (
	"github.com/terramesh/martin/errs"
)

// GetMetadata reads the metadata table into a plain string map, leaving
// typed interpretation (zoom range, bounds, center, embedded TileJSON
// extras) to the catalog layer, unlike the teacher's GetMetadata which
// parsed every known key inline — this engine only owns the table, not the
// richer TileJSON shape built on top of it.
func (db *DB) GetMetadata() (map[string]string, error) {
	rows, err := db.database.Query(`SELECT name, value FROM metadata WHERE value IS NOT ''`)
	if err != nil {
		return nil, errs.New(errs.Decode, db.Path, err)
	}
	defer rows.Close()

	md := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, errs.New(errs.Decode, db.Path, err)
		}
		md[k] = v
	}
	return md, rows.Err()
}

// PutMetadata upserts a single metadata row, enforcing the unique-name
// invariant from §3 via INSERT OR REPLACE against the unique index.
func (db *DB) PutMetadata(name, value string) error {
	_, err := db.database.Exec(`INSERT OR REPLACE INTO metadata (name, value) VALUES (?, ?)`, name, value)
	return wrapWriteErr(db.Path, err)
}

// PutMetadataBulk writes every entry of md. copier.Copy calls it with
// Options.Metadata once a copy completes; no keys are derived from the
// source, and cmd/martin-cp passes no metadata.
func (db *DB) PutMetadataBulk(md map[string]string) error {
	for k, v := range md {
		if err := db.PutMetadata(k, v); err != nil {
			return err
		}
	}
	return nil
}
