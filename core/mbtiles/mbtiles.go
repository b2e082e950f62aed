// Package mbtiles is the MBTiles engine (C2): opening and creating SQLite
// archives in any of the three layouts the spec recognizes, tile and
// metadata I/O, validation, and the diff/patch/bin-diff tooling martin-cp
// and the mbtiles CLI share.
//
// The package borrows its shape from the teacher's core/mbtiles — a
// process-wide notion of a "Tileset", sql.DB-backed, probed once at open
// time — generalized from the teacher's single flat-layout assumption to
// all three layouts §3 defines, and extended with the write path the
// teacher's read-only server never needed.
package mbtiles

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/terramesh/martin/core/tilecodec"
	"github.com/terramesh/martin/errs"
	"github.com/terramesh/martin/logging"
)

var log = logging.For("mbtiles")

// Layout is one of the three on-disk schemas §3 defines.
type Layout int

const (
	Flat Layout = iota
	FlatWithHash
	Normalized
)

func (l Layout) String() string {
	switch l {
	case FlatWithHash:
		return "flat-with-hash"
	case Normalized:
		return "normalized"
	default:
		return "flat"
	}
}

// ParseLayout parses the --layout flag value of the mbtiles CLI's diff
// command.
func ParseLayout(s string) (Layout, error) {
	switch s {
	case "flat", "":
		return Flat, nil
	case "flat-with-hash":
		return FlatWithHash, nil
	case "normalized":
		return Normalized, nil
	default:
		return 0, fmt.Errorf("unknown mbtiles layout %q", s)
	}
}

// DB is an open handle to an MBTiles archive, read-write capable regardless
// of layout — callers use GetTile/PutTile and GetMetadata/PutMetadata
// uniformly; the layout only changes which tables the engine touches.
type DB struct {
	Path     string
	Layout   Layout
	Format   tilecodec.Format
	ModTime  time.Time
	database *sql.DB
}

// Open opens an existing MBTiles file and determines its layout by probing
// for tiles_with_hash and map+images, the way the teacher's NewTileset
// probes for 'tiles'/'metadata' before anything else.
func Open(path string) (*DB, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, errs.New(errs.NotFound, path, err)
	}

	sqldb, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errs.New(errs.Decode, path, err)
	}
	sqldb.SetMaxOpenConns(1)

	layout, err := detectLayout(sqldb)
	if err != nil {
		sqldb.Close()
		return nil, errs.New(errs.Decode, path, err)
	}

	db := &DB{
		Path:     path,
		Layout:   layout,
		ModTime:  stat.ModTime().Round(time.Second),
		database: sqldb,
	}

	if format, ok := db.detectFormat(); ok {
		db.Format = format
	}

	return db, nil
}

// Create makes a new, empty MBTiles file at path with the given layout's
// schema, for use by martin-cp and mbtiles diff when producing output.
func Create(path string, layout Layout) (*DB, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, errs.Newf(errs.BadRequest, path, "refusing to overwrite existing file")
	}

	sqldb, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errs.New(errs.Decode, path, err)
	}
	sqldb.SetMaxOpenConns(1)

	if _, err := sqldb.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		sqldb.Close()
		return nil, errs.New(errs.Decode, path, err)
	}

	if err := createSchema(sqldb, layout); err != nil {
		sqldb.Close()
		return nil, errs.New(errs.Decode, path, err)
	}

	return &DB{Path: path, Layout: layout, database: sqldb}, nil
}

func createSchema(db *sql.DB, layout Layout) error {
	stmts := []string{
		`CREATE TABLE metadata (name TEXT, value TEXT)`,
		`CREATE UNIQUE INDEX metadata_name ON metadata (name)`,
	}

	switch layout {
	case Flat:
		stmts = append(stmts,
			`CREATE TABLE tiles (zoom_level INTEGER, tile_column INTEGER, tile_row INTEGER, tile_data BLOB)`,
			`CREATE UNIQUE INDEX tiles_zxy ON tiles (zoom_level, tile_column, tile_row)`,
		)
	case FlatWithHash:
		stmts = append(stmts,
			`CREATE TABLE tiles_with_hash (zoom_level INTEGER, tile_column INTEGER, tile_row INTEGER, tile_data BLOB, tile_hash TEXT)`,
			`CREATE UNIQUE INDEX tiles_with_hash_zxy ON tiles_with_hash (zoom_level, tile_column, tile_row)`,
			`CREATE VIEW tiles AS SELECT zoom_level, tile_column, tile_row, tile_data FROM tiles_with_hash`,
		)
	case Normalized:
		stmts = append(stmts,
			`CREATE TABLE map (zoom_level INTEGER, tile_column INTEGER, tile_row INTEGER, tile_id TEXT)`,
			`CREATE UNIQUE INDEX map_zxy ON map (zoom_level, tile_column, tile_row)`,
			`CREATE TABLE images (tile_id TEXT, tile_data BLOB)`,
			`CREATE UNIQUE INDEX images_id ON images (tile_id)`,
			`CREATE VIEW tiles AS SELECT map.zoom_level AS zoom_level, map.tile_column AS tile_column, map.tile_row AS tile_row, images.tile_data AS tile_data FROM map JOIN images ON map.tile_id = images.tile_id`,
			`CREATE VIEW tiles_with_hash AS SELECT map.zoom_level AS zoom_level, map.tile_column AS tile_column, map.tile_row AS tile_row, images.tile_data AS tile_data, images.tile_id AS tile_hash FROM map JOIN images ON map.tile_id = images.tile_id`,
		)
	}

	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

func detectLayout(db *sql.DB) (Layout, error) {
	has := func(name string) bool {
		var n int
		_ = db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE name = ?`, name).Scan(&n)
		return n > 0
	}

	if !has("tiles") && !has("map") {
		return 0, errors.New("missing required table or view: 'tiles'")
	}

	switch {
	case has("map") && has("images"):
		return Normalized, nil
	case has("tiles_with_hash"):
		return FlatWithHash, nil
	default:
		return Flat, nil
	}
}

func (db *DB) detectFormat() (tilecodec.Format, bool) {
	var data []byte
	if err := db.database.QueryRow(`SELECT tile_data FROM tiles LIMIT 1`).Scan(&data); err != nil {
		return 0, false
	}
	format, _ := tilecodec.Sniff(data)
	return format, true
}

// Close closes the underlying SQLite connection.
func (db *DB) Close() error {
	return db.database.Close()
}
