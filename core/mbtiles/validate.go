package mbtiles

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/terramesh/martin/errs"
)

// ValidateMode selects which of the four checks §4.2 describes to run.
type ValidateMode int

const (
	Quick ValidateMode = iota
	HashTiles
	AggHashCheck
	AggHashUpdate
)

func ParseValidateMode(s string) (ValidateMode, error) {
	switch s {
	case "quick", "":
		return Quick, nil
	case "hash-tiles":
		return HashTiles, nil
	case "agg-hash-check":
		return AggHashCheck, nil
	case "agg-hash-update":
		return AggHashUpdate, nil
	default:
		return 0, fmt.Errorf("unknown validate mode %q", s)
	}
}

// Result summarizes one Validate call.
type Result struct {
	Mode      ValidateMode
	OK        bool
	Message   string
	Computed  string // aggregate hash, for AggHashCheck/AggHashUpdate
	Mismatches int
}

// Validate runs the check named by mode against db.
func (db *DB) Validate(mode ValidateMode) (Result, error) {
	switch mode {
	case Quick:
		return db.validateQuick()
	case HashTiles:
		return db.validateHashTiles()
	case AggHashCheck:
		ok, computed, stored, err := db.CheckAggregateHash()
		if err != nil {
			return Result{}, err
		}
		msg := "aggregate hash matches"
		if !ok {
			msg = fmt.Sprintf("aggregate hash mismatch: computed %s, stored %s", computed, stored)
		}
		return Result{Mode: mode, OK: ok, Message: msg, Computed: computed}, nil
	case AggHashUpdate:
		computed, err := db.UpdateAggregateHash()
		if err != nil {
			return Result{}, err
		}
		return Result{Mode: mode, OK: true, Message: "aggregate hash updated", Computed: computed}, nil
	default:
		return Result{}, errs.Newf(errs.BadRequest, db.Path, "unknown validate mode")
	}
}

// validateQuick checks schema presence and the unique (z,x,y) index, per
// §4.2; it re-derives the layout instead of trusting db.Layout so a file
// tampered with after Open is still caught.
func (db *DB) validateQuick() (Result, error) {
	layout, err := detectLayout(db.database)
	if err != nil {
		return Result{Mode: Quick, OK: false, Message: err.Error()}, nil
	}

	indexName := map[Layout]string{
		Flat:         "tiles_zxy",
		FlatWithHash: "tiles_with_hash_zxy",
		Normalized:   "map_zxy",
	}[layout]

	var n int
	err = db.database.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type = 'index' AND name = ?`, indexName).Scan(&n)
	if err != nil {
		return Result{}, errs.New(errs.Decode, db.Path, err)
	}
	if n == 0 {
		return Result{Mode: Quick, OK: false, Message: fmt.Sprintf("missing unique index %s", indexName)}, nil
	}

	return Result{Mode: Quick, OK: true, Message: "schema and unique index present"}, nil
}

// validateHashTiles verifies tile_hash = md5(tile_data) for every row in
// flat-with-hash or normalized layouts, §4.2.
func (db *DB) validateHashTiles() (Result, error) {
	if db.Layout == Flat {
		return Result{Mode: HashTiles, OK: true, Message: "flat layout carries no per-tile hash, nothing to check"}, nil
	}

	rows, err := db.database.Query(`SELECT tile_data, tile_hash FROM tiles_with_hash`)
	if err != nil {
		return Result{}, errs.New(errs.Decode, db.Path, err)
	}
	defer rows.Close()

	mismatches := 0
	for rows.Next() {
		var data []byte
		var hash string
		if err := rows.Scan(&data, &hash); err != nil {
			return Result{}, errs.New(errs.Decode, db.Path, err)
		}
		sum := md5.Sum(data)
		if !strings.EqualFold(hex.EncodeToString(sum[:]), hash) {
			mismatches++
		}
	}
	if err := rows.Err(); err != nil {
		return Result{}, errs.New(errs.Decode, db.Path, err)
	}

	if mismatches > 0 {
		return Result{Mode: HashTiles, OK: false, Mismatches: mismatches, Message: fmt.Sprintf("%d tile(s) failed hash check", mismatches)}, nil
	}
	return Result{Mode: HashTiles, OK: true, Message: "all tile hashes verified"}, nil
}
