package mbtiles

import (
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"strings"

	"github.com/terramesh/martin/core/tilecoord"
	"github.com/terramesh/martin/errs"
)

// AggTilesHashKey is the metadata row name the aggregate hash is stored
// under, the wire contract §9 calls load-bearing across the server,
// martin-cp, and the mbtiles CLI.
const AggTilesHashKey = "agg_tiles_hash"

// frameTile appends the fixed binary framing of one (z, x, y, tile_data)
// triple to buf: a big-endian u8 zoom, u32 x, u32 y, then the raw tile
// bytes. Framing the integers instead of concatenating their decimal text
// avoids ambiguity between e.g. z=1,x=23 and z=12,x=3.
func frameTile(buf []byte, c tilecoord.Coord, data []byte) []byte {
	buf = append(buf, byte(c.Z))
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], c.X)
	buf = append(buf, tmp[:]...)
	binary.BigEndian.PutUint32(tmp[:], c.Y)
	buf = append(buf, tmp[:]...)
	buf = append(buf, data...)
	return buf
}

// AggregateHash computes the aggregate tile hash over every tile in the
// archive, sorted by (z, x, y): MD5 over the concatenation of each tile's
// fixed binary framing, rendered as uppercase hex (§9's resolution of the
// two fixture encodings observed). An empty archive yields MD5 of the
// empty string, the sentinel that falls out of the algorithm naturally.
func (db *DB) AggregateHash() (string, error) {
	coords, err := db.AllCoords()
	if err != nil {
		return "", err
	}

	h := md5.New()
	var buf []byte
	for _, c := range coords {
		data, err := db.GetTile(c)
		if err != nil {
			return "", err
		}
		buf = buf[:0]
		buf = frameTile(buf, c, data)
		if _, err := h.Write(buf); err != nil {
			return "", errs.New(errs.Decode, db.Path, err)
		}
	}

	return strings.ToUpper(hex.EncodeToString(h.Sum(nil))), nil
}

// CheckAggregateHash compares the computed aggregate hash against the
// value stored in metadata, used by `validate agg-hash-check`.
func (db *DB) CheckAggregateHash() (ok bool, computed, stored string, err error) {
	md, err := db.GetMetadata()
	if err != nil {
		return false, "", "", err
	}
	stored = md[AggTilesHashKey]

	computed, err = db.AggregateHash()
	if err != nil {
		return false, "", "", err
	}

	return strings.EqualFold(computed, stored), computed, stored, nil
}

// UpdateAggregateHash computes and stores the aggregate hash, used by
// `validate agg-hash-update` and at the end of every martin-cp run.
func (db *DB) UpdateAggregateHash() (string, error) {
	hash, err := db.AggregateHash()
	if err != nil {
		return "", err
	}
	if err := db.PutMetadata(AggTilesHashKey, hash); err != nil {
		return "", err
	}
	return hash, nil
}
