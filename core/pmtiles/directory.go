package pmtiles

import (
	"encoding/binary"

	"github.com/terramesh/martin/errs"
)

// Entry is one row of a PMTiles directory: either a tile (RunLength >= 1,
// Offset/Length point into the tile data section) or a pointer to a leaf
// directory (RunLength == 0, Offset/Length point into the leaf
// directories section), the same tagged-row convention
// protomaps-go-pmtiles uses.
type Entry struct {
	TileID    uint64
	Offset    uint64
	Length    uint32
	RunLength uint32
}

func (e Entry) isLeaf() bool { return e.RunLength == 0 }

// Directory is a sorted-by-TileID list of entries, found via binary
// search in findEntry.
type Directory []Entry

// SerializeDirectory encodes entries in the column-oriented, delta + varint
// layout the PMTiles spec uses: entry count, then TileID deltas, then
// RunLengths, then Lengths, then Offsets (0 meaning "contiguous with the
// previous entry's end").
func SerializeDirectory(entries Directory) []byte {
	buf := make([]byte, 0, len(entries)*4)
	var tmp [binary.MaxVarintLen64]byte

	putUvarint := func(v uint64) {
		n := binary.PutUvarint(tmp[:], v)
		buf = append(buf, tmp[:n]...)
	}

	putUvarint(uint64(len(entries)))

	var prevID uint64
	for _, e := range entries {
		putUvarint(e.TileID - prevID)
		prevID = e.TileID
	}
	for _, e := range entries {
		putUvarint(uint64(e.RunLength))
	}
	for _, e := range entries {
		putUvarint(uint64(e.Length))
	}
	var prevEnd uint64
	for _, e := range entries {
		if e.Offset == prevEnd {
			putUvarint(0)
		} else {
			putUvarint(e.Offset + 1)
		}
		prevEnd = e.Offset + uint64(e.Length)
	}

	return buf
}

// DeserializeDirectory inverts SerializeDirectory.
func DeserializeDirectory(buf []byte) (Directory, error) {
	r := &varReader{buf: buf}

	n, err := r.uvarint()
	if err != nil {
		return nil, err
	}

	entries := make(Directory, n)

	var id uint64
	for i := range entries {
		delta, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		id += delta
		entries[i].TileID = id
	}
	for i := range entries {
		rl, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		entries[i].RunLength = uint32(rl)
	}
	for i := range entries {
		l, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		entries[i].Length = uint32(l)
	}
	var prevEnd uint64
	for i := range entries {
		v, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		if v == 0 {
			entries[i].Offset = prevEnd
		} else {
			entries[i].Offset = v - 1
		}
		prevEnd = entries[i].Offset + uint64(entries[i].Length)
	}

	return entries, nil
}

type varReader struct {
	buf []byte
	pos int
}

func (r *varReader) uvarint() (uint64, error) {
	v, n := binary.Uvarint(r.buf[r.pos:])
	if n <= 0 {
		return 0, errs.Newf(errs.Decode, "", "malformed pmtiles directory varint")
	}
	r.pos += n
	return v, nil
}

// findEntry binary searches entries for the entry whose [TileID,
// TileID+RunLength) range contains id (for a leaf-pointer entry,
// RunLength is treated as covering exactly one slot at TileID for the
// purpose of the search, since leaf pointers are not run-length
// compressed).
func findEntry(entries Directory, id uint64) (Entry, bool) {
	lo, hi := 0, len(entries)-1
	var found Entry
	ok := false

	for lo <= hi {
		mid := (lo + hi) / 2
		e := entries[mid]
		switch {
		case id < e.TileID:
			hi = mid - 1
		case !e.isLeaf() && id >= e.TileID+uint64(e.RunLength):
			lo = mid + 1
		case e.isLeaf() && id > e.TileID:
			lo = mid + 1
		default:
			found, ok = e, true
			lo = hi + 1
		}
	}

	return found, ok
}
