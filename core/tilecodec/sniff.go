package tilecodec

import "bytes"

// magic table mirrors the teacher's tileFomatPatterns in core/mbtiles,
// extended with the webp/gif/json signatures §4.1 names. Unlike the
// teacher, which folds PBF and GZIP into one bucket for a caller to
// disambiguate, Sniff reports gzip as an Encoding and falls through to MVT
// for anything else unrecognized, since MVT has no magic signature of its
// own.
var magic = []struct {
	prefix []byte
	format Format
	enc    Encoding
}{
	{[]byte{0x89, 0x50, 0x4E, 0x47}, PNG, Identity},
	{[]byte{0xFF, 0xD8, 0xFF}, JPEG, Identity},
	{[]byte("GIF8"), GIF, Identity},
	{[]byte{0x1F, 0x8B}, MVT, Gzip},
}

// Sniff inspects the first bytes of data and returns the tile's format and
// encoding. The MBTiles engine uses it on the first tile to set an
// archive's format and on every served tile for its encoding; the
// metadata table's format key is not consulted.
func Sniff(data []byte) (Format, Encoding) {
	for _, m := range magic {
		if bytes.HasPrefix(data, m.prefix) {
			return m.format, m.enc
		}
	}
	if isWebP(data) {
		return WEBP, Identity
	}
	if len(data) > 0 && (data[0] == '{' || data[0] == '[') {
		return JSONFormat, Identity
	}
	return MVT, Identity
}

func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		bytes.Equal(data[0:4], []byte("RIFF")) &&
		bytes.Equal(data[8:12], []byte("WEBP"))
}
