// Package tilecodec implements the tile blob codec (C1): content-type and
// encoding sniffing, recompression between identity/gzip/br/zstd, and
// protobuf-layer merging of multiple MVT tiles into one.
//
// The TileFormat/TileEncoding enums below follow the same pattern as the
// teacher's core/mbtiles.TileFormat — an int type, a string table, and
// JSON (un)marshalers driven off that table — generalized to the six
// wire formats and four encodings the full spec needs.
package tilecodec

import "encoding/json"

// Format is the decoded payload shape of a tile.
type Format int

const (
	UnknownFormat Format = iota
	MVT
	PNG
	JPEG
	WEBP
	GIF
	JSONFormat
)

var formatStrings = [...]string{"", "mvt", "png", "jpg", "webp", "gif", "json"}

func (f Format) String() string {
	if int(f) < 0 || int(f) >= len(formatStrings) {
		return ""
	}
	return formatStrings[f]
}

func (f Format) MarshalJSON() ([]byte, error) { return json.Marshal(f.String()) }

func (f *Format) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*f = stringToFormat(s)
	return nil
}

func stringToFormat(s string) Format {
	for i, v := range formatStrings {
		if v == s && i != 0 {
			return Format(i)
		}
	}
	return UnknownFormat
}

// ContentType returns the MIME content type for the format, whatever its
// encoding; Content-Encoding is set separately by the caller from the
// tile's Encoding, which may be Identity.
func (f Format) ContentType() string {
	switch f {
	case MVT:
		return "application/x-protobuf"
	case PNG:
		return "image/png"
	case JPEG:
		return "image/jpeg"
	case WEBP:
		return "image/webp"
	case GIF:
		return "image/gif"
	case JSONFormat:
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// IsRaster reports whether the format is a raster image, as opposed to
// vector (MVT) or metadata (JSON/grid) payloads.
func (f Format) IsRaster() bool {
	switch f {
	case PNG, JPEG, WEBP, GIF:
		return true
	default:
		return false
	}
}

// Encoding is the byte-level compression a tile's bytes carry.
type Encoding int

const (
	Identity Encoding = iota
	Gzip
	Brotli
	Zstd
)

var encodingStrings = [...]string{"identity", "gzip", "br", "zstd"}

func (e Encoding) String() string {
	if int(e) < 0 || int(e) >= len(encodingStrings) {
		return "identity"
	}
	return encodingStrings[e]
}

// HeaderValue is the Content-Encoding header value, empty for Identity.
func (e Encoding) HeaderValue() string {
	if e == Identity {
		return ""
	}
	return e.String()
}

// TileData is the codec's unit of work: an opaque byte slice tagged with
// the format it decodes to and the encoding currently applied to it.
type TileData struct {
	Bytes    []byte
	Format   Format
	Encoding Encoding
}

// Empty reports whether this is a zero-length "known empty" tile, distinct
// from a tile that is simply absent from its source (data model, §3).
func (t TileData) Empty() bool { return len(t.Bytes) == 0 }
