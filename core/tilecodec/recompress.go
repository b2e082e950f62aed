package tilecodec

import (
	"bytes"
	"compress/gzip"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"

	"github.com/terramesh/martin/errs"
)

// acceptPriority is the order in which encodings are preferred when more
// than one is accepted, per §4.1: br, gzip, zstd, identity.
var acceptPriority = []Encoding{Brotli, Gzip, Zstd, Identity}

// Decode returns t with Bytes decompressed and Encoding set to Identity.
// Decoding an already-identity tile is a no-op.
func Decode(t TileData) (TileData, error) {
	if t.Encoding == Identity {
		return t, nil
	}
	raw, err := decompress(t.Bytes, t.Encoding)
	if err != nil {
		return TileData{}, errs.New(errs.Decode, "", err)
	}
	return TileData{Bytes: raw, Format: t.Format, Encoding: Identity}, nil
}

func decompress(data []byte, enc Encoding) ([]byte, error) {
	switch enc {
	case Identity:
		return data, nil
	case Gzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case Brotli:
		return io.ReadAll(brotli.NewReader(bytes.NewReader(data)))
	case Zstd:
		zr, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(zr)
	default:
		return data, nil
	}
}

func compress(data []byte, enc Encoding) ([]byte, error) {
	var buf bytes.Buffer
	switch enc {
	case Identity:
		return data, nil
	case Gzip:
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	case Brotli:
		w := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	case Zstd:
		w, err := zstd.NewWriter(&buf)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	default:
		return data, nil
	}
	return buf.Bytes(), nil
}

// EncodeFor chooses, in priority order, the first encoding in accepted
// that is present, re-encoding t if its current encoding doesn't match.
// Raster formats are kept identity unless the caller explicitly accepts a
// non-identity encoding for them, per §4.1.
func EncodeFor(t TileData, accepted map[Encoding]bool) (TileData, error) {
	target := Identity
	for _, e := range acceptPriority {
		if accepted[e] {
			target = e
			break
		}
	}

	if t.Format.IsRaster() && target != Identity && !accepted[target] {
		target = Identity
	}

	if t.Encoding == target {
		return t, nil
	}

	decoded, err := Decode(t)
	if err != nil {
		return TileData{}, err
	}

	if target == Identity {
		return decoded, nil
	}

	encoded, err := compress(decoded.Bytes, target)
	if err != nil {
		return TileData{}, errs.New(errs.Decode, "", err)
	}
	return TileData{Bytes: encoded, Format: decoded.Format, Encoding: target}, nil
}
