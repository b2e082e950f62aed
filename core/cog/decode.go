package cog

import (
	"bytes"
	"compress/lzw"
	"compress/zlib"
	"image"
	"io"

	"github.com/gen2brain/webp"

	"github.com/terramesh/martin/errs"
)

// decodeRaw inflates raw per compression for the pixel-data compressions
// that aren't themselves an image container (JPEG/WebP decode straight to
// an image.Image instead and skip this path).
func decodeRaw(raw []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return raw, nil
	case CompressionDeflate:
		r, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, errs.New(errs.Decode, "", err)
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, errs.New(errs.Decode, "", err)
		}
		return out, nil
	case CompressionLZW:
		r := lzw.NewReader(bytes.NewReader(raw), lzw.MSB, 8)
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, errs.New(errs.Decode, "", err)
		}
		return out, nil
	default:
		return nil, errs.Newf(errs.Decode, "", "unsupported raw compression %d", c)
	}
}

// decodeWebP decodes a WebP-compressed internal tile, the compression COG
// encoders use for photographic overviews where JPEG's lossiness is
// undesirable but PNG/Deflate is too large.
func decodeWebP(raw []byte) (image.Image, error) {
	img, err := webp.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, errs.New(errs.Decode, "", err)
	}
	return img, nil
}
