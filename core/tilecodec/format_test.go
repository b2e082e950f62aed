package tilecodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatJSONRoundTrip(t *testing.T) {
	for _, f := range []Format{MVT, PNG, JPEG, WEBP, GIF, JSONFormat} {
		b, err := f.MarshalJSON()
		assert.NoError(t, err)

		var got Format
		assert.NoError(t, got.UnmarshalJSON(b))
		assert.Equal(t, f, got)
	}
}

func TestFormatUnmarshalUnknown(t *testing.T) {
	var f Format
	assert.NoError(t, f.UnmarshalJSON([]byte(`"bogus"`)))
	assert.Equal(t, UnknownFormat, f)
}

func TestFormatContentType(t *testing.T) {
	assert.Equal(t, "application/x-protobuf", MVT.ContentType())
	assert.Equal(t, "image/png", PNG.ContentType())
	assert.Equal(t, "application/octet-stream", UnknownFormat.ContentType())
}

func TestFormatIsRaster(t *testing.T) {
	assert.True(t, PNG.IsRaster())
	assert.True(t, WEBP.IsRaster())
	assert.False(t, MVT.IsRaster())
	assert.False(t, JSONFormat.IsRaster())
}

func TestEncodingHeaderValue(t *testing.T) {
	assert.Equal(t, "", Identity.HeaderValue())
	assert.Equal(t, "gzip", Gzip.HeaderValue())
	assert.Equal(t, "br", Brotli.HeaderValue())
	assert.Equal(t, "zstd", Zstd.HeaderValue())
}

func TestTileDataEmpty(t *testing.T) {
	assert.True(t, TileData{}.Empty())
	assert.False(t, TileData{Bytes: []byte{1}}.Empty())
}
