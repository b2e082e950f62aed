package tilecodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeForRoundTrip(t *testing.T) {
	raw := TileData{Bytes: []byte("some mvt bytes, repeated repeated repeated"), Format: MVT, Encoding: Identity}

	gz, err := EncodeFor(raw, map[Encoding]bool{Gzip: true, Identity: true})
	require.NoError(t, err)
	assert.Equal(t, Gzip, gz.Encoding)
	assert.NotEqual(t, raw.Bytes, gz.Bytes)

	back, err := Decode(gz)
	require.NoError(t, err)
	assert.Equal(t, raw.Bytes, back.Bytes)
	assert.Equal(t, Identity, back.Encoding)
}

func TestEncodeForPrefersBrotliOverGzip(t *testing.T) {
	raw := TileData{Bytes: []byte("tile bytes"), Format: MVT, Encoding: Identity}
	out, err := EncodeFor(raw, map[Encoding]bool{Gzip: true, Brotli: true, Identity: true})
	require.NoError(t, err)
	assert.Equal(t, Brotli, out.Encoding)
}

func TestEncodeForRasterStaysIdentityWhenNotAccepted(t *testing.T) {
	raw := TileData{Bytes: []byte{0x89, 0x50, 0x4E, 0x47}, Format: PNG, Encoding: Identity}
	out, err := EncodeFor(raw, map[Encoding]bool{Identity: true})
	require.NoError(t, err)
	assert.Equal(t, Identity, out.Encoding)
}

func TestEncodeForNoopWhenAlreadyTarget(t *testing.T) {
	raw := TileData{Bytes: []byte("abc"), Format: MVT, Encoding: Identity}
	out, err := EncodeFor(raw, map[Encoding]bool{Identity: true})
	require.NoError(t, err)
	assert.Equal(t, raw.Bytes, out.Bytes)
}

func TestDecodeIdentityIsNoop(t *testing.T) {
	raw := TileData{Bytes: []byte("abc"), Format: MVT, Encoding: Identity}
	out, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}
