package pmtiles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderSerializeParseRoundTrip(t *testing.T) {
	h := Header{
		RootDirOffset:     127,
		RootDirLength:     512,
		TileDataOffset:    4096,
		TileDataLength:    1 << 20,
		NumAddressedTiles: 100,
		NumTileEntries:    90,
		NumTileContents:   80,
		Clustered:         true,
		TileCompression:   CompressionGzip,
		TileType:          TileTypeMVT,
		MinZoom:           0,
		MaxZoom:           14,
		MinLonE7:          -1800000000,
		MaxLonE7:          1800000000,
		CenterZoom:        3,
	}

	buf := h.Serialize()
	require.Len(t, buf, HeaderSize)

	got, err := ParseHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestParseHeaderRejectsBadMagic(t *testing.T) {
	buf := make([]byte, HeaderSize)
	_, err := ParseHeader(buf)
	assert.Error(t, err)
}

func TestParseHeaderRejectsShortBuffer(t *testing.T) {
	_, err := ParseHeader([]byte{'P', 'M'})
	assert.Error(t, err)
}
