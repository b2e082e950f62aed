package pmtiles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectorySerializeRoundTrip(t *testing.T) {
	entries := Directory{
		{TileID: 0, Offset: 0, Length: 100, RunLength: 1},
		{TileID: 1, Offset: 100, Length: 200, RunLength: 1},
		{TileID: 5, Offset: 5000, Length: 50, RunLength: 1},
	}

	buf := SerializeDirectory(entries)
	got, err := DeserializeDirectory(buf)
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestDirectoryFindEntryExactTile(t *testing.T) {
	entries := Directory{
		{TileID: 0, Offset: 0, Length: 10, RunLength: 1},
		{TileID: 3, Offset: 100, Length: 20, RunLength: 1},
		{TileID: 10, Offset: 200, Length: 30, RunLength: 1},
	}

	e, ok := findEntry(entries, 3)
	require.True(t, ok)
	assert.Equal(t, uint64(100), e.Offset)

	_, ok = findEntry(entries, 4)
	assert.False(t, ok)
}

func TestDirectoryFindEntryRunLength(t *testing.T) {
	entries := Directory{
		{TileID: 5, Offset: 500, Length: 40, RunLength: 3},
	}

	for _, id := range []uint64{5, 6, 7} {
		e, ok := findEntry(entries, id)
		require.True(t, ok, "id %d", id)
		assert.Equal(t, uint64(500), e.Offset)
	}

	_, ok := findEntry(entries, 8)
	assert.False(t, ok)
}

func TestDirectoryFindEntryLeafPointer(t *testing.T) {
	entries := Directory{
		{TileID: 5, Offset: 1000, Length: 64, RunLength: 0},
	}

	e, ok := findEntry(entries, 5)
	require.True(t, ok)
	assert.True(t, e.isLeaf())
}
