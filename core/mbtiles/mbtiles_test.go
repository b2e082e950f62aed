package mbtiles

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terramesh/martin/core/tilecoord"
)

func newTestDB(t *testing.T, layout Layout) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.mbtiles")
	db, err := Create(path, layout)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPutGetTileFlat(t *testing.T) {
	db := newTestDB(t, Flat)
	c := tilecoord.Coord{Z: 2, X: 1, Y: 1}

	require.NoError(t, db.PutTile(c, []byte("tile bytes")))

	got, err := db.GetTile(c)
	require.NoError(t, err)
	assert.Equal(t, []byte("tile bytes"), got)
}

func TestGetTileMissingReturnsNil(t *testing.T) {
	db := newTestDB(t, Flat)
	got, err := db.GetTile(tilecoord.Coord{Z: 0, X: 0, Y: 0})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMetadataRoundTrip(t *testing.T) {
	db := newTestDB(t, Flat)
	require.NoError(t, db.PutMetadata("name", "My Tileset"))
	require.NoError(t, db.PutMetadata("format", "pbf"))

	md, err := db.GetMetadata()
	require.NoError(t, err)
	assert.Equal(t, "My Tileset", md["name"])
	assert.Equal(t, "pbf", md["format"])
}

func TestPutMetadataUpsert(t *testing.T) {
	db := newTestDB(t, Flat)
	require.NoError(t, db.PutMetadata("name", "first"))
	require.NoError(t, db.PutMetadata("name", "second"))

	md, err := db.GetMetadata()
	require.NoError(t, err)
	assert.Equal(t, "second", md["name"])
}

func TestAggregateHashEmptyArchive(t *testing.T) {
	db := newTestDB(t, Flat)
	hash, err := db.AggregateHash()
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
}

func TestAggregateHashChangesWithContent(t *testing.T) {
	db := newTestDB(t, Flat)
	h0, err := db.AggregateHash()
	require.NoError(t, err)

	require.NoError(t, db.PutTile(tilecoord.Coord{Z: 1, X: 0, Y: 0}, []byte("a")))

	h1, err := db.AggregateHash()
	require.NoError(t, err)
	assert.NotEqual(t, h0, h1)
}

func TestCheckAggregateHash(t *testing.T) {
	db := newTestDB(t, Flat)
	require.NoError(t, db.PutTile(tilecoord.Coord{Z: 1, X: 0, Y: 0}, []byte("a")))

	_, err := db.UpdateAggregateHash()
	require.NoError(t, err)

	ok, _, _, err := db.CheckAggregateHash()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestValidateHashTilesFlatWithHash(t *testing.T) {
	db := newTestDB(t, FlatWithHash)
	require.NoError(t, db.PutTile(tilecoord.Coord{Z: 3, X: 2, Y: 1}, []byte("payload")))

	result, err := db.Validate(HashTiles)
	require.NoError(t, err)
	assert.True(t, result.OK)
}

func TestValidateHashTilesFlatLayoutSkips(t *testing.T) {
	db := newTestDB(t, Flat)
	result, err := db.Validate(HashTiles)
	require.NoError(t, err)
	assert.True(t, result.OK)
}

func TestParseLayout(t *testing.T) {
	l, err := ParseLayout("flat-with-hash")
	require.NoError(t, err)
	assert.Equal(t, FlatWithHash, l)

	_, err = ParseLayout("bogus")
	assert.Error(t, err)
}

func TestParseValidateMode(t *testing.T) {
	m, err := ParseValidateMode("agg-hash-check")
	require.NoError(t, err)
	assert.Equal(t, AggHashCheck, m)

	_, err = ParseValidateMode("bogus")
	assert.Error(t, err)
}

func TestCreateRefusesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.mbtiles")
	db, err := Create(path, Flat)
	require.NoError(t, err)
	db.Close()

	_, err = Create(path, Flat)
	assert.Error(t, err)
}
