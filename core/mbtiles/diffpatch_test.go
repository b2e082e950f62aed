package mbtiles

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terramesh/martin/core/tilecoord"
)

func TestDiffAndApplyPatchRoundTrip(t *testing.T) {
	a := newTestDB(t, Flat)
	require.NoError(t, a.PutTile(tilecoord.Coord{Z: 1, X: 0, Y: 0}, []byte("v1")))
	require.NoError(t, a.PutTile(tilecoord.Coord{Z: 1, X: 1, Y: 0}, []byte("stays the same")))

	b := newTestDB(t, Flat)
	require.NoError(t, b.PutTile(tilecoord.Coord{Z: 1, X: 0, Y: 0}, []byte("v2")))
	require.NoError(t, b.PutTile(tilecoord.Coord{Z: 1, X: 1, Y: 0}, []byte("stays the same")))

	patchPath := filepath.Join(t.TempDir(), "patch.mbtiles")
	patch, err := Create(patchPath, Flat)
	require.NoError(t, err)
	defer patch.Close()

	require.NoError(t, Diff(a, b, patch, DiffOptions{}))

	require.NoError(t, ApplyPatch(a, patch))

	got, err := a.GetTile(tilecoord.Coord{Z: 1, X: 0, Y: 0})
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	unchanged, err := a.GetTile(tilecoord.Coord{Z: 1, X: 1, Y: 0})
	require.NoError(t, err)
	assert.Equal(t, []byte("stays the same"), unchanged)

	aHash, err := a.AggregateHash()
	require.NoError(t, err)
	bHash, err := b.AggregateHash()
	require.NoError(t, err)
	assert.Equal(t, bHash, aHash)
}

func TestApplyPatchRejectsWrongBase(t *testing.T) {
	a := newTestDB(t, Flat)
	require.NoError(t, a.PutTile(tilecoord.Coord{Z: 1, X: 0, Y: 0}, []byte("not what the patch expects")))

	b := newTestDB(t, Flat)
	require.NoError(t, b.PutTile(tilecoord.Coord{Z: 1, X: 0, Y: 0}, []byte("target")))
	c := newTestDB(t, Flat)
	require.NoError(t, c.PutTile(tilecoord.Coord{Z: 1, X: 0, Y: 0}, []byte("updated")))

	patchPath := filepath.Join(t.TempDir(), "patch.mbtiles")
	patch, err := Create(patchPath, Flat)
	require.NoError(t, err)
	defer patch.Close()
	require.NoError(t, Diff(b, c, patch, DiffOptions{}))

	err = ApplyPatch(a, patch)
	assert.Error(t, err)
}

func TestHasTileMatching(t *testing.T) {
	db := newTestDB(t, FlatWithHash)
	c := tilecoord.Coord{Z: 2, X: 1, Y: 1}
	require.NoError(t, db.PutTile(c, []byte("payload")))

	sum := tileHashHex([]byte("payload"))
	ok, err := db.HasTileMatching(c, sum)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.HasTileMatching(c, tileHashHex([]byte("other")))
	require.NoError(t, err)
	assert.False(t, ok)
}
