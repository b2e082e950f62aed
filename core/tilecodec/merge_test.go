package tilecodec

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mvtLayerTile(t *testing.T, layerName string, pt orb.Point) TileData {
	t.Helper()
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(pt))

	layer := mvt.NewLayer(layerName, fc)
	raw, err := mvt.Marshal(mvt.Layers{layer})
	require.NoError(t, err)

	return TileData{Bytes: raw, Format: MVT, Encoding: Identity}
}

func TestMergeMVTConcatenatesLayers(t *testing.T) {
	a := mvtLayerTile(t, "roads", orb.Point{100, 200})
	b := mvtLayerTile(t, "water", orb.Point{300, 400})

	merged, err := MergeMVT([]TileData{a, b})
	require.NoError(t, err)
	assert.Equal(t, MVT, merged.Format)
	assert.Equal(t, Identity, merged.Encoding)

	layers, err := mvt.Unmarshal(merged.Bytes)
	require.NoError(t, err)
	require.Len(t, layers, 2)
	assert.Equal(t, "roads", layers[0].Name)
	assert.Equal(t, "water", layers[1].Name)
}

func TestMergeMVTSkipsEmptyInputs(t *testing.T) {
	a := mvtLayerTile(t, "roads", orb.Point{1, 1})
	empty := TileData{Format: MVT, Encoding: Identity}

	merged, err := MergeMVT([]TileData{empty, a})
	require.NoError(t, err)

	layers, err := mvt.Unmarshal(merged.Bytes)
	require.NoError(t, err)
	require.Len(t, layers, 1)
	assert.Equal(t, "roads", layers[0].Name)
}

func TestMergeMVTAllEmptyYieldsEmptyTile(t *testing.T) {
	merged, err := MergeMVT([]TileData{{Format: MVT}, {Format: MVT}})
	require.NoError(t, err)
	assert.True(t, merged.Empty())
}

func TestMergeMVTRejectsNonMVT(t *testing.T) {
	_, err := MergeMVT([]TileData{{Bytes: []byte("x"), Format: PNG}})
	assert.Error(t, err)
}

func TestMergeMVTSingleInputRoundTrips(t *testing.T) {
	a := mvtLayerTile(t, "roads", orb.Point{5, 6})

	merged, err := MergeMVT([]TileData{a})
	require.NoError(t, err)
	assert.Equal(t, a.Bytes, merged.Bytes)
}
