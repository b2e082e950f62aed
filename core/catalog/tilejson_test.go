package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/terramesh/martin/core/tilecodec"
	"github.com/terramesh/martin/core/tilecoord"
)

type describedSource struct {
	fakeSource
	name, desc, attr string
	center           tilecoord.Center
}

func (d *describedSource) Name() string               { return d.name }
func (d *describedSource) Description() string        { return d.desc }
func (d *describedSource) Attribution() string        { return d.attr }
func (d *describedSource) Center() tilecoord.Center   { return d.center }

func TestBuildTileJSONPlainSource(t *testing.T) {
	s := &fakeSource{id: "a", format: tilecodec.MVT, min: 0, max: 14, bounds: tilecoord.BBox{-1, -2, 3, 4}}

	tj := BuildTileJSON(s, "http://host/a", "")
	assert.Equal(t, "3.0.0", tj.TileJSON)
	assert.Equal(t, "xyz", tj.Scheme)
	assert.Equal(t, "mvt", tj.Format)
	assert.Equal(t, []string{"http://host/a/{z}/{x}/{y}.mvt"}, tj.Tiles)
	assert.Equal(t, 0, tj.MinZoom)
	assert.Equal(t, 14, tj.MaxZoom)
	assert.Equal(t, [4]float64{-1, -2, 3, 4}, tj.Bounds)
	assert.Empty(t, tj.Name)
}

func TestBuildTileJSONWithQuerySuffix(t *testing.T) {
	s := &fakeSource{id: "a", format: tilecodec.PNG}
	tj := BuildTileJSON(s, "http://host/a", "?style=dark")
	assert.Equal(t, []string{"http://host/a/{z}/{x}/{y}.png?style=dark"}, tj.Tiles)
}

func TestBuildTileJSONDescriptor(t *testing.T) {
	s := &describedSource{
		fakeSource: fakeSource{id: "a", format: tilecodec.MVT},
		name:       "My Layer",
		desc:       "a description",
		attr:       "(c) me",
		center:     tilecoord.Center{1, 2, 3},
	}

	tj := BuildTileJSON(s, "http://host/a", "")
	assert.Equal(t, "My Layer", tj.Name)
	assert.Equal(t, "a description", tj.Description)
	assert.Equal(t, "(c) me", tj.Attribution)
	assert.Equal(t, [3]float64{1, 2, 3}, tj.Center)
}
