package pmtiles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZxyToIDRoundTrip(t *testing.T) {
	cases := []struct {
		z    uint8
		x, y uint32
	}{
		{0, 0, 0},
		{1, 0, 0},
		{1, 1, 1},
		{3, 5, 2},
		{8, 120, 77},
	}

	for _, c := range cases {
		id := ZxyToID(c.z, c.x, c.y)
		gotZ, gotX, gotY := IDToZxy(id)
		assert.Equal(t, c.z, gotZ, "z for %v", c)
		assert.Equal(t, c.x, gotX, "x for %v", c)
		assert.Equal(t, c.y, gotY, "y for %v", c)
	}
}

func TestZxyToIDZeroIsZero(t *testing.T) {
	assert.Equal(t, uint64(0), ZxyToID(0, 0, 0))
}

func TestZxyToIDMonotonicAcrossZoomBoundary(t *testing.T) {
	// The last tile id at zoom 0 must be smaller than the first at zoom 1.
	last0 := ZxyToID(0, 0, 0)
	first1 := ZxyToID(1, 0, 0)
	assert.Less(t, last0, first1)
}

func TestZxyToIDDistinctWithinZoom(t *testing.T) {
	seen := map[uint64]bool{}
	for x := uint32(0); x < 4; x++ {
		for y := uint32(0); y < 4; y++ {
			id := ZxyToID(2, x, y)
			assert.False(t, seen[id], "duplicate id for x=%d y=%d", x, y)
			seen[id] = true
		}
	}
	assert.Len(t, seen, 16)
}
