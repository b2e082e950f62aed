package tilecodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSniffPNG(t *testing.T) {
	f, e := Sniff([]byte{0x89, 0x50, 0x4E, 0x47, 0x00, 0x00})
	assert.Equal(t, PNG, f)
	assert.Equal(t, Identity, e)
}

func TestSniffGzippedMVT(t *testing.T) {
	f, e := Sniff([]byte{0x1F, 0x8B, 0x08, 0x00})
	assert.Equal(t, MVT, f)
	assert.Equal(t, Gzip, e)
}

func TestSniffWebP(t *testing.T) {
	data := append([]byte("RIFF"), append([]byte{0, 0, 0, 0}, []byte("WEBP")...)...)
	f, e := Sniff(data)
	assert.Equal(t, WEBP, f)
	assert.Equal(t, Identity, e)
}

func TestSniffJSON(t *testing.T) {
	f, _ := Sniff([]byte(`{"a":1}`))
	assert.Equal(t, JSONFormat, f)
}

func TestSniffFallsBackToMVT(t *testing.T) {
	f, e := Sniff([]byte{0x1A, 0x02, 0x08, 0x01})
	assert.Equal(t, MVT, f)
	assert.Equal(t, Identity, e)
}
