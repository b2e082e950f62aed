package cog

import (
	"bytes"
	"context"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"

	"github.com/terramesh/martin/core/tilecodec"
	"github.com/terramesh/martin/core/tilecoord"
	"github.com/terramesh/martin/errs"
)

const webMercatorExtent = 20037508.342789244

// Archive is an open Cloud-Optimized GeoTIFF, satisfying
// catalog.TileSource. Overview selection assumes the common COG layout
// where IFD 0 is full resolution and each following IFD halves it —
// true of gdal_translate's default overview generation, the encoder the
// supplemental feature targets.
type Archive struct {
	id   string
	path string
	f    *os.File
	ifds []ifd
}

// Open parses path's IFD chain and returns a ready Archive.
func Open(id, path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.New(errs.NotFound, path, err)
	}

	var bom [4]byte
	if _, err := f.ReadAt(bom[:], 0); err != nil {
		f.Close()
		return nil, errs.New(errs.Decode, path, err)
	}

	var bo binary.ByteOrder
	switch {
	case bom[0] == 'I' && bom[1] == 'I':
		bo = binary.LittleEndian
	case bom[0] == 'M' && bom[1] == 'M':
		bo = binary.BigEndian
	default:
		f.Close()
		return nil, errs.Newf(errs.Decode, path, "not a TIFF file")
	}

	var firstOffBuf [4]byte
	if _, err := f.ReadAt(firstOffBuf[:], 4); err != nil {
		f.Close()
		return nil, errs.New(errs.Decode, path, err)
	}
	first := bo.Uint32(firstOffBuf[:])

	ifds, err := readIFDs(f, bo, first)
	if err != nil {
		f.Close()
		return nil, err
	}
	if len(ifds) == 0 {
		f.Close()
		return nil, errs.Newf(errs.Decode, path, "no IFDs found")
	}

	return &Archive{id: id, path: path, f: f, ifds: ifds}, nil
}

func (a *Archive) ID() string { return a.id }

func (a *Archive) Bounds() tilecoord.BBox {
	base := a.ifds[0]
	west := base.tiepointX
	north := base.tiepointY
	east := west + float64(base.width)*base.pixelScaleX
	south := north - float64(base.height)*base.pixelScaleY
	return tilecoord.BBox{west, south, east, north}
}

func (a *Archive) ZoomRange() (min, max uint8) {
	return 0, uint8(len(a.ifds) - 1)
}

func (a *Archive) Format() tilecodec.Format { return tilecodec.PNG }

func (a *Archive) SupportsURLQuery() bool { return false }

// GetTile picks the overview level nearest the requested zoom, locates the
// internal tile covering the requested coordinate's pixel origin, decodes
// it and resamples (nearest-neighbor) to a 256x256 PNG.
func (a *Archive) GetTile(_ context.Context, c tilecoord.Coord, _ string) (tilecodec.TileData, error) {
	level := len(a.ifds) - 1 - int(c.Z)
	if level < 0 {
		level = 0
	}
	d := a.ifds[level]

	lon, lat := tileOrigin(c)
	px, py := lonLatToPixel(lon, lat, d)

	tilesAcross := (d.width + d.tileWidth - 1) / d.tileWidth
	tx := px / d.tileWidth
	ty := py / d.tileHeight
	tileIndex := ty*tilesAcross + tx

	if int(tileIndex) >= len(d.tileOffsets) {
		return tilecodec.TileData{}, errs.Newf(errs.NotFound, a.id, "tile %s outside raster extent", c)
	}

	raw := make([]byte, d.tileByteCounts[tileIndex])
	if _, err := a.f.ReadAt(raw, int64(d.tileOffsets[tileIndex])); err != nil {
		return tilecodec.TileData{}, errs.New(errs.Decode, a.path, err)
	}

	img, err := decodeInternalTile(raw, d)
	if err != nil {
		return tilecodec.TileData{}, err
	}

	resized := resampleNearest(img, 256, 256)

	var buf bytes.Buffer
	if err := png.Encode(&buf, resized); err != nil {
		return tilecodec.TileData{}, errs.New(errs.Decode, a.path, err)
	}

	return tilecodec.TileData{Bytes: buf.Bytes(), Format: tilecodec.PNG, Encoding: tilecodec.Identity}, nil
}

// tileOrigin returns the (lon, lat) of a tile's top-left corner in Web
// Mercator-derived geographic coordinates.
func tileOrigin(c tilecoord.Coord) (lon, lat float64) {
	n := math.Exp2(float64(c.Z))
	lon = float64(c.X)/n*360.0 - 180.0
	latRad := math.Atan(math.Sinh(math.Pi * (1 - 2*float64(c.Y)/n)))
	lat = latRad * 180.0 / math.Pi
	return lon, lat
}

func lonLatToPixel(lon, lat float64, d ifd) (x, y uint32) {
	if d.pixelScaleX == 0 || d.pixelScaleY == 0 {
		return 0, 0
	}
	px := (lon - d.tiepointX) / d.pixelScaleX
	py := (d.tiepointY - lat) / d.pixelScaleY
	if px < 0 {
		px = 0
	}
	if py < 0 {
		py = 0
	}
	if uint32(px) >= d.width {
		px = float64(d.width - 1)
	}
	if uint32(py) >= d.height {
		py = float64(d.height - 1)
	}
	return uint32(px), uint32(py)
}

func decodeInternalTile(raw []byte, d ifd) (image.Image, error) {
	switch d.compression {
	case CompressionJPEG:
		img, err := jpeg.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, errs.New(errs.Decode, "", err)
		}
		return img, nil
	case CompressionWebP:
		img, err := decodeWebP(raw)
		if err != nil {
			return nil, err
		}
		return img, nil
	case CompressionDeflate, CompressionLZW, CompressionNone:
		plain, err := decodeRaw(raw, d.compression)
		if err != nil {
			return nil, err
		}
		return grayOrRGBFromRaw(plain, d)
	default:
		return nil, errs.Newf(errs.Decode, "", "unsupported COG compression %d", d.compression)
	}
}

func resampleNearest(src image.Image, w, h int) image.Image {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		sy := b.Min.Y + y*b.Dy()/h
		for x := 0; x < w; x++ {
			sx := b.Min.X + x*b.Dx()/w
			dst.Set(x, y, src.At(sx, sy))
		}
	}
	return dst
}

func grayOrRGBFromRaw(plain []byte, d ifd) (image.Image, error) {
	n := int(d.tileWidth) * int(d.tileHeight)
	switch {
	case len(plain) >= n*3:
		img := image.NewRGBA(image.Rect(0, 0, int(d.tileWidth), int(d.tileHeight)))
		for i := 0; i < n; i++ {
			r, g, b := plain[i*3], plain[i*3+1], plain[i*3+2]
			img.Set(i%int(d.tileWidth), i/int(d.tileWidth), color.RGBA{r, g, b, 255})
		}
		return img, nil
	case len(plain) >= n:
		img := image.NewGray(image.Rect(0, 0, int(d.tileWidth), int(d.tileHeight)))
		copy(img.Pix, plain[:n])
		return img, nil
	default:
		return nil, errs.Newf(errs.Decode, "", "decoded tile shorter than expected: got %d bytes, want %d", len(plain), n)
	}
}
