package pmtiles

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/terramesh/martin/core/tilecodec"
	"github.com/terramesh/martin/core/tilecoord"
	"github.com/terramesh/martin/errs"
)

// Archive is an open PMTiles v3 source, satisfying catalog.TileSource.
type Archive struct {
	id      string
	fetcher Fetcher
	header  Header
	root    Directory
	leafLRU *lru.Cache[uint64, Directory]
	meta    archiveMeta
}

type archiveMeta struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Attribution string     `json:"attribution"`
	Center      [3]float64 `json:"center"`
}

// Open reads the header, root directory and JSON metadata from fetcher and
// returns a ready Archive. fetcher.Fetch(0, HeaderSize) must return the
// archive's leading bytes.
func Open(ctx context.Context, id string, fetcher Fetcher) (*Archive, error) {
	headerBuf, err := fetcher.Fetch(ctx, 0, HeaderSize)
	if err != nil {
		return nil, err
	}
	header, err := ParseHeader(headerBuf)
	if err != nil {
		return nil, err
	}

	rootBuf, err := fetcher.Fetch(ctx, header.RootDirOffset, header.RootDirLength)
	if err != nil {
		return nil, err
	}
	rootBuf, err = decompress(rootBuf, header.InternalCompression)
	if err != nil {
		return nil, err
	}
	root, err := DeserializeDirectory(rootBuf)
	if err != nil {
		return nil, err
	}

	leafLRU, _ := lru.New[uint64, Directory](256)

	a := &Archive{id: id, fetcher: fetcher, header: header, root: root, leafLRU: leafLRU}

	if header.JSONMetadataLength > 0 {
		metaBuf, err := fetcher.Fetch(ctx, header.JSONMetadataOffset, header.JSONMetadataLength)
		if err == nil {
			if metaBuf, err = decompress(metaBuf, header.InternalCompression); err == nil {
				_ = json.Unmarshal(metaBuf, &a.meta)
			}
		}
	}

	return a, nil
}

func (a *Archive) ID() string { return a.id }

func (a *Archive) Bounds() tilecoord.BBox {
	return tilecoord.BBox{
		float64(a.header.MinLonE7) / 1e7,
		float64(a.header.MinLatE7) / 1e7,
		float64(a.header.MaxLonE7) / 1e7,
		float64(a.header.MaxLatE7) / 1e7,
	}
}

func (a *Archive) ZoomRange() (min, max uint8) { return a.header.MinZoom, a.header.MaxZoom }

func (a *Archive) Format() tilecodec.Format {
	switch a.header.TileType {
	case TileTypeMVT:
		return tilecodec.MVT
	case TileTypePNG:
		return tilecodec.PNG
	case TileTypeJPEG:
		return tilecodec.JPEG
	case TileTypeWEBP:
		return tilecodec.WEBP
	default:
		return tilecodec.UnknownFormat
	}
}

func (a *Archive) SupportsURLQuery() bool { return false }

func (a *Archive) Name() string        { return a.meta.Name }
func (a *Archive) Description() string { return a.meta.Description }
func (a *Archive) Attribution() string { return a.meta.Attribution }
func (a *Archive) Center() tilecoord.Center {
	if a.meta.Center != [3]float64{} {
		return tilecoord.Center(a.meta.Center)
	}
	return tilecoord.Center{
		float64(a.header.CenterLonE7) / 1e7,
		float64(a.header.CenterLatE7) / 1e7,
		float64(a.header.CenterZoom),
	}
}

// GetTile resolves c to a PMTiles global id, walks the directory tree
// (fetching and caching leaf directories as needed) and returns the raw
// tile bytes tagged with the archive's declared format/compression.
func (a *Archive) GetTile(ctx context.Context, c tilecoord.Coord, _ string) (tilecodec.TileData, error) {
	id := ZxyToID(c.Z, c.X, c.Y)

	entry, ok, err := a.resolve(ctx, a.root, id, 0)
	if err != nil {
		return tilecodec.TileData{}, err
	}
	if !ok {
		return tilecodec.TileData{}, errs.Newf(errs.NotFound, a.id, "tile %s not found", c)
	}

	data, err := a.fetcher.Fetch(ctx, a.header.TileDataOffset+entry.Offset, uint64(entry.Length))
	if err != nil {
		return tilecodec.TileData{}, err
	}

	return tilecodec.TileData{Bytes: data, Format: a.Format(), Encoding: toTileEncoding(a.header.TileCompression)}, nil
}

// resolve walks up to 4 levels of leaf directories (the PMTiles spec's own
// limit) looking for id, recursing into cached or freshly fetched leaves.
func (a *Archive) resolve(ctx context.Context, dir Directory, id uint64, depth int) (Entry, bool, error) {
	if depth > 4 {
		return Entry{}, false, errs.Newf(errs.Decode, a.id, "pmtiles directory recursion too deep")
	}

	entry, ok := findEntry(dir, id)
	if !ok {
		return Entry{}, false, nil
	}
	if !entry.isLeaf() {
		return entry, true, nil
	}

	leaf, err := a.leafDirectory(ctx, entry.Offset, entry.Length)
	if err != nil {
		return Entry{}, false, err
	}

	return a.resolve(ctx, leaf, id, depth+1)
}

func (a *Archive) leafDirectory(ctx context.Context, offset uint64, length uint32) (Directory, error) {
	if dir, ok := a.leafLRU.Get(offset); ok {
		return dir, nil
	}

	buf, err := a.fetcher.Fetch(ctx, a.header.LeafDirsOffset+offset, uint64(length))
	if err != nil {
		return nil, err
	}
	buf, err = decompress(buf, a.header.InternalCompression)
	if err != nil {
		return nil, err
	}
	dir, err := DeserializeDirectory(buf)
	if err != nil {
		return nil, err
	}

	a.leafLRU.Add(offset, dir)
	return dir, nil
}

func decompress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone, CompressionUnknown:
		return data, nil
	case CompressionGzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, errs.New(errs.Decode, "", err)
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, errs.New(errs.Decode, "", err)
		}
		return out, nil
	case CompressionBrotli:
		out, err := io.ReadAll(brotli.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, errs.New(errs.Decode, "", err)
		}
		return out, nil
	case CompressionZstd:
		zr, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, errs.New(errs.Decode, "", err)
		}
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, errs.New(errs.Decode, "", err)
		}
		return out, nil
	default:
		return data, nil
	}
}

func toTileEncoding(c Compression) tilecodec.Encoding {
	switch c {
	case CompressionGzip:
		return tilecodec.Gzip
	case CompressionBrotli:
		return tilecodec.Brotli
	case CompressionZstd:
		return tilecodec.Zstd
	default:
		return tilecodec.Identity
	}
}
