package tilecodec

import (
	"github.com/paulmach/orb/encoding/mvt"

	"github.com/terramesh/martin/errs"
)

// MergeMVT decodes each input (after undoing its encoding), concatenates
// their layer lists in input order, and returns one identity-encoded MVT
// tile. Empty inputs are skipped; layer-name collisions between inputs are
// preserved rather than deduplicated, since MVT renderers tolerate
// duplicate layer names and the spec requires the concatenation to be
// observable (§8 property 5).
//
// A single-input call is byte-equal to that input after a decode/re-encode
// round-trip (§8 property 3) because orb's mvt.Marshal is deterministic
// for a given Layers value.
func MergeMVT(tiles []TileData) (TileData, error) {
	var merged mvt.Layers

	for _, t := range tiles {
		if t.Empty() {
			continue
		}
		if t.Format != MVT {
			return TileData{}, errs.Newf(errs.BadRequest, "", "cannot merge non-MVT tile of format %s", t.Format)
		}

		decoded, err := Decode(t)
		if err != nil {
			return TileData{}, err
		}

		layers, err := mvt.Unmarshal(decoded.Bytes)
		if err != nil {
			return TileData{}, errs.New(errs.Decode, "", err)
		}

		merged = append(merged, layers...)
	}

	if len(merged) == 0 {
		return TileData{Bytes: nil, Format: MVT, Encoding: Identity}, nil
	}

	raw, err := mvt.Marshal(merged)
	if err != nil {
		return TileData{}, errs.New(errs.Decode, "", err)
	}

	return TileData{Bytes: raw, Format: MVT, Encoding: Identity}, nil
}
