package catalog

import "fmt"

const (
	tileJSONVersion = "3.0.0"
	tileJSONScheme  = "xyz"
)

// TileJSON is the TileJSON 3.0.0 document served at GET /{ids} (§6),
// generalizing the teacher's model.TileJSON from a single-MBTiles-backed
// struct to one built from any TileSource, composite included.
type TileJSON struct {
	TileJSON    string     `json:"tilejson"`
	Name        string     `json:"name,omitempty"`
	Description string     `json:"description,omitempty"`
	Attribution string     `json:"attribution,omitempty"`
	Scheme      string     `json:"scheme"`
	Format      string     `json:"format,omitempty"`
	Tiles       []string   `json:"tiles"`
	MinZoom     int        `json:"minzoom"`
	MaxZoom     int        `json:"maxzoom"`
	Bounds      [4]float64 `json:"bounds,omitempty"`
	Center      [3]float64 `json:"center,omitempty"`
}

// BuildTileJSON synthesizes a TileJSON document for source, rooted at
// baseURL (already including the request's id path segment) and
// forwarding query, the raw "?..." suffix to append to the tiles URL
// template so source-specific url queries survive round-tripping through
// a client.
//
// For a Composite, name/description/attribution are left blank rather
// than concatenated from the children — the supplemental rule is that a
// composite's TileJSON describes the union's bounds/zoom range (each
// already widened by Composite.Bounds/ZoomRange) but carries no single
// source's prose metadata, since none of them individually describes the
// merged result.
func BuildTileJSON(source TileSource, baseURL, query string) *TileJSON {
	min, max := source.ZoomRange()
	bounds := source.Bounds()

	tj := &TileJSON{
		TileJSON: tileJSONVersion,
		Scheme:   tileJSONScheme,
		Format:   source.Format().String(),
		Tiles:    []string{fmt.Sprintf("%s/{z}/{x}/{y}.%s%s", baseURL, source.Format(), query)},
		MinZoom:  int(min),
		MaxZoom:  int(max),
		Bounds:   [4]float64(bounds),
	}

	if d, ok := source.(Descriptor); ok {
		tj.Name = d.Name()
		tj.Description = d.Description()
		tj.Attribution = d.Attribution()
		tj.Center = [3]float64(d.Center())
	}

	return tj
}
