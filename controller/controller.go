// Package controller holds the HTTP handlers, generalizing the teacher's
// package-level TileJSONGET/TileGET functions (closed over a single
// package-level *url.URL) into methods on a Controller that closes over
// the catalog, pipeline, PostGIS pool and asset paths explicitly — needed
// once a request can touch five different source kinds and a refreshable
// catalog instead of one global tileset map.
package controller

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/terramesh/martin/config"
	"github.com/terramesh/martin/core/catalog"
	"github.com/terramesh/martin/core/pipeline"
	"github.com/terramesh/martin/core/postgis"
	"github.com/terramesh/martin/core/tilecodec"
	"github.com/terramesh/martin/core/tilecoord"
	"github.com/terramesh/martin/errs"
	"github.com/terramesh/martin/logging"
	"github.com/terramesh/martin/model"
	"github.com/terramesh/martin/view"
)

var log = logging.For("controller")

// Discoverer re-runs catalog discovery, returning the new source set and
// the (possibly new) PostGIS pool, so RefreshPOST can swap both.
type Discoverer func(ctx context.Context) (sources []catalog.TileSource, pool *postgis.Pool)

// Controller holds every dependency a handler needs.
type Controller struct {
	Catalog    *catalog.Catalog
	Pipeline   *pipeline.Pipeline
	Pool       *postgis.Pool
	Config     config.Config
	Discoverer Discoverer
}

// IndexGET serves as a liveness ping at the bare API root, the teacher's
// index handler kept for parity with its own "/v1" GET.
func (c *Controller) IndexGET(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	view.RenderJSON(w, map[string]string{"service": "martin"}, http.StatusOK)
}

// HealthGET reports overall and per-subsystem readiness.
func (c *Controller) HealthGET(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	subsystems := map[string]model.Status{
		"catalog": model.StatusOK,
	}
	if len(c.Catalog.List()) == 0 {
		subsystems["catalog"] = model.StatusDegraded
	}
	if c.Pool != nil {
		if c.Pool.Healthy(r.Context()) {
			subsystems["postgis"] = model.StatusOK
		} else {
			subsystems["postgis"] = model.StatusDegraded
		}
	}

	health := model.NewHealth(subsystems)
	status := http.StatusOK
	if health.Status == model.StatusDegraded {
		status = http.StatusServiceUnavailable
	}
	view.RenderJSON(w, health, status)
}

// catalogEntry is one row of the GET /catalog tiles map.
type catalogEntry struct {
	Format  string `json:"format"`
	MinZoom int    `json:"minzoom"`
	MaxZoom int    `json:"maxzoom"`
}

// CatalogGET lists every registered source alongside the sprite/font/style
// asset collections discovered under their configured directories (§6,
// §12 — Non-goals exclude generating those assets, not describing them).
func (c *Controller) CatalogGET(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	tiles := map[string]catalogEntry{}
	for _, s := range c.Catalog.List() {
		min, max := s.ZoomRange()
		tiles[s.ID()] = catalogEntry{Format: s.Format().String(), MinZoom: int(min), MaxZoom: int(max)}
	}

	view.RenderJSON(w, map[string]any{
		"tiles":   tiles,
		"sprites": listAssetIDs(c.Config.SpritesPath, ".json"),
		"fonts":   listAssetIDs(c.Config.FontsPath, ".pbf"),
		"styles":  listAssetIDs(c.Config.StylesPath, ".json"),
	}, http.StatusOK)
}

// RefreshPOST re-runs catalog discovery in place, the live-reload
// operation §6 requires without a process restart.
func (c *Controller) RefreshPOST(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	sources, pool := c.Discoverer(r.Context())
	c.Catalog.Replace(sources)
	if pool != nil {
		c.Pool = pool
	}
	view.RenderJSON(w, map[string]int{"sources": len(sources)}, http.StatusOK)
}

// TileJSONGET serves GET /{ids}: the TileJSON document for a single or
// composite source.
func (c *Controller) TileJSONGET(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ids := splitIDs(ps.ByName("ids"))

	source, err := c.Catalog.Resolve(ids)
	if err != nil {
		writeErr(w, err)
		return
	}

	base := fmt.Sprintf("%s/%s", strings.TrimRight(c.Config.BaseURL, "/"), ps.ByName("ids"))
	query := ""
	if q := r.URL.Query().Encode(); q != "" {
		query = "?" + q
	}

	tj := catalog.BuildTileJSON(source, base, query)
	view.RenderJSON(w, tj, http.StatusOK)
}

// TileGET serves GET /{ids}/{z}/{x}/{y}[.{ext}], the §4.8 pipeline entry
// point: resolve, cache-or-fetch, encode for Accept-Encoding, ETag/304.
func (c *Controller) TileGET(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ids := splitIDs(ps.ByName("ids"))

	coord, _, err := tilecoord.Parse(ps.ByName("z"), ps.ByName("x"), ps.ByName("y"))
	if err != nil {
		writeErr(w, err)
		return
	}

	accept := pipeline.ParseAccept(r.Header.Get("Accept-Encoding"))

	result, err := c.Pipeline.Handle(r.Context(), ids, coord, r.URL.RawQuery, accept)
	if err != nil {
		writeErr(w, err)
		return
	}

	view.Tile(w, result.Tile.Bytes, result.Tile.Format, result.Tile.Encoding, result.ETag, r.Header.Get("If-None-Match"))
}

// SpriteGET, FontGET and StyleGET serve pre-built assets byte-exact from
// their configured directories; this repository does not generate sprite
// sheets, glyph ranges or style documents (§1 Non-goal).
// SpriteGET serves GET /sprite/{ids}[@2x].{json|png} (and SDFSpriteGET the
// /sdf_sprite/ counterpart) from a single {idsext} path segment, since
// httprouter params stop at the segment's last dot only by convention —
// the extension and optional @2x suffix are both part of the on-disk
// filename this just looks up verbatim.
func (c *Controller) SpriteGET(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	serveSpriteLike(w, c.Config.SpritesPath, ps.ByName("idsext"))
}

func (c *Controller) SDFSpriteGET(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	serveSpriteLike(w, c.Config.SpritesPath, ps.ByName("idsext"))
}

func serveSpriteLike(w http.ResponseWriter, dir, idsext string) {
	ext := filepath.Ext(idsext)
	serveAsset(w, dir, strings.TrimSuffix(idsext, ext), ext)
}

func (c *Controller) FontGET(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	name := fmt.Sprintf("%s/%s-%s", ps.ByName("fontstack"), ps.ByName("start"), ps.ByName("end"))
	serveAssetPath(w, filepath.Join(c.Config.FontsPath, name+".pbf"), "application/x-protobuf")
}

func (c *Controller) StyleGET(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := strings.TrimSuffix(ps.ByName("id"), ".json")
	serveAssetPath(w, filepath.Join(c.Config.StylesPath, id+".json"), "application/json")
}

func serveAsset(w http.ResponseWriter, dir, ids, ext string) {
	name := strings.TrimPrefix(ext, ".")
	contentType := "application/octet-stream"
	switch name {
	case "json":
		contentType = "application/json"
	case "png":
		contentType = "image/png"
	}
	serveAssetPath(w, filepath.Join(dir, ids+ext), contentType)
}

func serveAssetPath(w http.ResponseWriter, path, contentType string) {
	data, err := os.ReadFile(path)
	if err != nil {
		view.RenderError(w, "asset not found", http.StatusNotFound)
		return
	}
	view.RawAsset(w, data, contentType)
}

func listAssetIDs(dir, ext string) map[string]bool {
	out := map[string]bool{}
	if dir == "" {
		return out
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return out
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ext) {
			out[strings.TrimSuffix(e.Name(), ext)] = true
		}
	}
	return out
}

// splitIDs parses the comma-separated {ids} path segment (§4.6/§6).
func splitIDs(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// writeErr maps an *errs.Error Kind to an HTTP status, generalizing the
// teacher's errors.Is-on-sentinels switch in TileGET to a typed Kind.
func writeErr(w http.ResponseWriter, err error) {
	kind := errs.KindOf(err)
	var status int
	switch kind {
	case errs.NotFound:
		status = http.StatusNotFound
	case errs.BadRequest:
		status = http.StatusBadRequest
	case errs.Timeout:
		status = http.StatusGatewayTimeout
	case errs.Unavailable:
		status = http.StatusServiceUnavailable
	case errs.Upstream, errs.Decode:
		status = http.StatusInternalServerError
	default:
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		log.Errorf("%v", err)
	}
	view.RenderError(w, err.Error(), status)
}
