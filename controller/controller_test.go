package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terramesh/martin/config"
	"github.com/terramesh/martin/core/cache"
	"github.com/terramesh/martin/core/catalog"
	"github.com/terramesh/martin/core/pipeline"
	"github.com/terramesh/martin/core/postgis"
	"github.com/terramesh/martin/core/tilecodec"
	"github.com/terramesh/martin/core/tilecoord"
)

type stubSource struct {
	id string
}

func (s *stubSource) ID() string                { return s.id }
func (s *stubSource) Bounds() tilecoord.BBox     { return tilecoord.BBox{-180, -90, 180, 90} }
func (s *stubSource) ZoomRange() (uint8, uint8)  { return 0, 14 }
func (s *stubSource) Format() tilecodec.Format   { return tilecodec.MVT }
func (s *stubSource) SupportsURLQuery() bool     { return false }
func (s *stubSource) GetTile(_ context.Context, c tilecoord.Coord, _ string) (tilecodec.TileData, error) {
	return tilecodec.TileData{Bytes: []byte("tile"), Format: tilecodec.MVT, Encoding: tilecodec.Identity}, nil
}

func newTestController() *Controller {
	cat := catalog.New()
	cat.Replace([]catalog.TileSource{&stubSource{id: "a"}})
	p := pipeline.New(cat, cache.New(1<<20), config.Config{RequestTimeout: time.Second})

	return &Controller{
		Catalog:  cat,
		Pipeline: p,
		Config:   config.Config{BaseURL: "http://localhost:3000"},
	}
}

func TestIndexGET(t *testing.T) {
	c := &Controller{}
	w := httptest.NewRecorder()
	c.IndexGET(w, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthGETOKWhenCatalogNonEmpty(t *testing.T) {
	cat := catalog.New()
	cat.Replace([]catalog.TileSource{&stubSource{id: "a"}})
	c := &Controller{Catalog: cat}

	w := httptest.NewRecorder()
	c.HealthGET(w, httptest.NewRequest(http.MethodGet, "/health", nil), nil)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthGETDegradedWhenCatalogEmpty(t *testing.T) {
	c := &Controller{Catalog: catalog.New()}

	w := httptest.NewRecorder()
	c.HealthGET(w, httptest.NewRequest(http.MethodGet, "/health", nil), nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCatalogGETListsSources(t *testing.T) {
	cat := catalog.New()
	cat.Replace([]catalog.TileSource{&stubSource{id: "a"}})
	c := &Controller{Catalog: cat}

	w := httptest.NewRecorder()
	c.CatalogGET(w, httptest.NewRequest(http.MethodGet, "/catalog", nil), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	tiles := body["tiles"].(map[string]any)
	assert.Contains(t, tiles, "a")
}

func TestTileJSONGET(t *testing.T) {
	c := newTestController()
	req := httptest.NewRequest(http.MethodGet, "/a", nil)
	w := httptest.NewRecorder()

	c.TileJSONGET(w, req, httprouter.Params{{Key: "ids", Value: "a"}})

	assert.Equal(t, http.StatusOK, w.Code)
	var tj map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tj))
	assert.Equal(t, "3.0.0", tj["tilejson"])
}

func TestTileJSONGETUnknownSource(t *testing.T) {
	c := newTestController()
	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	w := httptest.NewRecorder()

	c.TileJSONGET(w, req, httprouter.Params{{Key: "ids", Value: "missing"}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTileGETServesTile(t *testing.T) {
	c := newTestController()
	req := httptest.NewRequest(http.MethodGet, "/a/1/0/0", nil)
	w := httptest.NewRecorder()

	ps := httprouter.Params{
		{Key: "ids", Value: "a"}, {Key: "z", Value: "1"}, {Key: "x", Value: "0"}, {Key: "y", Value: "0"},
	}
	c.TileGET(w, req, ps)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tile", w.Body.String())
	assert.NotEmpty(t, w.Header().Get("ETag"))
}

func TestTileGETBadCoordinate(t *testing.T) {
	c := newTestController()
	req := httptest.NewRequest(http.MethodGet, "/a/1/99/99", nil)
	w := httptest.NewRecorder()

	ps := httprouter.Params{
		{Key: "ids", Value: "a"}, {Key: "z", Value: "1"}, {Key: "x", Value: "99"}, {Key: "y", Value: "99"},
	}
	c.TileGET(w, req, ps)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefreshPOSTReplacesCatalog(t *testing.T) {
	cat := catalog.New()
	before := cat.Generation()

	c := &Controller{
		Catalog: cat,
		Discoverer: func(ctx context.Context) ([]catalog.TileSource, *postgis.Pool) {
			return []catalog.TileSource{&stubSource{id: "new"}}, nil
		},
	}

	w := httptest.NewRecorder()
	c.RefreshPOST(w, httptest.NewRequest(http.MethodPost, "/refresh", nil), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Greater(t, cat.Generation(), before)
	_, ok := cat.Get("new")
	assert.True(t, ok)
}

func TestSplitIDs(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitIDs("a,b"))
	assert.Equal(t, []string{"a"}, splitIDs("a"))
	assert.Empty(t, splitIDs(""))
}

func TestServeAssetPathMissing(t *testing.T) {
	w := httptest.NewRecorder()
	serveAssetPath(w, filepath.Join(t.TempDir(), "nope.json"), "application/json")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServeAssetPathFound(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "style.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":8}`), 0o644))

	w := httptest.NewRecorder()
	serveAssetPath(w, path, "application/json")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"version":8}`, w.Body.String())
}

func TestListAssetIDs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "one.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "two.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o644))

	ids := listAssetIDs(dir, ".json")
	assert.True(t, ids["one"])
	assert.True(t, ids["two"])
	assert.False(t, ids["ignored"])
}

func TestListAssetIDsEmptyDirConfig(t *testing.T) {
	assert.Empty(t, listAssetIDs("", ".json"))
}
