package route

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terramesh/martin/config"
	"github.com/terramesh/martin/controller"
	"github.com/terramesh/martin/core/cache"
	"github.com/terramesh/martin/core/catalog"
	"github.com/terramesh/martin/core/pipeline"
	"github.com/terramesh/martin/middleware/cors"
)

func TestFontRangeSplitServesFromComposedPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "x"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x", "0-255.pbf"), []byte("glyphs"), 0o644))

	c := &controller.Controller{Config: config.Config{FontsPath: dir}}
	h := fontRangeSplit(c)

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/font/x/0-255", nil),
		httprouter.Params{{Key: "fontstack", Value: "x"}, {Key: "range", Value: "0-255"}})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "glyphs", w.Body.String())
}

func TestFontRangeSplitMissingDash(t *testing.T) {
	c := &controller.Controller{Config: config.Config{}}
	h := fontRangeSplit(c)

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/font/x/nodash", nil),
		httprouter.Params{{Key: "fontstack", Value: "x"}, {Key: "range", Value: "nodash"}})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLoadWiresIndexAndHealth(t *testing.T) {
	cat := catalog.New()
	p := pipeline.New(cat, cache.New(1<<20), config.Config{})
	c := &controller.Controller{Catalog: cat, Pipeline: p}

	r := Load(c, cors.New(nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestLoadMethodNotAllowed(t *testing.T) {
	cat := catalog.New()
	p := pipeline.New(cat, cache.New(1<<20), config.Config{})
	c := &controller.Controller{Catalog: cat, Pipeline: p}

	r := Load(c, cors.New(nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
