package view

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/terramesh/martin/core/tilecodec"
)

func TestRenderJSON(t *testing.T) {
	w := httptest.NewRecorder()
	RenderJSON(w, map[string]string{"a": "b"}, http.StatusCreated)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"a":"b"}`, w.Body.String())
}

func TestRenderError(t *testing.T) {
	w := httptest.NewRecorder()
	RenderError(w, "boom", http.StatusBadRequest)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"boom"}`, w.Body.String())
}

func TestTileWritesHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	Tile(w, []byte("tiledata"), tilecodec.MVT, tilecodec.Gzip, `"abc"`, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `"abc"`, w.Header().Get("ETag"))
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	assert.Equal(t, "application/x-protobuf", w.Header().Get("Content-Type"))
	assert.Equal(t, "tiledata", w.Body.String())
}

func TestTileOmitsContentEncodingForIdentity(t *testing.T) {
	w := httptest.NewRecorder()
	Tile(w, []byte("x"), tilecodec.PNG, tilecodec.Identity, `"x"`, "")
	assert.Empty(t, w.Header().Get("Content-Encoding"))
}

func TestTile304OnMatchingETag(t *testing.T) {
	w := httptest.NewRecorder()
	Tile(w, []byte("tiledata"), tilecodec.MVT, tilecodec.Identity, `"abc"`, `"abc"`)

	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestRawAsset(t *testing.T) {
	w := httptest.NewRecorder()
	RawAsset(w, []byte("glyphbytes"), "application/x-protobuf")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/x-protobuf", w.Header().Get("Content-Type"))
	assert.Equal(t, "glyphbytes", w.Body.String())
}
