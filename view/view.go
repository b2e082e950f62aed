// Package view renders HTTP responses, keeping the teacher's
// RenderJSON/Tile split but generalizing Tile to any tilecodec.TileData
// (not just MBTiles PBF/ZLIB) and adding the ETag/Content-Encoding/304
// handling the pipeline's Result carries.
package view

import (
	"encoding/json"
	"net/http"

	"github.com/terramesh/martin/core/tilecodec"
	"github.com/terramesh/martin/logging"
)

const contentTypeJSON = "application/json"

var log = logging.For("view")

// RenderJSON encodes data as JSON and writes it with status.
func RenderJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(&data); err != nil {
		log.Errorf("encoding JSON response: %v", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// RenderError writes a JSON error body, the shape every non-2xx response
// in this adapter uses instead of plain text.
func RenderError(w http.ResponseWriter, message string, status int) {
	RenderJSON(w, errorBody{Error: message}, status)
}

// Tile writes a tile response, setting Content-Type from format,
// Content-Encoding from encoding (omitted for identity) and ETag, and
// honoring conditional requests via ifNoneMatch (the request's
// If-None-Match header value, already read by the caller).
func Tile(w http.ResponseWriter, data []byte, format tilecodec.Format, encoding tilecodec.Encoding, etag, ifNoneMatch string) {
	w.Header().Set("ETag", etag)

	if ifNoneMatch != "" && ifNoneMatch == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	if v := encoding.HeaderValue(); v != "" {
		w.Header().Set("Content-Encoding", v)
	}
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// RawAsset writes a sprite/font/style asset byte-exact with the given
// content type.
func RawAsset(w http.ResponseWriter, data []byte, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
