package postgis

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/terramesh/martin/core/tilecodec"
	"github.com/terramesh/martin/core/tilecoord"
	"github.com/terramesh/martin/errs"
)

// TableSource serves MVT tiles from a single geometry column via
// ST_AsMVT, one instance per geometry_columns row discovered at startup.
type TableSource struct {
	id     string
	pool   *Pool
	schema string
	table  string
	column string
	srid   int
}

// NewTableSource builds a TableSource for schema.table.column, quoting
// identifiers so mixed-case PostgreSQL names round-trip correctly.
func NewTableSource(id string, pool *Pool, schema, table, column string, srid int) *TableSource {
	return &TableSource{id: id, pool: pool, schema: schema, table: table, column: column, srid: srid}
}

func (t *TableSource) ID() string                 { return t.id }
func (t *TableSource) Bounds() tilecoord.BBox      { return tilecoord.BBox{-180, -85.05113, 180, 85.05113} }
func (t *TableSource) ZoomRange() (min, max uint8) { return 0, 22 }
func (t *TableSource) Format() tilecodec.Format    { return tilecodec.MVT }
func (t *TableSource) SupportsURLQuery() bool      { return false }

// GetTile synthesizes an ST_AsMVT query over the tile's Web Mercator
// envelope, tagging the column's geometry with the source's SRID and
// transforming it to EPSG:3857, per §4.5.
func (t *TableSource) GetTile(ctx context.Context, c tilecoord.Coord, _ string) (tilecodec.TileData, error) {
	query := fmt.Sprintf(`
WITH bounds AS (
  SELECT ST_TileEnvelope($1, $2, $3) AS geom
), mvtgeom AS (
  SELECT ST_AsMVTGeom(
    ST_Transform(ST_SetSRID(t.%s, %d), 3857),
    bounds.geom
  ) AS geom
  FROM %s.%s t, bounds
  WHERE ST_Intersects(ST_Transform(ST_SetSRID(t.%s, %d), 3857), bounds.geom)
)
SELECT ST_AsMVT(mvtgeom.*, $4) FROM mvtgeom`,
		quoteIdent(t.column), t.srid, quoteIdent(t.schema), quoteIdent(t.table), quoteIdent(t.column), t.srid)

	var data []byte
	err := t.pool.db.QueryRow(ctx, query, c.Z, c.X, c.Y, t.table).Scan(&data)
	if err != nil {
		if err == pgx.ErrNoRows {
			return tilecodec.TileData{}, errs.Newf(errs.NotFound, t.id, "no rows for tile %s", c)
		}
		return tilecodec.TileData{}, errs.UpstreamErr(t.id, true, err)
	}

	return tilecodec.TileData{Bytes: data, Format: tilecodec.MVT, Encoding: tilecodec.Identity}, nil
}

// FunctionSource serves MVT tiles from a (z, x, y, ...) SQL function,
// binding query parameters named in extraArgs by position from the
// request's url query, per §4.5's url-query support.
type FunctionSource struct {
	id        string
	pool      *Pool
	schema    string
	function  string
	extraArgs []string
}

// NewFunctionSource builds a FunctionSource for schema.function.
func NewFunctionSource(id string, pool *Pool, schema, function string, extraArgs []string) *FunctionSource {
	return &FunctionSource{id: id, pool: pool, schema: schema, function: function, extraArgs: extraArgs}
}

func (f *FunctionSource) ID() string                 { return f.id }
func (f *FunctionSource) Bounds() tilecoord.BBox      { return tilecoord.BBox{-180, -85.05113, 180, 85.05113} }
func (f *FunctionSource) ZoomRange() (min, max uint8) { return 0, 22 }
func (f *FunctionSource) Format() tilecodec.Format    { return tilecodec.MVT }
func (f *FunctionSource) SupportsURLQuery() bool      { return len(f.extraArgs) > 0 }

func (f *FunctionSource) GetTile(ctx context.Context, c tilecoord.Coord, rawQuery string) (tilecodec.TileData, error) {
	args := []any{c.Z, c.X, c.Y}

	if len(f.extraArgs) > 0 {
		values, err := url.ParseQuery(rawQuery)
		if err != nil {
			return tilecodec.TileData{}, errs.Newf(errs.BadRequest, f.id, "invalid url query: %v", err)
		}
		for _, name := range f.extraArgs {
			args = append(args, nullableString(values.Get(name)))
		}
	}

	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf("SELECT %s.%s(%s)", quoteIdent(f.schema), quoteIdent(f.function), strings.Join(placeholders, ", "))

	var data []byte
	err := f.pool.db.QueryRow(ctx, query, args...).Scan(&data)
	if err != nil {
		if err == pgx.ErrNoRows {
			return tilecodec.TileData{}, errs.Newf(errs.NotFound, f.id, "no rows for tile %s", c)
		}
		return tilecodec.TileData{}, errs.UpstreamErr(f.id, true, err)
	}

	return tilecodec.TileData{Bytes: data, Format: tilecodec.MVT, Encoding: tilecodec.Identity}, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
