package postgis

import (
	"context"
	"fmt"
	"strings"

	"github.com/terramesh/martin/config"
	"github.com/terramesh/martin/errs"
)

const tableDiscoveryQuery = `
SELECT f_table_schema, f_table_name, f_geometry_column, srid, type
FROM geometry_columns
WHERE f_table_schema = ANY($1)`

// geomColumn is one row of geometry_columns, the startup introspection
// source for table sources.
type geomColumn struct {
	schema string
	table  string
	column string
	srid   int
	geomType string
}

// DiscoverTables queries geometry_columns for every schema cfg allow-lists
// and returns one TableSource per geometry column, synthesizing an
// ST_AsMVT query for each. A column with SRID 0 falls back to
// cfg.DefaultSRID unless cfg.RequireSRID rejects it outright (§9 policy
// decision).
func DiscoverTables(ctx context.Context, pool *Pool, cfg config.Config) ([]*TableSource, error) {
	schemas := cfg.PostgisSchemas
	if len(schemas) == 0 {
		schemas = []string{"public"}
	}

	rows, err := pool.db.Query(ctx, tableDiscoveryQuery, schemas)
	if err != nil {
		return nil, errs.UpstreamErr("postgis", true, err)
	}
	defer rows.Close()

	var sources []*TableSource
	for rows.Next() {
		var gc geomColumn
		if err := rows.Scan(&gc.schema, &gc.table, &gc.column, &gc.srid, &gc.geomType); err != nil {
			return nil, errs.New(errs.Decode, "postgis", err)
		}

		srid := gc.srid
		if srid == 0 {
			if cfg.RequireSRID {
				return nil, errs.Newf(errs.Fatal, "postgis", "table %s.%s.%s has no SRID and require_srid is set", gc.schema, gc.table, gc.column)
			}
			srid = cfg.DefaultSRID
		}

		id := fmt.Sprintf("%s.%s.%s", gc.schema, gc.table, gc.column)
		sources = append(sources, NewTableSource(id, pool, gc.schema, gc.table, gc.column, srid))
	}

	return sources, rows.Err()
}

const functionDiscoveryQuery = `
SELECT n.nspname, p.proname,
       pg_catalog.pg_get_function_arguments(p.oid)
FROM pg_proc p
JOIN pg_namespace n ON n.oid = p.pronamespace
WHERE n.nspname = ANY($1)
  AND pg_catalog.format_type(p.prorettype, NULL) = 'bytea'`

// funcSig is one row of the function discovery query.
type funcSig struct {
	schema string
	name   string
	args   string
}

// DiscoverFunctions queries pg_proc for bytea-returning functions and
// returns one FunctionSource per function whose argument list hasZXYSignature
// accepts: it checks only for a z integer argument and takes the first
// three arguments to be z, x, y without checking x and y. Arguments after
// the third are treated as url-query bindable parameters.
func DiscoverFunctions(ctx context.Context, pool *Pool, cfg config.Config) ([]*FunctionSource, error) {
	schemas := cfg.PostgisSchemas
	if len(schemas) == 0 {
		schemas = []string{"public"}
	}

	rows, err := pool.db.Query(ctx, functionDiscoveryQuery, schemas)
	if err != nil {
		return nil, errs.UpstreamErr("postgis", true, err)
	}
	defer rows.Close()

	var sources []*FunctionSource
	for rows.Next() {
		var f funcSig
		if err := rows.Scan(&f.schema, &f.name, &f.args); err != nil {
			return nil, errs.New(errs.Decode, "postgis", err)
		}

		if !hasZXYSignature(f.args) {
			continue
		}

		id := fmt.Sprintf("%s.%s", f.schema, f.name)
		extraArgs := extraArgNames(f.args)
		sources = append(sources, NewFunctionSource(id, pool, f.schema, f.name, extraArgs))
	}

	return sources, rows.Err()
}

func hasZXYSignature(args string) bool {
	lower := strings.ToLower(args)
	return strings.HasPrefix(lower, "z ") || strings.Contains(lower, "z integer") || strings.Contains(lower, "z int")
}

// extraArgNames returns the argument names after the leading z, x, y
// triple, used to bind url-query parameters by position.
func extraArgNames(args string) []string {
	parts := strings.Split(args, ",")
	if len(parts) <= 3 {
		return nil
	}
	var names []string
	for _, p := range parts[3:] {
		fields := strings.Fields(strings.TrimSpace(p))
		if len(fields) > 0 {
			names = append(names, fields[0])
		}
	}
	return names
}
