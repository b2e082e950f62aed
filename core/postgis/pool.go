// Package postgis is the PostGIS engine (C5): pooled connections via
// jackc/pgx/v5, startup discovery of tile-serving tables and functions,
// ST_AsMVT query synthesis, and SRID handling.
//
// Grounded in the wider example pack's pgx usage for the pooled-connection
// and context-cancellation idioms — the teacher repo never touched a
// database, so the "pool + discover + query" shape here follows pgx's own
// documented pattern rather than a teacher file.
package postgis

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terramesh/martin/config"
	"github.com/terramesh/martin/errs"
)

// Pool wraps a pgxpool.Pool sized from config.Config.PoolSize.
type Pool struct {
	db *pgxpool.Pool
}

// Connect opens a pool against cfg.DatabaseURL, applying cfg.PoolSize as
// MaxConns. Connect does not read cfg.FailOnStartup; whether a failure
// stops the process is up to the caller (bootstrap.DiscoverAll exits when
// FailOnStartup is set).
func Connect(ctx context.Context, cfg config.Config) (*Pool, error) {
	cfg = cfg.WithDefaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, errs.New(errs.Fatal, "postgis", err)
	}
	poolCfg.MaxConns = int32(cfg.PoolSize)
	poolCfg.HealthCheckPeriod = time.Minute

	db, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errs.New(errs.Unavailable, "postgis", err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, errs.UpstreamErr("postgis", true, err)
	}

	return &Pool{db: db}, nil
}

// Close releases all pooled connections.
func (p *Pool) Close() { p.db.Close() }

// Healthy reports whether the pool currently has at least one live
// connection, for the /health payload's per-engine readiness.
func (p *Pool) Healthy(ctx context.Context) bool {
	return p.db.Ping(ctx) == nil
}
