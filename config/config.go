// Package config defines the typed configuration value the core consumes.
// Parsing it from a file or from the environment is deliberately kept out
// of this package's import graph of the core — see bootstrap.LoadConfig
// (bootstrap/config.go) for the one place that builds a Config from the
// outside world.
package config

import "time"

// Config is the root configuration value passed into catalog discovery and
// the request pipeline at startup. Every field has a conservative zero
// value so a Config built purely from defaults still runs.
type Config struct {
	// ListenAddr is the HTTP adapter's bind address, e.g. ":3000".
	ListenAddr string `yaml:"listen_addr"`

	// BaseURL is used to synthesize absolute tile URLs in TileJSON
	// responses, mirroring the teacher's HOST_URL environment variable.
	BaseURL string `yaml:"base_url"`

	// DatabaseURL is a libpq-style PostGIS connection string. Empty
	// disables PostGIS discovery entirely.
	DatabaseURL string `yaml:"database_url"`

	// PoolSize bounds the PostGIS connection pool (the "W" in §5/§4.5).
	PoolSize int `yaml:"pool_size"`

	// PostgisSchemas allow-lists schemas scanned for geometry columns and
	// tile functions at startup.
	PostgisSchemas []string `yaml:"postgis_schemas"`

	// DefaultSRID is used for tables whose geometry_columns SRID is 0.
	DefaultSRID int `yaml:"default_srid"`

	// RequireSRID rejects empty-SRID tables at startup instead of falling
	// back to DefaultSRID, the policy decision left open in §9.
	RequireSRID bool `yaml:"require_srid"`

	// MBTilesPaths and PMTilesPaths are filesystem roots scanned
	// recursively for archives of each kind.
	MBTilesPaths []string `yaml:"mbtiles_paths"`
	PMTilesPaths []string `yaml:"pmtiles_paths"`

	// PMTilesHTTPSources maps a source id to an HTTP(S) base URL serving a
	// range-readable .pmtiles file, for sources not backed by a local file.
	PMTilesHTTPSources map[string]string `yaml:"pmtiles_http_sources"`

	// COGPaths are filesystem roots scanned recursively for Cloud
	// Optimized GeoTIFFs.
	COGPaths []string `yaml:"cog_paths"`

	// CacheSizeBytes bounds the in-memory tile/metadata cache (§4.7
	// defaults to 512 MiB).
	CacheSizeBytes int64 `yaml:"cache_size_bytes"`

	// RequestTimeout is the per-request hard timeout from §5 (default 30s).
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// FailOnStartup makes a failed PostGIS connection exit the process at
	// startup instead of being logged. Unreadable source roots and files
	// are logged and skipped either way.
	FailOnStartup bool `yaml:"fail_on_startup"`

	// SpritesPath, FontsPath and StylesPath point at pre-built asset
	// directories served byte-exact under /sprite, /font and /style — §1's
	// Non-goal excludes sprite sheet/glyph *generation*, not serving
	// already-built ones the catalog can describe.
	SpritesPath string `yaml:"sprites_path"`
	FontsPath   string `yaml:"fonts_path"`
	StylesPath  string `yaml:"styles_path"`

	// CORSAllowedOrigins mirrors the teacher's CORS_ALLOWED_ORIGINS
	// environment variable, now threaded through Config instead of read
	// directly by the middleware.
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

// DefaultCacheSizeBytes is the §4.7 default cache bound, 512 MiB.
const DefaultCacheSizeBytes int64 = 512 * 1024 * 1024

// DefaultRequestTimeout is the §5 default per-request timeout.
const DefaultRequestTimeout = 30 * time.Second

// DefaultPoolSize is a conservative default for the PostGIS pool.
const DefaultPoolSize = 20

// WithDefaults returns a copy of c with zero-valued fields replaced by
// their documented defaults.
func (c Config) WithDefaults() Config {
	if c.CacheSizeBytes == 0 {
		c.CacheSizeBytes = DefaultCacheSizeBytes
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.PoolSize == 0 {
		c.PoolSize = DefaultPoolSize
	}
	if c.ListenAddr == "" {
		c.ListenAddr = ":3000"
	}
	return c
}
