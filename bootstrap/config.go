// Package bootstrap is the one place outside config.Config itself that
// builds a Config from the outside world (file + environment) and turns
// it into a running source catalog, shared by cmd/martin and cmd/martin-cp
// so both binaries discover sources identically.
package bootstrap

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/terramesh/martin/config"
)

// LoadConfig reads a YAML config file at path (if non-empty) and layers
// environment variable overrides on top, mirroring the teacher's
// HOST_URL/TILE_DIR environment-driven startup generalized to the full
// Config surface.
func LoadConfig(path string) (config.Config, error) {
	var cfg config.Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return config.Config{}, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return config.Config{}, err
		}
	}

	if v := os.Getenv("MARTIN_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("MARTIN_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("MARTIN_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PoolSize = n
		}
	}
	if v := os.Getenv("MARTIN_MBTILES_PATHS"); v != "" {
		cfg.MBTilesPaths = append(cfg.MBTilesPaths, strings.Split(v, ",")...)
	}
	if v := os.Getenv("MARTIN_PMTILES_PATHS"); v != "" {
		cfg.PMTilesPaths = append(cfg.PMTilesPaths, strings.Split(v, ",")...)
	}
	if v := os.Getenv("MARTIN_COG_PATHS"); v != "" {
		cfg.COGPaths = append(cfg.COGPaths, strings.Split(v, ",")...)
	}
	if v := os.Getenv("MARTIN_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RequestTimeout = d
		}
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, strings.Split(v, ",")...)
	}

	return cfg.WithDefaults(), nil
}
