// Command martin is the HTTP tile server binary: it loads a Config,
// discovers every configured source into a Catalog, and serves the §6
// surface over httprouter — the direct descendant of the teacher's flat
// main.go, split out under cmd/ now that martin-cp and mbtiles are
// siblings instead of the repository's only binary.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/terramesh/martin/bootstrap"
	"github.com/terramesh/martin/controller"
	"github.com/terramesh/martin/core/cache"
	"github.com/terramesh/martin/core/catalog"
	"github.com/terramesh/martin/core/pipeline"
	"github.com/terramesh/martin/core/postgis"
	"github.com/terramesh/martin/logging"
	"github.com/terramesh/martin/middleware/cors"
	"github.com/terramesh/martin/route"
)

var log = logging.For("main")

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "martin",
		Short: "Martin-style tile server: PostGIS, MBTiles, PMTiles and COG behind one HTTP surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := bootstrap.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	closeLog := logging.Init(os.Getenv("MARTIN_LOG") != "")
	defer closeLog()

	ctx := context.Background()

	sources, pool := bootstrap.DiscoverAll(ctx, cfg)

	cat := catalog.New()
	cat.Replace(sources)

	ch := cache.New(cfg.CacheSizeBytes)
	pl := pipeline.New(cat, ch, cfg)

	c := &controller.Controller{
		Catalog:  cat,
		Pipeline: pl,
		Pool:     pool,
		Config:   cfg,
		Discoverer: func(ctx context.Context) ([]catalog.TileSource, *postgis.Pool) {
			return bootstrap.DiscoverAll(ctx, cfg)
		},
	}

	r := route.Load(c, cors.New(cfg.CORSAllowedOrigins))

	log.Infof("listening on %s", cfg.ListenAddr)
	return http.ListenAndServe(cfg.ListenAddr, r)
}
