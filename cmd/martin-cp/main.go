// Command martin-cp bulk-copies a bbox x zoom-range pyramid from one or
// more configured sources into a standalone MBTiles archive (C9), the
// offline write path the request pipeline itself deliberately lacks
// (no write API for tiles at runtime).
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/terramesh/martin/bootstrap"
	"github.com/terramesh/martin/core/cache"
	"github.com/terramesh/martin/core/catalog"
	"github.com/terramesh/martin/core/copier"
	"github.com/terramesh/martin/core/mbtiles"
	"github.com/terramesh/martin/core/pipeline"
	"github.com/terramesh/martin/core/tilecoord"
)

func main() {
	var (
		configPath  string
		sourceIDs   string
		boundsStr   string
		minZoom     int
		maxZoom     int
		concurrency int
		resume      bool
		out         string
	)

	root := &cobra.Command{
		Use:   "martin-cp",
		Short: "Bulk-copy a tile pyramid from configured sources into an MBTiles archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			bounds, err := parseBounds(boundsStr)
			if err != nil {
				return err
			}

			cfg, err := bootstrap.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			ctx := context.Background()
			sources, _ := bootstrap.DiscoverAll(ctx, cfg)

			cat := catalog.New()
			cat.Replace(sources)
			pl := pipeline.New(cat, cache.New(cfg.CacheSizeBytes), cfg)

			dst, err := mbtiles.Create(out, mbtiles.FlatWithHash)
			if err != nil {
				return fmt.Errorf("creating %s: %w", out, err)
			}
			defer dst.Close()

			opts := copier.Options{
				SourceIDs:   strings.Split(sourceIDs, ","),
				Bounds:      bounds,
				MinZoom:     uint8(minZoom),
				MaxZoom:     uint8(maxZoom),
				Concurrency: concurrency,
				Resume:      resume,
			}

			return copier.Copy(ctx, pl, dst, opts)
		},
	}

	root.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file describing the source(s) to copy from")
	root.Flags().StringVar(&sourceIDs, "source", "", "comma-separated source id(s) to copy (composited if more than one)")
	root.Flags().StringVar(&boundsStr, "bounds", "-180,-85.05113,180,85.05113", "west,south,east,north")
	root.Flags().IntVar(&minZoom, "min-zoom", 0, "minimum zoom level")
	root.Flags().IntVar(&maxZoom, "max-zoom", 14, "maximum zoom level")
	root.Flags().IntVar(&concurrency, "concurrency", 8, "number of concurrent tile fetches")
	root.Flags().BoolVar(&resume, "resume", false, "skip tiles already present with matching content in the output archive")
	root.Flags().StringVarP(&out, "output", "o", "out.mbtiles", "path to the MBTiles archive to write")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseBounds(s string) (tilecoord.BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return tilecoord.BBox{}, fmt.Errorf("bounds must be west,south,east,north, got %q", s)
	}
	var b tilecoord.BBox
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return tilecoord.BBox{}, fmt.Errorf("invalid bounds component %q: %w", p, err)
		}
		b[i] = f
	}
	return b, nil
}
