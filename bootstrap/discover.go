package bootstrap

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/terramesh/martin/config"
	"github.com/terramesh/martin/core/catalog"
	"github.com/terramesh/martin/core/cog"
	"github.com/terramesh/martin/core/mbtiles"
	"github.com/terramesh/martin/core/pmtiles"
	"github.com/terramesh/martin/core/postgis"
	"github.com/terramesh/martin/logging"
)

var log = logging.For("bootstrap")

// DiscoverAll walks every configured source root concurrently, the same
// "stat the directory, fan out one goroutine per file" shape as the
// teacher's mbtiles.LoadTilesets, generalized from a single .mbtiles scan
// to MBTiles + PMTiles + COG + PostGIS discovery feeding one catalog.
func DiscoverAll(ctx context.Context, cfg config.Config) ([]catalog.TileSource, *postgis.Pool) {
	var (
		mu      sync.Mutex
		sources []catalog.TileSource
	)
	add := func(s catalog.TileSource) {
		mu.Lock()
		sources = append(sources, s)
		mu.Unlock()
	}

	var wg sync.WaitGroup

	for _, root := range cfg.MBTilesPaths {
		walkFiles(root, ".mbtiles", func(path, id string) {
			wg.Add(1)
			go func() {
				defer wg.Done()
				db, err := mbtiles.Open(path)
				if err != nil {
					log.Errorf("opening mbtiles %q: %v", path, err)
					return
				}
				src, err := catalog.NewMBTilesSource(id, db)
				if err != nil {
					log.Errorf("reading mbtiles metadata %q: %v", path, err)
					return
				}
				add(src)
			}()
		})
	}

	for _, root := range cfg.PMTilesPaths {
		walkFiles(root, ".pmtiles", func(path, id string) {
			wg.Add(1)
			go func() {
				defer wg.Done()
				fetcher, err := pmtiles.NewFileFetcher(path)
				if err != nil {
					log.Errorf("opening pmtiles %q: %v", path, err)
					return
				}
				src, err := pmtiles.Open(ctx, id, fetcher)
				if err != nil {
					log.Errorf("reading pmtiles header %q: %v", path, err)
					return
				}
				add(src)
			}()
		})
	}

	for id, url := range cfg.PMTilesHTTPSources {
		id, url := id, url
		wg.Add(1)
		go func() {
			defer wg.Done()
			fetcher := pmtiles.NewHTTPFetcher(url, http.DefaultClient)
			src, err := pmtiles.Open(ctx, id, fetcher)
			if err != nil {
				log.Errorf("reading remote pmtiles %q: %v", url, err)
				return
			}
			add(src)
		}()
	}

	for _, root := range cfg.COGPaths {
		for _, ext := range []string{".tif", ".tiff"} {
			walkFiles(root, ext, func(path, id string) {
				wg.Add(1)
				go func() {
					defer wg.Done()
					src, err := cog.Open(id, path)
					if err != nil {
						log.Errorf("opening cog %q: %v", path, err)
						return
					}
					add(src)
				}()
			})
		}
	}

	wg.Wait()

	var pool *postgis.Pool
	if cfg.DatabaseURL != "" {
		p, err := postgis.Connect(ctx, cfg)
		if err != nil {
			log.Errorf("connecting to postgis: %v", err)
			if cfg.FailOnStartup {
				log.Errorf("fail_on_startup is set, exiting")
				os.Exit(1)
			}
		} else {
			pool = p
			tables, err := postgis.DiscoverTables(ctx, pool, cfg)
			if err != nil {
				log.Errorf("discovering postgis tables: %v", err)
			}
			for _, t := range tables {
				add(t)
			}
			functions, err := postgis.DiscoverFunctions(ctx, pool, cfg)
			if err != nil {
				log.Errorf("discovering postgis functions: %v", err)
			}
			for _, f := range functions {
				add(f)
			}
		}
	}

	log.Infof("%d source(s) discovered", len(sources))
	return sources, pool
}

// walkFiles calls fn(path, id) for every file under root with the given
// extension, id being the filename with the extension stripped (the
// teacher's tileset-id-from-filename convention).
func walkFiles(root, ext string, fn func(path, id string)) {
	if root == "" {
		return
	}
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ext) {
			id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			fn(path, id)
		}
		return nil
	})
}
