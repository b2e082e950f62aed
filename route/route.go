// Package route wires httprouter to the Controller's handlers, replacing
// the teacher's single "/v1/:id/tiles/:z/:x/:y" tree with the full §6
// surface (health, catalog, refresh, sprite/font/style, and the
// comma-joined {ids} tile path).
package route

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/terramesh/martin/controller"
	"github.com/terramesh/martin/middleware/cors"
)

// Load returns a router wired to c's handlers, CORS-wrapped per
// corsMiddleware.
func Load(c *controller.Controller, corsMiddleware *cors.Middleware) *httprouter.Router {
	r := httprouter.New()
	wrap := corsMiddleware.Handler

	r.GET("/", wrap(c.IndexGET))
	r.GET("/health", wrap(c.HealthGET))
	r.GET("/catalog", wrap(c.CatalogGET))
	r.POST("/refresh", wrap(c.RefreshPOST))

	r.GET("/sprite/:idsext", wrap(c.SpriteGET))
	r.GET("/sdf_sprite/:idsext", wrap(c.SDFSpriteGET))
	r.GET("/font/:fontstack/:range", wrap(fontRangeSplit(c)))
	r.GET("/style/:id", wrap(c.StyleGET))

	r.GET("/:ids", wrap(c.TileJSONGET))
	r.GET("/:ids/:z/:x/:y", wrap(c.TileGET))

	r.RedirectTrailingSlash = true
	r.HandleOPTIONS = true
	r.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	return r
}

// fontRangeSplit adapts the single ":range" segment ("{start}-{end}") into
// the distinct start/end params Controller.FontGET expects, since
// httprouter doesn't itself split a param on an interior "-".
func fontRangeSplit(c *controller.Controller) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		rng := ps.ByName("range")
		start, end := rng, rng
		for i := 0; i < len(rng); i++ {
			if rng[i] == '-' {
				start, end = rng[:i], rng[i+1:]
				break
			}
		}
		ps = append(ps, httprouter.Param{Key: "start", Value: start}, httprouter.Param{Key: "end", Value: end})
		c.FontGET(w, r, ps)
	}
}
