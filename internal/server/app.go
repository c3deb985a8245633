// Package server is the display-file web server: it renders subfile pages,
// answers getRecords paging calls and applies submitted forms to the job's
// records.
package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jnnngs/5250Web/internal/aid"
	"github.com/jnnngs/5250Web/internal/assets"
	"github.com/jnnngs/5250Web/internal/config"
	"github.com/jnnngs/5250Web/internal/dom"
	"github.com/jnnngs/5250Web/internal/host"
	"github.com/jnnngs/5250Web/internal/render"
	"github.com/jnnngs/5250Web/internal/session"
)

// App serves one display file with a subfile to many jobs.
type App struct {
	Jobs     *session.Manager
	Renderer *render.HtmlRenderer
	Config   *config.Config

	rowKind dom.RowKind
	foldKey aid.Key
	keys    aid.Bitmap
	base    *host.Dataset
}

// NewApp prepares an App for cfg. Every job works on its own copy of base.
func NewApp(cfg *config.Config, base *host.Dataset) (*App, error) {
	kind, err := dom.ParseRowKind(cfg.Subfile.RowKind)
	if err != nil {
		return nil, err
	}
	jobs, err := session.NewManager(cfg.JobCapacity)
	if err != nil {
		return nil, fmt.Errorf("job table: %w", err)
	}
	foldKey := aid.Normalize(cfg.Subfile.FoldKey)
	return &App{
		Jobs:     jobs,
		Renderer: render.NewHtmlRenderer(),
		Config:   cfg,
		rowKind:  kind,
		foldKey:  foldKey,
		keys:     enabledKeys(foldKey, base.Format().Lines() > 1),
		base:     base,
	}, nil
}

// Router wires the middleware and handlers.
func (app *App) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	if err := r.SetTrustedProxies(nil); err != nil {
		log.Printf("Warning: could not set trusted proxies: %v", err)
	}
	r.Use(SecurityHeadersMiddleware())
	r.Use(OriginRefererCheckMiddleware())

	r.GET("/static/style.css", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/css; charset=utf-8", assets.Stylesheet())
	})
	r.GET("/", app.HomeHandler)
	r.GET("/screen", app.ScreenHandler)
	r.POST("/records", app.RecordsHandler)
	r.POST("/submit", app.SubmitHandler)
	return r
}
