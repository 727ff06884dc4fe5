// Package server wires the composer, its local host and the exporter behind
// the Huma HTTP API.
package server

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/joeblew999/plat-mapcraft/internal/api"
	"github.com/joeblew999/plat-mapcraft/internal/basemap"
	"github.com/joeblew999/plat-mapcraft/internal/catalog"
	"github.com/joeblew999/plat-mapcraft/internal/composer"
	"github.com/joeblew999/plat-mapcraft/internal/config"
	"github.com/joeblew999/plat-mapcraft/internal/db"
	"github.com/joeblew999/plat-mapcraft/internal/host/local"
	"github.com/joeblew999/plat-mapcraft/internal/humastar"
	"github.com/joeblew999/plat-mapcraft/internal/layout"
	"github.com/joeblew999/plat-mapcraft/internal/logging"
	"github.com/joeblew999/plat-mapcraft/internal/observability"
	"github.com/joeblew999/plat-mapcraft/internal/render"
	"github.com/joeblew999/plat-mapcraft/internal/service"
	"github.com/joeblew999/plat-mapcraft/internal/templates"
)

// Config holds the server configuration.
type Config struct {
	Host string
	Port string
	App  config.Config
	// Notifier receives every run outcome. Optional.
	Notifier composer.Notifier
	// Registerer receives the compose metrics. A fresh registry when nil.
	Registerer prometheus.Registerer
	// DisableDB skips DuckDB; only GeoJSON sources can be read then.
	DisableDB bool
	// FragmentsDir overrides the embedded HTML fragments.
	FragmentsDir string
	// LocalPaths accepts absolute layer files and output folders. Only the
	// CLI sets it; the HTTP API stays inside the data and output directories.
	LocalPaths bool
}

// Server is the mapcraft HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	humaAPI  huma.API
	db       *sql.DB
	services *api.Services
	metrics  *observability.ComposeCollector
	log      *logging.Logger
}

// New wires the services and registers all routes.
func New(cfg Config, log *logging.Logger) (*Server, error) {
	if log == nil {
		log = logging.Nop()
	}
	app := cfg.App

	resolver := basemap.NewResolver(nil)
	if app.CatalogFile != "" {
		cat, err := catalog.Load(app.CatalogFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
		resolver = basemap.NewResolver(cat)
	}

	s := &Server{config: cfg, mux: http.NewServeMux(), log: log}

	if !cfg.DisableDB {
		conn, err := db.Get(db.Config{DataDir: app.DataDir})
		if err != nil {
			log.Warn("duckdb unavailable, shapefiles disabled", "error", err.Error())
		} else {
			s.db = conn
		}
	}

	fetcher, err := render.NewFetcher(app.BasemapTimeout, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create basemap fetcher: %w", err)
	}
	hostOpts := []local.Option{local.WithProber(fetcher.Probe), local.WithLogger(log)}
	if s.db != nil {
		hostOpts = append(hostOpts, local.WithDB(s.db))
	}
	host := local.New(hostOpts...)
	exporter := render.NewExporter(host, render.WithFetcher(fetcher), render.WithLogger(log))

	reg := cfg.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	metrics, err := observability.NewComposeCollector(reg)
	if err != nil {
		return nil, err
	}
	s.metrics = metrics

	bus := service.NewEventBus()
	opts := []composer.Option{
		composer.WithConfig(composer.Config{
			BasemapTimeout:        app.BasemapTimeout,
			LegendMaxChars:        app.LegendMaxChars,
			DefaultCRSDescription: app.DefaultCRSDescription,
		}),
		composer.WithLogger(log),
		composer.WithObserver(bus),
		composer.WithObserver(metrics),
		composer.WithTemplates(layout.FromDir(app.TemplateDir)),
	}
	if cfg.Notifier != nil {
		opts = append(opts, composer.WithNotifier(cfg.Notifier))
	}
	comp := composer.New(host, exporter, resolver, opts...)

	renderer, err := templates.New()
	if err != nil {
		return nil, fmt.Errorf("failed to parse fragments: %w", err)
	}
	if cfg.FragmentsDir != "" {
		if err := renderer.Override(cfg.FragmentsDir); err != nil {
			return nil, fmt.Errorf("failed to load fragments from %s: %w", cfg.FragmentsDir, err)
		}
		log.Info("loaded fragment templates", "dir", cfg.FragmentsDir)
	}

	sources := service.NewSourceService(app.DataDir, cfg.LocalPaths)
	s.services = &api.Services{
		Compose: service.NewComposeService(comp, service.NewRunStore(app.RunsFile), sources, service.ComposeDefaults{
			OutputDir:      app.OutputDir,
			DPI:            app.DPI,
			LegendMaxChars: app.LegendMaxChars,
			Creator:        app.Creator,
		}, log),
		Source:   sources,
		Bus:      bus,
		DB:       s.db,
		Renderer: renderer,
	}

	humaConfig := huma.DefaultConfig("plat-mapcraft API", api.Version)
	humaConfig.Info.Description = "Composes wind-park overview maps: basemap, legend, scale bar and labels on a print layout."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}

	links := humastar.LinkSet{}
	humaConfig.Transformers = append(humaConfig.Transformers, humastar.LinkTransformer(links))

	s.humaAPI = humago.New(s.mux, humaConfig)
	s.routes(links)
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Services returns the wired services, for the CLI.
func (s *Server) Services() *api.Services {
	return s.services
}

// Close closes server resources.
func (s *Server) Close() error {
	if s.db == nil {
		return nil
	}
	return db.Close()
}

func (s *Server) routes(links humastar.LinkSet) {
	api.RegisterRoutes(s.humaAPI, s.services, s.config.App.DataDir)
	humastar.AutoLinks(s.humaAPI, links)

	s.mux.Handle("/metrics", s.metrics.Handler())
	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service": "plat-mapcraft",
		"status":  "running",
	})
}
