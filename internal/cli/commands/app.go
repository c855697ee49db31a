package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/conduit-lang/sparqld/internal/cli/config"
	"github.com/conduit-lang/sparqld/internal/endpoint"
	"github.com/conduit-lang/sparqld/internal/metrics"
	"github.com/conduit-lang/sparqld/internal/rdf"
	"github.com/conduit-lang/sparqld/internal/registry"
	"github.com/conduit-lang/sparqld/internal/web/middleware"
	"github.com/conduit-lang/sparqld/internal/web/router"
)

// HealthPath answers liveness probes.
const HealthPath = "/healthz"

// App is a fully wired server: the router with its middleware, the ambient
// routes and the endpoints declared in the configuration graph.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Router    *router.Router
	Registry  *registry.Registry
	Metrics   *metrics.Metrics
	Graph     *rdf.Graph
	Endpoints []endpoint.Descriptor
}

// NewApp assembles the server described by cfg.
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	graph, err := registry.LoadConfiguration(cfg.Endpoints.Configuration)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		Logger: logger,
		Router: router.NewRouter(),
		Graph:  graph,
	}

	skip := []string{HealthPath}
	var handlerOpts []endpoint.Option
	if cfg.Metrics.Enabled {
		app.Metrics = metrics.New()
		handlerOpts = append(handlerOpts, endpoint.WithRecorder(app.Metrics))
		skip = append(skip, cfg.Metrics.Path)
	}

	app.Router.Use(
		middleware.RequestID(),
		middleware.LoggingWithConfig(middleware.LoggingConfig{Logger: logger, SkipPaths: skip}),
		middleware.Recovery(logger),
	)
	if app.Metrics != nil {
		app.Router.Use(middleware.Metrics(app.Metrics))
	}

	app.Router.Get(HealthPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, "ok")
	})
	if app.Metrics != nil {
		app.Router.Method(http.MethodGet, cfg.Metrics.Path, app.Metrics.Handler())
	}

	app.Registry = registry.New(logger.Named("registry"), handlerOpts...)
	app.Endpoints = app.Registry.RegisterAllContext(ctx, graph, app.Router)
	if app.Metrics != nil {
		app.Metrics.RoutesMounted.Set(float64(len(app.Endpoints)))
	}

	logger.Info("endpoints registered",
		zap.String("configuration", cfg.Endpoints.Configuration),
		zap.Int("count", len(app.Endpoints)))
	if len(app.Endpoints) == 0 {
		logger.Warn("no SPARQL endpoints configured", zap.String("configuration", cfg.Endpoints.Configuration))
	}
	return app, nil
}

// Close releases the stores opened for the endpoints.
func (a *App) Close(ctx context.Context) error {
	if err := a.Registry.Close(ctx); err != nil {
		return fmt.Errorf("failed to close stores: %w", err)
	}
	return nil
}

// UnknownKinds lists configuration resources whose cfg:type has no builder,
// as (resource, kind) pairs.
func (a *App) UnknownKinds() [][2]string {
	var out [][2]string
	for _, t := range a.Graph.Match(nil, registry.PropType, nil) {
		kind, ok := registry.KindOf(a.Graph, t.S)
		if ok && !a.Registry.HasKind(kind) {
			out = append(out, [2]string{rdf.FormatTerm(t.S), kind})
		}
	}
	return out
}
