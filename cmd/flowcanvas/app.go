package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rendis/flowcanvas/internal/backend"
	"github.com/rendis/flowcanvas/internal/catalog"
	"github.com/rendis/flowcanvas/internal/diagram"
	"github.com/rendis/flowcanvas/internal/editor"
	"github.com/rendis/flowcanvas/internal/layout"
	"github.com/rendis/flowcanvas/internal/logging"
	"github.com/rendis/flowcanvas/internal/metrics"
	"github.com/rendis/flowcanvas/internal/state"
	"github.com/rendis/flowcanvas/internal/store"
	"github.com/rendis/flowcanvas/internal/streaming"
	"github.com/rendis/flowcanvas/internal/validation"
	"github.com/rendis/flowcanvas/internal/views"
	"github.com/rendis/flowcanvas/pkg/schema"
)

// app is the wired object graph shared by serve and mcp.
type app struct {
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	hub     *streaming.MemoryHub

	validator *validation.Validator
	editor    *editor.Editor
	backend   *backend.HTTPClient
	source    backend.SourceService
	registry  *views.Registry
	catalog   *catalog.Cache
	drafts    store.Store
}

// newApp builds every component named by cfg. Nothing is started.
func newApp(cfg Config, logger *slog.Logger) (*app, error) {
	m := metrics.New()
	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		hub: streaming.NewMemoryHub(streaming.WithDropHook(func(ev streaming.StreamEvent) {
			m.EventDropped(ev.EventType)
		})),
		source: backend.NewYAMLSource(),
	}

	var err error
	if a.validator, err = validation.NewValidator(); err != nil {
		return nil, fmt.Errorf("create validator: %w", err)
	}

	if cfg.BackendURL != "" {
		timeout, err := time.ParseDuration(cfg.BackendTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid backend timeout %q: %w", cfg.BackendTimeout, err)
		}
		a.backend, err = backend.NewHTTPClient(backend.HTTPConfig{
			BaseURL: cfg.BackendURL,
			Timeout: timeout,
			Logger:  logger,
		})
		if err != nil {
			return nil, err
		}
		a.source = a.backend
		a.catalog, err = catalog.NewCache(a.backend, cfg.CatalogSchedule,
			catalog.WithLogger(logger),
			catalog.WithMetrics(a.metrics),
			catalog.WithRefreshHook(a.publishCatalogRefresh),
		)
		if err != nil {
			return nil, err
		}
	}

	var viewsSvc backend.ViewsService
	switch {
	case cfg.ViewsFile != "":
		a.registry = views.NewRegistry(logger)
		if err := a.registry.LoadFile(cfg.ViewsFile); err != nil {
			return nil, err
		}
		viewsSvc = a.registry
	case a.backend != nil:
		viewsSvc = a.backend
	}

	if a.drafts, err = openStore(cfg); err != nil {
		return nil, err
	}

	engine, err := layout.New(cfg.LayoutEngine)
	if err != nil {
		return nil, err
	}

	integrations := state.NewIntegrationStore(
		state.WithValidator(a.validator),
		state.WithStoreMetrics(a.metrics),
		state.WithDebugSink(logger),
	)
	a.editor, err = editor.New(editor.Deps{
		Integrations: integrations,
		Graph:        state.NewGraphStore(diagram.Direction(cfg.Direction)),
		Engine:       engine,
		Viewport:     cfg.viewport(),
		Views:        viewsSvc,
		Hub:          a.hub,
		Metrics:      a.metrics,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) publishCatalogRefresh(count int, err error) {
	payload := map[string]any{"steps": count}
	if err != nil {
		payload["error"] = err.Error()
	}
	_ = a.hub.Publish(context.Background(), streaming.StreamEvent{
		EventType: schema.EventCatalogRefreshed,
		Payload:   payload,
	})
}

func openStore(cfg Config) (store.Store, error) {
	switch cfg.Store {
	case storeLibSQL:
		return store.NewLibSQLStore(cfg.DBPath)
	case storeRedis:
		var opts []store.RedisOption
		if cfg.RedisPrefix != "" {
			opts = append(opts, store.WithPrefix(cfg.RedisPrefix))
		}
		return store.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, opts...), nil
	default:
		return store.NewMemoryStore(), nil
	}
}

// start migrates the draft store, then starts the catalog refresh and the editor.
func (a *app) start(ctx context.Context) error {
	if err := a.drafts.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate %s store: %w", a.cfg.Store, err)
	}
	if a.catalog != nil {
		if err := a.catalog.Start(ctx); err != nil {
			return err
		}
	}
	a.editor.Start(ctx)
	return nil
}

func (a *app) close() error {
	a.editor.Close()
	a.hub.Close()
	if a.catalog != nil {
		a.catalog.Stop()
	}
	return a.drafts.Close()
}

// reload applies the runtime-changeable parts of next and reports the rest.
func (a *app) reload(next Config, level *slog.LevelVar) {
	diff := diffConfigs(a.cfg, next)
	if diff.LogLevelChanged {
		if lv, err := logging.ParseLevel(next.LogLevel); err != nil {
			a.logger.Warn("config reload: keeping log level", "error", err)
		} else {
			level.Set(lv)
			a.logger.Info("log level changed", "level", next.LogLevel)
		}
	}
	// The views file is re-read on every reload, changed path or not.
	if a.registry != nil && next.ViewsFile != "" {
		if err := a.registry.ReloadFile(next.ViewsFile); err != nil {
			a.logger.Warn("config reload: keeping views", "error", err)
		} else {
			a.logger.Info("views reloaded", "file", next.ViewsFile)
		}
	}
	if len(diff.RestartNeeded) > 0 {
		a.logger.Warn("config changed, restart needed", "fields", diff.RestartNeeded)
	}
	a.cfg = next
}
