// Package catalog caches the step catalog served by the backend and keeps
// it fresh on a cron schedule.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rendis/flowcanvas/internal/backend"
	"github.com/rendis/flowcanvas/internal/logging"
	"github.com/rendis/flowcanvas/internal/metrics"
	"github.com/rendis/flowcanvas/internal/steps"
	"github.com/rendis/flowcanvas/pkg/schema"
)

// DefaultSchedule refreshes the catalog every ten minutes.
const DefaultSchedule = "*/10 * * * *"

// Option configures a Cache.
type Option func(*Cache)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithRefreshHook is called after every refresh attempt with the number of
// cached steps and the refresh error, if any.
func WithRefreshHook(fn func(count int, err error)) Option {
	return func(c *Cache) { c.onRefresh = fn }
}

// Cache wraps a CatalogService. Reads are served from memory; Refresh and
// the background loop replace the snapshot atomically.
type Cache struct {
	source    backend.CatalogService
	schedule  cron.Schedule
	spec      string
	logger    *slog.Logger
	metrics   *metrics.Metrics
	onRefresh func(int, error)

	mu        sync.RWMutex
	steps     []schema.Step
	caps      *backend.Capabilities
	refreshed time.Time

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCache parses spec (standard five-field cron) and returns an empty cache.
// An empty spec uses DefaultSchedule.
func NewCache(source backend.CatalogService, spec string, opts ...Option) (*Cache, error) {
	if spec == "" {
		spec = DefaultSchedule
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "parse catalog refresh schedule %q: %v", spec, err).WithCause(err)
	}
	c := &Cache{
		source:   source,
		schedule: schedule,
		spec:     spec,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NextRefresh returns the first scheduled refresh after from.
func (c *Cache) NextRefresh(from time.Time) time.Time {
	return c.schedule.Next(from)
}

// Refresh fetches capabilities and steps. On error the previous snapshot is kept.
func (c *Cache) Refresh(ctx context.Context) error {
	err := c.refresh(ctx)
	c.metrics.CatalogRefreshed(err == nil)

	c.mu.RLock()
	count := len(c.steps)
	c.mu.RUnlock()

	if err != nil {
		c.logger.Warn("catalog refresh failed", slog.String("error", err.Error()))
	} else {
		c.logger.Debug("catalog refreshed", slog.Int("steps", count))
	}
	if c.onRefresh != nil {
		c.onRefresh(count, err)
	}
	return err
}

func (c *Cache) refresh(ctx context.Context) error {
	caps, err := c.source.FetchCapabilities(ctx)
	if err != nil {
		return fmt.Errorf("fetch capabilities: %w", err)
	}
	list, err := c.source.FetchCatalogSteps(ctx)
	if err != nil {
		return fmt.Errorf("fetch catalog steps: %w", err)
	}

	c.mu.Lock()
	c.caps = caps
	c.steps = steps.CloneSteps(list)
	c.refreshed = time.Now().UTC()
	c.mu.Unlock()
	return nil
}

// Steps returns a deep copy of the cached catalog.
func (c *Cache) Steps() []schema.Step {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return steps.CloneSteps(c.steps)
}

// Capabilities returns the cached capabilities, or nil before the first refresh.
func (c *Cache) Capabilities() *backend.Capabilities {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.caps
}

// RefreshedAt returns the time of the last successful refresh.
func (c *Cache) RefreshedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshed
}

// Lookup returns the catalog step with the given name.
func (c *Cache) Lookup(name string) (schema.Step, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.steps {
		if s.Name == name {
			return steps.Clone(s), true
		}
	}
	return schema.Step{}, false
}

// ByKind returns the catalog steps of the given kind, or all of them when
// kind is empty.
func (c *Cache) ByKind(kind string) []schema.Step {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []schema.Step
	for _, s := range c.steps {
		if kind == "" || s.Kind == kind {
			out = append(out, steps.Clone(s))
		}
	}
	return out
}

// FetchCapabilities serves from the cache, refreshing first when empty.
func (c *Cache) FetchCapabilities(ctx context.Context) (*backend.Capabilities, error) {
	if caps := c.Capabilities(); caps != nil {
		return caps, nil
	}
	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}
	return c.Capabilities(), nil
}

// FetchCatalogSteps serves from the cache, refreshing first when empty.
func (c *Cache) FetchCatalogSteps(ctx context.Context) ([]schema.Step, error) {
	if !c.RefreshedAt().IsZero() {
		return c.Steps(), nil
	}
	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}
	return c.Steps(), nil
}

// Start refreshes once, then on every scheduled tick until Stop or ctx is done.
func (c *Cache) Start(ctx context.Context) error {
	c.runMu.Lock()
	if c.done != nil {
		c.runMu.Unlock()
		return fmt.Errorf("catalog cache already started")
	}
	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.runMu.Unlock()

	go c.loop(loopCtx)
	c.logger.Info("catalog refresh started", slog.String("schedule", c.spec))
	return nil
}

func (c *Cache) loop(ctx context.Context) {
	defer close(c.done)

	_ = c.Refresh(ctx)

	for {
		wait := time.Until(c.schedule.Next(time.Now()))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			_ = c.Refresh(ctx)
		}
	}
}

// Stop halts the refresh loop. Stopping a stopped cache is a no-op.
func (c *Cache) Stop() {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
	c.cancel = nil
	c.done = nil
	c.logger.Info("catalog refresh stopped")
}

var _ backend.CatalogService = (*Cache)(nil)
