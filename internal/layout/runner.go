package layout

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rendis/flowcanvas/internal/diagram"
	"github.com/rendis/flowcanvas/internal/metrics"
)

// CommitFunc receives a laid-out graph that is still current.
type CommitFunc func(diagram.Graph)

// Runner runs layouts asynchronously. Every Submit takes a new token; a
// result is committed only when its token is still the latest, so a slow
// layout never overwrites a newer one.
type Runner struct {
	engine   Engine
	logger   *slog.Logger
	metrics  *metrics.Metrics
	viewport Size

	onDiscard func(token uint64)
	onFailure func(token uint64, err error)

	mu     sync.Mutex
	latest uint64
	wg     sync.WaitGroup
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

func WithMetrics(m *metrics.Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// WithViewport enables placeholder centring for an empty integration.
func WithViewport(size Size) RunnerOption {
	return func(r *Runner) { r.viewport = size }
}

// WithDiscardHook is called for every stale result.
func WithDiscardHook(fn func(token uint64)) RunnerOption {
	return func(r *Runner) { r.onDiscard = fn }
}

// WithFailureHook is called when the engine fails.
func WithFailureHook(fn func(token uint64, err error)) RunnerOption {
	return func(r *Runner) { r.onFailure = fn }
}

func NewRunner(engine Engine, opts ...RunnerOption) *Runner {
	r := &Runner{
		engine: engine,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Engine returns the engine in use.
func (r *Runner) Engine() Engine {
	return r.engine
}

// Submit starts a layout of g and returns its token. commit runs on the
// layout goroutine, serialized with other commits.
func (r *Runner) Submit(ctx context.Context, g diagram.Graph, dir diagram.Direction, commit CommitFunc) uint64 {
	r.mu.Lock()
	r.latest++
	token := r.latest
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(ctx, token, g, dir, commit)
	}()
	return token
}

func (r *Runner) run(ctx context.Context, token uint64, g diagram.Graph, dir diagram.Direction, commit CommitFunc) {
	start := time.Now()
	out, err := Apply(ctx, r.engine, g, dir, r.viewport)
	r.metrics.ObserveLayout(r.engine.Name(), time.Since(start))

	if err != nil {
		r.metrics.LayoutResult(metrics.OutcomeFailed)
		r.logger.ErrorContext(ctx, "layout failed",
			"engine", r.engine.Name(),
			"token", token,
			"error", err,
		)
		if r.onFailure != nil {
			r.onFailure(token, err)
		}
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if token != r.latest {
		r.metrics.LayoutResult(metrics.OutcomeStale)
		r.logger.DebugContext(ctx, "discarding stale layout",
			"token", token,
			"latest", r.latest,
		)
		if r.onDiscard != nil {
			r.onDiscard(token)
		}
		return
	}

	r.metrics.LayoutResult(metrics.OutcomeCommitted)
	commit(out)
}

// Latest returns the most recently issued token.
func (r *Runner) Latest() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latest
}

// Wait blocks until every submitted layout has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}
