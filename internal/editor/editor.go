// Package editor reacts to integration changes: it rebuilds and lays out
// the graph, refreshes step views and turns canvas interactions back into
// store mutations.
package editor

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/rendis/flowcanvas/internal/backend"
	"github.com/rendis/flowcanvas/internal/diagram"
	"github.com/rendis/flowcanvas/internal/layout"
	"github.com/rendis/flowcanvas/internal/logging"
	"github.com/rendis/flowcanvas/internal/metrics"
	"github.com/rendis/flowcanvas/internal/state"
	"github.com/rendis/flowcanvas/internal/streaming"
	"github.com/rendis/flowcanvas/pkg/schema"
)

// Deps holds the collaborators of an Editor. Integrations, Graph and Engine
// are required.
type Deps struct {
	Integrations *state.IntegrationStore
	Graph        *state.GraphStore
	Engine       layout.Engine
	Viewport     layout.Size
	Views        backend.ViewsService
	Hub          streaming.EventHub
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
}

// Editor is the change-reaction loop between the two stores.
type Editor struct {
	integrations *state.IntegrationStore
	graph        *state.GraphStore
	runner       *layout.Runner
	views        backend.ViewsService
	hub          streaming.EventHub
	metrics      *metrics.Metrics
	logger       *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	unsub  func()

	// mu orders rebuilds so layout tokens follow integration order.
	mu       sync.Mutex
	lastSeen *schema.Integration
	built    diagram.Graph

	viewsMu    sync.Mutex
	viewsToken uint64
	wg         sync.WaitGroup
}

// New validates deps and creates an Editor. Call Start to begin reacting.
func New(deps Deps) (*Editor, error) {
	if deps.Integrations == nil || deps.Graph == nil || deps.Engine == nil {
		return nil, errors.New("editor: integrations, graph and engine are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	e := &Editor{
		integrations: deps.Integrations,
		graph:        deps.Graph,
		views:        deps.Views,
		hub:          deps.Hub,
		metrics:      deps.Metrics,
		logger:       logger,
		ctx:          context.Background(),
	}
	e.runner = layout.NewRunner(deps.Engine,
		layout.WithLogger(logger),
		layout.WithMetrics(deps.Metrics),
		layout.WithViewport(deps.Viewport),
		layout.WithDiscardHook(e.onLayoutDiscarded),
		layout.WithFailureHook(e.onLayoutFailed),
	)
	return e, nil
}

// Start subscribes to the integration store and builds the current
// integration. Background work stops when ctx is cancelled or on Close.
func (e *Editor) Start(ctx context.Context) {
	e.ctx, e.cancel = context.WithCancel(ctx)
	e.unsub = e.integrations.Subscribe(e.onChange)
	e.refresh()
}

// Close unsubscribes and waits for in-flight layouts and view fetches.
func (e *Editor) Close() {
	if e.unsub != nil {
		e.unsub()
	}
	if e.cancel != nil {
		e.cancel()
	}
	e.Wait()
}

// Wait blocks until in-flight layouts and view fetches finish.
func (e *Editor) Wait() {
	e.runner.Wait()
	e.wg.Wait()
}

// Integrations returns the logical store.
func (e *Editor) Integrations() *state.IntegrationStore { return e.integrations }

// GraphStore returns the on-screen store.
func (e *Editor) GraphStore() *state.GraphStore { return e.graph }

// Graph returns the last committed graph.
func (e *Editor) Graph() diagram.Graph { return e.graph.Snapshot() }

// EngineName returns the layout engine in use.
func (e *Editor) EngineName() string { return e.runner.Engine().Name() }

func (e *Editor) onChange(c state.Change) {
	event := schema.EventIntegrationChanged
	if c.Reason == schema.ReasonDeleteIntegration {
		event = schema.EventIntegrationDeleted
	}
	e.publish(event, "", map[string]any{
		"reason": c.Reason,
		"steps":  len(c.Current.Steps),
	})
	e.refresh()
}

// refresh rebuilds from the store's current value when it differs from the
// last one seen. Reading the store instead of the change keeps concurrent
// mutations from committing an older integration last.
func (e *Editor) refresh() {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur := e.integrations.Integration()
	if cur == e.lastSeen {
		return
	}
	e.lastSeen = cur

	e.fetchViews(cur)

	g := diagram.Build(cur.Steps, e.graph.Direction())
	e.metrics.GraphRebuilt()
	e.submit(g)
}

// submit must be called with e.mu held.
func (e *Editor) submit(g diagram.Graph) {
	e.built = g
	dir := e.graph.Direction()
	ctx := logging.WithIntegration(e.ctx, e.integrationName())
	e.runner.Submit(ctx, g, dir, e.commit)
}

func (e *Editor) commit(g diagram.Graph) {
	e.graph.SetGraph(g)
	e.publish(schema.EventGraphCommitted, "", map[string]any{
		"nodes":     len(g.Nodes),
		"edges":     len(g.Edges),
		"direction": e.graph.Direction(),
	})
}

func (e *Editor) onLayoutDiscarded(token uint64) {
	e.publish(schema.EventLayoutDiscarded, "", map[string]any{"token": token})
}

func (e *Editor) onLayoutFailed(token uint64, err error) {
	e.publish(schema.EventLayoutFailed, "", map[string]any{
		"token": token,
		"error": err.Error(),
	})
}

// SetDirection changes the layout direction and lays out the current graph
// again without rebuilding it from the steps.
func (e *Editor) SetDirection(dir diagram.Direction) error {
	if !dir.Valid() {
		return schema.NewErrorf(schema.ErrCodeValidation, "unknown direction %q", dir)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.graph.SetDirection(dir)
	e.submit(diagram.Reorient(e.built, dir))
	return nil
}

// fetchViews must be called with e.mu held. Only the latest fetch may
// install its result.
func (e *Editor) fetchViews(in *schema.Integration) {
	if e.views == nil {
		return
	}
	e.viewsMu.Lock()
	e.viewsToken++
	token := e.viewsToken
	e.viewsMu.Unlock()

	ctx := logging.WithIntegration(e.ctx, in.Metadata.Name)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		views, err := e.views.FetchViews(ctx, in.Steps, in.Metadata.Namespace)
		if err != nil {
			logging.LogWith(ctx, e.logger).Warn("fetch views failed", "error", err)
			e.publish(schema.EventViewsFailed, "", map[string]any{"error": err.Error()})
			return
		}

		e.viewsMu.Lock()
		defer e.viewsMu.Unlock()
		if token != e.viewsToken {
			return
		}
		e.integrations.SetViews(views)
		e.publish(schema.EventViewsUpdated, "", map[string]any{"views": len(views)})
	}()
}

func (e *Editor) integrationName() string {
	return e.integrations.Integration().Metadata.Name
}

func (e *Editor) publish(eventType, stepUUID string, payload any) {
	if e.hub == nil {
		return
	}
	err := e.hub.Publish(e.ctx, streaming.StreamEvent{
		Integration: e.integrationName(),
		StepUUID:    stepUUID,
		EventType:   eventType,
		Payload:     payload,
	})
	if err != nil {
		e.logger.Debug("publish event failed", "event", eventType, "error", err)
	}
}
