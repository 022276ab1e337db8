// Package state holds the two editor stores: the logical integration and
// the on-screen graph.
package state

import (
	"log/slog"
	"slices"
	"strconv"
	"sync"

	"github.com/rendis/flowcanvas/internal/metrics"
	"github.com/rendis/flowcanvas/internal/steps"
	"github.com/rendis/flowcanvas/pkg/schema"
)

// Validator checks steps before they enter the store.
type Validator interface {
	ValidateStep(step schema.Step) *schema.ValidationResult
	ValidateIntegration(in *schema.Integration) *schema.ValidationResult
}

// Change describes one store transition. Previous and Current are never
// modified after publication.
type Change struct {
	Previous *schema.Integration
	Current  *schema.Integration
	Reason   string
}

// IntegrationPatch is a shallow merge: nil fields are left unchanged.
type IntegrationPatch struct {
	Metadata *schema.Metadata   `json:"metadata,omitempty"`
	Steps    []schema.Step      `json:"steps,omitempty"`
	Params   []schema.Parameter `json:"params,omitempty"`
}

// IntegrationStore owns the logical step list. Every mutation installs a
// new *schema.Integration, so a pointer comparison detects change.
type IntegrationStore struct {
	mu          sync.RWMutex
	integration *schema.Integration
	views       []schema.View

	validator Validator
	debug     *slog.Logger
	metrics   *metrics.Metrics

	obsMu     sync.Mutex
	observers map[int]func(Change)
	nextObs   int
}

// IntegrationOption configures an IntegrationStore.
type IntegrationOption func(*IntegrationStore)

func WithValidator(v Validator) IntegrationOption {
	return func(s *IntegrationStore) { s.validator = v }
}

// WithDebugSink logs every transition at debug level.
func WithDebugSink(logger *slog.Logger) IntegrationOption {
	return func(s *IntegrationStore) { s.debug = logger }
}

func WithStoreMetrics(m *metrics.Metrics) IntegrationOption {
	return func(s *IntegrationStore) { s.metrics = m }
}

// WithInitial seeds the store with a copy of in.
func WithInitial(in *schema.Integration) IntegrationOption {
	return func(s *IntegrationStore) {
		if in == nil {
			return
		}
		cp := steps.CloneIntegration(in)
		cp.Steps = steps.RegenerateIdentities(cp.Steps)
		if cp.Steps == nil {
			cp.Steps = []schema.Step{}
		}
		s.integration = cp
	}
}

func NewIntegrationStore(opts ...IntegrationOption) *IntegrationStore {
	s := &IntegrationStore{
		integration: schema.NewIntegration(),
		observers:   make(map[int]func(Change)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Integration returns the current value. Callers must treat it as read-only.
func (s *IntegrationStore) Integration() *schema.Integration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.integration
}

// Steps returns the current top-level step list.
func (s *IntegrationStore) Steps() []schema.Step {
	return s.Integration().Steps
}

// AddStep appends step with UUID name + index.
func (s *IntegrationStore) AddStep(step schema.Step) error {
	step, err := s.prepare(step)
	if err != nil {
		return err
	}
	return s.mutate(schema.ReasonAddStep, func(cur []schema.Step) ([]schema.Step, error) {
		step.UUID = steps.UUIDFor(step.Name, len(cur))
		out := make([]schema.Step, 0, len(cur)+1)
		out = append(out, cur...)
		return append(out, step), nil
	})
}

// DeleteStep removes the top-level step at index.
func (s *IntegrationStore) DeleteStep(index int) error {
	return s.mutate(schema.ReasonDeleteStep, func(cur []schema.Step) ([]schema.Step, error) {
		if index < 0 || index >= len(cur) {
			return nil, indexNotFound(index)
		}
		return slices.Delete(slices.Clone(cur), index, index+1), nil
	})
}

// ReplaceStep overwrites the top-level step at *index, or prepends step
// when index is nil.
func (s *IntegrationStore) ReplaceStep(step schema.Step, index *int) error {
	step, err := s.prepare(step)
	if err != nil {
		return err
	}
	return s.mutate(schema.ReasonReplaceStep, func(cur []schema.Step) ([]schema.Step, error) {
		if index == nil {
			out := make([]schema.Step, 0, len(cur)+1)
			out = append(out, step)
			return append(out, cur...), nil
		}
		if *index < 0 || *index >= len(cur) {
			return nil, indexNotFound(*index)
		}
		out := slices.Clone(cur)
		out[*index] = step
		return out, nil
	})
}

// ReplaceStepAt overwrites the step at addr at any depth. Only the ancestors
// along the path are copied.
func (s *IntegrationStore) ReplaceStepAt(step schema.Step, addr schema.StepAddress) error {
	step, err := s.prepare(step)
	if err != nil {
		return err
	}
	return s.mutate(schema.ReasonReplaceStep, func(cur []schema.Step) ([]schema.Step, error) {
		return steps.ReplaceAt(cur, addr, step)
	})
}

// InsertStepAt inserts step before addr.Index in the list reached by
// addr.Path. addr.Index may equal the list length to append.
func (s *IntegrationStore) InsertStepAt(step schema.Step, addr schema.StepAddress) error {
	step, err := s.prepare(step)
	if err != nil {
		return err
	}
	return s.mutate(schema.ReasonInsertStep, func(cur []schema.Step) ([]schema.Step, error) {
		return steps.InsertAt(cur, addr, step)
	})
}

// DeleteStepAt removes the step at addr at any depth.
func (s *IntegrationStore) DeleteStepAt(addr schema.StepAddress) error {
	return s.mutate(schema.ReasonDeleteStep, func(cur []schema.Step) ([]schema.Step, error) {
		return steps.DeleteAt(cur, addr)
	})
}

// AddBranch appends an empty branch to the step with uuid. It fails with
// CONFLICT when the step is at MaxBranches or cannot branch.
func (s *IntegrationStore) AddBranch(uuid string) error {
	return s.mutate(schema.ReasonAddBranch, func(cur []schema.Step) ([]schema.Step, error) {
		addr, ok := steps.Locate(uuid, cur)
		if !ok {
			return nil, schema.NewErrorf(schema.ErrCodeNotFound, "step %q not found", uuid).WithStep(uuid)
		}
		return steps.UpdateAt(cur, addr, func(st schema.Step) (schema.Step, error) {
			if !st.CanAddBranch() {
				return st, schema.NewErrorf(schema.ErrCodeConflict,
					"step %q cannot take another branch (max %d)", st.Name, st.MaxBranches).WithStep(uuid)
			}
			st.Branches = append(st.Branches, newBranch(len(st.Branches)))
			return st, nil
		})
	})
}

// UpdateIntegration merges patch into the current integration.
func (s *IntegrationStore) UpdateIntegration(patch IntegrationPatch) error {
	s.mu.Lock()
	prev := s.integration
	next := steps.CloneIntegration(prev)
	if patch.Metadata != nil {
		next.Metadata = *patch.Metadata
	}
	if patch.Steps != nil {
		next.Steps = steps.RegenerateIdentities(padAll(patch.Steps))
	}
	if patch.Params != nil {
		next.Params = slices.Clone(patch.Params)
	}

	if s.validator != nil {
		if err := resultError(s.validator.ValidateIntegration(next)); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	s.integration = next
	s.mu.Unlock()

	s.publish(Change{Previous: prev, Current: next, Reason: schema.ReasonUpdateIntegration})
	return nil
}

// DeleteIntegration resets the store to the empty template.
func (s *IntegrationStore) DeleteIntegration() {
	s.mu.Lock()
	prev := s.integration
	next := schema.NewIntegration()
	s.integration = next
	s.views = nil
	s.mu.Unlock()

	s.publish(Change{Previous: prev, Current: next, Reason: schema.ReasonDeleteIntegration})
}

// SetViews replaces the step extension views.
func (s *IntegrationStore) SetViews(views []schema.View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views = slices.Clone(views)
}

func (s *IntegrationStore) Views() []schema.View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.views)
}

// Subscribe registers fn for every change. Observers run synchronously on
// the mutating goroutine after the store lock is released.
func (s *IntegrationStore) Subscribe(fn func(Change)) (cancel func()) {
	s.obsMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.obsMu.Lock()
			delete(s.observers, id)
			s.obsMu.Unlock()
		})
	}
}

// prepare pads missing branches and validates a step entering the store.
func (s *IntegrationStore) prepare(step schema.Step) (schema.Step, error) {
	step = padBranches(steps.Clone(step))
	if s.validator == nil {
		return step, nil
	}
	if err := resultError(s.validator.ValidateStep(step)); err != nil {
		return step, err
	}
	return step, nil
}

// mutate applies fn to the current steps, regenerates identities and
// installs the result. On error the store is unchanged.
func (s *IntegrationStore) mutate(reason string, fn func([]schema.Step) ([]schema.Step, error)) error {
	s.mu.Lock()
	prev := s.integration
	list, err := fn(prev.Steps)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	next := &schema.Integration{
		Metadata: prev.Metadata,
		Steps:    steps.RegenerateIdentities(list),
		Params:   prev.Params,
	}
	if next.Steps == nil {
		next.Steps = []schema.Step{}
	}
	s.integration = next
	s.mu.Unlock()

	s.publish(Change{Previous: prev, Current: next, Reason: reason})
	return nil
}

func (s *IntegrationStore) publish(c Change) {
	s.metrics.StoreMutation(c.Reason)
	if s.debug != nil {
		s.debug.Debug("integration transition",
			"reason", c.Reason,
			"integration", c.Current.Metadata.Name,
			"steps_before", steps.Count(c.Previous.Steps),
			"steps_after", steps.Count(c.Current.Steps),
		)
	}

	s.obsMu.Lock()
	fns := make([]func(Change), 0, len(s.observers))
	ids := make([]int, 0, len(s.observers))
	for id := range s.observers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, s.observers[id])
	}
	s.obsMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

// padBranches gives a branch-capable step at least MinBranches branches,
// at every depth.
func padBranches(step schema.Step) schema.Step {
	if step.Branches == nil {
		return step
	}
	for len(step.Branches) < step.MinBranches {
		step.Branches = append(step.Branches, newBranch(len(step.Branches)))
	}
	for i := range step.Branches {
		step.Branches[i].Steps = padAll(step.Branches[i].Steps)
	}
	return step
}

func padAll(list []schema.Step) []schema.Step {
	if list == nil {
		return nil
	}
	out := make([]schema.Step, len(list))
	for i, st := range list {
		out[i] = padBranches(steps.Clone(st))
	}
	return out
}

func resultError(r *schema.ValidationResult) error {
	if r == nil {
		return nil
	}
	return r.ToError()
}

func newBranch(index int) schema.Branch {
	return schema.Branch{Identifier: "branch-" + strconv.Itoa(index+1), Steps: []schema.Step{}}
}

func indexNotFound(index int) error {
	return schema.NewErrorf(schema.ErrCodeNotFound, "no step at index %d", index)
}
