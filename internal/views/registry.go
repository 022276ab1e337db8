// Package views resolves the UI extension views that apply to the steps of
// an integration.
package views

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/rendis/flowcanvas/internal/expressions"
	"github.com/rendis/flowcanvas/internal/logging"
	"github.com/rendis/flowcanvas/internal/steps"
	"github.com/rendis/flowcanvas/pkg/schema"
)

// Definition is a registered view. Generic definitions apply once per
// integration; step definitions apply to every step whose name equals
// StepName or for which Constraint evaluates to true.
type Definition struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	StepName   string `yaml:"step,omitempty"`
	URL        string `yaml:"url,omitempty"`
	Module     string `yaml:"module,omitempty"`
	Scope      string `yaml:"scope,omitempty"`
	Constraint string `yaml:"constraint,omitempty"`
}

type definitionFile struct {
	Views []Definition `yaml:"views"`
}

// Registry is an in-process ViewsService backed by view definitions.
type Registry struct {
	engine *expressions.ExprEngine
	logger *slog.Logger

	mu   sync.RWMutex
	defs []Definition
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Registry{
		engine: expressions.NewExprEngine(),
		logger: logger,
	}
}

// Register adds definitions after checking that every constraint compiles.
func (r *Registry) Register(defs ...Definition) error {
	if err := r.check(defs); err != nil {
		return err
	}
	r.mu.Lock()
	r.defs = append(r.defs, defs...)
	r.mu.Unlock()
	return nil
}

// Replace swaps the whole definition set. On error the current set is kept.
func (r *Registry) Replace(defs ...Definition) error {
	if err := r.check(defs); err != nil {
		return err
	}
	r.mu.Lock()
	r.defs = append([]Definition(nil), defs...)
	r.mu.Unlock()
	return nil
}

func (r *Registry) check(defs []Definition) error {
	for _, d := range defs {
		if d.ID == "" {
			return schema.NewError(schema.ErrCodeValidation, "view definition id is required")
		}
		if d.Type != schema.ViewTypeGeneric && d.Type != schema.ViewTypeStep {
			return schema.NewErrorf(schema.ErrCodeValidation, "view %s: unknown type %q", d.ID, d.Type)
		}
		if d.Constraint != "" {
			if err := r.engine.Check(d.Constraint); err != nil {
				return schema.NewErrorf(schema.ErrCodeValidation, "view %s: invalid constraint", d.ID).WithCause(err)
			}
		}
	}
	return nil
}

// LoadFile registers the definitions listed under `views:` in a YAML file.
func (r *Registry) LoadFile(path string) error {
	defs, err := readFile(path)
	if err != nil {
		return err
	}
	return r.Register(defs...)
}

// ReloadFile replaces every definition with the contents of path.
func (r *Registry) ReloadFile(path string) error {
	defs, err := readFile(path)
	if err != nil {
		return err
	}
	return r.Replace(defs...)
}

func readFile(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read views file: %w", err)
	}
	var f definitionFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "parse views file %s: %v", path, err).WithCause(err)
	}
	return f.Views, nil
}

// Definitions returns a copy of the registered definitions.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

// FetchViews returns generic views followed by one step view per matching
// step, with View.Step set to that step's UUID. A constraint that fails to
// evaluate is logged and treated as not matching.
func (r *Registry) FetchViews(ctx context.Context, list []schema.Step, namespace string) ([]schema.View, error) {
	defs := r.Definitions()
	out := []schema.View{}

	for _, d := range defs {
		if d.Type == schema.ViewTypeGeneric {
			out = append(out, d.view(""))
		}
	}

	for s := range steps.Flatten(list) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var doc map[string]any
		for _, d := range defs {
			if d.Type != schema.ViewTypeStep {
				continue
			}
			if d.StepName != "" && d.StepName == s.Name {
				out = append(out, d.view(s.UUID))
				continue
			}
			if d.Constraint == "" {
				continue
			}
			if doc == nil {
				var err error
				if doc, err = steps.Document(s); err != nil {
					return nil, err
				}
			}
			ok, err := r.matches(ctx, d, doc, namespace)
			if err != nil {
				logging.LogWith(logging.WithStepUUID(ctx, s.UUID), r.logger).Warn("view constraint failed",
					"view", d.ID, "error", err)
				continue
			}
			if ok {
				out = append(out, d.view(s.UUID))
			}
		}
	}
	return out, nil
}

func (r *Registry) matches(ctx context.Context, d Definition, doc map[string]any, namespace string) (bool, error) {
	v, err := r.engine.Evaluate(ctx, d.Constraint, map[string]any{
		"step":      doc,
		"namespace": namespace,
	})
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, schema.NewErrorf(schema.ErrCodeExpression, "constraint of view %s returned %T, want bool", d.ID, v)
	}
	return b, nil
}

func (d Definition) view(stepUUID string) schema.View {
	return schema.View{
		ID:         d.ID,
		Name:       d.Name,
		Type:       d.Type,
		Step:       stepUUID,
		URL:        d.URL,
		Module:     d.Module,
		Scope:      d.Scope,
		Constraint: d.Constraint,
	}
}
