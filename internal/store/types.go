package store

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rendis/flowcanvas/internal/steps"
	"github.com/rendis/flowcanvas/pkg/schema"
)

// Draft is a saved copy of an integration.
type Draft struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Integration *schema.Integration `json:"integration"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// DraftFilter narrows ListDrafts. Zero values match everything.
type DraftFilter struct {
	Name      string
	DSL       string
	Namespace string
	Limit     int
}

func (f DraftFilter) match(d *Draft) bool {
	if f.Name != "" && d.Name != f.Name {
		return false
	}
	if d.Integration == nil {
		return f.DSL == "" && f.Namespace == ""
	}
	if f.DSL != "" && d.Integration.Metadata.DSL != f.DSL {
		return false
	}
	if f.Namespace != "" && d.Integration.Metadata.Namespace != f.Namespace {
		return false
	}
	return true
}

// prepareDraft validates d and fills its ID, Integration and UpdatedAt.
func prepareDraft(d *Draft, now time.Time) error {
	if d == nil {
		return schema.NewError(schema.ErrCodeValidation, "draft is nil")
	}
	if d.Name == "" {
		return schema.NewError(schema.ErrCodeValidation, "draft name is required")
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Integration == nil {
		d.Integration = schema.NewIntegration()
	}
	d.UpdatedAt = now
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	return nil
}

func cloneDraft(d *Draft) *Draft {
	cp := *d
	cp.Integration = steps.CloneIntegration(d.Integration)
	return &cp
}

// sortDrafts orders by UpdatedAt descending, then ID.
func sortDrafts(list []*Draft) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].UpdatedAt.Equal(list[j].UpdatedAt) {
			return list[i].UpdatedAt.After(list[j].UpdatedAt)
		}
		return list[i].ID < list[j].ID
	})
}

func applyLimit(list []*Draft, limit int) []*Draft {
	if limit > 0 && len(list) > limit {
		return list[:limit]
	}
	return list
}

func storeNotFound(resource, id string) *schema.FlowError {
	return schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", resource, id)
}

func storeError(op string, err error) *schema.FlowError {
	return schema.NewErrorf(schema.ErrCodeStore, "%s: %v", op, err).WithCause(err)
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
