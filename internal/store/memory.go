package store

import (
	"context"
	"sync"
)

// MemoryStore keeps drafts in process memory. Used by tests and by
// `serve --store=memory`.
type MemoryStore struct {
	mu     sync.RWMutex
	drafts map[string]*Draft
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{drafts: make(map[string]*Draft)}
}

func (s *MemoryStore) Migrate(ctx context.Context) error { return ctx.Err() }

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) SaveDraft(ctx context.Context, d *Draft) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := prepareDraft(d, nowUTC()); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.drafts[d.ID]; ok {
		d.CreatedAt = existing.CreatedAt
	}
	s.drafts[d.ID] = cloneDraft(d)
	return nil
}

func (s *MemoryStore) GetDraft(ctx context.Context, id string) (*Draft, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drafts[id]
	if !ok {
		return nil, storeNotFound("draft", id)
	}
	return cloneDraft(d), nil
}

func (s *MemoryStore) ListDrafts(ctx context.Context, filter DraftFilter) ([]*Draft, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	var out []*Draft
	for _, d := range s.drafts {
		if filter.match(d) {
			out = append(out, cloneDraft(d))
		}
	}
	s.mu.RUnlock()

	sortDrafts(out)
	return applyLimit(out, filter.Limit), nil
}

func (s *MemoryStore) DeleteDraft(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drafts[id]; !ok {
		return storeNotFound("draft", id)
	}
	delete(s.drafts, id)
	return nil
}

var _ Store = (*MemoryStore)(nil)
