// Package store persists named snapshots (drafts) of an integration.
package store

import "context"

// Store defines the persistence layer contract.
// All implementations must be safe for concurrent use.
type Store interface {
	// SaveDraft inserts or updates d. An empty ID is assigned a new UUID;
	// CreatedAt is kept across updates and UpdatedAt is set to now.
	SaveDraft(ctx context.Context, d *Draft) error
	GetDraft(ctx context.Context, id string) (*Draft, error)
	// ListDrafts returns drafts ordered by most recently updated first.
	ListDrafts(ctx context.Context, filter DraftFilter) ([]*Draft, error)
	DeleteDraft(ctx context.Context, id string) error

	// Maintenance
	Migrate(ctx context.Context) error

	// Lifecycle
	Close() error
}
