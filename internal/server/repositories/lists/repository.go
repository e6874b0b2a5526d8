// Package lists provides server-side persistence for list documents.
package lists

import (
	"context"

	"github.com/dmitrijs2005/listsync/internal/models"
)

// Repository stores list documents. The items array is one column written
// whole; ReplaceItems commits only when the caller's expected version matches
// the stored one (compare-and-swap), which is what makes the client's
// read-apply-write protocol safe across concurrent writers.
type Repository interface {
	// Create inserts a new list document at version 1.
	Create(ctx context.Context, l *models.List) error

	// GetByID returns the document or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.List, error)

	// ListByOwner returns every list owned by ownerID.
	ListByOwner(ctx context.Context, ownerID string) ([]*models.List, error)

	// ReplaceItems swaps the items array and bumps the version, guarded by
	// expectedVersion. Returns the updated document, common.ErrVersionConflict
	// on a stale base, or common.ErrNotFound.
	ReplaceItems(ctx context.Context, id string, items []models.Item, expectedVersion int64) (*models.List, error)

	// Rename overwrites the name and bumps the version. Concurrent renames
	// are last-write-wins.
	Rename(ctx context.Context, id, name string) (*models.List, error)

	// Delete removes the document. Deleting an absent document is a no-op.
	Delete(ctx context.Context, id string) error
}
