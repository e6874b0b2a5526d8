// Package cache holds the last reconciled list value per open list, plus an
// optimistic overlay for locally-originated mutations that have not yet been
// confirmed by the store.
package cache

import (
	"context"

	"github.com/dmitrijs2005/listsync/internal/models"
)

// Transform produces the tentative list value for an optimistic mutation.
// It must not mutate its argument.
type Transform func(*models.List) (*models.List, error)

// Cache is the client-local view of lists the UI renders from.
//
// Get returns the optimistic value when one is pending, otherwise the last
// authoritative snapshot. SetFromRemote must be called only by the
// reconciliation path so there is a single authority for truth; it does not
// touch a pending overlay.
type Cache interface {
	// Get returns the visible value for the list or common.ErrNotFound.
	Get(ctx context.Context, listID string) (*models.List, error)

	// SetFromRemote overwrites the authoritative snapshot.
	SetFromRemote(ctx context.Context, l *models.List) error

	// ApplyOptimistic derives a tentative value from the currently visible
	// one, stores it as the overlay, and returns it. The authoritative
	// snapshot is kept so the overlay can be rolled back.
	ApplyOptimistic(ctx context.Context, listID string, apply Transform) (*models.List, error)

	// ClearOptimistic drops the overlay, exposing the authoritative snapshot
	// again. Dropping an absent overlay is a no-op.
	ClearOptimistic(ctx context.Context, listID string) error

	// Delete forgets the list entirely (list deleted or session closed).
	Delete(ctx context.Context, listID string) error

	// Clear forgets everything. Called on sign-out so the next session never
	// observes the previous user's lists.
	Clear(ctx context.Context) error
}
