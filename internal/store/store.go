// Package store defines the remote list store contract: read-snapshot,
// whole-array replace with version check, and change subscriptions.
package store

import (
	"context"

	"github.com/dmitrijs2005/listsync/internal/models"
)

// Snapshot is a complete point-in-time value of a list as observed by a
// reader. Deleted is set (and List is nil) when the document disappeared.
type Snapshot struct {
	List    *models.List
	Deleted bool
}

// UnsubscribeFunc tears down a change subscription. Safe to call twice.
type UnsubscribeFunc func()

// Store is the durable document store the sync engine writes through.
//
// The atomic write unit for item edits is the whole items array; ReplaceItems
// commits only when expectedVersion matches the current document version and
// returns common.ErrVersionConflict otherwise. Subscriptions deliver every
// snapshot for a list in order, including echoes of the subscriber's own
// writes.
type Store interface {
	// CreateList creates an empty named list and returns its id.
	CreateList(ctx context.Context, name, ownerID string) (string, error)

	// GetSnapshot returns the current list value or common.ErrNotFound.
	GetSnapshot(ctx context.Context, listID string) (*models.List, error)

	// ListsByOwner returns all lists owned by the given user.
	ListsByOwner(ctx context.Context, ownerID string) ([]*models.List, error)

	// Subscribe registers onSnapshot for the list. The current snapshot is
	// delivered first, then every subsequent change in order.
	Subscribe(ctx context.Context, listID string, onSnapshot func(Snapshot)) (UnsubscribeFunc, error)

	// ReplaceItems writes the whole items array, guarded by expectedVersion,
	// and returns the new document version.
	ReplaceItems(ctx context.Context, listID string, items []models.Item, expectedVersion int64) (int64, error)

	// RenameList overwrites the list name.
	RenameList(ctx context.Context, listID, name string) error

	// DeleteList removes the list. Deleting an absent list is not an error.
	DeleteList(ctx context.Context, listID string) error
}
