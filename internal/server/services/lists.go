package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/listsync/internal/common"
	"github.com/dmitrijs2005/listsync/internal/logging"
	"github.com/dmitrijs2005/listsync/internal/models"
	"github.com/dmitrijs2005/listsync/internal/server/hub"
	"github.com/dmitrijs2005/listsync/internal/server/repositories/lists"
	"github.com/dmitrijs2005/listsync/internal/store"
)

// ListService owns every list operation: it enforces ownership, validates
// input, writes through the repository and broadcasts committed snapshots to
// watchers.
type ListService struct {
	repo lists.Repository
	hub  *hub.Hub
	log  logging.Logger
}

func NewListService(repo lists.Repository, h *hub.Hub, log logging.Logger) *ListService {
	return &ListService{repo: repo, hub: h, log: log}
}

// Create makes an empty named list owned by userID.
func (s *ListService) Create(ctx context.Context, userID, name string) (*models.List, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, common.ErrInvalidName
	}

	l := &models.List{
		ID:      uuid.NewString(),
		OwnerID: userID,
		Name:    name,
		Items:   []models.Item{},
		Version: 1,
	}
	if err := s.repo.Create(ctx, l); err != nil {
		return nil, err
	}
	s.log.Info(ctx, "list created", "list_id", l.ID)
	return l, nil
}

// Get returns the current snapshot of a list the user owns.
func (s *ListService) Get(ctx context.Context, userID, listID string) (*models.List, error) {
	return s.ownedList(ctx, userID, listID)
}

// ListByOwner returns every list owned by the user.
func (s *ListService) ListByOwner(ctx context.Context, userID string) ([]*models.List, error) {
	return s.repo.ListByOwner(ctx, userID)
}

// ReplaceItems writes the whole items array guarded by expectedVersion and
// broadcasts the committed document. Returns common.ErrVersionConflict when
// the caller's base is stale.
func (s *ListService) ReplaceItems(ctx context.Context, userID, listID string, items []models.Item, expectedVersion int64) (*models.List, error) {
	if _, err := s.ownedList(ctx, userID, listID); err != nil {
		return nil, err
	}
	if err := checkItemIDs(items); err != nil {
		return nil, err
	}

	updated, err := s.repo.ReplaceItems(ctx, listID, items, expectedVersion)
	if err != nil {
		return nil, err
	}
	s.hub.Broadcast(listID, store.Snapshot{List: updated.Clone()})
	return updated, nil
}

// Rename overwrites the list name. Concurrent renames are last-write-wins.
func (s *ListService) Rename(ctx context.Context, userID, listID, name string) (*models.List, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, common.ErrInvalidName
	}
	if _, err := s.ownedList(ctx, userID, listID); err != nil {
		return nil, err
	}

	updated, err := s.repo.Rename(ctx, listID, name)
	if err != nil {
		return nil, err
	}
	s.hub.Broadcast(listID, store.Snapshot{List: updated.Clone()})
	return updated, nil
}

// Delete removes the list and tells every watcher it is gone. Deleting an
// absent list succeeds.
func (s *ListService) Delete(ctx context.Context, userID, listID string) error {
	_, err := s.ownedList(ctx, userID, listID)
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, listID); err != nil {
		return err
	}
	s.log.Info(ctx, "list deleted", "list_id", listID)
	s.hub.Broadcast(listID, store.Snapshot{Deleted: true})
	return nil
}

// Watch subscribes to a list's change stream. The returned snapshot is the
// current document; subsequent snapshots arrive on the watcher.
func (s *ListService) Watch(ctx context.Context, userID, listID string) (*hub.Watcher, *models.List, error) {
	l, err := s.ownedList(ctx, userID, listID)
	if err != nil {
		return nil, nil, err
	}
	return s.hub.Subscribe(listID), l, nil
}

func (s *ListService) ownedList(ctx context.Context, userID, listID string) (*models.List, error) {
	l, err := s.repo.GetByID(ctx, listID)
	if err != nil {
		return nil, err
	}
	if l.OwnerID != userID {
		return nil, common.ErrUnauthorized
	}
	return l, nil
}

func checkItemIDs(items []models.Item) error {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.ID == "" {
			return fmt.Errorf("%w: item %q has no id", common.ErrInvalidItems, item.Name)
		}
		if _, ok := seen[item.ID]; ok {
			return fmt.Errorf("%w: duplicate item id %s", common.ErrInvalidItems, item.ID)
		}
		seen[item.ID] = struct{}{}
	}
	return nil
}
