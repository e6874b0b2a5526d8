// Package inmemory implements the store contract in process memory. It backs
// tests and the server's non-durable storage option.
package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/listsync/internal/common"
	"github.com/dmitrijs2005/listsync/internal/models"
	"github.com/dmitrijs2005/listsync/internal/store"
	"github.com/google/uuid"
)

// subscriber delivers snapshots to one callback, in order, on its own
// goroutine. The queue is unbounded so a slow consumer never blocks writers.
type subscriber struct {
	mu      sync.Mutex
	queue   []store.Snapshot
	wake    chan struct{}
	closed  bool
	closing bool
}

func newSubscriber(onSnapshot func(store.Snapshot)) *subscriber {
	s := &subscriber{wake: make(chan struct{}, 1)}
	go s.run(onSnapshot)
	return s
}

func (s *subscriber) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) enqueue(sn store.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.closing {
		return
	}
	s.queue = append(s.queue, sn)
	s.signal()
}

func (s *subscriber) run(onSnapshot func(store.Snapshot)) {
	for range s.wake {
		for {
			s.mu.Lock()
			if s.closed {
				s.mu.Unlock()
				return
			}
			if len(s.queue) == 0 {
				closing := s.closing
				s.mu.Unlock()
				if closing {
					return
				}
				break
			}
			sn := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			onSnapshot(sn)
		}
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.queue = nil
	s.signal()
}

// closeAfterDrain lets already-queued snapshots (e.g. the final deletion
// event) reach the callback before the pump goroutine exits.
func (s *subscriber) closeAfterDrain() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.closing {
		return
	}
	s.closing = true
	s.signal()
}

// Store keeps all lists in memory guarded by one mutex. Every successful
// write bumps the document version and fans the new snapshot out to the
// list's subscribers.
type Store struct {
	mu          sync.Mutex
	lists       map[string]*models.List
	subscribers map[string]map[*subscriber]struct{}
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		lists:       make(map[string]*models.List),
		subscribers: make(map[string]map[*subscriber]struct{}),
	}
}

func (s *Store) CreateList(ctx context.Context, name, ownerID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := &models.List{
		ID:      uuid.NewString(),
		Name:    name,
		OwnerID: ownerID,
		Items:   []models.Item{},
		Version: 1,
	}
	s.lists[l.ID] = l
	return l.ID, nil
}

func (s *Store) GetSnapshot(ctx context.Context, listID string) (*models.List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lists[listID]
	if !ok {
		return nil, common.ErrNotFound
	}
	return l.Clone(), nil
}

func (s *Store) ListsByOwner(ctx context.Context, ownerID string) ([]*models.List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*models.List
	for _, l := range s.lists {
		if l.OwnerID == ownerID {
			result = append(result, l.Clone())
		}
	}
	return result, nil
}

func (s *Store) Subscribe(ctx context.Context, listID string, onSnapshot func(store.Snapshot)) (store.UnsubscribeFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lists[listID]
	if !ok {
		return nil, common.ErrNotFound
	}

	sub := newSubscriber(onSnapshot)
	if s.subscribers[listID] == nil {
		s.subscribers[listID] = make(map[*subscriber]struct{})
	}
	s.subscribers[listID][sub] = struct{}{}

	// initial snapshot, before any subsequent change
	sub.enqueue(store.Snapshot{List: l.Clone()})

	unsubscribe := func() {
		s.mu.Lock()
		if set, ok := s.subscribers[listID]; ok {
			delete(set, sub)
		}
		s.mu.Unlock()
		sub.close()
	}
	return unsubscribe, nil
}

func (s *Store) ReplaceItems(ctx context.Context, listID string, items []models.Item, expectedVersion int64) (int64, error) {
	if err := checkItemIDs(items); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lists[listID]
	if !ok {
		return 0, common.ErrNotFound
	}
	if l.Version != expectedVersion {
		return 0, common.ErrVersionConflict
	}

	l.Items = make([]models.Item, len(items))
	copy(l.Items, items)
	l.Version++

	s.broadcastLocked(listID, store.Snapshot{List: l.Clone()})
	return l.Version, nil
}

func (s *Store) RenameList(ctx context.Context, listID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lists[listID]
	if !ok {
		return common.ErrNotFound
	}

	l.Name = name
	l.Version++

	s.broadcastLocked(listID, store.Snapshot{List: l.Clone()})
	return nil
}

func (s *Store) DeleteList(ctx context.Context, listID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lists[listID]; !ok {
		return nil
	}
	delete(s.lists, listID)

	s.broadcastLocked(listID, store.Snapshot{Deleted: true})

	for sub := range s.subscribers[listID] {
		sub.closeAfterDrain()
	}
	delete(s.subscribers, listID)
	return nil
}

func (s *Store) broadcastLocked(listID string, sn store.Snapshot) {
	for sub := range s.subscribers[listID] {
		sub.enqueue(sn)
	}
}

// checkItemIDs guards the invariant that item ids are unique within a list.
func checkItemIDs(items []models.Item) error {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.ID == "" {
			return fmt.Errorf("item %q has no id", item.Name)
		}
		if _, ok := seen[item.ID]; ok {
			return fmt.Errorf("duplicate item id %s", item.ID)
		}
		seen[item.ID] = struct{}{}
	}
	return nil
}
