package syncengine

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/listsync/internal/cache"
	"github.com/dmitrijs2005/listsync/internal/common"
	"github.com/dmitrijs2005/listsync/internal/logging"
	"github.com/dmitrijs2005/listsync/internal/models"
	"github.com/dmitrijs2005/listsync/internal/store"
	"github.com/dmitrijs2005/listsync/internal/store/inmemory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// notifications records engine change notifications for assertions.
type notifications struct {
	mu        sync.Mutex
	snapshots []store.Snapshot
}

func (n *notifications) record(sn store.Snapshot) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.snapshots = append(n.snapshots, sn)
}

func (n *notifications) len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.snapshots)
}

func (n *notifications) last() store.Snapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.snapshots[len(n.snapshots)-1]
}

// session bundles an engine wired to a store through a live subscription, the
// way the subscription manager wires it in production.
type session struct {
	engine *Engine
	cache  cache.Cache
	notes  *notifications
}

func startSession(t *testing.T, st store.Store, listID string) *session {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	notes := &notifications{}
	c := cache.NewMemoryCache()
	e := New(listID, st, c, testLogger(), WithNotify(notes.record))

	unsubscribe, err := st.Subscribe(ctx, listID, e.Deliver)
	require.NoError(t, err)
	t.Cleanup(unsubscribe)

	go func() { _ = e.Run(ctx) }()

	// wait for the initial snapshot so tests start from Synced
	require.Eventually(t, func() bool { return e.State() == StateSynced }, time.Second, time.Millisecond)

	return &session{engine: e, cache: c, notes: notes}
}

func newListWithMilk(t *testing.T, st store.Store) string {
	t.Helper()
	ctx := context.Background()

	id, err := st.CreateList(ctx, "Groceries", "u1")
	require.NoError(t, err)
	_, err = st.ReplaceItems(ctx, id, []models.Item{
		{ID: "milk-1", Name: "Milk", Quantity: 2, Price: 50, Category: "Dairy"},
	}, 1)
	require.NoError(t, err)
	return id
}

func storeItems(t *testing.T, st store.Store, listID string) []models.Item {
	t.Helper()
	l, err := st.GetSnapshot(context.Background(), listID)
	require.NoError(t, err)
	return l.Items
}

func TestAddItemAppendsWithFreshID(t *testing.T) {
	ctx := context.Background()
	st := inmemory.New()
	listID := newListWithMilk(t, st)
	s := startSession(t, st, listID)

	item, err := s.engine.AddItem(ctx, "Bread", 1, 40, models.CategoryUnset)
	require.NoError(t, err)
	assert.NotEmpty(t, item.ID)
	assert.False(t, item.Completed)

	items := storeItems(t, st, listID)
	require.Len(t, items, 2)
	assert.Equal(t, "Bread", items[1].Name)

	// cache agrees with the store
	cached, err := s.cache.Get(ctx, listID)
	require.NoError(t, err)
	assert.Len(t, cached.Items, 2)
}

func TestAddItemRejectsInvalidInputLocally(t *testing.T) {
	ctx := context.Background()
	st := inmemory.New()
	listID := newListWithMilk(t, st)
	s := startSession(t, st, listID)

	_, err := s.engine.AddItem(ctx, "   ", 1, 0, models.CategoryUnset)
	require.ErrorIs(t, err, common.ErrInvalidName)

	_, err = s.engine.AddItem(ctx, "Bread", 1, 0, "Spaceships")
	require.ErrorIs(t, err, common.ErrInvalidCategory)

	require.Len(t, storeItems(t, st, listID), 1)
}

func TestNoLostUpdateUnderConcurrentSingleFieldMutations(t *testing.T) {
	ctx := context.Background()
	st := inmemory.New()

	id, err := st.CreateList(ctx, "Groceries", "u1")
	require.NoError(t, err)
	_, err = st.ReplaceItems(ctx, id, []models.Item{
		{ID: "item-a", Name: "Milk", Quantity: 2, Price: 50},
		{ID: "item-b", Name: "Eggs", Quantity: 1, Price: 30},
	}, 1)
	require.NoError(t, err)

	clientA := startSession(t, st, id)
	clientB := startSession(t, st, id)

	newName := "Oat milk"
	var wg sync.WaitGroup
	wg.Add(2)
	var errA, errB error
	go func() {
		defer wg.Done()
		errA = clientA.engine.UpdateItem(ctx, "item-a", models.ItemUpdate{Name: &newName})
	}()
	go func() {
		defer wg.Done()
		errB = clientB.engine.ToggleCompleted(ctx, "item-b")
	}()
	wg.Wait()

	require.NoError(t, errA)
	require.NoError(t, errB)

	items := storeItems(t, st, id)
	require.Len(t, items, 2)
	byID := map[string]models.Item{items[0].ID: items[0], items[1].ID: items[1]}
	assert.Equal(t, "Oat milk", byID["item-a"].Name)
	assert.True(t, byID["item-b"].Completed)
}

func TestDeleteItemIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := inmemory.New()
	listID := newListWithMilk(t, st)
	s := startSession(t, st, listID)

	require.NoError(t, s.engine.DeleteItem(ctx, "milk-1"))
	require.NoError(t, s.engine.DeleteItem(ctx, "milk-1"))

	assert.Empty(t, storeItems(t, st, listID))
}

func TestUpdateMissingItemSurfacesItemNotFound(t *testing.T) {
	ctx := context.Background()
	st := inmemory.New()
	listID := newListWithMilk(t, st)
	s := startSession(t, st, listID)

	name := "Bread"
	err := s.engine.UpdateItem(ctx, "gone", models.ItemUpdate{Name: &name})
	require.ErrorIs(t, err, common.ErrItemNotFound)

	err = s.engine.ToggleCompleted(ctx, "gone")
	require.ErrorIs(t, err, common.ErrItemNotFound)
}

func TestRenameValidatedLocally(t *testing.T) {
	ctx := context.Background()
	inner := inmemory.New()
	st := &countingStore{Store: inner}
	listID := newListWithMilk(t, inner)
	s := startSession(t, st, listID)

	calls := st.writes()
	err := s.engine.Rename(ctx, "   ")
	require.ErrorIs(t, err, common.ErrInvalidName)
	assert.Equal(t, calls, st.writes(), "store must not be contacted")

	l, err := inner.GetSnapshot(ctx, listID)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", l.Name)
}

func TestRename(t *testing.T) {
	ctx := context.Background()
	st := inmemory.New()
	listID := newListWithMilk(t, st)
	s := startSession(t, st, listID)

	require.NoError(t, s.engine.Rename(ctx, "  Weekend shop  "))

	l, err := st.GetSnapshot(ctx, listID)
	require.NoError(t, err)
	assert.Equal(t, "Weekend shop", l.Name)

	cached, err := s.cache.Get(ctx, listID)
	require.NoError(t, err)
	assert.Equal(t, "Weekend shop", cached.Name)
}

func TestSelfEchoIsNoOp(t *testing.T) {
	ctx := context.Background()
	st := inmemory.New()
	listID := newListWithMilk(t, st)
	s := startSession(t, st, listID)

	before := s.notes.len() // initial snapshot notification

	_, err := s.engine.AddItem(ctx, "Bread", 1, 40, models.CategoryUnset)
	require.NoError(t, err)

	// optimistic + confirmed
	require.Eventually(t, func() bool { return s.notes.len() >= before+2 }, time.Second, time.Millisecond)

	// give the store's echo time to arrive; it must not re-notify
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before+2, s.notes.len())
}

func TestConflictRetriedOnceThenApplied(t *testing.T) {
	ctx := context.Background()
	st := inmemory.New()
	listID := newListWithMilk(t, st)
	s := startSession(t, st, listID)

	// a peer's write lands after the engine read its base
	peerItems := append(storeItems(t, st, listID), models.Item{ID: "peer-1", Name: "Eggs", Quantity: 1, Price: 30})
	l, err := st.GetSnapshot(ctx, listID)
	require.NoError(t, err)
	_, err = st.ReplaceItems(ctx, listID, peerItems, l.Version)
	require.NoError(t, err)

	// engine still holds the old base until the push arrives; racing a toggle
	// through exercises the conflict retry
	require.NoError(t, s.engine.ToggleCompleted(ctx, "milk-1"))

	items := storeItems(t, st, listID)
	require.Len(t, items, 2)
	byID := map[string]models.Item{items[0].ID: items[0], items[1].ID: items[1]}
	assert.True(t, byID["milk-1"].Completed)
	assert.Equal(t, "Eggs", byID["peer-1"].Name)
}

func TestIdempotentCreateRetry(t *testing.T) {
	ctx := context.Background()
	inner := inmemory.New()
	st := &ambiguousWriteStore{Store: inner, failures: 1}
	listID := newListWithMilk(t, inner)
	s := startSession(t, st, listID)

	// the first write lands but reports a conflict; the retry must observe
	// the generated id in the fresh snapshot and not append again
	item, err := s.engine.AddItem(ctx, "Bread", 1, 40, models.CategoryUnset)
	require.NoError(t, err)

	count := 0
	for _, it := range storeItems(t, inner, listID) {
		if it.ID == item.ID {
			count++
		}
	}
	assert.Equal(t, 1, count, "item must appear exactly once")
}

func TestConflictSurfacedAfterSecondFailure(t *testing.T) {
	ctx := context.Background()
	inner := inmemory.New()
	st := &conflictStore{Store: inner}
	listID := newListWithMilk(t, inner)
	s := startSession(t, st, listID)

	err := s.engine.ToggleCompleted(ctx, "milk-1")
	require.ErrorIs(t, err, common.ErrVersionConflict)

	// optimistic state rolled back
	cached, err := s.cache.Get(ctx, listID)
	require.NoError(t, err)
	assert.False(t, cached.Items[0].Completed)
}

func TestStoreFailureRollsBackOptimisticState(t *testing.T) {
	ctx := context.Background()
	inner := inmemory.New()
	st := &unavailableStore{Store: inner}
	listID := newListWithMilk(t, inner)
	s := startSession(t, st, listID)

	err := s.engine.ToggleCompleted(ctx, "milk-1")
	require.ErrorIs(t, err, common.ErrUnavailable)

	cached, err := s.cache.Get(ctx, listID)
	require.NoError(t, err)
	assert.False(t, cached.Items[0].Completed)
	assert.False(t, s.notes.last().List.Items[0].Completed)
}

func TestDeleteListIsTerminal(t *testing.T) {
	ctx := context.Background()
	st := inmemory.New()
	listID := newListWithMilk(t, st)
	owner := startSession(t, st, listID)
	peer := startSession(t, st, listID)

	require.NoError(t, owner.engine.DeleteList(ctx))

	// the peer observes the deletion as a terminal snapshot
	require.Eventually(t, func() bool {
		return peer.engine.State() == StateClosed
	}, time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		return peer.notes.len() > 0 && peer.notes.last().Deleted
	}, time.Second, time.Millisecond)

	// both caches forget the list
	_, err := owner.cache.Get(ctx, listID)
	require.ErrorIs(t, err, common.ErrNotFound)
	_, err = peer.cache.Get(ctx, listID)
	require.ErrorIs(t, err, common.ErrNotFound)

	// further mutations report that the list is gone, on both sides
	_, err = owner.engine.AddItem(ctx, "Bread", 1, 0, models.CategoryUnset)
	require.ErrorIs(t, err, common.ErrListDeleted)
	_, err = peer.engine.AddItem(ctx, "Bread", 1, 0, models.CategoryUnset)
	require.ErrorIs(t, err, common.ErrListDeleted)
}

func TestEndToEndConcurrentToggleAndAdd(t *testing.T) {
	ctx := context.Background()
	st := inmemory.New()

	id, err := st.CreateList(ctx, "L", "u1")
	require.NoError(t, err)
	_, err = st.ReplaceItems(ctx, id, []models.Item{
		{ID: "1", Name: "Milk", Quantity: 2, Price: 50},
	}, 1)
	require.NoError(t, err)

	clientA := startSession(t, st, id)
	clientB := startSession(t, st, id)

	var wg sync.WaitGroup
	wg.Add(2)
	var errA, errB error
	go func() {
		defer wg.Done()
		errA = clientA.engine.ToggleCompleted(ctx, "1")
	}()
	go func() {
		defer wg.Done()
		_, errB = clientB.engine.AddItem(ctx, "Bread", 1, 40, models.CategoryUnset)
	}()
	wg.Wait()

	require.NoError(t, errA)
	require.NoError(t, errB)

	l, err := st.GetSnapshot(ctx, id)
	require.NoError(t, err)
	require.Len(t, l.Items, 2)

	milk := l.Items[l.FindItem("1")]
	assert.True(t, milk.Completed)
	assert.Equal(t, 140.0, l.Total())
}

// countingStore counts mutating calls.
type countingStore struct {
	store.Store
	mu sync.Mutex
	n  int
}

func (s *countingStore) writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

func (s *countingStore) bump() {
	s.mu.Lock()
	s.n++
	s.mu.Unlock()
}

func (s *countingStore) ReplaceItems(ctx context.Context, listID string, items []models.Item, expectedVersion int64) (int64, error) {
	s.bump()
	return s.Store.ReplaceItems(ctx, listID, items, expectedVersion)
}

func (s *countingStore) RenameList(ctx context.Context, listID, name string) error {
	s.bump()
	return s.Store.RenameList(ctx, listID, name)
}

func (s *countingStore) DeleteList(ctx context.Context, listID string) error {
	s.bump()
	return s.Store.DeleteList(ctx, listID)
}

// ambiguousWriteStore lets the first N writes land but reports a conflict for
// them, simulating an acknowledgement lost in transit.
type ambiguousWriteStore struct {
	store.Store
	mu       sync.Mutex
	failures int
}

func (s *ambiguousWriteStore) ReplaceItems(ctx context.Context, listID string, items []models.Item, expectedVersion int64) (int64, error) {
	v, err := s.Store.ReplaceItems(ctx, listID, items, expectedVersion)
	if err != nil {
		return v, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return 0, common.ErrVersionConflict
	}
	return v, nil
}

// conflictStore rejects every write with a version conflict.
type conflictStore struct {
	store.Store
}

func (s *conflictStore) ReplaceItems(ctx context.Context, listID string, items []models.Item, expectedVersion int64) (int64, error) {
	return 0, common.ErrVersionConflict
}

// unavailableStore fails every write with a transport error.
type unavailableStore struct {
	store.Store
}

func (s *unavailableStore) ReplaceItems(ctx context.Context, listID string, items []models.Item, expectedVersion int64) (int64, error) {
	return 0, common.ErrUnavailable
}
