package inmemory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/listsync/internal/common"
	"github.com/dmitrijs2005/listsync/internal/models"
	"github.com/dmitrijs2005/listsync/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collector accumulates delivered snapshots for assertions.
type collector struct {
	mu        sync.Mutex
	snapshots []store.Snapshot
}

func (c *collector) onSnapshot(sn store.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots = append(c.snapshots, sn)
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.snapshots)
}

func (c *collector) at(i int) store.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshots[i]
}

func (c *collector) waitLen(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return c.len() >= n }, time.Second, 5*time.Millisecond)
	require.Equal(t, n, c.len())
}

func TestCreateAndGetSnapshot(t *testing.T) {
	ctx := context.Background()
	s := New()

	id, err := s.CreateList(ctx, "Groceries", "u1")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	l, err := s.GetSnapshot(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", l.Name)
	assert.Equal(t, "u1", l.OwnerID)
	assert.Empty(t, l.Items)
	assert.Equal(t, int64(1), l.Version)

	_, err = s.GetSnapshot(ctx, "missing")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestListsByOwner(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.CreateList(ctx, "Groceries", "u1")
	require.NoError(t, err)
	_, err = s.CreateList(ctx, "Hardware", "u1")
	require.NoError(t, err)
	_, err = s.CreateList(ctx, "Other", "u2")
	require.NoError(t, err)

	lists, err := s.ListsByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, lists, 2)
}

func TestReplaceItemsVersionCheck(t *testing.T) {
	ctx := context.Background()
	s := New()

	id, err := s.CreateList(ctx, "Groceries", "u1")
	require.NoError(t, err)

	items := []models.Item{{ID: "i1", Name: "Milk", Quantity: 2, Price: 50}}

	v, err := s.ReplaceItems(ctx, id, items, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	// stale base version must be rejected
	_, err = s.ReplaceItems(ctx, id, nil, 1)
	require.ErrorIs(t, err, common.ErrVersionConflict)

	l, err := s.GetSnapshot(ctx, id)
	require.NoError(t, err)
	require.Len(t, l.Items, 1)
	assert.Equal(t, "Milk", l.Items[0].Name)
}

func TestReplaceItemsRejectsDuplicateIDs(t *testing.T) {
	ctx := context.Background()
	s := New()

	id, err := s.CreateList(ctx, "Groceries", "u1")
	require.NoError(t, err)

	items := []models.Item{{ID: "i1", Name: "Milk"}, {ID: "i1", Name: "Milk"}}
	_, err = s.ReplaceItems(ctx, id, items, 1)
	require.Error(t, err)
}

func TestSubscribeDeliversInitialAndSubsequentSnapshots(t *testing.T) {
	ctx := context.Background()
	s := New()

	id, err := s.CreateList(ctx, "Groceries", "u1")
	require.NoError(t, err)

	c := &collector{}
	unsubscribe, err := s.Subscribe(ctx, id, c.onSnapshot)
	require.NoError(t, err)
	defer unsubscribe()

	c.waitLen(t, 1)
	assert.Equal(t, int64(1), c.at(0).List.Version)

	_, err = s.ReplaceItems(ctx, id, []models.Item{{ID: "i1", Name: "Milk"}}, 1)
	require.NoError(t, err)
	require.NoError(t, s.RenameList(ctx, id, "Weekend shop"))

	c.waitLen(t, 3)
	assert.Equal(t, int64(2), c.at(1).List.Version)
	assert.Equal(t, int64(3), c.at(2).List.Version)
	assert.Equal(t, "Weekend shop", c.at(2).List.Name)
}

func TestDeleteListNotifiesAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New()

	id, err := s.CreateList(ctx, "Groceries", "u1")
	require.NoError(t, err)

	c := &collector{}
	_, err = s.Subscribe(ctx, id, c.onSnapshot)
	require.NoError(t, err)
	c.waitLen(t, 1)

	require.NoError(t, s.DeleteList(ctx, id))
	c.waitLen(t, 2)
	assert.True(t, c.at(1).Deleted)
	assert.Nil(t, c.at(1).List)

	// second delete is a no-op
	require.NoError(t, s.DeleteList(ctx, id))

	_, err = s.GetSnapshot(ctx, id)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	ctx := context.Background()
	s := New()

	id, err := s.CreateList(ctx, "Groceries", "u1")
	require.NoError(t, err)

	c := &collector{}
	unsubscribe, err := s.Subscribe(ctx, id, c.onSnapshot)
	require.NoError(t, err)
	c.waitLen(t, 1)

	unsubscribe()
	unsubscribe() // safe to call twice

	_, err = s.ReplaceItems(ctx, id, []models.Item{{ID: "i1", Name: "Milk"}}, 1)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, c.len())
}
