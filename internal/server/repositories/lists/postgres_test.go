package lists

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/listsync/internal/common"
	"github.com/dmitrijs2005/listsync/internal/models"
	"github.com/dmitrijs2005/listsync/internal/server/migrations"
	servermodels "github.com/dmitrijs2005/listsync/internal/server/models"
	"github.com/dmitrijs2005/listsync/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupRepo(t *testing.T, name string) *PostgresRepository {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, migrations.Run(ctx, db, "sqlite3"))

	// lists reference an owner
	ur := users.NewPostgresRepository(db)
	require.NoError(t, ur.Create(ctx, &servermodels.User{ID: "u1", Login: "alice", PasswordHash: "h"}))

	return NewPostgresRepository(db)
}

func testList() *models.List {
	return &models.List{
		ID:      "l1",
		OwnerID: "u1",
		Name:    "Groceries",
		Items: []models.Item{
			{ID: "item-1", Name: "Milk", Quantity: 2, Price: 50, Category: models.Category("Dairy")},
		},
		Version: 1,
	}
}

func TestCreateAndGetByID(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t, "lists_create")

	require.NoError(t, repo.Create(ctx, testList()))

	got, err := repo.GetByID(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, testList(), got)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestListByOwner(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t, "lists_by_owner")

	require.NoError(t, repo.Create(ctx, testList()))
	second := testList()
	second.ID = "l2"
	second.Name = "BBQ"
	require.NoError(t, repo.Create(ctx, second))

	got, err := repo.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	// ordered by name
	assert.Equal(t, "l2", got[0].ID)
	assert.Equal(t, "l1", got[1].ID)

	got, err = repo.ListByOwner(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReplaceItems(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t, "lists_replace")
	require.NoError(t, repo.Create(ctx, testList()))

	items := []models.Item{
		{ID: "item-1", Name: "Milk", Quantity: 2, Price: 50, Category: models.Category("Dairy"), Completed: true},
		{ID: "item-2", Name: "Bread", Quantity: 1, Price: 30, Category: models.Category("Bakery")},
	}
	updated, err := repo.ReplaceItems(ctx, "l1", items, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)
	assert.Equal(t, items, updated.Items)

	// stale base is rejected and leaves the document untouched
	_, err = repo.ReplaceItems(ctx, "l1", nil, 1)
	assert.ErrorIs(t, err, common.ErrVersionConflict)

	got, err := repo.GetByID(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	assert.Len(t, got.Items, 2)

	_, err = repo.ReplaceItems(ctx, "missing", items, 1)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestReplaceItemsEmptyArray(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t, "lists_replace_empty")
	require.NoError(t, repo.Create(ctx, testList()))

	updated, err := repo.ReplaceItems(ctx, "l1", nil, 1)
	require.NoError(t, err)
	assert.Empty(t, updated.Items)

	got, err := repo.GetByID(ctx, "l1")
	require.NoError(t, err)
	assert.Empty(t, got.Items)
}

func TestRename(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t, "lists_rename")
	require.NoError(t, repo.Create(ctx, testList()))

	updated, err := repo.Rename(ctx, "l1", "Weekend shop")
	require.NoError(t, err)
	assert.Equal(t, "Weekend shop", updated.Name)
	assert.Equal(t, int64(2), updated.Version)

	_, err = repo.Rename(ctx, "missing", "x")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t, "lists_delete")
	require.NoError(t, repo.Create(ctx, testList()))

	require.NoError(t, repo.Delete(ctx, "l1"))
	_, err := repo.GetByID(ctx, "l1")
	assert.ErrorIs(t, err, common.ErrNotFound)

	// deleting again is a no-op
	require.NoError(t, repo.Delete(ctx, "l1"))
}
