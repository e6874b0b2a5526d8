package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/listsync/internal/cache/migrations"
	"github.com/dmitrijs2005/listsync/internal/codec"
	"github.com/dmitrijs2005/listsync/internal/common"
	"github.com/dmitrijs2005/listsync/internal/models"
	"github.com/pressly/goose/v3"
)

// SQLiteCache persists authoritative snapshots so a restarted client starts
// from its last reconciled state instead of an empty cache. The optimistic
// overlay stays in memory only: a pending mutation that never reached the
// store must not survive a restart.
type SQLiteCache struct {
	db      *sql.DB
	mu      sync.Mutex
	overlay map[string]*models.List
}

var _ Cache = (*SQLiteCache)(nil)

// RunMigrations applies the embedded cache schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// NewSQLiteCache opens the cache database at dsn and applies migrations.
// The caller registers the sqlite driver (modernc.org/sqlite).
func NewSQLiteCache(ctx context.Context, dsn string) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache db: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("failed to migrate cache db: %w", err)
	}
	return &SQLiteCache{db: db, overlay: make(map[string]*models.List)}, nil
}

func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

func (c *SQLiteCache) Get(ctx context.Context, listID string) (*models.List, error) {
	c.mu.Lock()
	if l, ok := c.overlay[listID]; ok {
		c.mu.Unlock()
		return l.Clone(), nil
	}
	c.mu.Unlock()

	return c.getAuthoritative(ctx, listID)
}

func (c *SQLiteCache) getAuthoritative(ctx context.Context, listID string) (*models.List, error) {
	var doc []byte
	query := `SELECT doc FROM lists WHERE id = ?`
	err := c.db.QueryRowContext(ctx, query, listID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select list: %w", err)
	}
	return codec.DecodeList(doc)
}

func (c *SQLiteCache) SetFromRemote(ctx context.Context, l *models.List) error {
	doc, err := codec.EncodeList(l)
	if err != nil {
		return err
	}
	query := ` INSERT INTO lists (id, doc, version) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET doc = excluded.doc, version = excluded.version
	`
	if _, err := c.db.ExecContext(ctx, query, l.ID, doc, l.Version); err != nil {
		return fmt.Errorf("failed to upsert list: %w", err)
	}
	return nil
}

func (c *SQLiteCache) ApplyOptimistic(ctx context.Context, listID string, apply Transform) (*models.List, error) {
	base, err := c.Get(ctx, listID)
	if err != nil {
		return nil, err
	}
	next, err := apply(base)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.overlay[listID] = next.Clone()
	return next, nil
}

func (c *SQLiteCache) ClearOptimistic(ctx context.Context, listID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.overlay, listID)
	return nil
}

func (c *SQLiteCache) Delete(ctx context.Context, listID string) error {
	c.mu.Lock()
	delete(c.overlay, listID)
	c.mu.Unlock()

	if _, err := c.db.ExecContext(ctx, `DELETE FROM lists WHERE id = ?`, listID); err != nil {
		return fmt.Errorf("failed to delete list: %w", err)
	}
	return nil
}

func (c *SQLiteCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.overlay = make(map[string]*models.List)
	c.mu.Unlock()

	if _, err := c.db.ExecContext(ctx, `DELETE FROM lists`); err != nil {
		return fmt.Errorf("failed to clear lists: %w", err)
	}
	return nil
}
