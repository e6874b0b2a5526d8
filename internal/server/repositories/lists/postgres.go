package lists

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/listsync/internal/codec"
	"github.com/dmitrijs2005/listsync/internal/common"
	"github.com/dmitrijs2005/listsync/internal/dbx"
	"github.com/dmitrijs2005/listsync/internal/models"
)

// PostgresRepository implements Repository over *sql.DB. Items are stored
// as a JSON document in one column; the SQL stays portable so repository
// tests run against sqlite.
type PostgresRepository struct {
	db *sql.DB
}

var _ Repository = (*PostgresRepository)(nil)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, l *models.List) error {
	doc, err := codec.EncodeItems(l.Items)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO lists (id, owner_id, name, items, version)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.ExecContext(ctx, query, l.ID, l.OwnerID, l.Name, doc, l.Version); err != nil {
		return fmt.Errorf("failed to insert list: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.List, error) {
	return getByID(ctx, r.db, id)
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.List, error) {
	query := `SELECT id, owner_id, name, items, version FROM lists WHERE owner_id = $1 ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select lists: %w", err)
	}
	defer rows.Close()

	var result []*models.List
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ReplaceItems runs the compare-and-swap and the follow-up existence check in
// one transaction, so a concurrent delete between the two cannot turn a
// missing list into a version conflict.
func (r *PostgresRepository) ReplaceItems(ctx context.Context, id string, items []models.Item, expectedVersion int64) (*models.List, error) {
	doc, err := codec.EncodeItems(items)
	if err != nil {
		return nil, err
	}

	var updated *models.List
	err = dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		query := `
			UPDATE lists
			SET items = $1, version = version + 1
			WHERE id = $2 AND version = $3
			RETURNING id, owner_id, name, items, version
		`
		l, err := scanList(tx.QueryRowContext(ctx, query, doc, id, expectedVersion))
		if err == nil {
			updated = l
			return nil
		}
		if !errors.Is(err, common.ErrNotFound) {
			return err
		}

		// no row updated: distinguish a missing document from a stale version
		if _, err := getByID(ctx, tx, id); err != nil {
			return err
		}
		return common.ErrVersionConflict
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *PostgresRepository) Rename(ctx context.Context, id, name string) (*models.List, error) {
	query := `
		UPDATE lists
		SET name = $1, version = version + 1
		WHERE id = $2
		RETURNING id, owner_id, name, items, version
	`
	return scanList(r.db.QueryRowContext(ctx, query, name, id))
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM lists WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete list: %w", err)
	}
	return nil
}

func getByID(ctx context.Context, q dbx.DBTX, id string) (*models.List, error) {
	query := `SELECT id, owner_id, name, items, version FROM lists WHERE id = $1`
	return scanList(q.QueryRowContext(ctx, query, id))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanList(row rowScanner) (*models.List, error) {
	var l models.List
	var doc []byte
	err := row.Scan(&l.ID, &l.OwnerID, &l.Name, &doc, &l.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	items, err := codec.DecodeItems(doc)
	if err != nil {
		return nil, err
	}
	l.Items = items
	return &l, nil
}
