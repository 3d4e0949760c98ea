package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/bucketlist/internal/apperror"
	"github.com/sakif/bucketlist/internal/model"
	"github.com/sakif/bucketlist/internal/repository"
)

var _ repository.ItemRepository = (*ItemDB)(nil)

// ItemDB is the items table.
type ItemDB struct {
	conn *sql.DB
}

const itemColumns = `id, name, description, done, completed_at, bucketlist_id, created_at, updated_at`

func (d *ItemDB) Create(ctx context.Context, item *model.Item) error {
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	res, err := d.conn.ExecContext(ctx,
		`INSERT INTO items (name, description, done, completed_at, bucketlist_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.Name,
		item.Description,
		item.Done,
		nullTime(item.CompletedAt),
		item.BucketlistID,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		if constraintKind(err) == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
			return apperror.NotFound("bucketlist", strconv.FormatInt(item.BucketlistID, 10))
		}
		return fmt.Errorf("sqlite: creating item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new item id: %w", err)
	}
	item.ID = id
	return nil
}

func (d *ItemDB) GetByID(ctx context.Context, id int64) (*model.Item, error) {
	item, err := scanItem(d.conn.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("item", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting item %d: %w", id, err)
	}
	return item, nil
}

func (d *ItemDB) ListByBucketlist(ctx context.Context, bucketlistID int64) ([]model.Item, error) {
	return queryItems(ctx, d.conn,
		`SELECT `+itemColumns+` FROM items WHERE bucketlist_id = ? ORDER BY id`, bucketlistID)
}

func (d *ItemDB) ListByOwner(ctx context.Context, ownerID int64) ([]model.Item, error) {
	return queryItems(ctx, d.conn,
		`SELECT i.id, i.name, i.description, i.done, i.completed_at, i.bucketlist_id, i.created_at, i.updated_at
		 FROM items i JOIN bucketlists b ON b.id = i.bucketlist_id
		 WHERE b.owner_id = ? ORDER BY i.id`, ownerID)
}

func (d *ItemDB) Update(ctx context.Context, item *model.Item) error {
	item.UpdatedAt = time.Now().UTC()

	res, err := d.conn.ExecContext(ctx,
		`UPDATE items
		 SET name = ?, description = ?, done = ?, completed_at = ?, updated_at = ?
		 WHERE id = ?`,
		item.Name,
		item.Description,
		item.Done,
		nullTime(item.CompletedAt),
		item.UpdatedAt,
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating item %d: %w", item.ID, err)
	}
	return requireRow(res, "item", item.ID)
}

func (d *ItemDB) Delete(ctx context.Context, id int64) error {
	res, err := d.conn.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting item %d: %w", id, err)
	}
	return requireRow(res, "item", id)
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(s rowScanner) (*model.Item, error) {
	var (
		item      model.Item
		completed sql.NullTime
	)
	if err := s.Scan(
		&item.ID,
		&item.Name,
		&item.Description,
		&item.Done,
		&completed,
		&item.BucketlistID,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if completed.Valid {
		t := completed.Time
		item.CompletedAt = &t
	}
	return &item, nil
}

func queryItems(ctx context.Context, conn *sql.DB, q string, args ...any) ([]model.Item, error) {
	rows, err := conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing items: %w", err)
	}
	defer rows.Close()

	items := []model.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning item row: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating item rows: %w", err)
	}
	return items, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
