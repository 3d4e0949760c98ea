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

var _ repository.BucketlistRepository = (*BucketlistDB)(nil)

// BucketlistDB is the bucketlists table. Reads also load each list's items.
type BucketlistDB struct {
	conn *sql.DB
}

func (b *BucketlistDB) Create(ctx context.Context, bl *model.Bucketlist) error {
	now := time.Now().UTC()
	bl.CreatedAt = now
	bl.UpdatedAt = now

	res, err := b.conn.ExecContext(ctx,
		`INSERT INTO bucketlists (name, owner_id, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		bl.Name, bl.OwnerID, bl.CreatedAt, bl.UpdatedAt,
	)
	if err != nil {
		if constraintKind(err) == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
			return apperror.NotFound("user", strconv.FormatInt(bl.OwnerID, 10))
		}
		return fmt.Errorf("sqlite: creating bucketlist: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new bucketlist id: %w", err)
	}
	bl.ID = id
	bl.Items = []model.Item{}
	return nil
}

func (b *BucketlistDB) GetByID(ctx context.Context, id int64) (*model.Bucketlist, error) {
	var bl model.Bucketlist
	err := b.conn.QueryRowContext(ctx,
		`SELECT id, name, owner_id, created_at, updated_at FROM bucketlists WHERE id = ?`, id,
	).Scan(&bl.ID, &bl.Name, &bl.OwnerID, &bl.CreatedAt, &bl.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("bucketlist", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting bucketlist %d: %w", id, err)
	}

	items, err := queryItems(ctx, b.conn,
		`SELECT `+itemColumns+` FROM items WHERE bucketlist_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	bl.Items = items
	return &bl, nil
}

func (b *BucketlistDB) ListByOwner(ctx context.Context, ownerID int64) ([]model.Bucketlist, error) {
	lists, err := b.query(ctx,
		`SELECT id, name, owner_id, created_at, updated_at
		 FROM bucketlists WHERE owner_id = ? ORDER BY id`, ownerID)
	if err != nil {
		return nil, err
	}
	return b.attachItems(ctx, ownerID, lists)
}

// Search is a case-insensitive substring match on the owner's list names.
// SQLite's LIKE and lower() only fold ASCII, so matching happens in Go.
func (b *BucketlistDB) Search(ctx context.Context, ownerID int64, query string) ([]model.Bucketlist, error) {
	lists, err := b.query(ctx,
		`SELECT id, name, owner_id, created_at, updated_at
		 FROM bucketlists WHERE owner_id = ? ORDER BY id`, ownerID)
	if err != nil {
		return nil, err
	}

	return b.attachItems(ctx, ownerID, repository.MatchNames(lists, query))
}

func (b *BucketlistDB) Update(ctx context.Context, bl *model.Bucketlist) error {
	bl.UpdatedAt = time.Now().UTC()

	res, err := b.conn.ExecContext(ctx,
		`UPDATE bucketlists SET name = ?, updated_at = ? WHERE id = ?`,
		bl.Name, bl.UpdatedAt, bl.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating bucketlist %d: %w", bl.ID, err)
	}
	return requireRow(res, "bucketlist", bl.ID)
}

func (b *BucketlistDB) Delete(ctx context.Context, id int64) error {
	res, err := b.conn.ExecContext(ctx, `DELETE FROM bucketlists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting bucketlist %d: %w", id, err)
	}
	return requireRow(res, "bucketlist", id)
}

func (b *BucketlistDB) query(ctx context.Context, q string, args ...any) ([]model.Bucketlist, error) {
	rows, err := b.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing bucketlists: %w", err)
	}
	defer rows.Close()

	lists := []model.Bucketlist{}
	for rows.Next() {
		var bl model.Bucketlist
		if err := rows.Scan(&bl.ID, &bl.Name, &bl.OwnerID, &bl.CreatedAt, &bl.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning bucketlist row: %w", err)
		}
		bl.Items = []model.Item{}
		lists = append(lists, bl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating bucketlist rows: %w", err)
	}
	return lists, nil
}

// attachItems loads all of the owner's items in one query and hands them
// out to the lists they belong to. The bucketlist rows are already closed,
// which matters for the single-connection in-memory pool.
func (b *BucketlistDB) attachItems(ctx context.Context, ownerID int64, lists []model.Bucketlist) ([]model.Bucketlist, error) {
	if len(lists) == 0 {
		return lists, nil
	}

	items, err := (&ItemDB{conn: b.conn}).ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	index := make(map[int64]int, len(lists))
	for i := range lists {
		index[lists[i].ID] = i
	}
	for _, it := range items {
		if i, ok := index[it.BucketlistID]; ok {
			lists[i].Items = append(lists[i].Items, it)
		}
	}
	return lists, nil
}
