// Package sqlite implements the repository interfaces on SQLite.
//
// It is the default store: DATABASE_URL is treated as a file path unless it
// is a postgres URL. modernc.org/sqlite is a pure Go translation of SQLite,
// so the binary needs no C toolchain.
//
// SCHEMA:
// The schema lives in ./migrations as goose SQL files embedded into the
// binary. New applies every pending migration; Reset rolls them all back,
// which is what "manage dropdb" runs.
//
// CONNECTION SETTINGS:
// PRAGMAs such as foreign_keys are per connection in SQLite, so they are
// passed in the DSN (_pragma=...) and applied by the driver to every
// connection in the pool, not just the first one.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/bucketlist/internal/repository"
	"github.com/sakif/bucketlist/internal/repository/sqlite/migrations"
)

// DB wraps a sql.DB connection pool and hands out the three repositories.
type DB struct {
	conn *sql.DB
}

// New opens the SQLite database at path and applies pending migrations.
//
// path examples:
//   - "data/bucketlist.db"         → file-based database
//   - "sqlite://data/bucketlist.db" → same, scheme stripped
//   - ":memory:"                   → in-memory database (tests)
func New(ctx context.Context, path string) (*DB, error) {
	db, err := Open(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Open connects without touching the schema. manage dropdb uses it so that
// a reset does not first run every migration up.
func Open(ctx context.Context, path string) (*DB, error) {
	path = strings.TrimPrefix(path, "sqlite://")
	if path == "" {
		return nil, errors.New("sqlite: empty database path")
	}

	conn, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if isMemory(path) {
		// Every new connection to :memory: is a brand new empty database.
		// One connection keeps the schema and the data together.
		conn.SetMaxOpenConns(1)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if !isMemory(path) {
		// WAL lets readers proceed while a write is in flight. It is a
		// property of the database file, so setting it once is enough.
		if _, err := conn.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
		}
	}

	return &DB{conn: conn}, nil
}

// NewWithConn wraps an existing pool. No PRAGMAs or migrations are applied;
// tests use it with go-sqlmock.
func NewWithConn(conn *sql.DB) *DB {
	return &DB{conn: conn}
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Migrate applies every pending migration.
func (db *DB) Migrate(ctx context.Context) error {
	if err := setupGoose(); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db.conn, "."); err != nil {
		return fmt.Errorf("sqlite: running migrations: %w", err)
	}
	return nil
}

// Reset rolls back every applied migration, dropping all tables.
func (db *DB) Reset(ctx context.Context) error {
	if err := setupGoose(); err != nil {
		return err
	}
	if err := goose.ResetContext(ctx, db.conn, "."); err != nil {
		return fmt.Errorf("sqlite: resetting schema: %w", err)
	}
	return nil
}

// Version reports the current schema version.
func (db *DB) Version(ctx context.Context) (int64, error) {
	if err := setupGoose(); err != nil {
		return 0, err
	}
	v, err := goose.GetDBVersionContext(ctx, db.conn)
	if err != nil {
		return 0, fmt.Errorf("sqlite: reading schema version: %w", err)
	}
	return v, nil
}

// Repositories returns the three repositories backed by this database.
func (db *DB) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Users:       db.Users(),
		Bucketlists: db.Bucketlists(),
		Items:       db.Items(),
	}
}

func (db *DB) Users() *UserDB             { return &UserDB{conn: db.conn} }
func (db *DB) Bucketlists() *BucketlistDB { return &BucketlistDB{conn: db.conn} }
func (db *DB) Items() *ItemDB             { return &ItemDB{conn: db.conn} }

func setupGoose() error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("sqlite: setting goose dialect: %w", err)
	}
	return nil
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, ":memory:?")
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// constraintKind classifies a constraint failure reported by the driver.
// It returns 0 for errors that are not constraint failures.
func constraintKind(err error) int {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return 0
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return sqlite3.SQLITE_CONSTRAINT_UNIQUE
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
	}
	return 0
}
