// Package storage picks a repository backend from a database URL.
//
//	postgres://... or postgresql://...  → internal/repository/postgres (gorm)
//	anything else                       → internal/repository/sqlite
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sakif/bucketlist/internal/config"
	"github.com/sakif/bucketlist/internal/repository"
	"github.com/sakif/bucketlist/internal/repository/postgres"
	"github.com/sakif/bucketlist/internal/repository/sqlite"
)

// Backend is what both stores provide beyond the repositories themselves.
type Backend interface {
	Repositories() *repository.Repositories
	Migrate(ctx context.Context) error
	Reset(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Backend = (*sqlite.DB)(nil)
	_ Backend = (*postgres.Store)(nil)
)

// Open connects to the database at dsn and applies the schema.
func Open(ctx context.Context, dsn string, log *slog.Logger) (Backend, error) {
	b, err := Connect(ctx, dsn, log)
	if err != nil {
		return nil, err
	}
	if err := b.Migrate(ctx); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

// Connect opens the database without touching the schema.
func Connect(ctx context.Context, dsn string, log *slog.Logger) (Backend, error) {
	if config.IsPostgresURL(dsn) {
		db, err := postgres.NewConnection(dsn, log)
		if err != nil {
			return nil, err
		}
		return postgres.NewStore(db), nil
	}

	path := strings.TrimPrefix(dsn, "sqlite://")
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	db, err := sqlite.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Kind names the backend dsn selects, for log lines.
func Kind(dsn string) string {
	if config.IsPostgresURL(dsn) {
		return "postgres"
	}
	return "sqlite"
}

// ensureDir creates the parent directory of a SQLite file (like mkdir -p).
func ensureDir(path string) error {
	if strings.HasPrefix(path, ":memory:") || strings.HasPrefix(path, "file:") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: creating database directory %s: %w", dir, err)
	}
	return nil
}
