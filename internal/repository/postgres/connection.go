// Package postgres implements the repository interfaces on PostgreSQL with
// gorm. It is selected when DATABASE_URL is a postgres:// URL.
//
// The schema is derived from the gorm tags on the model structs
// (AutoMigrate); foreign keys carry ON DELETE CASCADE so deleting a user or
// a bucketlist removes everything under it, matching the SQLite store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sakif/bucketlist/internal/model"
	"github.com/sakif/bucketlist/internal/repository"
)

// Store owns the gorm handle and hands out repositories built on it.
type Store struct {
	db *gorm.DB
}

// NewConnection opens a gorm connection with translated errors, so unique and
// foreign key violations surface as gorm.ErrDuplicatedKey and
// gorm.ErrForeignKeyViolated. gorm's own logging goes through log at warn level.
func NewConnection(databaseURL string, log *slog.Logger) (*gorm.DB, error) {
	if log == nil {
		log = slog.Default()
	}
	gormLog := logger.New(
		slog.NewLogLogger(log.Handler(), slog.LevelWarn),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: connecting: %w", err)
	}
	return db, nil
}

// New connects and migrates.
func New(ctx context.Context, databaseURL string, log *slog.Logger) (*Store, error) {
	db, err := NewConnection(databaseURL, log)
	if err != nil {
		return nil, err
	}
	s := NewStore(db)
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an existing gorm handle without migrating.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or alters the tables to match the model structs.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&model.User{}, &model.Bucketlist{}, &model.Item{}); err != nil {
		return fmt.Errorf("postgres: auto-migrating: %w", err)
	}
	return nil
}

// Reset drops every table, children first.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Migrator().DropTable(&model.Item{}, &model.Bucketlist{}, &model.User{}); err != nil {
		return fmt.Errorf("postgres: dropping tables: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Repositories returns the three repositories backed by this store.
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Users:       NewUserRepository(s.db),
		Bucketlists: NewBucketlistRepository(s.db),
		Items:       NewItemRepository(s.db),
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
