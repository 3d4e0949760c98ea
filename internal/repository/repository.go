// Package repository declares the storage contracts the service layer
// depends on. internal/repository/sqlite and internal/repository/postgres
// provide the two implementations.
//
// Every implementation follows the same error contract:
//   - a lookup or delete that matches no row returns apperror.ErrNotFound
//   - a unique-constraint violation returns apperror.ErrConflict and leaves
//     the store unchanged
//   - anything else is returned wrapped, with the backend name as prefix
package repository

import (
	"context"
	"strings"

	"github.com/sakif/bucketlist/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// List returns every user ordered by last name, then id.
	List(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, user *model.User) error
	// Delete removes the user and, by cascade, their bucketlists and items.
	Delete(ctx context.Context, id int64) error
}

type BucketlistRepository interface {
	Create(ctx context.Context, b *model.Bucketlist) error
	// GetByID returns the bucketlist with its items loaded.
	GetByID(ctx context.Context, id int64) (*model.Bucketlist, error)
	// ListByOwner returns the owner's bucketlists, oldest first, items loaded.
	ListByOwner(ctx context.Context, ownerID int64) ([]model.Bucketlist, error)
	// Search matches query as a case-insensitive substring of the name.
	Search(ctx context.Context, ownerID int64, query string) ([]model.Bucketlist, error)
	Update(ctx context.Context, b *model.Bucketlist) error
	// Delete removes the bucketlist and, by cascade, its items.
	Delete(ctx context.Context, id int64) error
}

type ItemRepository interface {
	Create(ctx context.Context, item *model.Item) error
	GetByID(ctx context.Context, id int64) (*model.Item, error)
	ListByBucketlist(ctx context.Context, bucketlistID int64) ([]model.Item, error)
	// ListByOwner returns every item in every bucketlist the owner has.
	ListByOwner(ctx context.Context, ownerID int64) ([]model.Item, error)
	Update(ctx context.Context, item *model.Item) error
	Delete(ctx context.Context, id int64) error
}

// Repositories groups the three repositories of one backend so they can be
// handed to the service layer together.
type Repositories struct {
	Users       UserRepository
	Bucketlists BucketlistRepository
	Items       ItemRepository
}

// MatchNames keeps the bucketlists whose name contains query, ignoring case
// with full Unicode folding. Both stores filter the owner's lists with it so
// search behaves the same whichever backend is configured.
func MatchNames(lists []model.Bucketlist, query string) []model.Bucketlist {
	needle := strings.ToLower(strings.TrimSpace(query))
	matched := lists[:0]
	for _, bl := range lists {
		if strings.Contains(strings.ToLower(bl.Name), needle) {
			matched = append(matched, bl)
		}
	}
	return matched
}
