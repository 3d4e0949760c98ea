package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/bucketlist/internal/apperror"
	"github.com/sakif/bucketlist/internal/model"
	"github.com/sakif/bucketlist/internal/repository"
)

// MaxSearchLength caps the search term.
const MaxSearchLength = 100

// BucketlistService manages the bucketlists of an authenticated owner.
// Every method takes the caller's user id; touching another user's
// bucketlist is apperror.ErrForbidden.
type BucketlistService struct {
	bucketlists repository.BucketlistRepository
	logger      *slog.Logger
}

func NewBucketlistService(bucketlists repository.BucketlistRepository, logger *slog.Logger) *BucketlistService {
	return &BucketlistService{bucketlists: bucketlists, logger: logger}
}

func (s *BucketlistService) Create(ctx context.Context, ownerID int64, name string) (*model.Bucketlist, error) {
	name = strings.TrimSpace(name)
	if err := validateName("name", name); err != nil {
		return nil, err
	}

	b := &model.Bucketlist{Name: name, OwnerID: ownerID, Items: []model.Item{}}
	if err := s.bucketlists.Create(ctx, b); err != nil {
		s.logger.Error("failed to create bucketlist",
			slog.Int64("owner_id", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating bucketlist: %w", err)
	}

	s.logger.Info("bucketlist created",
		slog.Int64("id", b.ID),
		slog.Int64("owner_id", ownerID),
	)
	return b, nil
}

// Get returns one of the owner's bucketlists with its items.
func (s *BucketlistService) Get(ctx context.Context, ownerID, id int64) (*model.Bucketlist, error) {
	return s.owned(ctx, ownerID, id)
}

// List returns all of the owner's bucketlists, oldest first.
func (s *BucketlistService) List(ctx context.Context, ownerID int64) ([]model.Bucketlist, error) {
	return s.bucketlists.ListByOwner(ctx, ownerID)
}

// Update renames a bucketlist.
func (s *BucketlistService) Update(ctx context.Context, ownerID, id int64, name string) (*model.Bucketlist, error) {
	name = strings.TrimSpace(name)
	if err := validateName("name", name); err != nil {
		return nil, err
	}

	b, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	b.Name = name
	if err := s.bucketlists.Update(ctx, b); err != nil {
		return nil, err
	}

	s.logger.Info("bucketlist updated", slog.Int64("id", id))
	return b, nil
}

// Delete removes a bucketlist and its items.
func (s *BucketlistService) Delete(ctx context.Context, ownerID, id int64) error {
	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.bucketlists.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("bucketlist deleted", slog.Int64("id", id))
	return nil
}

// Search returns the owner's bucketlists whose name contains query,
// ignoring case. No match is an empty slice, not an error.
func (s *BucketlistService) Search(ctx context.Context, ownerID int64, query string) ([]model.Bucketlist, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperror.ValidationFailed("q", "search term is required")
	}
	if len(query) > MaxSearchLength {
		return nil, apperror.ValidationFailed("q",
			fmt.Sprintf("search term must be %d characters or less", MaxSearchLength))
	}
	return s.bucketlists.Search(ctx, ownerID, query)
}

// owned loads a bucketlist and checks it belongs to ownerID.
func (s *BucketlistService) owned(ctx context.Context, ownerID, id int64) (*model.Bucketlist, error) {
	if err := validateID("bucketlist", id); err != nil {
		return nil, err
	}
	b, err := s.bucketlists.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.OwnerID != ownerID {
		return nil, apperror.Forbidden("this bucketlist belongs to another user")
	}
	return b, nil
}
