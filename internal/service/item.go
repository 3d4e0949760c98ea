package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/bucketlist/internal/apperror"
	"github.com/sakif/bucketlist/internal/model"
	"github.com/sakif/bucketlist/internal/repository"
)

// MaxDescriptionLength caps an item's description.
const MaxDescriptionLength = 500

// ItemService manages the items inside an owner's bucketlists. Ownership of
// an item is the ownership of its bucketlist.
type ItemService struct {
	items       repository.ItemRepository
	bucketlists repository.BucketlistRepository
	logger      *slog.Logger
	now         func() time.Time
}

func NewItemService(
	items repository.ItemRepository,
	bucketlists repository.BucketlistRepository,
	logger *slog.Logger,
) *ItemService {
	return &ItemService{
		items:       items,
		bucketlists: bucketlists,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

type CreateItemInput struct {
	Name        string
	Description string
	Done        bool
}

// UpdateItemInput carries the fields to change. Nil fields are left alone.
type UpdateItemInput struct {
	Name        *string
	Description *string
	Done        *bool
}

// Create adds an item to one of the owner's bucketlists.
func (s *ItemService) Create(ctx context.Context, ownerID, bucketlistID int64, in CreateItemInput) (*model.Item, error) {
	name := strings.TrimSpace(in.Name)
	if err := validateName("name", name); err != nil {
		return nil, err
	}
	desc := strings.TrimSpace(in.Description)
	if err := validateDescription(desc); err != nil {
		return nil, err
	}
	if _, err := s.ownedList(ctx, ownerID, bucketlistID); err != nil {
		return nil, err
	}

	item := &model.Item{Name: name, Description: desc, BucketlistID: bucketlistID}
	item.MarkDone(in.Done, s.now())

	if err := s.items.Create(ctx, item); err != nil {
		s.logger.Error("failed to create item",
			slog.Int64("bucketlist_id", bucketlistID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating item: %w", err)
	}

	s.logger.Info("item created",
		slog.Int64("id", item.ID),
		slog.Int64("bucketlist_id", bucketlistID),
	)
	return item, nil
}

func (s *ItemService) Get(ctx context.Context, ownerID, id int64) (*model.Item, error) {
	return s.owned(ctx, ownerID, id)
}

// List returns every item across the owner's bucketlists.
func (s *ItemService) List(ctx context.Context, ownerID int64) ([]model.Item, error) {
	return s.items.ListByOwner(ctx, ownerID)
}

// ListForBucketlist returns the items of one of the owner's bucketlists.
func (s *ItemService) ListForBucketlist(ctx context.Context, ownerID, bucketlistID int64) ([]model.Item, error) {
	if _, err := s.ownedList(ctx, ownerID, bucketlistID); err != nil {
		return nil, err
	}
	return s.items.ListByBucketlist(ctx, bucketlistID)
}

// Update edits an item. Setting done records the completion time unless the
// item was already done; clearing it removes the time.
func (s *ItemService) Update(ctx context.Context, ownerID, id int64, in UpdateItemInput) (*model.Item, error) {
	if in.Name == nil && in.Description == nil && in.Done == nil {
		return nil, apperror.ValidationFailed("", "no fields to update")
	}

	item, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		v := strings.TrimSpace(*in.Name)
		if err := validateName("name", v); err != nil {
			return nil, err
		}
		item.Name = v
	}
	if in.Description != nil {
		v := strings.TrimSpace(*in.Description)
		if err := validateDescription(v); err != nil {
			return nil, err
		}
		item.Description = v
	}
	if in.Done != nil {
		item.MarkDone(*in.Done, s.now())
	}

	if err := s.items.Update(ctx, item); err != nil {
		return nil, err
	}

	s.logger.Info("item updated", slog.Int64("id", id), slog.Bool("done", item.Done))
	return item, nil
}

func (s *ItemService) Delete(ctx context.Context, ownerID, id int64) error {
	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.items.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("item deleted", slog.Int64("id", id))
	return nil
}

func (s *ItemService) owned(ctx context.Context, ownerID, id int64) (*model.Item, error) {
	if err := validateID("item", id); err != nil {
		return nil, err
	}
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedList(ctx, ownerID, item.BucketlistID); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *ItemService) ownedList(ctx context.Context, ownerID, bucketlistID int64) (*model.Bucketlist, error) {
	if err := validateID("bucketlist", bucketlistID); err != nil {
		return nil, err
	}
	b, err := s.bucketlists.GetByID(ctx, bucketlistID)
	if err != nil {
		return nil, err
	}
	if b.OwnerID != ownerID {
		return nil, apperror.Forbidden("this bucketlist belongs to another user")
	}
	return b, nil
}

func validateDescription(v string) error {
	if len(v) > MaxDescriptionLength {
		return apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength))
	}
	return nil
}
