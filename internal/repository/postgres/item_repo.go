package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/sakif/bucketlist/internal/apperror"
	"github.com/sakif/bucketlist/internal/model"
	"github.com/sakif/bucketlist/internal/repository"
)

var _ repository.ItemRepository = (*itemRepository)(nil)

type itemRepository struct {
	db *gorm.DB
}

func NewItemRepository(db *gorm.DB) *itemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) Create(ctx context.Context, item *model.Item) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return apperror.NotFound("bucketlist", strconv.FormatInt(item.BucketlistID, 10))
		}
		return fmt.Errorf("postgres: creating item: %w", err)
	}
	return nil
}

func (r *itemRepository) GetByID(ctx context.Context, id int64) (*model.Item, error) {
	var item model.Item
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, apperror.NotFound("item", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("postgres: getting item %d: %w", id, err)
	}
	return &item, nil
}

func (r *itemRepository) ListByBucketlist(ctx context.Context, bucketlistID int64) ([]model.Item, error) {
	items := []model.Item{}
	err := r.db.WithContext(ctx).Where("bucketlist_id = ?", bucketlistID).Order("id").Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("postgres: listing items: %w", err)
	}
	return items, nil
}

func (r *itemRepository) ListByOwner(ctx context.Context, ownerID int64) ([]model.Item, error) {
	items := []model.Item{}
	err := r.db.WithContext(ctx).
		Joins("JOIN bucketlists ON bucketlists.id = items.bucketlist_id").
		Where("bucketlists.owner_id = ?", ownerID).
		Order("items.id").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("postgres: listing items for owner %d: %w", ownerID, err)
	}
	return items, nil
}

// Update writes the mutable columns, including zero values: Done=false and a
// nil CompletedAt must reach the row.
func (r *itemRepository) Update(ctx context.Context, item *model.Item) error {
	item.UpdatedAt = time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&model.Item{ID: item.ID}).
		Select("name", "description", "done", "completed_at", "updated_at").
		Updates(item)
	if res.Error != nil {
		return fmt.Errorf("postgres: updating item %d: %w", item.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("item", strconv.FormatInt(item.ID, 10))
	}
	return nil
}

func (r *itemRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Item{}, id)
	if res.Error != nil {
		return fmt.Errorf("postgres: deleting item %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("item", strconv.FormatInt(id, 10))
	}
	return nil
}
