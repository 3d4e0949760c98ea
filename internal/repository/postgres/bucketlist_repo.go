package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sakif/bucketlist/internal/apperror"
	"github.com/sakif/bucketlist/internal/model"
	"github.com/sakif/bucketlist/internal/repository"
)

var _ repository.BucketlistRepository = (*bucketlistRepository)(nil)

type bucketlistRepository struct {
	db *gorm.DB
}

func NewBucketlistRepository(db *gorm.DB) *bucketlistRepository {
	return &bucketlistRepository{db: db}
}

func orderedItems(db *gorm.DB) *gorm.DB { return db.Order("id") }

func (r *bucketlistRepository) Create(ctx context.Context, bl *model.Bucketlist) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(bl).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return apperror.NotFound("user", strconv.FormatInt(bl.OwnerID, 10))
		}
		return fmt.Errorf("postgres: creating bucketlist: %w", err)
	}
	bl.Items = []model.Item{}
	return nil
}

func (r *bucketlistRepository) GetByID(ctx context.Context, id int64) (*model.Bucketlist, error) {
	var bl model.Bucketlist
	err := r.db.WithContext(ctx).
		Preload("Items", orderedItems).
		First(&bl, "id = ?", id).Error
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.NotFound("bucketlist", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("postgres: getting bucketlist %d: %w", id, err)
	}
	if bl.Items == nil {
		bl.Items = []model.Item{}
	}
	return &bl, nil
}

func (r *bucketlistRepository) ListByOwner(ctx context.Context, ownerID int64) ([]model.Bucketlist, error) {
	return r.find(r.db.WithContext(ctx).Where("owner_id = ?", ownerID))
}

// Search filters the owner's lists in Go rather than with ILIKE, whose case
// folding depends on the database collation.
func (r *bucketlistRepository) Search(ctx context.Context, ownerID int64, query string) ([]model.Bucketlist, error) {
	lists, err := r.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return repository.MatchNames(lists, query), nil
}

func (r *bucketlistRepository) find(q *gorm.DB) ([]model.Bucketlist, error) {
	lists := []model.Bucketlist{}
	if err := q.Preload("Items", orderedItems).Order("id").Find(&lists).Error; err != nil {
		return nil, fmt.Errorf("postgres: listing bucketlists: %w", err)
	}
	for i := range lists {
		if lists[i].Items == nil {
			lists[i].Items = []model.Item{}
		}
	}
	return lists, nil
}

func (r *bucketlistRepository) Update(ctx context.Context, bl *model.Bucketlist) error {
	bl.UpdatedAt = time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&model.Bucketlist{ID: bl.ID}).
		Select("name", "updated_at").
		Updates(bl)
	if res.Error != nil {
		return fmt.Errorf("postgres: updating bucketlist %d: %w", bl.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("bucketlist", strconv.FormatInt(bl.ID, 10))
	}
	return nil
}

func (r *bucketlistRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Bucketlist{}, id)
	if res.Error != nil {
		return fmt.Errorf("postgres: deleting bucketlist %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("bucketlist", strconv.FormatInt(id, 10))
	}
	return nil
}
