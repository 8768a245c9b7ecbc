package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tasksync/internal/model"
)

// ActivityRepository reads and writes activities.
type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Create(ctx context.Context, activity *model.Activity) error {
	return wrap("create activity", r.db.WithContext(ctx).Create(activity).Error)
}

func (r *ActivityRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Activity, error) {
	var activity model.Activity
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&activity).Error; err != nil {
		return nil, wrap("get activity", err)
	}
	return &activity, nil
}

func (r *ActivityRepository) UpdateCategory(ctx context.Context, id uuid.UUID, categoryID *uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&model.Activity{}).Where("id = ?", id).
		Update("category_id", categoryID)
	if res.Error != nil {
		return wrap("update activity category", res.Error)
	}
	if res.RowsAffected == 0 {
		return wrap("update activity category", gorm.ErrRecordNotFound)
	}
	return nil
}

// SeriesIDsOf returns the distinct series the given activities belong to.
func (r *ActivityRepository) SeriesIDsOf(ctx context.Context, activityIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(activityIDs) == 0 {
		return nil, nil
	}
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&model.Activity{}).
		Where("id IN ? AND series_id IS NOT NULL", activityIDs).
		Distinct().Order("series_id").Pluck("series_id", &ids).Error
	if err != nil {
		return nil, wrap("list series ids", err)
	}
	return ids, nil
}

// InternalIDsInSeries returns non-external activities of the given series,
// leaving out the ids in exclude.
func (r *ActivityRepository) InternalIDsInSeries(ctx context.Context, seriesIDs, exclude []uuid.UUID) ([]uuid.UUID, error) {
	if len(seriesIDs) == 0 {
		return nil, nil
	}
	q := r.db.WithContext(ctx).Model(&model.Activity{}).
		Where("series_id IN ? AND is_external = ?", seriesIDs, false)
	if len(exclude) > 0 {
		q = q.Where("id NOT IN ?", exclude)
	}
	var ids []uuid.UUID
	if err := q.Order("starts_at, id").Pluck("id", &ids).Error; err != nil {
		return nil, wrap("list series activities", err)
	}
	return ids, nil
}

// InternalIDsByCategory returns the user's non-external activities in categoryID.
func (r *ActivityRepository) InternalIDsByCategory(ctx context.Context, userID, categoryID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&model.Activity{}).
		Where("user_id = ? AND category_id = ? AND is_external = ?", userID, categoryID, false).
		Order("starts_at, id").Pluck("id", &ids).Error
	if err != nil {
		return nil, wrap("list activities by category", err)
	}
	return ids, nil
}

// ListCategorized returns every non-external activity that has a category.
func (r *ActivityRepository) ListCategorized(ctx context.Context) ([]model.Activity, error) {
	var activities []model.Activity
	err := r.db.WithContext(ctx).
		Where("is_external = ? AND category_id IS NOT NULL", false).
		Order("user_id, starts_at, id").Find(&activities).Error
	if err != nil {
		return nil, wrap("list categorized activities", err)
	}
	return activities, nil
}

// userActivityIDs is a subquery selecting the ids of a user's activities.
func userActivityIDs(db *gorm.DB, userID uuid.UUID) *gorm.DB {
	return db.Model(&model.Activity{}).Select("id").Where("user_id = ?", userID)
}
