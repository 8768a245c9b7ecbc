package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tasksync/internal/model"
)

// ReflectionRepository stores training reflections and template self-feedback.
type ReflectionRepository struct {
	db *gorm.DB
}

func NewReflectionRepository(db *gorm.DB) *ReflectionRepository {
	return &ReflectionRepository{db: db}
}

// Ensure inserts reflection unless one already exists for its activity.
// Existing ratings and notes are left alone.
func (r *ReflectionRepository) Ensure(ctx context.Context, reflection *model.TrainingReflection) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "activity_id"}}, DoNothing: true}).
		Create(reflection)
	if res.Error != nil {
		return false, wrap("ensure training reflection", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *ReflectionRepository) GetByActivity(ctx context.Context, activityID uuid.UUID) (*model.TrainingReflection, error) {
	var reflection model.TrainingReflection
	if err := r.db.WithContext(ctx).Where("activity_id = ?", activityID).First(&reflection).Error; err != nil {
		return nil, wrap("get training reflection", err)
	}
	return &reflection, nil
}

func (r *ReflectionRepository) CreateSelfFeedback(ctx context.Context, feedback *model.TaskTemplateSelfFeedback) error {
	return wrap("create self feedback", r.db.WithContext(ctx).Create(feedback).Error)
}

// DeleteSelfFeedback removes the user's rating history for templateID.
func (r *ReflectionRepository) DeleteSelfFeedback(ctx context.Context, userID, templateID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND task_template_id = ?", userID, templateID).
		Delete(&model.TaskTemplateSelfFeedback{})
	if res.Error != nil {
		return 0, wrap("delete self feedback", res.Error)
	}
	return res.RowsAffected, nil
}
