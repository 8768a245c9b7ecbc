package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tasksync/internal/marker"
	"tasksync/internal/model"
)

// ActivityTaskRepository handles activity tasks and their subtasks.
type ActivityTaskRepository struct {
	db *gorm.DB
}

func NewActivityTaskRepository(db *gorm.DB) *ActivityTaskRepository {
	return &ActivityTaskRepository{db: db}
}

// Create inserts the task and its subtasks.
func (r *ActivityTaskRepository) Create(ctx context.Context, task *model.ActivityTask) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(task).Error; err != nil {
		return wrap("create activity task", err)
	}
	for i := range task.Subtasks {
		task.Subtasks[i].ActivityTaskID = task.ID
		task.Subtasks[i].SortOrder = i
	}
	if len(task.Subtasks) == 0 {
		return nil
	}
	return wrap("create activity subtasks", db.Create(&task.Subtasks).Error)
}

// ListByActivity returns the activity's tasks with ordered subtasks.
func (r *ActivityTaskRepository) ListByActivity(ctx context.Context, activityID uuid.UUID) ([]model.ActivityTask, error) {
	var tasks []model.ActivityTask
	err := r.db.WithContext(ctx).
		Preload("Subtasks", orderedSubtasks).
		Where("activity_id = ?", activityID).
		Order("created_at ASC, id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, wrap("list activity tasks", err)
	}
	return tasks, nil
}

func (r *ActivityTaskRepository) CountByActivity(ctx context.Context, activityID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.ActivityTask{}).Where("activity_id = ?", activityID).Count(&n).Error
	return n, wrap("count activity tasks", err)
}

// FeedbackTasks returns the activity's feedback tasks for templateID, oldest
// first. Rows are matched by column or, for legacy rows, by marker.
func (r *ActivityTaskRepository) FeedbackTasks(ctx context.Context, activityID, templateID uuid.UUID) ([]model.ActivityTask, error) {
	var tasks []model.ActivityTask
	err := r.db.WithContext(ctx).
		Where("activity_id = ? AND (feedback_template_id = ? OR description LIKE ?)",
			activityID, templateID, marker.LikePattern(templateID)).
		Order("created_at ASC, id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, wrap("find feedback tasks", err)
	}
	return tasks, nil
}

// UpdateContent writes the given columns on one task. It never touches
// completed unless the caller names it.
func (r *ActivityTaskRepository) UpdateContent(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&model.ActivityTask{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return wrap("update activity task", res.Error)
	}
	if res.RowsAffected == 0 {
		return wrap("update activity task", gorm.ErrRecordNotFound)
	}
	return nil
}

// ReplaceSubtasks swaps the task's subtasks for titles, in order.
func (r *ActivityTaskRepository) ReplaceSubtasks(ctx context.Context, taskID uuid.UUID, titles []string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("activity_task_id = ?", taskID).Delete(&model.ActivityTaskSubtask{}).Error; err != nil {
		return wrap("delete activity subtasks", err)
	}
	if len(titles) == 0 {
		return nil
	}
	subtasks := make([]model.ActivityTaskSubtask, 0, len(titles))
	for i, title := range titles {
		subtasks = append(subtasks, model.ActivityTaskSubtask{ActivityTaskID: taskID, Title: title, SortOrder: i})
	}
	return wrap("create activity subtasks", db.Create(&subtasks).Error)
}

// DeleteByIDs removes the tasks and their subtasks.
func (r *ActivityTaskRepository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	db := r.db.WithContext(ctx)
	if err := db.Where("activity_task_id IN ?", ids).Delete(&model.ActivityTaskSubtask{}).Error; err != nil {
		return 0, wrap("delete activity subtasks", err)
	}
	res := db.Where("id IN ?", ids).Delete(&model.ActivityTask{})
	if res.Error != nil {
		return 0, wrap("delete activity tasks", res.Error)
	}
	return res.RowsAffected, nil
}

// ActivityIDsForTemplate returns every activity holding a template-backed or
// feedback task for templateID. Feedback rows written before the
// feedback_template_id column existed are found by their marker.
func (r *ActivityTaskRepository) ActivityIDsForTemplate(ctx context.Context, templateID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&model.ActivityTask{}).
		Where("task_template_id = ? OR feedback_template_id = ? OR description LIKE ?",
			templateID, templateID, marker.LikePattern(templateID)).
		Distinct().Order("activity_id").Pluck("activity_id", &ids).Error
	if err != nil {
		return nil, wrap("list activities for template", err)
	}
	return ids, nil
}

// TemplateTaskIDsByUser returns ids of template-backed tasks for templateID
// on any of the user's activities.
func (r *ActivityTaskRepository) TemplateTaskIDsByUser(ctx context.Context, userID, templateID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&model.ActivityTask{}).
		Where("task_template_id = ? AND activity_id IN (?)", templateID, userActivityIDs(r.db, userID)).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, wrap("list template tasks", err)
	}
	return ids, nil
}

// FeedbackTaskIDsByUser returns ids of feedback tasks for templateID on any
// of the user's activities.
func (r *ActivityTaskRepository) FeedbackTaskIDsByUser(ctx context.Context, userID, templateID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&model.ActivityTask{}).
		Where("(feedback_template_id = ? OR description LIKE ?) AND activity_id IN (?)",
			templateID, marker.LikePattern(templateID), userActivityIDs(r.db, userID)).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, wrap("list feedback tasks", err)
	}
	return ids, nil
}

// LegacyTitleMatches returns template-less, non-feedback tasks whose title
// equals title on the user's activities in the given categories. Only
// surrounding blanks are ignored; case must match.
func (r *ActivityTaskRepository) LegacyTitleMatches(ctx context.Context, userID uuid.UUID, categoryIDs []uuid.UUID, title string) ([]model.ActivityTask, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}
	scope := r.db.Model(&model.Activity{}).Select("id").
		Where("user_id = ? AND category_id IN ?", userID, categoryIDs)
	var tasks []model.ActivityTask
	err := r.db.WithContext(ctx).
		Where("task_template_id IS NULL AND feedback_template_id IS NULL").
		Where("description NOT LIKE ?", marker.AnyLikePattern()).
		Where("TRIM(title) = ? AND activity_id IN (?)", strings.TrimSpace(title), scope).
		Order("activity_id, created_at").
		Find(&tasks).Error
	if err != nil {
		return nil, wrap("find legacy tasks", err)
	}
	return tasks, nil
}

// SetCompletedForTemplate marks the activity's task for templateID completed.
func (r *ActivityTaskRepository) SetCompletedForTemplate(ctx context.Context, activityID, templateID uuid.UUID) error {
	err := r.db.WithContext(ctx).Model(&model.ActivityTask{}).
		Where("activity_id = ? AND task_template_id = ?", activityID, templateID).
		Update("completed", true).Error
	return wrap("restore completion", err)
}
