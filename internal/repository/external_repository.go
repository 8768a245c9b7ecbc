package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tasksync/internal/model"
)

// ExternalEventRepository handles calendar mirrors, their local metadata and
// the tasks attached to them.
type ExternalEventRepository struct {
	db *gorm.DB
}

func NewExternalEventRepository(db *gorm.DB) *ExternalEventRepository {
	return &ExternalEventRepository{db: db}
}

func (r *ExternalEventRepository) CreateEvent(ctx context.Context, event *model.ExternalEvent) error {
	return wrap("create external event", r.db.WithContext(ctx).Create(event).Error)
}

func (r *ExternalEventRepository) CreateMeta(ctx context.Context, meta *model.ExternalEventLocalMeta) error {
	return wrap("create event meta", r.db.WithContext(ctx).Create(meta).Error)
}

func (r *ExternalEventRepository) GetMeta(ctx context.Context, id uuid.UUID) (*model.ExternalEventLocalMeta, error) {
	var meta model.ExternalEventLocalMeta
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&meta).Error; err != nil {
		return nil, wrap("get event meta", err)
	}
	return &meta, nil
}

// UpdateMetaCategory sets the category chosen by the user.
func (r *ExternalEventRepository) UpdateMetaCategory(ctx context.Context, id uuid.UUID, categoryID *uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&model.ExternalEventLocalMeta{}).Where("id = ?", id).
		Updates(map[string]any{"category_id": categoryID, "manually_set_category": true})
	if res.Error != nil {
		return wrap("update event meta category", res.Error)
	}
	if res.RowsAffected == 0 {
		return wrap("update event meta category", gorm.ErrRecordNotFound)
	}
	return nil
}

// MetaIDsByCategory returns the user's external-event metadata rows in categoryID.
func (r *ExternalEventRepository) MetaIDsByCategory(ctx context.Context, userID, categoryID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&model.ExternalEventLocalMeta{}).
		Where("user_id = ? AND category_id = ?", userID, categoryID).
		Order("id").Pluck("id", &ids).Error
	if err != nil {
		return nil, wrap("list event meta by category", err)
	}
	return ids, nil
}

// MetaIDsForTemplate returns metadata rows holding a task for templateID.
func (r *ExternalEventRepository) MetaIDsForTemplate(ctx context.Context, templateID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&model.ExternalEventTask{}).
		Where("task_template_id = ?", templateID).
		Distinct().Order("local_meta_id").Pluck("local_meta_id", &ids).Error
	if err != nil {
		return nil, wrap("list event meta for template", err)
	}
	return ids, nil
}

func (r *ExternalEventRepository) CreateTask(ctx context.Context, task *model.ExternalEventTask) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(task).Error; err != nil {
		return wrap("create external task", err)
	}
	for i := range task.Subtasks {
		task.Subtasks[i].ExternalEventTaskID = task.ID
		task.Subtasks[i].SortOrder = i
	}
	if len(task.Subtasks) == 0 {
		return nil
	}
	return wrap("create external subtasks", db.Create(&task.Subtasks).Error)
}

func (r *ExternalEventRepository) ListTasks(ctx context.Context, metaID uuid.UUID) ([]model.ExternalEventTask, error) {
	var tasks []model.ExternalEventTask
	err := r.db.WithContext(ctx).
		Preload("Subtasks", orderedSubtasks).
		Where("local_meta_id = ?", metaID).
		Order("created_at ASC, id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, wrap("list external tasks", err)
	}
	return tasks, nil
}

func (r *ExternalEventRepository) UpdateTaskContent(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&model.ExternalEventTask{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return wrap("update external task", res.Error)
	}
	if res.RowsAffected == 0 {
		return wrap("update external task", gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *ExternalEventRepository) ReplaceTaskSubtasks(ctx context.Context, taskID uuid.UUID, titles []string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("external_event_task_id = ?", taskID).Delete(&model.ExternalEventTaskSubtask{}).Error; err != nil {
		return wrap("delete external subtasks", err)
	}
	if len(titles) == 0 {
		return nil
	}
	subtasks := make([]model.ExternalEventTaskSubtask, 0, len(titles))
	for i, title := range titles {
		subtasks = append(subtasks, model.ExternalEventTaskSubtask{ExternalEventTaskID: taskID, Title: title, SortOrder: i})
	}
	return wrap("create external subtasks", db.Create(&subtasks).Error)
}

// DeleteTasks removes the tasks and their subtasks.
func (r *ExternalEventRepository) DeleteTasks(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	db := r.db.WithContext(ctx)
	if err := db.Where("external_event_task_id IN ?", ids).Delete(&model.ExternalEventTaskSubtask{}).Error; err != nil {
		return 0, wrap("delete external subtasks", err)
	}
	res := db.Where("id IN ?", ids).Delete(&model.ExternalEventTask{})
	if res.Error != nil {
		return 0, wrap("delete external tasks", res.Error)
	}
	return res.RowsAffected, nil
}

// TemplateTaskIDs returns the ids of template-backed tasks on one metadata row.
func (r *ExternalEventRepository) TemplateTaskIDs(ctx context.Context, metaID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&model.ExternalEventTask{}).
		Where("local_meta_id = ? AND task_template_id IS NOT NULL", metaID).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, wrap("list external template tasks", err)
	}
	return ids, nil
}

// TaskIDsForTemplateByUser returns external tasks for templateID owned by userID.
func (r *ExternalEventRepository) TaskIDsForTemplateByUser(ctx context.Context, userID, templateID uuid.UUID) ([]uuid.UUID, error) {
	owned := r.db.Model(&model.ExternalEventLocalMeta{}).Select("id").Where("user_id = ?", userID)
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&model.ExternalEventTask{}).
		Where("task_template_id = ? AND local_meta_id IN (?)", templateID, owned).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, wrap("list external tasks for template", err)
	}
	return ids, nil
}
