package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tasksync/internal/model"
)

// TemplateRepository manages task templates, their subtasks and category links.
type TemplateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func orderedSubtasks(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC, created_at ASC")
}

// Create inserts the template together with its subtasks and category links.
func (r *TemplateRepository) Create(ctx context.Context, tmpl *model.TaskTemplate) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(tmpl).Error; err != nil {
		return wrap("create template", err)
	}
	for i := range tmpl.Subtasks {
		tmpl.Subtasks[i].TaskTemplateID = tmpl.ID
		tmpl.Subtasks[i].SortOrder = i
	}
	if len(tmpl.Subtasks) > 0 {
		if err := db.Create(&tmpl.Subtasks).Error; err != nil {
			return wrap("create template subtasks", err)
		}
	}
	for i := range tmpl.Categories {
		tmpl.Categories[i].TaskTemplateID = tmpl.ID
	}
	if len(tmpl.Categories) > 0 {
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&tmpl.Categories).Error; err != nil {
			return wrap("create template categories", err)
		}
	}
	return nil
}

// GetByID loads a template with ordered subtasks and category links.
func (r *TemplateRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.TaskTemplate, error) {
	var tmpl model.TaskTemplate
	err := r.db.WithContext(ctx).
		Preload("Subtasks", orderedSubtasks).
		Preload("Categories").
		Where("id = ?", id).First(&tmpl).Error
	if err != nil {
		return nil, wrap("get template", err)
	}
	return &tmpl, nil
}

// ListForCategory returns the user's visible templates linked to categoryID.
func (r *TemplateRepository) ListForCategory(ctx context.Context, userID, categoryID uuid.UUID) ([]model.TaskTemplate, error) {
	var templates []model.TaskTemplate
	linked := r.db.Model(&model.TemplateCategory{}).Select("task_template_id").Where("category_id = ?", categoryID)
	err := r.db.WithContext(ctx).
		Preload("Subtasks", orderedSubtasks).
		Where("user_id = ? AND hidden_at IS NULL AND id IN (?)", userID, linked).
		Order("created_at ASC, id ASC").
		Find(&templates).Error
	if err != nil {
		return nil, wrap("list templates for category", err)
	}
	return templates, nil
}

// Update applies column updates to the template row.
func (r *TemplateRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&model.TaskTemplate{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return wrap("update template", res.Error)
	}
	if res.RowsAffected == 0 {
		return wrap("update template", gorm.ErrRecordNotFound)
	}
	return nil
}

// Hide marks the template hidden at ts.
func (r *TemplateRepository) Hide(ctx context.Context, id uuid.UUID, ts time.Time) error {
	return r.Update(ctx, id, map[string]any{"hidden_at": ts})
}

// ReplaceSubtasks swaps the template's subtask list for titles, in order.
func (r *TemplateRepository) ReplaceSubtasks(ctx context.Context, id uuid.UUID, titles []string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("task_template_id = ?", id).Delete(&model.TaskTemplateSubtask{}).Error; err != nil {
		return wrap("delete template subtasks", err)
	}
	subtasks := make([]model.TaskTemplateSubtask, 0, len(titles))
	for i, title := range titles {
		subtasks = append(subtasks, model.TaskTemplateSubtask{TaskTemplateID: id, Title: title, SortOrder: i})
	}
	if len(subtasks) == 0 {
		return nil
	}
	return wrap("create template subtasks", db.Create(&subtasks).Error)
}

// LinkCategory adds a category link; linking twice is a no-op. It reports
// whether a new link was stored.
func (r *TemplateRepository) LinkCategory(ctx context.Context, id, categoryID uuid.UUID) (bool, error) {
	link := model.TemplateCategory{TaskTemplateID: id, CategoryID: categoryID}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&link)
	if res.Error != nil {
		return false, wrap("link template category", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *TemplateRepository) UnlinkCategory(ctx context.Context, id, categoryID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("task_template_id = ? AND category_id = ?", id, categoryID).
		Delete(&model.TemplateCategory{})
	if res.Error != nil {
		return false, wrap("unlink template category", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *TemplateRepository) CategoryIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&model.TemplateCategory{}).
		Where("task_template_id = ?", id).Order("category_id").Pluck("category_id", &ids).Error
	if err != nil {
		return nil, wrap("list template categories", err)
	}
	return ids, nil
}

// OtherWithTitle returns the user's other templates whose title matches
// title exactly, ignoring surrounding blanks.
func (r *TemplateRepository) OtherWithTitle(ctx context.Context, userID, excludeID uuid.UUID, title string) ([]model.TaskTemplate, error) {
	var templates []model.TaskTemplate
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND id <> ? AND TRIM(title) = ?", userID, excludeID, strings.TrimSpace(title)).
		Find(&templates).Error
	if err != nil {
		return nil, wrap("find templates by title", err)
	}
	return templates, nil
}

// Delete removes the template row with its subtasks and category links.
func (r *TemplateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("task_template_id = ?", id).Delete(&model.TaskTemplateSubtask{}).Error; err != nil {
		return wrap("delete template subtasks", err)
	}
	if err := db.Where("task_template_id = ?", id).Delete(&model.TemplateCategory{}).Error; err != nil {
		return wrap("delete template categories", err)
	}
	res := db.Where("id = ?", id).Delete(&model.TaskTemplate{})
	if res.Error != nil {
		return wrap("delete template", res.Error)
	}
	if res.RowsAffected == 0 {
		return wrap("delete template", gorm.ErrRecordNotFound)
	}
	return nil
}
