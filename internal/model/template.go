package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskTemplate is a reusable checklist item bound to categories.
type TaskTemplate struct {
	ID                                    uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID                                uuid.UUID `gorm:"type:uuid;index"`
	Title                                 string
	Description                           string
	ReminderMinutes                       *int
	AfterTrainingEnabled                  bool `gorm:"default:false"`
	AfterTrainingDelayMinutes             *int
	AfterTrainingFeedbackEnableScore      bool
	AfterTrainingFeedbackEnableNote       bool
	AfterTrainingFeedbackScoreExplanation string
	HiddenAt                              *time.Time
	CreatedAt                             time.Time
	UpdatedAt                             time.Time

	Subtasks   []TaskTemplateSubtask `gorm:"foreignKey:TaskTemplateID"`
	Categories []TemplateCategory    `gorm:"foreignKey:TaskTemplateID"`
}

func (t *TaskTemplate) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// Hidden reports whether the template was soft-disabled.
func (t TaskTemplate) Hidden() bool {
	return t.HiddenAt != nil
}

// TaskTemplateSubtask is an ordered child of a template.
type TaskTemplateSubtask struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	TaskTemplateID uuid.UUID `gorm:"type:uuid;index"`
	Title          string
	SortOrder      int
	CreatedAt      time.Time
}

func (s *TaskTemplateSubtask) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// TemplateCategory links a template to a category.
type TemplateCategory struct {
	TaskTemplateID uuid.UUID `gorm:"type:uuid;primaryKey"`
	CategoryID     uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	CreatedAt      time.Time
}
