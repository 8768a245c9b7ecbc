package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TrainingReflection stores the single self-rating for an activity.
type TrainingReflection struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	ActivityID uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	UserID     uuid.UUID `gorm:"type:uuid;index"`
	CategoryID uuid.UUID `gorm:"type:uuid"`
	Rating     *int
	Note       *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (r *TrainingReflection) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// TaskTemplateSelfFeedback is one rating/note a user left for a template's
// feedback task.
type TaskTemplateSelfFeedback struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID `gorm:"type:uuid;index:idx_self_feedback_user_template"`
	TaskTemplateID uuid.UUID `gorm:"type:uuid;index:idx_self_feedback_user_template"`
	ActivityID     uuid.UUID `gorm:"type:uuid;index"`
	Rating         *int
	Note           *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (TaskTemplateSelfFeedback) TableName() string { return "task_template_self_feedback" }

func (f *TaskTemplateSelfFeedback) BeforeCreate(*gorm.DB) error {
	ensureID(&f.ID)
	return nil
}

// All lists every model for migrations.
func All() []any {
	return []any{
		&Category{},
		&Activity{},
		&TaskTemplate{},
		&TaskTemplateSubtask{},
		&TemplateCategory{},
		&ActivityTask{},
		&ActivityTaskSubtask{},
		&ExternalEvent{},
		&ExternalEventLocalMeta{},
		&ExternalEventTask{},
		&ExternalEventTaskSubtask{},
		&TrainingReflection{},
		&TaskTemplateSelfFeedback{},
	}
}
