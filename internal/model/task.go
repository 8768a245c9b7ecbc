package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskKind tells how an activity task came to exist.
type TaskKind string

const (
	TaskKindTemplate TaskKind = "template"
	TaskKindFreeform TaskKind = "freeform"
	TaskKindFeedback TaskKind = "feedback"
)

// ActivityTask is a per-activity checklist item.
//
// Template-backed rows carry TaskTemplateID. Feedback rows carry
// FeedbackTemplateID and the marker in Description; rows written before the
// column existed are found through the marker alone.
type ActivityTask struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ActivityID         uuid.UUID  `gorm:"type:uuid;index;uniqueIndex:idx_activity_template"`
	TaskTemplateID     *uuid.UUID `gorm:"type:uuid;index;uniqueIndex:idx_activity_template"`
	FeedbackTemplateID *uuid.UUID `gorm:"type:uuid;index"`
	Kind               TaskKind   `gorm:"default:freeform"`
	Title              string
	Description        string
	Completed          bool `gorm:"default:false"`
	ReminderMinutes    *int
	CreatedAt          time.Time
	UpdatedAt          time.Time

	Subtasks []ActivityTaskSubtask `gorm:"foreignKey:ActivityTaskID"`
}

func (t *ActivityTask) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	if t.Kind == "" {
		t.Kind = TaskKindFreeform
	}
	return nil
}

// ActivityTaskSubtask mirrors one template subtask.
type ActivityTaskSubtask struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	ActivityTaskID uuid.UUID `gorm:"type:uuid;index"`
	Title          string
	SortOrder      int
	CreatedAt      time.Time
}

func (s *ActivityTaskSubtask) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
