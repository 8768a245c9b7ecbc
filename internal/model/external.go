package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ExternalEvent mirrors an event imported from an external calendar.
type ExternalEvent struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	CalendarID string    `gorm:"index:idx_calendar_uid,unique"`
	UID        string    `gorm:"index:idx_calendar_uid,unique"`
	Title      string
	StartsAt   time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (e *ExternalEvent) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

// ExternalEventLocalMeta holds a user's local settings for an external event.
type ExternalEventLocalMeta struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ExternalEventID     uuid.UUID  `gorm:"type:uuid;index"`
	UserID              uuid.UUID  `gorm:"type:uuid;index"`
	CategoryID          *uuid.UUID `gorm:"type:uuid;index"`
	ManuallySetCategory bool       `gorm:"default:false"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (ExternalEventLocalMeta) TableName() string { return "events_local_meta" }

func (m *ExternalEventLocalMeta) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

// ExternalEventTask is the external-event counterpart of ActivityTask.
type ExternalEventTask struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	LocalMetaID     uuid.UUID  `gorm:"type:uuid;index;uniqueIndex:idx_meta_template"`
	TaskTemplateID  *uuid.UUID `gorm:"type:uuid;index;uniqueIndex:idx_meta_template"`
	Title           string
	Description     string
	Completed       bool `gorm:"default:false"`
	ReminderMinutes *int
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Subtasks []ExternalEventTaskSubtask `gorm:"foreignKey:ExternalEventTaskID"`
}

func (t *ExternalEventTask) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

type ExternalEventTaskSubtask struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey"`
	ExternalEventTaskID uuid.UUID `gorm:"type:uuid;index"`
	Title               string
	SortOrder           int
	CreatedAt           time.Time
}

func (s *ExternalEventTaskSubtask) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
