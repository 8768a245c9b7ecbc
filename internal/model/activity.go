package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Activity is a scheduled event owned by a user.
type Activity struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID  `gorm:"type:uuid;index"`
	CategoryID *uuid.UUID `gorm:"type:uuid;index"`
	SeriesID   *uuid.UUID `gorm:"type:uuid;index"`
	IsExternal bool       `gorm:"default:false"`
	Title      string
	StartsAt   time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (a *Activity) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
