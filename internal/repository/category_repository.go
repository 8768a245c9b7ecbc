package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tasksync/internal/model"
)

// CategoryRepository manages activity categories.
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Create inserts c. A second category with the same name for the same user
// fails with ErrDuplicateKey.
func (r *CategoryRepository) Create(ctx context.Context, c *model.Category) error {
	return wrap("create category", r.db.WithContext(ctx).Create(c).Error)
}

// ListByUser returns the user's categories ordered by name.
func (r *CategoryRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Category, error) {
	var categories []model.Category
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("name, id").
		Find(&categories).Error
	if err != nil {
		return nil, wrap("list categories", err)
	}
	return categories, nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&category).Error; err != nil {
		return nil, wrap("get category", err)
	}
	return &category, nil
}
