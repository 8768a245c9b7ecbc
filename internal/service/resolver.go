package service

import (
	"context"

	"github.com/google/uuid"

	"tasksync/internal/model"
	"tasksync/internal/repository"
)

// TemplateResolver decides which templates apply to a user's category.
// Implementations must be pure functions of (userID, categoryID) over the
// store they are given, so a cache can wrap them.
type TemplateResolver interface {
	ResolveTemplates(ctx context.Context, store *repository.Store, userID uuid.UUID, categoryID *uuid.UUID) ([]model.TaskTemplate, error)
}

// CategoryResolver re-reads the template/category links on every call.
type CategoryResolver struct{}

func (CategoryResolver) ResolveTemplates(ctx context.Context, store *repository.Store, userID uuid.UUID, categoryID *uuid.UUID) ([]model.TaskTemplate, error) {
	if categoryID == nil || *categoryID == uuid.Nil || userID == uuid.Nil {
		return nil, nil
	}
	return store.Templates.ListForCategory(ctx, userID, *categoryID)
}
