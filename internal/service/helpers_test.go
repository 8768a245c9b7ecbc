package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"tasksync/internal/model"
	"tasksync/internal/repository"
)

type testEnv struct {
	store       *repository.Store
	sync        *TaskSyncService
	propagation *PropagationService
	cleanup     *CleanupService
	templates   *TemplateService
	activities  *ActivityService
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithResolver(t, CategoryResolver{})
}

func newTestEnvWithResolver(t *testing.T, resolver TemplateResolver) *testEnv {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "test.db"), "silent")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	store := repository.NewStore(db)
	syncSvc := NewTaskSyncService(store, resolver, NewFeedbackText("en"))
	propagation := NewPropagationService(store, syncSvc)
	cleanup := NewCleanupService(store)
	return &testEnv{
		store:       store,
		sync:        syncSvc,
		propagation: propagation,
		cleanup:     cleanup,
		templates:   NewTemplateService(store, propagation, cleanup),
		activities:  NewActivityService(store, syncSvc),
	}
}

func (e *testEnv) category(t *testing.T, userID uuid.UUID, name string) uuid.UUID {
	t.Helper()
	c := &model.Category{UserID: userID, Name: name}
	require.NoError(t, e.store.Categories.Create(context.Background(), c))
	return c.ID
}

func (e *testEnv) template(t *testing.T, input TemplateInput) *model.TaskTemplate {
	t.Helper()
	tmpl, err := e.templates.Create(context.Background(), input)
	require.NoError(t, err)
	return tmpl
}

// activity creates an activity through the write path, so it is reconciled.
func (e *testEnv) activity(t *testing.T, userID uuid.UUID, categoryID *uuid.UUID) *model.Activity {
	t.Helper()
	a := &model.Activity{UserID: userID, CategoryID: categoryID, Title: "Training", StartsAt: time.Now()}
	_, err := e.activities.Create(context.Background(), a)
	require.NoError(t, err)
	return a
}

func (e *testEnv) tasks(t *testing.T, activityID uuid.UUID) []model.ActivityTask {
	t.Helper()
	tasks, err := e.store.Tasks.ListByActivity(context.Background(), activityID)
	require.NoError(t, err)
	return tasks
}

func (e *testEnv) taskFor(t *testing.T, activityID, templateID uuid.UUID) *model.ActivityTask {
	t.Helper()
	for _, task := range e.tasks(t, activityID) {
		if task.TaskTemplateID != nil && *task.TaskTemplateID == templateID {
			return &task
		}
	}
	return nil
}

func (e *testEnv) feedbackFor(t *testing.T, activityID, templateID uuid.UUID) []model.ActivityTask {
	t.Helper()
	tasks, err := e.store.Tasks.FeedbackTasks(context.Background(), activityID, templateID)
	require.NoError(t, err)
	return tasks
}

func taskIDs(tasks []model.ActivityTask) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(tasks))
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}
	return ids
}

func ptr[T any](v T) *T {
	return &v
}
