package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"tasksync/internal/model"
	"tasksync/internal/repository"
)

// ActivityService is the write path for activities and external events.
// Each write reconciles the affected tasks before the transaction commits.
type ActivityService struct {
	store *repository.Store
	sync  *TaskSyncService
}

func NewActivityService(store *repository.Store, sync *TaskSyncService) *ActivityService {
	return &ActivityService{store: store, sync: sync}
}

func (s *ActivityService) Create(ctx context.Context, activity *model.Activity) (ReconcileResult, error) {
	var res ReconcileResult
	if strings.TrimSpace(activity.Title) == "" {
		return res, ErrTitleRequired
	}
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if activity.CategoryID != nil {
			if err := checkCategoryOwner(ctx, tx, *activity.CategoryID, activity.UserID); err != nil {
				return err
			}
		}
		if err := tx.Activities.Create(ctx, activity); err != nil {
			return err
		}
		var err error
		res, err = s.sync.reconcileActivity(ctx, tx, activity.ID)
		return err
	})
	return res, err
}

// SetCategory moves the activity to categoryID. Clearing the category drops
// every template-backed and feedback task, since no template applies any
// more.
func (s *ActivityService) SetCategory(ctx context.Context, activityID uuid.UUID, categoryID *uuid.UUID) (ReconcileResult, error) {
	res := ReconcileResult{ActivityID: activityID}
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		activity, err := tx.Activities.GetByID(ctx, activityID)
		if err != nil {
			return err
		}
		if categoryID != nil {
			if err := checkCategoryOwner(ctx, tx, *categoryID, activity.UserID); err != nil {
				return err
			}
		}
		if err := tx.Activities.UpdateCategory(ctx, activityID, categoryID); err != nil {
			return err
		}
		if categoryID == nil {
			deleted, err := dropGeneratedTasks(ctx, tx, activityID)
			res.Deleted = deleted
			res.Skipped = true
			return err
		}
		res, err = s.sync.reconcileActivity(ctx, tx, activityID)
		return err
	})
	return res, err
}

// CreateExternalEvent stores an imported event with the user's local metadata
// and gives it the tasks of the metadata's category.
func (s *ActivityService) CreateExternalEvent(ctx context.Context, event *model.ExternalEvent, meta *model.ExternalEventLocalMeta) (ReconcileResult, error) {
	var res ReconcileResult
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.External.CreateEvent(ctx, event); err != nil {
			return err
		}
		meta.ExternalEventID = event.ID
		if err := tx.External.CreateMeta(ctx, meta); err != nil {
			return err
		}
		var err error
		res, err = s.sync.reconcileExternal(ctx, tx, meta.ID)
		return err
	})
	return res, err
}

// SetExternalEventCategory changes an external event's category. The old
// template-backed tasks are deleted before the new set is built.
func (s *ActivityService) SetExternalEventCategory(ctx context.Context, localMetaID uuid.UUID, categoryID *uuid.UUID) (ReconcileResult, error) {
	res := ReconcileResult{ActivityID: localMetaID}
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		meta, err := tx.External.GetMeta(ctx, localMetaID)
		if err != nil {
			return err
		}
		if categoryID != nil {
			if err := checkCategoryOwner(ctx, tx, *categoryID, meta.UserID); err != nil {
				return err
			}
		}
		if err := tx.External.UpdateMetaCategory(ctx, localMetaID, categoryID); err != nil {
			return err
		}
		ids, err := tx.External.TemplateTaskIDs(ctx, localMetaID)
		if err != nil {
			return err
		}
		deleted, err := tx.External.DeleteTasks(ctx, ids)
		if err != nil {
			return err
		}
		res, err = s.sync.reconcileExternal(ctx, tx, localMetaID)
		res.Deleted += int(deleted)
		return err
	})
	return res, err
}

func dropGeneratedTasks(ctx context.Context, tx *repository.Store, activityID uuid.UUID) (int, error) {
	tasks, err := tx.Tasks.ListByActivity(ctx, activityID)
	if err != nil {
		return 0, err
	}
	var ids []uuid.UUID
	for _, task := range tasks {
		if _, ok := feedbackTemplateOf(task); ok || task.TaskTemplateID != nil {
			ids = append(ids, task.ID)
		}
	}
	deleted, err := tx.Tasks.DeleteByIDs(ctx, ids)
	return int(deleted), err
}
