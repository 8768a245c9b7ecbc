package service

import (
	"context"
	"log"

	"github.com/google/uuid"

	"tasksync/internal/repository"
)

// PropagationReport counts the rows a template change reaches.
type PropagationReport struct {
	TemplateID            uuid.UUID `json:"template_id"`
	DryRun                bool      `json:"dry_run"`
	SeriesCount           int       `json:"series_count"`
	DirectActivityUpdates int       `json:"direct_activity_updates"`
	SeriesActivityUpdates int       `json:"series_activity_updates"`
	TotalActivityUpdates  int       `json:"total_activity_updates"`
	ExternalEventUpdates  int       `json:"external_event_updates"`
}

// FixResult reports an activity whose task count grew during a fix sweep.
type FixResult struct {
	ActivityID   uuid.UUID `json:"activity_id"`
	TasksBefore  int64     `json:"tasks_before"`
	TasksAfter   int64     `json:"tasks_after"`
	TasksCreated int64     `json:"tasks_created"`
}

// PropagationService fans template changes out to every affected activity,
// series member and external event. Each call runs in one transaction, so a
// failure on any activity rolls back the whole fan-out.
type PropagationService struct {
	store *repository.Store
	sync  *TaskSyncService
}

func NewPropagationService(store *repository.Store, sync *TaskSyncService) *PropagationService {
	return &PropagationService{store: store, sync: sync}
}

// PropagateTemplateChange reconciles every activity that already uses the
// template, the rest of their series and every external event using it.
// With dryRun set only the counts are computed.
func (s *PropagationService) PropagateTemplateChange(ctx context.Context, templateID uuid.UUID, dryRun bool) (PropagationReport, error) {
	var report PropagationReport
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		report, err = s.propagateTemplateChange(ctx, tx, templateID, dryRun)
		return err
	})
	return report, err
}

func (s *PropagationService) propagateTemplateChange(ctx context.Context, tx *repository.Store, templateID uuid.UUID, dryRun bool) (PropagationReport, error) {
	report := PropagationReport{TemplateID: templateID, DryRun: dryRun}

	direct, err := tx.Tasks.ActivityIDsForTemplate(ctx, templateID)
	if err != nil {
		return report, err
	}
	seriesIDs, err := tx.Activities.SeriesIDsOf(ctx, direct)
	if err != nil {
		return report, err
	}
	inSeries, err := tx.Activities.InternalIDsInSeries(ctx, seriesIDs, direct)
	if err != nil {
		return report, err
	}
	external, err := tx.External.MetaIDsForTemplate(ctx, templateID)
	if err != nil {
		return report, err
	}

	report.DirectActivityUpdates = len(direct)
	report.SeriesCount = len(seriesIDs)
	report.SeriesActivityUpdates = len(inSeries)
	report.TotalActivityUpdates = len(direct) + len(inSeries)
	report.ExternalEventUpdates = len(external)

	if dryRun {
		return report, nil
	}

	for _, id := range append(append([]uuid.UUID{}, direct...), inSeries...) {
		if _, err := s.sync.reconcileActivity(ctx, tx, id); err != nil {
			return report, err
		}
	}
	for _, id := range external {
		if _, err := s.sync.reconcileExternal(ctx, tx, id); err != nil {
			return report, err
		}
	}

	log.Printf("[info] propagated template=%s activities=%d series=%d external=%d",
		templateID, report.TotalActivityUpdates, report.SeriesCount, report.ExternalEventUpdates)
	return report, nil
}

// PropagateCategoryLink reconciles the template owner's activities and
// external events in categoryID. Used when a template gains or loses a
// category link.
func (s *PropagationService) PropagateCategoryLink(ctx context.Context, templateID, categoryID uuid.UUID) (PropagationReport, error) {
	var report PropagationReport
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		tmpl, err := tx.Templates.GetByID(ctx, templateID)
		if err != nil {
			return err
		}
		report, err = s.propagateCategory(ctx, tx, templateID, tmpl.UserID, categoryID)
		return err
	})
	return report, err
}

func (s *PropagationService) propagateCategory(ctx context.Context, tx *repository.Store, templateID, userID, categoryID uuid.UUID) (PropagationReport, error) {
	report := PropagationReport{TemplateID: templateID}

	activities, err := tx.Activities.InternalIDsByCategory(ctx, userID, categoryID)
	if err != nil {
		return report, err
	}
	metas, err := tx.External.MetaIDsByCategory(ctx, userID, categoryID)
	if err != nil {
		return report, err
	}

	for _, id := range activities {
		if _, err := s.sync.reconcileActivity(ctx, tx, id); err != nil {
			return report, err
		}
	}
	for _, id := range metas {
		if _, err := s.sync.reconcileExternal(ctx, tx, id); err != nil {
			return report, err
		}
	}

	report.DirectActivityUpdates = len(activities)
	report.TotalActivityUpdates = len(activities)
	report.ExternalEventUpdates = len(metas)
	return report, nil
}

// FixMissingActivityTasksForAllUsers rebuilds the template-backed tasks of
// every categorised internal activity and reports the activities that gained
// tasks. Completion of rebuilt tasks is carried over.
func (s *PropagationService) FixMissingActivityTasksForAllUsers(ctx context.Context) ([]FixResult, error) {
	var results []FixResult
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		activities, err := tx.Activities.ListCategorized(ctx)
		if err != nil {
			return err
		}
		for _, activity := range activities {
			before, err := tx.Tasks.CountByActivity(ctx, activity.ID)
			if err != nil {
				return err
			}

			tasks, err := tx.Tasks.ListByActivity(ctx, activity.ID)
			if err != nil {
				return err
			}
			var dropped, completed []uuid.UUID
			for _, task := range tasks {
				if task.TaskTemplateID == nil {
					continue
				}
				dropped = append(dropped, task.ID)
				if task.Completed {
					completed = append(completed, *task.TaskTemplateID)
				}
			}
			if _, err := tx.Tasks.DeleteByIDs(ctx, dropped); err != nil {
				return err
			}

			if _, err := s.sync.reconcileActivity(ctx, tx, activity.ID); err != nil {
				return err
			}
			for _, templateID := range completed {
				if err := tx.Tasks.SetCompletedForTemplate(ctx, activity.ID, templateID); err != nil {
					return err
				}
			}

			after, err := tx.Tasks.CountByActivity(ctx, activity.ID)
			if err != nil {
				return err
			}
			if after > before {
				results = append(results, FixResult{
					ActivityID:   activity.ID,
					TasksBefore:  before,
					TasksAfter:   after,
					TasksCreated: after - before,
				})
			}
		}
		log.Printf("[info] fix sweep checked=%d repaired=%d", len(activities), len(results))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
