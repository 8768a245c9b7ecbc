package service

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"tasksync/internal/marker"
	"tasksync/internal/model"
	"tasksync/internal/repository"
)

// ReconcileResult summarises one reconciliation pass. For external events
// ActivityID holds the local metadata id.
type ReconcileResult struct {
	ActivityID         uuid.UUID `json:"activity_id"`
	Skipped            bool      `json:"skipped"`
	Created            int       `json:"created"`
	Updated            int       `json:"updated"`
	Deleted            int       `json:"deleted"`
	FeedbackUpserted   int       `json:"feedback_upserted"`
	ReflectionsCreated int       `json:"reflections_created"`
}

// TaskSyncService keeps activity and external-event task lists in line with
// the templates of their category.
type TaskSyncService struct {
	store    *repository.Store
	resolver TemplateResolver
	texts    *FeedbackText
}

func NewTaskSyncService(store *repository.Store, resolver TemplateResolver, texts *FeedbackText) *TaskSyncService {
	if resolver == nil {
		resolver = CategoryResolver{}
	}
	if texts == nil {
		texts = NewFeedbackText("en")
	}
	return &TaskSyncService{store: store, resolver: resolver, texts: texts}
}

// ReconcileActivityTasks makes the activity's tasks match its category's
// templates in a single transaction. Activities without a category or owner,
// and external activities, are left alone.
func (s *TaskSyncService) ReconcileActivityTasks(ctx context.Context, activityID uuid.UUID) (ReconcileResult, error) {
	var res ReconcileResult
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		res, err = s.reconcileActivity(ctx, tx, activityID)
		return err
	})
	return res, err
}

// ReconcileExternalEventTasks does the same for an external event's local
// metadata row. External events get no feedback tasks.
func (s *TaskSyncService) ReconcileExternalEventTasks(ctx context.Context, localMetaID uuid.UUID) (ReconcileResult, error) {
	var res ReconcileResult
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		res, err = s.reconcileExternal(ctx, tx, localMetaID)
		return err
	})
	return res, err
}

// UpsertFeedbackTask makes sure exactly one feedback task for templateID
// exists on the activity and that it carries the current title.
func (s *TaskSyncService) UpsertFeedbackTask(ctx context.Context, activityID, templateID uuid.UUID, baseTitle string) (*model.ActivityTask, error) {
	var task *model.ActivityTask
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Activities.GetByID(ctx, activityID); err != nil {
			return err
		}
		var err error
		task, _, err = s.upsertFeedback(ctx, tx, activityID, templateID, baseTitle)
		return err
	})
	return task, err
}

func (s *TaskSyncService) reconcileActivity(ctx context.Context, tx *repository.Store, activityID uuid.UUID) (ReconcileResult, error) {
	res := ReconcileResult{ActivityID: activityID}

	activity, err := tx.Activities.GetByID(ctx, activityID)
	if err != nil {
		return res, err
	}
	if activity.IsExternal || activity.CategoryID == nil || activity.UserID == uuid.Nil {
		res.Skipped = true
		return res, nil
	}

	templates, err := s.resolver.ResolveTemplates(ctx, tx, activity.UserID, activity.CategoryID)
	if err != nil {
		return res, fmt.Errorf("resolve templates: %w", err)
	}
	wanted := make(map[uuid.UUID]bool, len(templates))
	wantFeedback := make(map[uuid.UUID]bool)
	for _, tmpl := range templates {
		wanted[tmpl.ID] = true
		if tmpl.AfterTrainingEnabled {
			wantFeedback[tmpl.ID] = true
		}
	}

	tasks, err := tx.Tasks.ListByActivity(ctx, activityID)
	if err != nil {
		return res, err
	}

	existing := make(map[uuid.UUID]*model.ActivityTask)
	seenFeedback := make(map[uuid.UUID]bool)
	var stale []uuid.UUID
	for i := range tasks {
		task := &tasks[i]
		if templateID, ok := feedbackTemplateOf(*task); ok {
			// Feedback tasks whose template no longer asks for one, and
			// duplicates past the oldest, go.
			if !wantFeedback[templateID] || seenFeedback[templateID] {
				stale = append(stale, task.ID)
				continue
			}
			seenFeedback[templateID] = true
			continue
		}
		if task.TaskTemplateID == nil {
			continue
		}
		if !wanted[*task.TaskTemplateID] {
			stale = append(stale, task.ID)
			continue
		}
		existing[*task.TaskTemplateID] = task
	}

	deleted, err := tx.Tasks.DeleteByIDs(ctx, stale)
	if err != nil {
		return res, err
	}
	res.Deleted = int(deleted)

	for _, tmpl := range templates {
		titles := templateSubtaskTitles(tmpl)
		task, ok := existing[tmpl.ID]
		if !ok {
			templateID := tmpl.ID
			newTask := model.ActivityTask{
				ActivityID:      activityID,
				TaskTemplateID:  &templateID,
				Kind:            model.TaskKindTemplate,
				Title:           tmpl.Title,
				Description:     tmpl.Description,
				ReminderMinutes: tmpl.ReminderMinutes,
				Subtasks:        newActivitySubtasks(titles),
			}
			if err := tx.Tasks.Create(ctx, &newTask); err != nil {
				return res, err
			}
			res.Created++
			continue
		}

		changed := false
		if updates := contentUpdates(task.Title, task.Description, task.ReminderMinutes, tmpl); len(updates) > 0 {
			if err := tx.Tasks.UpdateContent(ctx, task.ID, updates); err != nil {
				return res, err
			}
			changed = true
		}
		if !sameTitles(activitySubtaskTitles(task.Subtasks), titles) {
			if err := tx.Tasks.ReplaceSubtasks(ctx, task.ID, titles); err != nil {
				return res, err
			}
			changed = true
		}
		if changed {
			res.Updated++
		}
	}

	for _, tmpl := range templates {
		if !tmpl.AfterTrainingEnabled {
			continue
		}
		created, err := tx.Reflections.Ensure(ctx, &model.TrainingReflection{
			ActivityID: activityID,
			UserID:     activity.UserID,
			CategoryID: *activity.CategoryID,
		})
		if err != nil {
			return res, err
		}
		if created {
			res.ReflectionsCreated++
		}
		if _, _, err := s.upsertFeedback(ctx, tx, activityID, tmpl.ID, tmpl.Title); err != nil {
			return res, err
		}
		res.FeedbackUpserted++
	}

	if res.Created > 0 || res.Updated > 0 || res.Deleted > 0 {
		log.Printf("[info] reconciled activity=%s created=%d updated=%d deleted=%d",
			activityID, res.Created, res.Updated, res.Deleted)
	}
	return res, nil
}

func (s *TaskSyncService) upsertFeedback(ctx context.Context, tx *repository.Store, activityID, templateID uuid.UUID, baseTitle string) (*model.ActivityTask, bool, error) {
	title := s.texts.Title(baseTitle)
	description := s.texts.Description(templateID)

	matches, err := tx.Tasks.FeedbackTasks(ctx, activityID, templateID)
	if err != nil {
		return nil, false, err
	}

	if len(matches) == 0 {
		feedbackID := templateID
		task := model.ActivityTask{
			ActivityID:         activityID,
			FeedbackTemplateID: &feedbackID,
			Kind:               model.TaskKindFeedback,
			Title:              title,
			Description:        description,
		}
		if err := tx.Tasks.Create(ctx, &task); err != nil {
			return nil, false, err
		}
		return &task, true, nil
	}

	keep := matches[0]
	if len(matches) > 1 {
		extra := make([]uuid.UUID, 0, len(matches)-1)
		for _, m := range matches[1:] {
			extra = append(extra, m.ID)
		}
		if _, err := tx.Tasks.DeleteByIDs(ctx, extra); err != nil {
			return nil, false, err
		}
	}

	updates := map[string]any{}
	if keep.Title != title {
		updates["title"] = title
		keep.Title = title
	}
	if keep.Description != description {
		updates["description"] = description
		keep.Description = description
	}
	if keep.Kind != model.TaskKindFeedback {
		updates["kind"] = model.TaskKindFeedback
		keep.Kind = model.TaskKindFeedback
	}
	if keep.FeedbackTemplateID == nil || *keep.FeedbackTemplateID != templateID {
		feedbackID := templateID
		updates["feedback_template_id"] = feedbackID
		keep.FeedbackTemplateID = &feedbackID
	}
	if len(updates) > 0 {
		if err := tx.Tasks.UpdateContent(ctx, keep.ID, updates); err != nil {
			return nil, false, err
		}
	}
	return &keep, false, nil
}

func (s *TaskSyncService) reconcileExternal(ctx context.Context, tx *repository.Store, localMetaID uuid.UUID) (ReconcileResult, error) {
	res := ReconcileResult{ActivityID: localMetaID}

	meta, err := tx.External.GetMeta(ctx, localMetaID)
	if err != nil {
		return res, err
	}
	if meta.CategoryID == nil || meta.UserID == uuid.Nil {
		res.Skipped = true
		return res, nil
	}

	templates, err := s.resolver.ResolveTemplates(ctx, tx, meta.UserID, meta.CategoryID)
	if err != nil {
		return res, fmt.Errorf("resolve templates: %w", err)
	}
	wanted := make(map[uuid.UUID]bool, len(templates))
	for _, tmpl := range templates {
		wanted[tmpl.ID] = true
	}

	tasks, err := tx.External.ListTasks(ctx, localMetaID)
	if err != nil {
		return res, err
	}
	existing := make(map[uuid.UUID]*model.ExternalEventTask)
	var stale []uuid.UUID
	for i := range tasks {
		task := &tasks[i]
		if task.TaskTemplateID == nil {
			continue
		}
		if !wanted[*task.TaskTemplateID] {
			stale = append(stale, task.ID)
			continue
		}
		existing[*task.TaskTemplateID] = task
	}

	deleted, err := tx.External.DeleteTasks(ctx, stale)
	if err != nil {
		return res, err
	}
	res.Deleted = int(deleted)

	for _, tmpl := range templates {
		titles := templateSubtaskTitles(tmpl)
		task, ok := existing[tmpl.ID]
		if !ok {
			templateID := tmpl.ID
			newTask := model.ExternalEventTask{
				LocalMetaID:     localMetaID,
				TaskTemplateID:  &templateID,
				Title:           tmpl.Title,
				Description:     tmpl.Description,
				ReminderMinutes: tmpl.ReminderMinutes,
				Subtasks:        newExternalSubtasks(titles),
			}
			if err := tx.External.CreateTask(ctx, &newTask); err != nil {
				return res, err
			}
			res.Created++
			continue
		}

		changed := false
		if updates := contentUpdates(task.Title, task.Description, task.ReminderMinutes, tmpl); len(updates) > 0 {
			if err := tx.External.UpdateTaskContent(ctx, task.ID, updates); err != nil {
				return res, err
			}
			changed = true
		}
		if !sameTitles(externalSubtaskTitles(task.Subtasks), titles) {
			if err := tx.External.ReplaceTaskSubtasks(ctx, task.ID, titles); err != nil {
				return res, err
			}
			changed = true
		}
		if changed {
			res.Updated++
		}
	}

	if res.Created > 0 || res.Updated > 0 || res.Deleted > 0 {
		log.Printf("[info] reconciled external meta=%s created=%d updated=%d deleted=%d",
			localMetaID, res.Created, res.Updated, res.Deleted)
	}
	return res, nil
}

// feedbackTemplateOf reports the template a feedback task belongs to, by
// column first and marker second.
func feedbackTemplateOf(task model.ActivityTask) (uuid.UUID, bool) {
	if task.FeedbackTemplateID != nil {
		return *task.FeedbackTemplateID, true
	}
	if task.TaskTemplateID != nil {
		return uuid.Nil, false
	}
	return marker.Decode(task.Description)
}

// contentUpdates lists the mirrored columns that drifted from tmpl.
// Completion is never part of it.
func contentUpdates(title, description string, reminder *int, tmpl model.TaskTemplate) map[string]any {
	updates := map[string]any{}
	if title != tmpl.Title {
		updates["title"] = tmpl.Title
	}
	if description != tmpl.Description {
		updates["description"] = tmpl.Description
	}
	if !sameReminder(reminder, tmpl.ReminderMinutes) {
		updates["reminder_minutes"] = tmpl.ReminderMinutes
	}
	return updates
}

func sameReminder(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameTitles(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func templateSubtaskTitles(tmpl model.TaskTemplate) []string {
	titles := make([]string, 0, len(tmpl.Subtasks))
	for _, st := range tmpl.Subtasks {
		titles = append(titles, st.Title)
	}
	return titles
}

func activitySubtaskTitles(subtasks []model.ActivityTaskSubtask) []string {
	titles := make([]string, 0, len(subtasks))
	for _, st := range subtasks {
		titles = append(titles, st.Title)
	}
	return titles
}

func externalSubtaskTitles(subtasks []model.ExternalEventTaskSubtask) []string {
	titles := make([]string, 0, len(subtasks))
	for _, st := range subtasks {
		titles = append(titles, st.Title)
	}
	return titles
}

func newActivitySubtasks(titles []string) []model.ActivityTaskSubtask {
	subtasks := make([]model.ActivityTaskSubtask, 0, len(titles))
	for i, title := range titles {
		subtasks = append(subtasks, model.ActivityTaskSubtask{Title: title, SortOrder: i})
	}
	return subtasks
}

func newExternalSubtasks(titles []string) []model.ExternalEventTaskSubtask {
	subtasks := make([]model.ExternalEventTaskSubtask, 0, len(titles))
	for i, title := range titles {
		subtasks = append(subtasks, model.ExternalEventTaskSubtask{Title: title, SortOrder: i})
	}
	return subtasks
}
