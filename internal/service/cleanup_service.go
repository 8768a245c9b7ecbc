package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"tasksync/internal/repository"
)

// CleanupReport counts what a template cleanup removed.
type CleanupReport struct {
	TemplateID    uuid.UUID `json:"template_id"`
	TemplateTasks int64     `json:"template_tasks"`
	FeedbackTasks int64     `json:"feedback_tasks"`
	ExternalTasks int64     `json:"external_tasks"`
	SelfFeedback  int64     `json:"self_feedback"`
	LegacyTasks   int64     `json:"legacy_tasks"`
	Warnings      []string  `json:"warnings,omitempty"`
}

// CleanupService removes everything a template ever generated for a user.
type CleanupService struct {
	store *repository.Store
}

func NewCleanupService(store *repository.Store) *CleanupService {
	return &CleanupService{store: store}
}

// CleanupTasksForTemplate deletes the template's tasks, feedback tasks,
// external tasks and self-feedback history for userID. When templateTitle is
// given, legacy template-less tasks with that title in the template's
// category scope are removed too, but only when the same title shows up on at
// least two activities and no other template of the user shares it.
func (s *CleanupService) CleanupTasksForTemplate(ctx context.Context, userID, templateID uuid.UUID, templateTitle *string) (CleanupReport, error) {
	var report CleanupReport
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var categoryIDs []uuid.UUID
		if templateTitle != nil {
			var err error
			if categoryIDs, err = tx.Templates.CategoryIDs(ctx, templateID); err != nil {
				return err
			}
		}
		var err error
		report, err = s.cleanup(ctx, tx, userID, templateID, templateTitle, categoryIDs)
		return err
	})
	return report, err
}

func (s *CleanupService) cleanup(ctx context.Context, tx *repository.Store, userID, templateID uuid.UUID, templateTitle *string, categoryIDs []uuid.UUID) (CleanupReport, error) {
	report := CleanupReport{TemplateID: templateID}

	ids, err := tx.Tasks.TemplateTaskIDsByUser(ctx, userID, templateID)
	if err != nil {
		return report, err
	}
	if report.TemplateTasks, err = tx.Tasks.DeleteByIDs(ctx, ids); err != nil {
		return report, err
	}

	ids, err = tx.Tasks.FeedbackTaskIDsByUser(ctx, userID, templateID)
	if err != nil {
		return report, err
	}
	if report.FeedbackTasks, err = tx.Tasks.DeleteByIDs(ctx, ids); err != nil {
		return report, err
	}

	ids, err = tx.External.TaskIDsForTemplateByUser(ctx, userID, templateID)
	if err != nil {
		return report, err
	}
	if report.ExternalTasks, err = tx.External.DeleteTasks(ctx, ids); err != nil {
		return report, err
	}

	if report.SelfFeedback, err = tx.Reflections.DeleteSelfFeedback(ctx, userID, templateID); err != nil {
		return report, err
	}

	if templateTitle != nil && strings.TrimSpace(*templateTitle) != "" {
		if err := s.cleanupLegacy(ctx, tx, userID, templateID, *templateTitle, categoryIDs, &report); err != nil {
			return report, err
		}
	}

	for _, w := range report.Warnings {
		log.Printf("[warn] cleanup template=%s: %s", templateID, w)
	}
	log.Printf("[info] cleanup template=%s user=%s template_tasks=%d feedback=%d external=%d legacy=%d",
		templateID, userID, report.TemplateTasks, report.FeedbackTasks, report.ExternalTasks, report.LegacyTasks)
	return report, nil
}

// cleanupLegacy removes template-less tasks left behind by old data that only
// match the template by title. Ambiguous cases are skipped with a warning.
func (s *CleanupService) cleanupLegacy(ctx context.Context, tx *repository.Store, userID, templateID uuid.UUID, title string, categoryIDs []uuid.UUID, report *CleanupReport) error {
	if len(categoryIDs) == 0 {
		report.Warnings = append(report.Warnings, fmt.Sprintf("no category scope for %q, legacy cleanup skipped", title))
		return nil
	}

	matches, err := tx.Tasks.LegacyTitleMatches(ctx, userID, categoryIDs, title)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return nil
	}

	activities := make(map[uuid.UUID]bool)
	ids := make([]uuid.UUID, 0, len(matches))
	for _, task := range matches {
		activities[task.ActivityID] = true
		ids = append(ids, task.ID)
	}
	if len(activities) < 2 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("kept %d task(s) titled %q: no sibling activity with the same title", len(matches), title))
		return nil
	}

	others, err := tx.Templates.OtherWithTitle(ctx, userID, templateID, title)
	if err != nil {
		return err
	}
	if len(others) > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("kept %d task(s) titled %q: title shared with template %s", len(matches), title, others[0].ID))
		return nil
	}

	report.LegacyTasks, err = tx.Tasks.DeleteByIDs(ctx, ids)
	return err
}
