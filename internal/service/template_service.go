package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"tasksync/internal/model"
	"tasksync/internal/repository"
)

var (
	ErrTitleRequired = errors.New("title is required")
	ErrForeignOwner  = errors.New("category belongs to another user")
)

// TemplateInput represents data required to create a template.
type TemplateInput struct {
	UserID                    uuid.UUID
	Title                     string
	Description               string
	ReminderMinutes           *int
	AfterTrainingEnabled      bool
	AfterTrainingDelayMinutes *int
	FeedbackEnableScore       bool
	FeedbackEnableNote        bool
	FeedbackScoreExplanation  string
	Subtasks                  []string
	CategoryIDs               []uuid.UUID
}

// TemplatePatch lists the fields to change on a template. Nil fields are kept.
type TemplatePatch struct {
	Title                     *string
	Description               *string
	ReminderMinutes           *int
	ClearReminder             bool
	AfterTrainingEnabled      *bool
	AfterTrainingDelayMinutes *int
	FeedbackEnableScore       *bool
	FeedbackEnableNote        *bool
	FeedbackScoreExplanation  *string
}

// TemplateService is the write path for templates. Every call runs in one
// transaction and brings the affected tasks up to date before committing.
type TemplateService struct {
	store       *repository.Store
	propagation *PropagationService
	cleanup     *CleanupService
	now         func() time.Time
}

func NewTemplateService(store *repository.Store, propagation *PropagationService, cleanup *CleanupService) *TemplateService {
	return &TemplateService{
		store:       store,
		propagation: propagation,
		cleanup:     cleanup,
		now:         time.Now,
	}
}

func (s *TemplateService) Create(ctx context.Context, input TemplateInput) (*model.TaskTemplate, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	tmpl := &model.TaskTemplate{
		UserID:                                input.UserID,
		Title:                                 title,
		Description:                           input.Description,
		ReminderMinutes:                       input.ReminderMinutes,
		AfterTrainingEnabled:                  input.AfterTrainingEnabled,
		AfterTrainingDelayMinutes:             input.AfterTrainingDelayMinutes,
		AfterTrainingFeedbackEnableScore:      input.FeedbackEnableScore,
		AfterTrainingFeedbackEnableNote:       input.FeedbackEnableNote,
		AfterTrainingFeedbackScoreExplanation: input.FeedbackScoreExplanation,
	}
	for _, st := range input.Subtasks {
		tmpl.Subtasks = append(tmpl.Subtasks, model.TaskTemplateSubtask{Title: st})
	}

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		for _, categoryID := range input.CategoryIDs {
			if err := checkCategoryOwner(ctx, tx, categoryID, input.UserID); err != nil {
				return err
			}
			tmpl.Categories = append(tmpl.Categories, model.TemplateCategory{CategoryID: categoryID})
		}
		if err := tx.Templates.Create(ctx, tmpl); err != nil {
			return err
		}
		for _, categoryID := range input.CategoryIDs {
			if _, err := s.propagation.propagateCategory(ctx, tx, tmpl.ID, tmpl.UserID, categoryID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[info] template created id=%s user=%s categories=%d", tmpl.ID, tmpl.UserID, len(input.CategoryIDs))
	return tmpl, nil
}

// Update applies patch and, when a mirrored or after-training field changed,
// propagates the template to every activity using it.
func (s *TemplateService) Update(ctx context.Context, id uuid.UUID, patch TemplatePatch) (PropagationReport, error) {
	report := PropagationReport{TemplateID: id}
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		tmpl, err := tx.Templates.GetByID(ctx, id)
		if err != nil {
			return err
		}
		updates, err := patchUpdates(*tmpl, patch)
		if err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Templates.Update(ctx, id, updates); err != nil {
			return err
		}
		report, err = s.propagation.propagateTemplateChange(ctx, tx, id, false)
		return err
	})
	return report, err
}

// ReplaceSubtasks swaps the template's subtasks and propagates them.
func (s *TemplateService) ReplaceSubtasks(ctx context.Context, id uuid.UUID, titles []string) (PropagationReport, error) {
	var report PropagationReport
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Templates.GetByID(ctx, id); err != nil {
			return err
		}
		if err := tx.Templates.ReplaceSubtasks(ctx, id, titles); err != nil {
			return err
		}
		var err error
		report, err = s.propagation.propagateTemplateChange(ctx, tx, id, false)
		return err
	})
	return report, err
}

// LinkCategory binds the template to categoryID and reconciles only the
// activities and external events in that category.
func (s *TemplateService) LinkCategory(ctx context.Context, id, categoryID uuid.UUID) (PropagationReport, error) {
	report := PropagationReport{TemplateID: id}
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		tmpl, err := tx.Templates.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := checkCategoryOwner(ctx, tx, categoryID, tmpl.UserID); err != nil {
			return err
		}
		added, err := tx.Templates.LinkCategory(ctx, id, categoryID)
		if err != nil || !added {
			return err
		}
		report, err = s.propagation.propagateCategory(ctx, tx, id, tmpl.UserID, categoryID)
		return err
	})
	return report, err
}

// UnlinkCategory removes the link and drops the template's tasks from the
// category's activities.
func (s *TemplateService) UnlinkCategory(ctx context.Context, id, categoryID uuid.UUID) (PropagationReport, error) {
	report := PropagationReport{TemplateID: id}
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		tmpl, err := tx.Templates.GetByID(ctx, id)
		if err != nil {
			return err
		}
		removed, err := tx.Templates.UnlinkCategory(ctx, id, categoryID)
		if err != nil || !removed {
			return err
		}
		report, err = s.propagation.propagateCategory(ctx, tx, id, tmpl.UserID, categoryID)
		return err
	})
	return report, err
}

// Preview reports what an edit of the template would reach without writing.
func (s *TemplateService) Preview(ctx context.Context, id uuid.UUID) (PropagationReport, error) {
	return s.propagation.PropagateTemplateChange(ctx, id, true)
}

// Hide soft-disables the template and removes what it generated. The legacy
// title heuristic is not applied.
func (s *TemplateService) Hide(ctx context.Context, id uuid.UUID) (CleanupReport, error) {
	var report CleanupReport
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		tmpl, err := tx.Templates.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.Templates.Hide(ctx, id, s.now()); err != nil {
			return err
		}
		report, err = s.cleanup.cleanup(ctx, tx, tmpl.UserID, id, nil, nil)
		return err
	})
	return report, err
}

// Delete removes the template for good. Its title and category scope are
// captured first so legacy copies can be cleaned up as well.
func (s *TemplateService) Delete(ctx context.Context, id uuid.UUID) (CleanupReport, error) {
	var report CleanupReport
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		tmpl, err := tx.Templates.GetByID(ctx, id)
		if err != nil {
			return err
		}
		categoryIDs := make([]uuid.UUID, 0, len(tmpl.Categories))
		for _, link := range tmpl.Categories {
			categoryIDs = append(categoryIDs, link.CategoryID)
		}
		title := tmpl.Title
		report, err = s.cleanup.cleanup(ctx, tx, tmpl.UserID, id, &title, categoryIDs)
		if err != nil {
			return err
		}
		return tx.Templates.Delete(ctx, id)
	})
	if err == nil {
		log.Printf("[info] template deleted id=%s", id)
	}
	return report, err
}

func checkCategoryOwner(ctx context.Context, tx *repository.Store, categoryID, userID uuid.UUID) error {
	category, err := tx.Categories.GetByID(ctx, categoryID)
	if err != nil {
		return err
	}
	if category.UserID != userID {
		return fmt.Errorf("category %s: %w", categoryID, ErrForeignOwner)
	}
	return nil
}

func patchUpdates(tmpl model.TaskTemplate, patch TemplatePatch) (map[string]any, error) {
	updates := map[string]any{}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		if title != tmpl.Title {
			updates["title"] = title
		}
	}
	if patch.Description != nil && *patch.Description != tmpl.Description {
		updates["description"] = *patch.Description
	}
	switch {
	case patch.ClearReminder:
		if tmpl.ReminderMinutes != nil {
			updates["reminder_minutes"] = nil
		}
	case patch.ReminderMinutes != nil && !sameReminder(patch.ReminderMinutes, tmpl.ReminderMinutes):
		updates["reminder_minutes"] = *patch.ReminderMinutes
	}
	if patch.AfterTrainingEnabled != nil && *patch.AfterTrainingEnabled != tmpl.AfterTrainingEnabled {
		updates["after_training_enabled"] = *patch.AfterTrainingEnabled
	}
	if patch.AfterTrainingDelayMinutes != nil && !sameReminder(patch.AfterTrainingDelayMinutes, tmpl.AfterTrainingDelayMinutes) {
		updates["after_training_delay_minutes"] = *patch.AfterTrainingDelayMinutes
	}
	if patch.FeedbackEnableScore != nil && *patch.FeedbackEnableScore != tmpl.AfterTrainingFeedbackEnableScore {
		updates["after_training_feedback_enable_score"] = *patch.FeedbackEnableScore
	}
	if patch.FeedbackEnableNote != nil && *patch.FeedbackEnableNote != tmpl.AfterTrainingFeedbackEnableNote {
		updates["after_training_feedback_enable_note"] = *patch.FeedbackEnableNote
	}
	if patch.FeedbackScoreExplanation != nil && *patch.FeedbackScoreExplanation != tmpl.AfterTrainingFeedbackScoreExplanation {
		updates["after_training_feedback_score_explanation"] = *patch.FeedbackScoreExplanation
	}
	return updates, nil
}
