package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasksync/internal/model"
	"tasksync/internal/repository"
)

func addLegacyTask(t *testing.T, e *testEnv, activityID uuid.UUID, title string) *model.ActivityTask {
	t.Helper()
	task := &model.ActivityTask{ActivityID: activityID, Title: title}
	require.NoError(t, e.store.Tasks.Create(context.Background(), task))
	return task
}

func TestDeleteTemplateRemovesEverythingItGenerated(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	user := model.NewID()
	training := e.category(t, user, "Training")
	tmpl := e.template(t, TemplateInput{UserID: user, Title: "Drills", AfterTrainingEnabled: true, CategoryIDs: []uuid.UUID{training}})
	first := e.activity(t, user, &training)
	second := e.activity(t, user, &training)
	addLegacyTask(t, e, first.ID, "Drills")
	addLegacyTask(t, e, second.ID, " Drills ")
	keep := addLegacyTask(t, e, second.ID, "Call coach")

	meta := &model.ExternalEventLocalMeta{UserID: user, CategoryID: &training}
	_, err := e.activities.CreateExternalEvent(ctx, &model.ExternalEvent{CalendarID: "club", UID: "1"}, meta)
	require.NoError(t, err)

	require.NoError(t, e.store.Reflections.CreateSelfFeedback(ctx, &model.TaskTemplateSelfFeedback{
		UserID: user, TaskTemplateID: tmpl.ID, ActivityID: first.ID, Rating: ptr(8),
	}))

	report, err := e.templates.Delete(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, report.TemplateTasks)
	assert.EqualValues(t, 2, report.FeedbackTasks)
	assert.EqualValues(t, 1, report.ExternalTasks)
	assert.EqualValues(t, 1, report.SelfFeedback)
	assert.EqualValues(t, 2, report.LegacyTasks)
	assert.Empty(t, report.Warnings)

	assert.Empty(t, e.tasks(t, first.ID))
	assert.Equal(t, []uuid.UUID{keep.ID}, taskIDs(e.tasks(t, second.ID)))

	_, err = e.store.Templates.GetByID(ctx, tmpl.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// Reflections are user data and outlive the template.
	_, err = e.store.Reflections.GetByActivity(ctx, first.ID)
	assert.NoError(t, err)
}

func TestLegacyCleanupKeepsTitlesThatDifferInCase(t *testing.T) {
	tests := []struct {
		name     string
		template string
		legacy   []string
	}{
		{"ascii", "Warm-up", []string{"WARM-UP", "warm-up"}},
		{"non-ascii", "øvelse", []string{"Øvelse", "ØVELSE"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			ctx := context.Background()
			user := model.NewID()
			training := e.category(t, user, "Training")
			tmpl := e.template(t, TemplateInput{UserID: user, Title: tt.template, CategoryIDs: []uuid.UUID{training}})
			first := e.activity(t, user, &training)
			second := e.activity(t, user, &training)
			var kept []uuid.UUID
			for _, title := range tt.legacy {
				kept = append(kept, addLegacyTask(t, e, first.ID, title).ID)
			}
			addLegacyTask(t, e, first.ID, tt.template)
			addLegacyTask(t, e, second.ID, tt.template)

			report, err := e.templates.Delete(ctx, tmpl.ID)
			require.NoError(t, err)
			assert.EqualValues(t, 2, report.LegacyTasks)
			assert.Empty(t, report.Warnings)
			assert.ElementsMatch(t, kept, taskIDs(e.tasks(t, first.ID)))
			assert.Empty(t, e.tasks(t, second.ID))
		})
	}
}

func TestLegacyCleanupNeedsSiblingActivity(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	user := model.NewID()
	training := e.category(t, user, "Training")
	tmpl := e.template(t, TemplateInput{UserID: user, Title: "Drills", CategoryIDs: []uuid.UUID{training}})
	activity := e.activity(t, user, &training)
	legacy := addLegacyTask(t, e, activity.ID, "Drills")

	title := "Drills"
	report, err := e.cleanup.CleanupTasksForTemplate(ctx, user, tmpl.ID, &title)
	require.NoError(t, err)
	assert.EqualValues(t, 1, report.TemplateTasks)
	assert.Zero(t, report.LegacyTasks)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "no sibling activity")

	assert.Equal(t, []uuid.UUID{legacy.ID}, taskIDs(e.tasks(t, activity.ID)))
}

func TestLegacyCleanupSkipsSharedTitle(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	user := model.NewID()
	training := e.category(t, user, "Training")
	tmpl := e.template(t, TemplateInput{UserID: user, Title: "Drills", CategoryIDs: []uuid.UUID{training}})
	twin := e.template(t, TemplateInput{UserID: user, Title: " Drills"})
	first := e.activity(t, user, &training)
	second := e.activity(t, user, &training)
	addLegacyTask(t, e, first.ID, "Drills")
	addLegacyTask(t, e, second.ID, "Drills")

	title := "Drills"
	report, err := e.cleanup.CleanupTasksForTemplate(ctx, user, tmpl.ID, &title)
	require.NoError(t, err)
	assert.Zero(t, report.LegacyTasks)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], twin.ID.String())
	assert.Len(t, e.tasks(t, first.ID), 1)
}

func TestCleanupWithoutTitleLeavesLegacyTasks(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	user := model.NewID()
	training := e.category(t, user, "Training")
	tmpl := e.template(t, TemplateInput{UserID: user, Title: "Drills", CategoryIDs: []uuid.UUID{training}})
	first := e.activity(t, user, &training)
	second := e.activity(t, user, &training)
	addLegacyTask(t, e, first.ID, "Drills")
	addLegacyTask(t, e, second.ID, "Drills")

	report, err := e.cleanup.CleanupTasksForTemplate(ctx, user, tmpl.ID, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, report.TemplateTasks)
	assert.Zero(t, report.LegacyTasks)
	assert.Len(t, e.tasks(t, first.ID), 1)
	assert.Len(t, e.tasks(t, second.ID), 1)
}

func TestCleanupOnlyTouchesOwner(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	user := model.NewID()
	training := e.category(t, user, "Training")
	tmpl := e.template(t, TemplateInput{UserID: user, Title: "Drills", CategoryIDs: []uuid.UUID{training}})
	activity := e.activity(t, user, &training)

	report, err := e.cleanup.CleanupTasksForTemplate(ctx, model.NewID(), tmpl.ID, nil)
	require.NoError(t, err)
	assert.Zero(t, report.TemplateTasks)
	assert.NotNil(t, e.taskFor(t, activity.ID, tmpl.ID))
}
