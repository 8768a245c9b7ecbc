package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasksync/internal/model"
	"tasksync/internal/repository"
	"tasksync/internal/service"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	for _, key := range []string{
		"TASKSYNC_CONFIG", "DATABASE_URL", "TELEGRAM_TOKEN", "ADMIN_CHAT_IDS",
		"LOCALE", "MAINTENANCE_AT", "MAINTENANCE_INTERVAL_HOURS",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("DB_LOG_LEVEL", "silent")
	return filepath.Join(t.TempDir(), "cli.db")
}

func openStore(t *testing.T, path string) *repository.Store {
	t.Helper()
	db, err := repository.NewDB(path, "silent")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return repository.NewStore(db)
}

type seeded struct {
	user     uuid.UUID
	template uuid.UUID
	activity uuid.UUID
}

// seed stores one template and one activity in its category, without tasks.
func seed(t *testing.T, store *repository.Store) seeded {
	t.Helper()
	ctx := context.Background()
	user := model.NewID()
	category := &model.Category{UserID: user, Name: "Training"}
	require.NoError(t, store.Categories.Create(ctx, category))
	tmpl := &model.TaskTemplate{UserID: user, Title: "Drills", Categories: []model.TemplateCategory{{CategoryID: category.ID}}}
	require.NoError(t, store.Templates.Create(ctx, tmpl))
	activity := &model.Activity{UserID: user, CategoryID: &category.ID, Title: "Tuesday", StartsAt: time.Now()}
	require.NoError(t, store.Activities.Create(ctx, activity))
	return seeded{user: user, template: tmpl.ID, activity: activity.ID}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMigrate(t *testing.T) {
	path := setupEnv(t)

	out, err := run(t, "--db", path, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema is up to date")

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestReconcileAndPropagate(t *testing.T) {
	path := setupEnv(t)
	store := openStore(t, path)
	s := seed(t, store)

	out, err := run(t, "--db", path, "reconcile", "activity", s.activity.String())
	require.NoError(t, err)
	assert.Contains(t, out, "created 1")

	out, err = run(t, "--db", path, "--json", "propagate", s.template.String(), "--dry-run")
	require.NoError(t, err)
	var report service.PropagationReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.True(t, report.DryRun)
	assert.Equal(t, s.template, report.TemplateID)
	assert.Equal(t, 1, report.DirectActivityUpdates)
}

func TestCleanupCommand(t *testing.T) {
	path := setupEnv(t)
	store := openStore(t, path)
	s := seed(t, store)
	_, err := run(t, "--db", path, "reconcile", "activity", s.activity.String())
	require.NoError(t, err)

	out, err := run(t, "--db", path, "--json", "cleanup", s.user.String(), s.template.String(), "--title", "Drills")
	require.NoError(t, err)
	var report service.CleanupReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.EqualValues(t, 1, report.TemplateTasks)

	n, err := store.Tasks.CountByActivity(context.Background(), s.activity)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFixMissing(t *testing.T) {
	path := setupEnv(t)
	store := openStore(t, path)
	s := seed(t, store)

	out, err := run(t, "--db", path, "fix-missing")
	require.NoError(t, err)
	assert.Contains(t, out, "Repaired 1 activities")
	assert.Contains(t, out, s.activity.String())

	out, err = run(t, "--db", path, "--json", "fix-missing")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestInvalidArguments(t *testing.T) {
	path := setupEnv(t)

	_, err := run(t, "--db", path, "reconcile", "activity", "nope")
	assert.ErrorContains(t, err, `invalid activity id "nope"`)

	_, err = run(t, "--db", path, "cleanup", model.NewID().String())
	assert.Error(t, err)

	_, err = run(t, "--db", path, "reconcile", "external", model.NewID().String())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestBadConfig(t *testing.T) {
	path := setupEnv(t)
	t.Setenv("LOCALE", "xx")

	_, err := run(t, "--db", path, "migrate")
	assert.ErrorContains(t, err, "unsupported locale")
}

func TestCategoriesCommands(t *testing.T) {
	path := setupEnv(t)
	user := model.NewID()

	out, err := run(t, "--db", path, "--json", "categories", "add", user.String(), "Training", "--color", "green")
	require.NoError(t, err)
	var created categoryView
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.Equal(t, "Training", created.Name)
	assert.Equal(t, "green", created.Color)

	_, err = run(t, "--db", path, "categories", "add", user.String(), "Match")
	require.NoError(t, err)

	_, err = run(t, "--db", path, "categories", "add", user.String(), "Training")
	assert.ErrorIs(t, err, repository.ErrDuplicateKey)

	_, err = run(t, "--db", path, "categories", "add", user.String(), "  ")
	assert.ErrorContains(t, err, "name is required")

	out, err = run(t, "--db", path, "categories", "list", user.String())
	require.NoError(t, err)
	assert.Contains(t, out, created.ID.String()+"  Training")
	assert.Less(t, strings.Index(out, "Match"), strings.Index(out, "Training"))

	out, err = run(t, "--db", path, "categories", "list", model.NewID().String())
	require.NoError(t, err)
	assert.Contains(t, out, "no categories")
}

func TestTemplateLifecycleCommands(t *testing.T) {
	path := setupEnv(t)
	store := openStore(t, path)
	ctx := context.Background()
	user := model.NewID()
	category := &model.Category{UserID: user, Name: "Training"}
	require.NoError(t, store.Categories.Create(ctx, category))
	activity := &model.Activity{UserID: user, Title: "Tuesday", StartsAt: time.Now()}
	require.NoError(t, store.Activities.Create(ctx, activity))

	out, err := run(t, "--db", path, "--json", "template", "create", user.String(), "Drills",
		"--category", category.ID.String(), "--subtask", "Cones", "--reminder", "30")
	require.NoError(t, err)
	var created struct {
		ID uuid.UUID `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &created))

	out, err = run(t, "--db", path, "activity", "category", activity.ID.String(), category.ID.String())
	require.NoError(t, err)
	assert.Contains(t, out, "created 1")

	taskTitle := func() string {
		t.Helper()
		tasks, err := store.Tasks.ListByActivity(ctx, activity.ID)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		return tasks[0].Title
	}
	assert.Equal(t, "Drills", taskTitle())

	out, err = run(t, "--db", path, "template", "update", created.ID.String(), "--title", "Sprints", "--clear-reminder")
	require.NoError(t, err)
	assert.Contains(t, out, "Total activities: 1")
	assert.Equal(t, "Sprints", taskTitle())
	tmpl, err := store.Templates.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, tmpl.ReminderMinutes)

	_, err = run(t, "--db", path, "template", "update", created.ID.String(), "--reminder", "5", "--clear-reminder")
	assert.Error(t, err)

	_, err = run(t, "--db", path, "template", "subtasks", created.ID.String(), "Cones", "Ladder")
	require.NoError(t, err)
	tasks, err := store.Tasks.ListByActivity(ctx, activity.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Len(t, tasks[0].Subtasks, 2)
	assert.Equal(t, "Ladder", tasks[0].Subtasks[1].Title)

	_, err = run(t, "--db", path, "template", "unlink", created.ID.String(), category.ID.String())
	require.NoError(t, err)
	n, err := store.Tasks.CountByActivity(ctx, activity.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = run(t, "--db", path, "template", "link", created.ID.String(), category.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Sprints", taskTitle())

	out, err = run(t, "--db", path, "--json", "template", "hide", created.ID.String())
	require.NoError(t, err)
	var hidden service.CleanupReport
	require.NoError(t, json.Unmarshal([]byte(out), &hidden))
	assert.EqualValues(t, 1, hidden.TemplateTasks)

	out, err = run(t, "--db", path, "template", "delete", created.ID.String())
	require.NoError(t, err)
	assert.Contains(t, out, "Template cleanup")
	_, err = store.Templates.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	out, err = run(t, "--db", path, "activity", "category", activity.ID.String())
	require.NoError(t, err)
	assert.Contains(t, out, "skipped")
	got, err := store.Activities.GetByID(ctx, activity.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)
}

func TestTemplateCommandsRejectForeignCategory(t *testing.T) {
	path := setupEnv(t)
	store := openStore(t, path)
	s := seed(t, store)
	foreign := &model.Category{UserID: model.NewID(), Name: "Training"}
	require.NoError(t, store.Categories.Create(context.Background(), foreign))

	_, err := run(t, "--db", path, "template", "link", s.template.String(), foreign.ID.String())
	assert.ErrorIs(t, err, service.ErrForeignOwner)

	_, err = run(t, "--db", path, "template", "create", s.user.String(), "X", "--category", "nope")
	assert.ErrorContains(t, err, `invalid category id "nope"`)
}
