package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tasksync/internal/model"
)

func TestFormatPropagation(t *testing.T) {
	report := PropagationReport{
		TemplateID:            model.NewID(),
		DryRun:                true,
		SeriesCount:           1,
		DirectActivityUpdates: 1,
		SeriesActivityUpdates: 2,
		TotalActivityUpdates:  3,
		ExternalEventUpdates:  1,
	}

	plain := FormatPropagation(report, PlainText)
	assert.Contains(t, plain, "Template preview (dry run)\n")
	assert.Contains(t, plain, "Series: 1 (2 more activities)")
	assert.Contains(t, plain, "Would affect 4 items")

	html := FormatPropagation(report, HTML)
	assert.Contains(t, html, "<b>Template preview (dry run)</b>")

	report.DryRun = false
	assert.NotContains(t, FormatPropagation(report, PlainText), "Would affect")
}

func TestFormatFixResults(t *testing.T) {
	now := time.Date(2026, 3, 1, 4, 30, 0, 0, time.UTC)

	empty := FormatFixResults(nil, now, PlainText)
	assert.Equal(t, "Task repair sweep\n2026-03-01 04:30\nNo activities were missing tasks.", empty)

	id := model.NewID()
	text := FormatFixResults([]FixResult{{ActivityID: id, TasksBefore: 1, TasksAfter: 3, TasksCreated: 2}}, now, PlainText)
	assert.Contains(t, text, "Repaired 1 activities, 2 tasks created:")
	assert.Contains(t, text, "• "+id.String()+": 1 → 3")
}

func TestFormatCleanupEscapesWarnings(t *testing.T) {
	report := CleanupReport{TemplateID: model.NewID(), LegacyTasks: 2, Warnings: []string{`kept 1 task(s) titled "<b>"`}}

	html := FormatCleanup(report, HTML)
	assert.Contains(t, html, "Legacy tasks: 2")
	assert.Contains(t, html, "&lt;b&gt;")
	assert.NotContains(t, html, `"<b>"`)

	assert.Contains(t, FormatCleanup(report, PlainText), `"<b>"`)
}

func TestFormatReconcile(t *testing.T) {
	id := model.NewID()

	assert.Equal(t, id.String()+" skipped: no category or external",
		FormatReconcile(ReconcileResult{ActivityID: id, Skipped: true}, PlainText))
	assert.Equal(t, id.String()+": created 2, updated 1, deleted 0, feedback 1",
		FormatReconcile(ReconcileResult{ActivityID: id, Created: 2, Updated: 1, FeedbackUpserted: 1}, PlainText))
}
