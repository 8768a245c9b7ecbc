package service

import (
	"fmt"
	"html"
	"strings"
	"time"
)

// ReportFormat selects plain text (CLI) or Telegram HTML (bot).
type ReportFormat int

const (
	PlainText ReportFormat = iota
	HTML
)

func (f ReportFormat) bold(s string) string {
	if f == HTML {
		return "<b>" + html.EscapeString(s) + "</b>"
	}
	return s
}

func (f ReportFormat) text(s string) string {
	if f == HTML {
		return html.EscapeString(s)
	}
	return s
}

// FormatPropagation renders a propagation or dry-run report.
func FormatPropagation(r PropagationReport, f ReportFormat) string {
	var sb strings.Builder
	title := "Template propagation"
	if r.DryRun {
		title = "Template preview (dry run)"
	}
	sb.WriteString(f.bold(title) + "\n")
	sb.WriteString(fmt.Sprintf("Template: %s\n", f.text(r.TemplateID.String())))
	sb.WriteString(fmt.Sprintf("Direct activities: %d\n", r.DirectActivityUpdates))
	sb.WriteString(fmt.Sprintf("Series: %d (%d more activities)\n", r.SeriesCount, r.SeriesActivityUpdates))
	sb.WriteString(fmt.Sprintf("Total activities: %d\n", r.TotalActivityUpdates))
	sb.WriteString(fmt.Sprintf("External events: %d", r.ExternalEventUpdates))
	if r.DryRun {
		sb.WriteString(fmt.Sprintf("\nWould affect %d items", r.TotalActivityUpdates+r.ExternalEventUpdates))
	}
	return sb.String()
}

// FormatFixResults renders the outcome of a fix sweep.
func FormatFixResults(results []FixResult, now time.Time, f ReportFormat) string {
	var sb strings.Builder
	sb.WriteString(f.bold("Task repair sweep") + "\n")
	sb.WriteString(now.Format("2006-01-02 15:04") + "\n")
	if len(results) == 0 {
		sb.WriteString("No activities were missing tasks.")
		return sb.String()
	}
	var created int64
	for _, r := range results {
		created += r.TasksCreated
	}
	sb.WriteString(fmt.Sprintf("Repaired %d activities, %d tasks created:\n", len(results), created))
	for _, r := range results {
		sb.WriteString(fmt.Sprintf("• %s: %d → %d\n", f.text(r.ActivityID.String()), r.TasksBefore, r.TasksAfter))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatCleanup renders a template cleanup report with its warnings.
func FormatCleanup(r CleanupReport, f ReportFormat) string {
	var sb strings.Builder
	sb.WriteString(f.bold("Template cleanup") + "\n")
	sb.WriteString(fmt.Sprintf("Template: %s\n", f.text(r.TemplateID.String())))
	sb.WriteString(fmt.Sprintf("Template tasks: %d\n", r.TemplateTasks))
	sb.WriteString(fmt.Sprintf("Feedback tasks: %d\n", r.FeedbackTasks))
	sb.WriteString(fmt.Sprintf("External tasks: %d\n", r.ExternalTasks))
	sb.WriteString(fmt.Sprintf("Self feedback: %d\n", r.SelfFeedback))
	sb.WriteString(fmt.Sprintf("Legacy tasks: %d", r.LegacyTasks))
	for _, w := range r.Warnings {
		sb.WriteString("\n⚠️ " + f.text(w))
	}
	return sb.String()
}

// FormatReconcile renders a single reconciliation result.
func FormatReconcile(r ReconcileResult, f ReportFormat) string {
	if r.Skipped {
		return fmt.Sprintf("%s skipped: no category or external", f.text(r.ActivityID.String()))
	}
	return fmt.Sprintf("%s: created %d, updated %d, deleted %d, feedback %d",
		f.text(r.ActivityID.String()), r.Created, r.Updated, r.Deleted, r.FeedbackUpserted)
}
