package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"tasksync/internal/model"
	"tasksync/internal/service"
)

type categoryView struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`
	Name   string    `json:"name"`
	Color  string    `json:"color,omitempty"`
}

func newCategoriesCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage a user's activity categories",
	}

	var color string
	add := &cobra.Command{
		Use:   "add <user-id> <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[0], "user")
			if err != nil {
				return err
			}
			name := strings.TrimSpace(args[1])
			if name == "" {
				return errors.New("category name is required")
			}
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()
			category := &model.Category{UserID: userID, Name: name, Color: color}
			if err := a.store.Categories.Create(cmd.Context(), category); err != nil {
				return err
			}
			view := categoryView{ID: category.ID, UserID: userID, Name: name, Color: color}
			return opts.printReport(cmd.OutOrStdout(), view, fmt.Sprintf("category %s created: %s", category.ID, name))
		},
	}
	add.Flags().StringVar(&color, "color", "", "display color")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "list <user-id>",
		Short: "List a user's categories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[0], "user")
			if err != nil {
				return err
			}
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()
			categories, err := a.store.Categories.ListByUser(cmd.Context(), userID)
			if err != nil {
				return err
			}
			views := make([]categoryView, 0, len(categories))
			lines := make([]string, 0, len(categories))
			for _, c := range categories {
				views = append(views, categoryView{ID: c.ID, UserID: c.UserID, Name: c.Name, Color: c.Color})
				lines = append(lines, fmt.Sprintf("%s  %s", c.ID, c.Name))
			}
			if len(lines) == 0 {
				lines = append(lines, "no categories")
			}
			return opts.printReport(cmd.OutOrStdout(), views, strings.Join(lines, "\n"))
		},
	})

	return cmd
}

func newTemplateCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Create and edit task templates",
	}
	cmd.AddCommand(newTemplateCreateCommand(opts))
	cmd.AddCommand(newTemplateUpdateCommand(opts))
	cmd.AddCommand(newTemplateSubtasksCommand(opts))
	cmd.AddCommand(newTemplateLinkCommand(opts, true))
	cmd.AddCommand(newTemplateLinkCommand(opts, false))
	cmd.AddCommand(newTemplateRemoveCommand(opts, true))
	cmd.AddCommand(newTemplateRemoveCommand(opts, false))
	return cmd
}

func newTemplateCreateCommand(opts *options) *cobra.Command {
	var (
		description   string
		reminder      int
		afterTraining bool
		subtasks      []string
		categories    []string
	)

	cmd := &cobra.Command{
		Use:   "create <user-id> <title>",
		Short: "Create a template and give it to the activities of its categories",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[0], "user")
			if err != nil {
				return err
			}
			input := service.TemplateInput{
				UserID:               userID,
				Title:                args[1],
				Description:          description,
				AfterTrainingEnabled: afterTraining,
				Subtasks:             subtasks,
			}
			if cmd.Flags().Changed("reminder") {
				input.ReminderMinutes = &reminder
			}
			for _, raw := range categories {
				id, err := parseID(raw, "category")
				if err != nil {
					return err
				}
				input.CategoryIDs = append(input.CategoryIDs, id)
			}

			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()
			tmpl, err := a.templates.Create(cmd.Context(), input)
			if err != nil {
				return err
			}
			out := struct {
				ID uuid.UUID `json:"id"`
			}{tmpl.ID}
			return opts.printReport(cmd.OutOrStdout(), out, fmt.Sprintf("template %s created", tmpl.ID))
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "task description")
	cmd.Flags().IntVar(&reminder, "reminder", 0, "reminder in minutes before the activity")
	cmd.Flags().BoolVar(&afterTraining, "after-training", false, "add an after-training feedback task")
	cmd.Flags().StringArrayVar(&subtasks, "subtask", nil, "subtask title (repeatable)")
	cmd.Flags().StringArrayVar(&categories, "category", nil, "category id (repeatable)")
	return cmd
}

func newTemplateUpdateCommand(opts *options) *cobra.Command {
	var (
		title         string
		description   string
		reminder      int
		clearReminder bool
		afterTraining bool
		delay         int
		score         bool
		note          bool
		explanation   string
	)

	cmd := &cobra.Command{
		Use:   "update <template-id>",
		Short: "Change a template and propagate it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "template")
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			var patch service.TemplatePatch
			if flags.Changed("title") {
				patch.Title = &title
			}
			if flags.Changed("description") {
				patch.Description = &description
			}
			if flags.Changed("reminder") {
				patch.ReminderMinutes = &reminder
			}
			patch.ClearReminder = clearReminder
			if flags.Changed("after-training") {
				patch.AfterTrainingEnabled = &afterTraining
			}
			if flags.Changed("feedback-delay") {
				patch.AfterTrainingDelayMinutes = &delay
			}
			if flags.Changed("feedback-score") {
				patch.FeedbackEnableScore = &score
			}
			if flags.Changed("feedback-note") {
				patch.FeedbackEnableNote = &note
			}
			if flags.Changed("score-explanation") {
				patch.FeedbackScoreExplanation = &explanation
			}

			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()
			report, err := a.templates.Update(cmd.Context(), id, patch)
			if err != nil {
				return err
			}
			return opts.printReport(cmd.OutOrStdout(), report, service.FormatPropagation(report, service.PlainText))
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().IntVar(&reminder, "reminder", 0, "reminder in minutes before the activity")
	cmd.Flags().BoolVar(&clearReminder, "clear-reminder", false, "remove the reminder")
	cmd.Flags().BoolVar(&afterTraining, "after-training", false, "enable the after-training feedback task")
	cmd.Flags().IntVar(&delay, "feedback-delay", 0, "minutes after the activity before feedback is due")
	cmd.Flags().BoolVar(&score, "feedback-score", false, "ask for a score in feedback")
	cmd.Flags().BoolVar(&note, "feedback-note", false, "ask for a note in feedback")
	cmd.Flags().StringVar(&explanation, "score-explanation", "", "text explaining the score scale")
	cmd.MarkFlagsMutuallyExclusive("reminder", "clear-reminder")
	return cmd
}

func newTemplateSubtasksCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "subtasks <template-id> [title...]",
		Short: "Replace a template's subtasks and propagate them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "template")
			if err != nil {
				return err
			}
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()
			report, err := a.templates.ReplaceSubtasks(cmd.Context(), id, args[1:])
			if err != nil {
				return err
			}
			return opts.printReport(cmd.OutOrStdout(), report, service.FormatPropagation(report, service.PlainText))
		},
	}
}

func newTemplateLinkCommand(opts *options, link bool) *cobra.Command {
	use, short := "link", "Bind a template to a category"
	if !link {
		use, short = "unlink", "Remove a template from a category"
	}
	return &cobra.Command{
		Use:   use + " <template-id> <category-id>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "template")
			if err != nil {
				return err
			}
			categoryID, err := parseID(args[1], "category")
			if err != nil {
				return err
			}
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()
			var report service.PropagationReport
			if link {
				report, err = a.templates.LinkCategory(cmd.Context(), id, categoryID)
			} else {
				report, err = a.templates.UnlinkCategory(cmd.Context(), id, categoryID)
			}
			if err != nil {
				return err
			}
			return opts.printReport(cmd.OutOrStdout(), report, service.FormatPropagation(report, service.PlainText))
		},
	}
}

// newTemplateRemoveCommand builds "hide" (soft) or "delete" (hard, with the
// legacy title cleanup).
func newTemplateRemoveCommand(opts *options, hide bool) *cobra.Command {
	use, short := "hide", "Hide a template and remove the tasks it generated"
	if !hide {
		use, short = "delete", "Delete a template and everything it generated"
	}
	return &cobra.Command{
		Use:   use + " <template-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "template")
			if err != nil {
				return err
			}
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()
			var report service.CleanupReport
			if hide {
				report, err = a.templates.Hide(cmd.Context(), id)
			} else {
				report, err = a.templates.Delete(cmd.Context(), id)
			}
			if err != nil {
				return err
			}
			return opts.printReport(cmd.OutOrStdout(), report, service.FormatCleanup(report, service.PlainText))
		},
	}
}

func newActivityCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Edit activities and imported events",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "category <activity-id> [category-id]",
		Short: "Move an activity to a category, or clear it",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "activity")
			if err != nil {
				return err
			}
			categoryID, err := optionalID(args[1:], "category")
			if err != nil {
				return err
			}
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()
			res, err := a.activities.SetCategory(cmd.Context(), id, categoryID)
			if err != nil {
				return err
			}
			return opts.printReport(cmd.OutOrStdout(), res, service.FormatReconcile(res, service.PlainText))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "external-category <local-meta-id> [category-id]",
		Short: "Set the category of an imported event",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "external event")
			if err != nil {
				return err
			}
			categoryID, err := optionalID(args[1:], "category")
			if err != nil {
				return err
			}
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()
			res, err := a.activities.SetExternalEventCategory(cmd.Context(), id, categoryID)
			if err != nil {
				return err
			}
			return opts.printReport(cmd.OutOrStdout(), res, service.FormatReconcile(res, service.PlainText))
		},
	})

	return cmd
}

func optionalID(args []string, what string) (*uuid.UUID, error) {
	if len(args) == 0 {
		return nil, nil
	}
	id, err := parseID(args[0], what)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
