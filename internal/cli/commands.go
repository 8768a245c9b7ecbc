package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tasksync/internal/service"
)

func newMigrateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return err
		},
	}
}

func newReconcileCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Resync the tasks of one activity or external event",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "activity <activity-id>",
		Short: "Resync an activity with its category's templates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "activity")
			if err != nil {
				return err
			}
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()
			res, err := a.sync.ReconcileActivityTasks(cmd.Context(), id)
			if err != nil {
				return err
			}
			return opts.printReport(cmd.OutOrStdout(), res, service.FormatReconcile(res, service.PlainText))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "external <local-meta-id>",
		Short: "Resync an external event with its category's templates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "external event")
			if err != nil {
				return err
			}
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()
			res, err := a.sync.ReconcileExternalEventTasks(cmd.Context(), id)
			if err != nil {
				return err
			}
			return opts.printReport(cmd.OutOrStdout(), res, service.FormatReconcile(res, service.PlainText))
		},
	})

	return cmd
}

func newPropagateCommand(opts *options) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "propagate <template-id>",
		Short: "Push a template to every activity, series and external event using it",
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
			report, err := a.propagation.PropagateTemplateChange(cmd.Context(), id, dryRun)
			if err != nil {
				return err
			}
			return opts.printReport(cmd.OutOrStdout(), report, service.FormatPropagation(report, service.PlainText))
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only count what would change")
	return cmd
}

func newCleanupCommand(opts *options) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "cleanup <user-id> <template-id>",
		Short: "Remove every task a template generated for a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[0], "user")
			if err != nil {
				return err
			}
			templateID, err := parseID(args[1], "template")
			if err != nil {
				return err
			}
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()
			var titlePtr *string
			if cmd.Flags().Changed("title") {
				titlePtr = &title
			}
			report, err := a.cleanup.CleanupTasksForTemplate(cmd.Context(), userID, templateID, titlePtr)
			if err != nil {
				return err
			}
			return opts.printReport(cmd.OutOrStdout(), report, service.FormatCleanup(report, service.PlainText))
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "also remove legacy template-less tasks with this title")
	return cmd
}

func newFixMissingCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "fix-missing",
		Short: "Rebuild template tasks for every categorised activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()
			results, err := a.propagation.FixMissingActivityTasksForAllUsers(cmd.Context())
			if err != nil {
				return err
			}
			if results == nil {
				results = []service.FixResult{}
			}
			return opts.printReport(cmd.OutOrStdout(), results, service.FormatFixResults(results, time.Now(), service.PlainText))
		},
	}
}
