package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"tasksync/internal/config"
)

// options carries the persistent flags shared by every command.
type options struct {
	configFile  string
	databaseURL string
	asJSON      bool
}

func (o *options) open() (*app, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if o.databaseURL != "" {
		cfg.DatabaseURL = o.databaseURL
	}
	return newApp(cfg)
}

func NewRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "tasksync",
		Short: "tasksync - keeps activity tasks in sync with task templates",
		Long: `tasksync keeps every activity's checklist in line with the task templates
of its category, fans template edits out to series and external events,
and cleans up after deleted or hidden templates.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default: $TASKSYNC_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&opts.databaseURL, "db", "", "database URL or SQLite path")
	rootCmd.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "print reports as JSON")

	rootCmd.AddCommand(newServeCommand(opts))
	rootCmd.AddCommand(newMigrateCommand(opts))
	rootCmd.AddCommand(newReconcileCommand(opts))
	rootCmd.AddCommand(newPropagateCommand(opts))
	rootCmd.AddCommand(newCleanupCommand(opts))
	rootCmd.AddCommand(newFixMissingCommand(opts))
	rootCmd.AddCommand(newCategoriesCommand(opts))
	rootCmd.AddCommand(newTemplateCommand(opts))
	rootCmd.AddCommand(newActivityCommand(opts))

	return rootCmd
}

func parseID(raw, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id %q: %w", what, raw, err)
	}
	return id, nil
}

// printReport writes v as indented JSON when asked, text otherwise.
func (o *options) printReport(w io.Writer, v any, text string) error {
	if o.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}
