package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tasksync/internal/bot"
	"tasksync/internal/service"
)

func newServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduled repair sweep and the admin bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()

			var telegramBot *bot.Bot
			if a.cfg.TelegramToken != "" {
				telegramBot, err = bot.New(&a.cfg, a.sync, a.propagation, a.cleanup)
				if err != nil {
					return fmt.Errorf("bot: %w", err)
				}
			}

			scheduler := service.NewSchedulerService(time.Local)
			entry, err := scheduler.ScheduleMaintenance(a.cfg.MaintenanceAt, a.cfg.MaintenanceInterval, func() {
				jobCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
				defer cancel()
				results, err := a.propagation.FixMissingActivityTasksForAllUsers(jobCtx)
				if err != nil {
					log.Printf("maintenance: %v", err)
					return
				}
				if telegramBot != nil {
					if err := telegramBot.SendMaintenanceReport(jobCtx, results); err != nil && !errors.Is(err, context.Canceled) {
						log.Printf("maintenance report: %v", err)
					}
				}
			})
			switch {
			case errors.Is(err, service.ErrNoSchedule):
				log.Println("[info] maintenance sweep not scheduled")
			case err != nil:
				return fmt.Errorf("schedule maintenance: %w", err)
			default:
				scheduler.Start()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
					defer cancel()
					if err := scheduler.Shutdown(shutdownCtx); err != nil {
						log.Printf("scheduler shutdown: %v", err)
					}
				}()
				log.Printf("[info] maintenance sweep scheduled, next run %s", scheduler.Next(entry).Format(time.RFC3339))
			}

			log.Println("tasksync started.")
			if telegramBot != nil {
				if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
					return fmt.Errorf("bot stopped with error: %w", err)
				}
			} else {
				<-ctx.Done()
			}
			log.Println("Shutdown complete.")
			return nil
		},
	}
}
