package cli

import (
	"fmt"

	"gorm.io/gorm"

	"tasksync/internal/config"
	"tasksync/internal/repository"
	"tasksync/internal/service"
)

// app holds the wired services for one command run.
type app struct {
	cfg         config.Config
	db          *gorm.DB
	store       *repository.Store
	sync        *service.TaskSyncService
	propagation *service.PropagationService
	cleanup     *service.CleanupService
	templates   *service.TemplateService
	activities  *service.ActivityService
}

func newApp(cfg config.Config) (*app, error) {
	db, err := repository.NewDB(cfg.DatabaseURL, cfg.DBLogLevel)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}

	store := repository.NewStore(db)
	syncSvc := service.NewTaskSyncService(store, service.CategoryResolver{}, service.NewFeedbackText(cfg.Locale))
	propagation := service.NewPropagationService(store, syncSvc)
	cleanup := service.NewCleanupService(store)

	return &app{
		cfg:         cfg,
		db:          db,
		store:       store,
		sync:        syncSvc,
		propagation: propagation,
		cleanup:     cleanup,
		templates:   service.NewTemplateService(store, propagation, cleanup),
		activities:  service.NewActivityService(store, syncSvc),
	}, nil
}

func (a *app) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
