package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"tasksync/internal/config"
)

// ErrNoSchedule is returned when neither a daily time nor an interval is set.
var ErrNoSchedule = errors.New("no maintenance schedule configured")

// SchedulerService runs the maintenance sweep on a cron schedule. A run that
// is still busy when the next one is due causes that tick to be skipped.
type SchedulerService struct {
	cron *cron.Cron
}

func NewSchedulerService(loc *time.Location) *SchedulerService {
	return &SchedulerService{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
		),
	}
}

// ScheduleMaintenance registers job daily at HH:MM when at is set, or every
// interval otherwise.
func (s *SchedulerService) ScheduleMaintenance(at string, interval time.Duration, job func()) (cron.EntryID, error) {
	spec, err := maintenanceSpec(at, interval)
	if err != nil {
		return 0, err
	}
	return s.cron.AddFunc(spec, job)
}

// Next returns the next run time of entry, or the zero time if unknown.
func (s *SchedulerService) Next(id cron.EntryID) time.Time {
	return s.cron.Entry(id).Next
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

// Shutdown stops new runs and waits for a running sweep until ctx is done.
func (s *SchedulerService) Shutdown(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// maintenanceSpec builds the cron spec (with seconds) for the sweep.
func maintenanceSpec(at string, interval time.Duration) (string, error) {
	if strings.TrimSpace(at) != "" {
		hour, minute, err := config.ParseClock(at)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("0 %d %d * * *", minute, hour), nil
	}
	if interval <= 0 {
		return "", ErrNoSchedule
	}
	return fmt.Sprintf("@every %s", interval.Round(time.Second)), nil
}
