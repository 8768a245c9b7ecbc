package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaintenanceSpec(t *testing.T) {
	tests := []struct {
		name     string
		at       string
		interval time.Duration
		want     string
		wantErr  error
	}{
		{"daily", "03:30", 0, "0 30 3 * * *", nil},
		{"daily wins over interval", " 23:59 ", time.Hour, "0 59 23 * * *", nil},
		{"interval", "", 6 * time.Hour, "@every 6h0m0s", nil},
		{"nothing", "", 0, "", ErrNoSchedule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := maintenanceSpec(tt.at, tt.interval)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := maintenanceSpec("24:00", 0)
	assert.Error(t, err)
}

func TestScheduleMaintenance(t *testing.T) {
	s := NewSchedulerService(time.UTC)
	job := func() {}

	_, err := s.ScheduleMaintenance("", 0, job)
	assert.ErrorIs(t, err, ErrNoSchedule)

	_, err = s.ScheduleMaintenance("bad", time.Hour, job)
	assert.Error(t, err)

	daily, err := s.ScheduleMaintenance("04:15", time.Hour, job)
	require.NoError(t, err)
	interval, err := s.ScheduleMaintenance("", 6*time.Hour, job)
	require.NoError(t, err)

	s.Start()
	next := s.Next(daily)
	assert.Equal(t, 4, next.Hour())
	assert.Equal(t, 15, next.Minute())
	assert.WithinDuration(t, time.Now().Add(6*time.Hour), s.Next(interval), time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Shutdown(ctx))
}
