package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"TASKSYNC_CONFIG", "DATABASE_URL", "DB_LOG_LEVEL", "TELEGRAM_TOKEN",
		"ADMIN_CHAT_IDS", "LOCALE", "MAINTENANCE_AT", "MAINTENANCE_INTERVAL_HOURS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "tasksync.db", cfg.DatabaseURL)
	assert.Equal(t, "warn", cfg.DBLogLevel)
	assert.Equal(t, "en", cfg.Locale)
	assert.Empty(t, cfg.TelegramToken)
	assert.Zero(t, cfg.MaintenanceInterval)
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "tasksync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database_url: file.db
locale: da
maintenance_at: "03:30"
maintenance_interval_hours: 6
admin_chat_ids: [11, 22]
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file.db", cfg.DatabaseURL)
	assert.Equal(t, "da", cfg.Locale)
	assert.Equal(t, "03:30", cfg.MaintenanceAt)
	assert.Equal(t, 6*time.Hour, cfg.MaintenanceInterval)
	assert.Equal(t, []int64{11, 22}, cfg.AdminChatIDs)

	t.Setenv("DATABASE_URL", "postgres://localhost/tasks")
	t.Setenv("MAINTENANCE_INTERVAL_HOURS", "2")
	t.Setenv("ADMIN_CHAT_IDS", "7, 8")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/tasks", cfg.DatabaseURL)
	assert.Equal(t, 2*time.Hour, cfg.MaintenanceInterval)
	assert.Equal(t, []int64{7, 8}, cfg.AdminChatIDs)
	assert.True(t, cfg.IsAdmin(8))
	assert.False(t, cfg.IsAdmin(11))
}

func TestLoadConfigFromEnvPath(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database_url: env-path.db\n"), 0o600))
	t.Setenv("TASKSYNC_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env-path.db", cfg.DatabaseURL)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad locale", map[string]string{"LOCALE": "fr"}},
		{"bad log level", map[string]string{"DB_LOG_LEVEL": "loud"}},
		{"bad chat id", map[string]string{"ADMIN_CHAT_IDS": "1,abc"}},
		{"token without admins", map[string]string{"TELEGRAM_TOKEN": "123:abc"}},
		{"interval not a number", map[string]string{"MAINTENANCE_INTERVAL_HOURS": "abc"}},
		{"interval not positive", map[string]string{"MAINTENANCE_INTERVAL_HOURS": "0"}},
		{"clock out of range", map[string]string{"MAINTENANCE_AT": "99:99"}},
		{"clock malformed", map[string]string{"MAINTENANCE_AT": "noon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsNegativeFileInterval(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("maintenance_interval_hours: -2\n"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestParseInterval(t *testing.T) {
	got, err := parseInterval(" 3 ")
	require.NoError(t, err)
	assert.Equal(t, 3*time.Hour, got)

	for _, raw := range []string{"", "-1", "0", "abc", "1.5"} {
		_, err := parseInterval(raw)
		assert.Error(t, err, raw)
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in     string
		hour   int
		minute int
		ok     bool
	}{
		{"03:30", 3, 30, true},
		{" 23:59 ", 23, 59, true},
		{"00:00", 0, 0, true},
		{"24:00", 0, 0, false},
		{"12:60", 0, 0, false},
		{"99:99", 0, 0, false},
		{"noon", 0, 0, false},
		{"1:2:3", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			hour, minute, err := ParseClock(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.hour, hour)
			assert.Equal(t, tt.minute, minute)
		})
	}
}
