package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config keeps runtime settings for the sync service.
type Config struct {
	DatabaseURL   string  `yaml:"database_url"`
	DBLogLevel    string  `yaml:"db_log_level"`
	TelegramToken string  `yaml:"telegram_token"`
	AdminChatIDs  []int64 `yaml:"admin_chat_ids"`
	Locale        string  `yaml:"locale"`

	// MaintenanceAt schedules the daily fix sweep at HH:MM. It wins over
	// MaintenanceInterval when both are set.
	MaintenanceAt            string        `yaml:"maintenance_at"`
	MaintenanceIntervalHours int           `yaml:"maintenance_interval_hours"`
	MaintenanceInterval      time.Duration `yaml:"-"`
}

var (
	supportedLocales = map[string]bool{"en": true, "da": true}
	dbLogLevels      = map[string]bool{"silent": true, "error": true, "warn": true, "info": true}
)

// Load reads the optional YAML file at path, applies environment overrides
// and fills in defaults. An empty path falls back to TASKSYNC_CONFIG.
func Load(path string) (Config, error) {
	var cfg Config

	if path == "" {
		path = strings.TrimSpace(os.Getenv("TASKSYNC_CONFIG"))
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %q: %w", path, err)
		}
	}

	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DB_LOG_LEVEL")); v != "" {
		cfg.DBLogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")); v != "" {
		cfg.TelegramToken = v
	}
	if v := strings.TrimSpace(os.Getenv("ADMIN_CHAT_IDS")); v != "" {
		ids, err := parseChatIDs(v)
		if err != nil {
			return cfg, err
		}
		cfg.AdminChatIDs = ids
	}
	if v := strings.TrimSpace(os.Getenv("LOCALE")); v != "" {
		cfg.Locale = v
	}
	if v := strings.TrimSpace(os.Getenv("MAINTENANCE_AT")); v != "" {
		cfg.MaintenanceAt = v
	}
	if v := strings.TrimSpace(os.Getenv("MAINTENANCE_INTERVAL_HOURS")); v != "" {
		interval, err := parseInterval(v)
		if err != nil {
			return cfg, err
		}
		cfg.MaintenanceInterval = interval
	} else if cfg.MaintenanceIntervalHours < 0 {
		return cfg, fmt.Errorf("invalid maintenance interval %d hours", cfg.MaintenanceIntervalHours)
	} else if cfg.MaintenanceIntervalHours > 0 {
		cfg.MaintenanceInterval = time.Duration(cfg.MaintenanceIntervalHours) * time.Hour
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "tasksync.db"
	}
	if cfg.DBLogLevel == "" {
		cfg.DBLogLevel = "warn"
	}
	if cfg.Locale == "" {
		cfg.Locale = "en"
	}
	cfg.Locale = strings.ToLower(cfg.Locale)
	cfg.DBLogLevel = strings.ToLower(cfg.DBLogLevel)

	if !supportedLocales[cfg.Locale] {
		return cfg, fmt.Errorf("unsupported locale %q", cfg.Locale)
	}
	if !dbLogLevels[cfg.DBLogLevel] {
		return cfg, fmt.Errorf("unknown db log level %q", cfg.DBLogLevel)
	}
	cfg.MaintenanceAt = strings.TrimSpace(cfg.MaintenanceAt)
	if cfg.MaintenanceAt != "" {
		if _, _, err := ParseClock(cfg.MaintenanceAt); err != nil {
			return cfg, fmt.Errorf("maintenance_at: %w", err)
		}
	}
	if cfg.TelegramToken != "" && len(cfg.AdminChatIDs) == 0 {
		return cfg, errors.New("ADMIN_CHAT_IDS is required when TELEGRAM_TOKEN is set")
	}

	return cfg, nil
}

// IsAdmin reports whether chatID may run maintenance commands.
func (c Config) IsAdmin(chatID int64) bool {
	for _, id := range c.AdminChatIDs {
		if id == chatID {
			return true
		}
	}
	return false
}

// ParseClock splits an HH:MM wall-clock time.
func ParseClock(raw string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", raw)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", raw)
	}
	return hour, minute, nil
}

// parseInterval reads a whole number of hours.
func parseInterval(raw string) (time.Duration, error) {
	hours, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || hours <= 0 {
		return 0, fmt.Errorf("invalid maintenance interval %q, expected whole hours", raw)
	}
	return time.Duration(hours) * time.Hour, nil
}

func parseChatIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid admin chat id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
