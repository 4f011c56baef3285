package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Telegram    TelegramConfig    `yaml:"telegram"`
	Storage     StorageConfig     `yaml:"storage"`
	Logging     LoggingConfig     `yaml:"logging"`
	Broadcast   BroadcastConfig   `yaml:"broadcast"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
}

type TelegramConfig struct {
	Token string `yaml:"token"`
	// OwnerUserIDs are seeded into the store as owners at startup and on
	// every config reload. Granting is monotonic; removing an id here does
	// not demote anyone.
	OwnerUserIDs []int64 `yaml:"owner_user_ids"`
	// LogChatID receives warn+ log records when logging.telegram is enabled.
	LogChatID int64 `yaml:"log_chat_id"`
	// PollTimeout is a Go duration string (e.g. "10s").
	PollTimeout string `yaml:"poll_timeout"`
}

type StorageConfig struct {
	Path string `yaml:"path"`
	// BusyTimeout is a Go duration string; empty means driver default.
	BusyTimeout string `yaml:"busy_timeout"`
}

type LoggingConfig struct {
	Level    string          `yaml:"level"`
	Console  bool            `yaml:"console"`
	File     LoggingFile     `yaml:"file"`
	Telegram LoggingTelegram `yaml:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `yaml:"enabled"`
	MinLevel   string `yaml:"min_level"`
	RatePerSec int    `yaml:"rate_per_sec"`
}

type BroadcastConfig struct {
	RatePerSec int `yaml:"rate_per_sec"`
}

type MaintenanceConfig struct {
	Enabled bool `yaml:"enabled"`
	// Cron specs (5-field or @descriptor).
	StatsSchedule    string `yaml:"stats_schedule"`
	OptimizeSchedule string `yaml:"optimize_schedule"`
}

func defaultConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{PollTimeout: "10s"},
		Storage:  StorageConfig{Path: "./relaybot.db", BusyTimeout: "5s"},
		Logging:  LoggingConfig{Level: "info", Console: true},
		Maintenance: MaintenanceConfig{
			Enabled:          true,
			StatsSchedule:    "@hourly",
			OptimizeSchedule: "@daily",
		},
	}
}

// Validate rejects configs that cannot run. The token is checked separately
// at startup so reloads of a running bot can't "unset" it.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Storage.Path) == "" {
		return fmt.Errorf("storage.path must not be empty")
	}
	if _, err := parseDurationOrDefault("telegram.poll_timeout", c.Telegram.PollTimeout, 10*time.Second); err != nil {
		return err
	}
	if _, err := parseDurationOrDefault("storage.busy_timeout", c.Storage.BusyTimeout, 0); err != nil {
		return err
	}
	if c.Broadcast.RatePerSec < 0 {
		return fmt.Errorf("broadcast.rate_per_sec must be >= 0")
	}
	return nil
}

func parseDurationOrDefault(field, raw string, def time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", field, raw, err)
	}
	return d, nil
}

// ParseOwnerIDs parses a comma-separated id list. Malformed entries are
// skipped individually so one typo doesn't wipe the whole owner set.
func ParseOwnerIDs(raw string) []int64 {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
