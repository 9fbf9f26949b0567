package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
)

type Config struct {
	Primary    Primary          `koanf:"primary"`
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Logger     LoggerConfig     `koanf:"logger"`
	Scheduler  SchedulerConfig  `koanf:"scheduler"`
	Batch      BatchConfig      `koanf:"batch"`
	Thresholds ThresholdConfig  `koanf:"thresholds"`
	LateFee    LateFeeConfig    `koanf:"late_fee"`
	Reminders  ReminderConfig   `koanf:"reminders"`
	Notify     NotifyConfig     `koanf:"notify"`
	Retry      RetryConfig      `koanf:"retry"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"required"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password" validate:"required"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time" validate:"required"`
}

type LoggerConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// SchedulerConfig controls the in-process daily trigger. An external
// scheduler hitting the admin endpoint is the primary trigger; the worker
// covers standalone deployments.
type SchedulerConfig struct {
	Enabled      bool          `koanf:"enabled"`
	RunHourUTC   int           `koanf:"run_hour_utc" validate:"min=0,max=23"`
	TickInterval time.Duration `koanf:"tick_interval" validate:"required"`
}

type BatchConfig struct {
	ChunkSize int `koanf:"chunk_size" validate:"required,min=1"`
	PageLimit int `koanf:"page_limit" validate:"required,min=1"`
}

// ThresholdConfig carries the calendar boundaries for status derivation.
// Ordering is validated again by the domain calculator at construction.
type ThresholdConfig struct {
	GracePeriodDays              int `koanf:"grace_period_days" validate:"min=0"`
	LateFeeThresholdDays         int `koanf:"late_fee_threshold_days" validate:"min=0"`
	SeverelyOverdueThresholdDays int `koanf:"severely_overdue_threshold_days" validate:"required,min=1"`
	DueSoonThresholdDays         int `koanf:"due_soon_threshold_days" validate:"required,min=1"`
	UpcomingThresholdDays        int `koanf:"upcoming_threshold_days" validate:"required,min=1"`
}

// LateFeeConfig is the default rule applied when a payment carries no
// embedded fee configuration and no rules are supplied on the request.
type LateFeeConfig struct {
	Enabled         bool   `koanf:"enabled"`
	GracePeriodDays int    `koanf:"grace_period_days" validate:"min=0"`
	FixedAmount     string `koanf:"fixed_amount"`
	MaxAmount       string `koanf:"max_amount"`
}

type ReminderConfig struct {
	UpcomingDays []int    `koanf:"upcoming_days"`
	OverdueDays  []int    `koanf:"overdue_days"`
	Channels     []string `koanf:"channels"`
}

type NotifyConfig struct {
	BaseURL     string        `koanf:"base_url" validate:"required"`
	ConnTimeout time.Duration `koanf:"conn_timeout" validate:"required"`
}

type RetryConfig struct {
	BaseDelay  int32 `koanf:"base_delay"`
	MaxRetries int32 `koanf:"max_retries"`
}

// defaults let the engine start locally with nothing but database
// credentials in the environment.
var defaults = map[string]interface{}{
	"primary.env":          "development",
	"server.port":          "8080",
	"server.read_timeout":  "10s",
	"server.write_timeout": "30s",
	"server.idle_timeout":  "60s",

	"database.ssl_mode":           "disable",
	"database.max_open_conns":     10,
	"database.max_idle_conns":     2,
	"database.conn_max_lifetime":  "30m",
	"database.conn_max_idle_time": "5m",

	"logger.level":  "info",
	"logger.format": "text",

	"scheduler.enabled":       true,
	"scheduler.run_hour_utc":  2,
	"scheduler.tick_interval": "1m",

	"batch.chunk_size": 50,
	"batch.page_limit": 500,

	"thresholds.grace_period_days":               5,
	"thresholds.late_fee_threshold_days":         5,
	"thresholds.severely_overdue_threshold_days": 30,
	"thresholds.due_soon_threshold_days":         3,
	"thresholds.upcoming_threshold_days":         14,

	"late_fee.enabled":           true,
	"late_fee.grace_period_days": 5,
	"late_fee.fixed_amount":      "50",

	"reminders.upcoming_days": []int{7, 3, 1},
	"reminders.overdue_days":  []int{1, 3, 7},
	"reminders.channels":      []string{"email"},

	"notify.base_url":     "http://localhost:9090",
	"notify.conn_timeout": "5s",

	"retry.base_delay":  1,
	"retry.max_retries": 3,
}

func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		logger.Error("failed to load defaults", "error", err)
		return nil, err
	}

	err := k.Load(env.Provider("RENTLEDGER_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "RENTLEDGER_")),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	if err := mainConfig.Thresholds.checkOrdering(); err != nil {
		logger.Error("threshold config invalid", "error", err)
		return nil, err
	}

	return mainConfig, nil
}

func (t ThresholdConfig) checkOrdering() error {
	if t.UpcomingThresholdDays <= t.DueSoonThresholdDays {
		return fmt.Errorf("upcoming_threshold_days (%d) must exceed due_soon_threshold_days (%d)",
			t.UpcomingThresholdDays, t.DueSoonThresholdDays)
	}
	if t.SeverelyOverdueThresholdDays <= t.GracePeriodDays {
		return fmt.Errorf("severely_overdue_threshold_days (%d) must exceed grace_period_days (%d)",
			t.SeverelyOverdueThresholdDays, t.GracePeriodDays)
	}
	return nil
}

// NewLogger builds the process logger from config.
func (c LoggerConfig) NewLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(c.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
