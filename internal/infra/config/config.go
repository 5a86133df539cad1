package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken     string
	DatabaseURL       string
	LogLevel          string
	Environment       string
	CronSpecPoll      string // cadence of the notification poll
	ReferenceTimezone string // IANA zone all user offsets are relative to
	PhaseAdvanceTime  string // local HH:MM at which "phase approaching" checks run
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	cfg.CronSpecPoll = os.Getenv("CRON_SPEC_NOTIFICATION_POLL")
	if cfg.CronSpecPoll == "" {
		cfg.CronSpecPoll = "* * * * *" // Default: every minute, matching user HH:MM times
	}

	cfg.ReferenceTimezone = os.Getenv("REFERENCE_TIMEZONE")
	if cfg.ReferenceTimezone == "" {
		cfg.ReferenceTimezone = "Europe/Moscow"
	}

	cfg.PhaseAdvanceTime = os.Getenv("PHASE_ADVANCE_TIME")
	if cfg.PhaseAdvanceTime == "" {
		cfg.PhaseAdvanceTime = "15:00"
	}

	return cfg, nil
}
