package logger

import (
	"os"
	"strings"

	"cycle_tracker_bot/internal/infra/config"

	"github.com/sirupsen/logrus"
)

// Log is the shared logger; components derive contextual entries from it via
// WithField.
var Log = logrus.New()

// Init configures level and format from the application configuration. JSON
// output in production and staging, colored text elsewhere.
func Init(cfg *config.AppConfig) {
	Log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		Log.Warnf("Unknown log level %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	Log.SetLevel(level)

	switch strings.ToLower(cfg.Environment) {
	case "production", "staging":
		Log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	default:
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			ForceColors:     true,
		})
	}

	Log.WithFields(logrus.Fields{
		"level":       Log.GetLevel().String(),
		"environment": cfg.Environment,
	}).Info("Logger configured")
}

// Get returns the configured shared logger.
func Get() *logrus.Logger {
	return Log
}
