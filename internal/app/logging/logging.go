package logging

import (
	"strings"

	"github.com/sirupsen/logrus"

	"portal/internal/app/config"
)

// Setup configures the standard logrus logger and returns it. An unknown
// level falls back to info.
func Setup(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.StandardLogger()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}
