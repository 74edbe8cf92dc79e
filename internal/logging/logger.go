// Package logging builds the process logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type appNameHook struct {
	appName string
}

func (h *appNameHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *appNameHook) Fire(entry *logrus.Entry) error {
	entry.Message = "[" + h.appName + "] " + entry.Message
	return nil
}

// New returns a text logger writing to stdout. An unknown level falls back
// to info with a warning.
func New(appName, level string) *logrus.Logger {
	return NewWithOutput(appName, level, os.Stdout)
}

func NewWithOutput(appName, level string, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	levelStr := strings.ToLower(strings.TrimSpace(level))
	if levelStr == "" {
		levelStr = "info"
	}
	parsed, err := logrus.ParseLevel(levelStr)
	if err != nil {
		logger.Warnf("invalid LOG_LEVEL %q, defaulting to info", level)
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)

	if appName != "" {
		logger.AddHook(&appNameHook{appName: appName})
	}
	return logger
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
