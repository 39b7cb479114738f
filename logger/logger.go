package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log is the process wide logger. It is usable before Init so library code
// and tests never see a nil logger.
var Log = logrus.New()

// Init configures Log from LOG_LEVEL and LOG_FORMAT. Call it once from main.
func Init() {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	Configure(level, os.Getenv("LOG_FORMAT"), os.Stderr)
}

// Configure applies an explicit level and format ("json" or "text"). An
// unknown level falls back to info.
func Configure(level, format string, out io.Writer) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	if strings.ToLower(format) == "json" {
		Log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if out != nil {
		Log.SetOutput(out)
	}
}

// Or returns l, or Log when l is nil.
func Or(l logrus.FieldLogger) logrus.FieldLogger {
	if l == nil {
		return Log
	}
	return l
}
