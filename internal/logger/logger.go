package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New builds the process logger. LOG_LEVEL picks the level (default info) and
// LOG_FORMAT=text switches from JSON to the human-readable formatter.
func New() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	configure(l, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	return l
}

func configure(l *logrus.Logger, level, format string) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		l.SetFormatter(&logrus.JSONFormatter{})
	}

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
}
