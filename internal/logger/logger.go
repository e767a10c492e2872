package logger

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus entry so call sites can chain structured fields.
type Logger struct {
	*logrus.Entry
}

// New builds the process logger. Local environments get a colored text
// formatter; everything else logs JSON for ingestion.
func New() *Logger {
	base := logrus.New()

	env := os.Getenv("APP_ENV")
	if env == "" || env == "dev" || env == "local" {
		base.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	} else {
		base.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	}

	base.SetOutput(os.Stdout)

	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		base.SetLevel(logrus.DebugLevel)
	case "warn":
		base.SetLevel(logrus.WarnLevel)
	case "error":
		base.SetLevel(logrus.ErrorLevel)
	default:
		base.SetLevel(logrus.InfoLevel)
	}

	return &Logger{Entry: logrus.NewEntry(base)}
}

// WithExecution tags entries with the pipeline execution they belong to.
func (l *Logger) WithExecution(id string) *logrus.Entry {
	return l.WithField("execution_id", id)
}

// WithComponent tags entries with the emitting component.
func (l *Logger) WithComponent(name string) *logrus.Entry {
	return l.WithField("component", name)
}
