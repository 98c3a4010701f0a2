package obs

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	loggerMu sync.RWMutex
	logger   = newLogger(LogOptions{})
)

// LogOptions configures the process logger.
type LogOptions struct {
	Level  string // trace|debug|info|warning|error
	Format string // json|text
	Output io.Writer
}

// InitLogger replaces the shared logger.
func InitLogger(opts LogOptions) *logrus.Logger {
	l := newLogger(opts)
	loggerMu.Lock()
	logger = l
	loggerMu.Unlock()
	return l
}

// Logger returns the shared structured logger used across the service.
func Logger() *logrus.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

func newLogger(opts LogOptions) *logrus.Logger {
	l := logrus.New()
	level, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(opts.Level)))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	if strings.EqualFold(opts.Format, "text") {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	if opts.Output != nil {
		l.SetOutput(opts.Output)
	} else {
		l.SetOutput(os.Stdout)
	}
	return l
}

// LogRequest emits one entry per served HTTP request.
func LogRequest(fields logrus.Fields) {
	entry := Logger().WithFields(fields)
	status, _ := fields["status"].(int)
	switch {
	case status >= 500:
		entry.Error("request_complete")
	case status >= 400:
		entry.Warn("request_complete")
	default:
		entry.Info("request_complete")
	}
}
