package logging

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// logrusLogger adapts a logrus entry to Logger.
type logrusLogger struct {
	entry *logrus.Entry
}

// NewLogrus returns a JSON logger writing to w at the given level
// (debug, info, warn, error). Unknown levels fall back to info.
func NewLogrus(w io.Writer, level string) Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.JSONFormatter{})
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

func (l *logrusLogger) Debug(msg string, ctx Fields) { l.entry.WithFields(logrus.Fields(ctx)).Debug(msg) }
func (l *logrusLogger) Info(msg string, ctx Fields)  { l.entry.WithFields(logrus.Fields(ctx)).Info(msg) }
func (l *logrusLogger) Warn(msg string, ctx Fields)  { l.entry.WithFields(logrus.Fields(ctx)).Warn(msg) }
func (l *logrusLogger) Error(msg string, ctx Fields) { l.entry.WithFields(logrus.Fields(ctx)).Error(msg) }
