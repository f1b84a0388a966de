package logger

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

type Logger struct {
	entry *logrus.Entry
}

type Config struct {
	Out    io.Writer
	Level  string
	Format string
}

func New(conf Config) (*Logger, error) {
	l := logrus.New()

	if conf.Out != nil {
		l.SetOutput(conf.Out)
	}

	level := logrus.InfoLevel

	if conf.Level != "" {
		parsed, err := logrus.ParseLevel(conf.Level)
		if err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", conf.Level, err)
		}

		level = parsed
	}

	l.SetLevel(level)

	switch strings.ToLower(conf.Format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		//nolint:exhaustruct
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown log format %q", conf.Format)
	}

	return &Logger{entry: logrus.NewEntry(l)}, nil
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)

	return &Logger{entry: logrus.NewEntry(l)}
}

func (l *Logger) With(key string, value any) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

func (l *Logger) LogErrorf(format string, v ...any) {
	l.entry.Errorf(format, v...)
}

func (l *Logger) LogWarnf(format string, v ...any) {
	l.entry.Warnf(format, v...)
}

func (l *Logger) LogInfo(format string, v ...any) {
	l.entry.Infof(format, v...)
}

func (l *Logger) LogDebugf(format string, v ...any) {
	l.entry.Debugf(format, v...)
}

// ErrorWriter logs every written line at error level. The caller closes it.
func (l *Logger) ErrorWriter() *io.PipeWriter {
	return l.entry.WriterLevel(logrus.ErrorLevel)
}
