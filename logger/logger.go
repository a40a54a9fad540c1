package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type Logger struct {
	service  string
	hostname string
	handler  *slog.Logger
}

func New(service, level string) *Logger {
	return NewWithWriter(service, level, os.Stdout)
}

func NewWithWriter(service, level string, w io.Writer) *Logger {
	hostname, _ := os.Hostname()

	handler := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLevel(level),
	}))

	return &Logger{
		service:  service,
		hostname: hostname,
		handler:  handler,
	}
}

// Discard is used by tests that don't care about log output
func Discard() *Logger {
	return NewWithWriter("test", "error", io.Discard)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *Logger) base(action, requestID string) []slog.Attr {
	return []slog.Attr{
		slog.String("service", l.service),
		slog.String("hostname", l.hostname),
		slog.String("action", action),
		slog.String("request_id", requestID),
	}
}

func (l *Logger) Info(action, requestID, message string, attrs ...slog.Attr) {
	l.handler.LogAttrs(context.Background(), slog.LevelInfo, message, append(l.base(action, requestID), attrs...)...)
}

func (l *Logger) Debug(action, requestID, message string, attrs ...slog.Attr) {
	l.handler.LogAttrs(context.Background(), slog.LevelDebug, message, append(l.base(action, requestID), attrs...)...)
}

func (l *Logger) Warn(action, requestID, message string, attrs ...slog.Attr) {
	l.handler.LogAttrs(context.Background(), slog.LevelWarn, message, append(l.base(action, requestID), attrs...)...)
}

func (l *Logger) Error(action, requestID, message string, err error, attrs ...slog.Attr) {
	all := l.base(action, requestID)
	if err != nil {
		all = append(all, slog.String("error", err.Error()))
	}
	l.handler.LogAttrs(context.Background(), slog.LevelError, message, append(all, attrs...)...)
}
