package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// LevelTrace sits below slog's built-in Debug so wire-level chatter can be
// filtered independently.
const LevelTrace = slog.Level(-8)

// Logger is the five-level facade the hub and transport log through. Any
// implementation can be injected via Hub.SetLogger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Info(msg string, args ...any)
	Debug(msg string, args ...any)
	Trace(msg string, args ...any)
}

// Config controls the default slog-backed logger.
type Config struct {
	Level   string // trace|debug|info|warn|error
	Format  string // text|json
	Service string
	Version string
}

type slogLogger struct {
	l *slog.Logger
}

func (s slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }
func (s slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s slogLogger) Trace(msg string, args ...any) {
	s.l.Log(context.Background(), LevelTrace, msg, args...)
}

// NewLogger returns a structured logger with sane defaults.
func NewLogger(cfg Config) Logger {
	level := parseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	attrs := WithCommon(nil, cfg.Service, cfg.Version)
	for _, attr := range attrs {
		logger = logger.With(attr)
	}
	return slogLogger{l: logger}
}

// Discard returns a logger that drops everything; used in tests and as the
// fallback when a nil logger is injected.
func Discard() Logger {
	return slogLogger{l: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(127),
	}))}
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
