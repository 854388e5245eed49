// Package utils provides logging and context helpers shared by the client,
// the assistant and the CLI.
package utils

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"disorder.dev/shandler"
)

// Level represents the severity level of a log message.
type Level int

const (
	// TraceLevel logs every wire message; noisier than debug.
	TraceLevel Level = iota - 1
	// DebugLevel logs are typically voluminous, and are usually disabled in production.
	DebugLevel
	// InfoLevel is the default logging priority.
	InfoLevel
	// WarnLevel logs are more important than Info, but don't need individual human review.
	WarnLevel
	// ErrorLevel logs are high-priority. If an application is running smoothly,
	// it shouldn't generate any error-level logs.
	ErrorLevel
	// FatalLevel only lets fatal messages through.
	FatalLevel
)

// Format selects the slog handler used for output.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseLevel maps a level name (trace, debug, info, warn, error, fatal) to a Level.
// Unknown names fall back to InfoLevel.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return TraceLevel
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "fatal":
		return FatalLevel
	default:
		return InfoLevel
	}
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case TraceLevel:
		return shandler.LevelTrace
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	case FatalLevel:
		return shandler.LevelFatal
	default:
		return slog.LevelInfo
	}
}

// SlogWrapper is a wrapper around slog that adds the trace level and
// per-context trace ids.
type SlogWrapper struct {
	logger *slog.Logger
}

// NewLogger creates a new SlogWrapper with the specified level, output and format.
// If output is nil, os.Stderr is used.
func NewLogger(level Level, output io.Writer, format Format) *SlogWrapper {
	if output == nil {
		output = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level.slogLevel()}

	var handler slog.Handler
	switch format {
	case FormatJSON:
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return &SlogWrapper{logger: slog.New(handler)}
}

// Slog returns the underlying structured logger.
func (l *SlogWrapper) Slog() *slog.Logger {
	return l.logger
}

// Trace logs a message at TraceLevel.
func (l *SlogWrapper) Trace(msg string, args ...any) {
	l.logger.Log(context.Background(), shandler.LevelTrace, msg, args...)
}

// Debug logs a message at DebugLevel.
func (l *SlogWrapper) Debug(msg string, args ...any) {
	l.logger.Debug(msg, args...)
}

// WithContext returns a logger tagged with the trace id carried by ctx, if any.
func (l *SlogWrapper) WithContext(ctx context.Context) *SlogWrapper {
	traceID := GetTraceId(ctx)
	if traceID == "" {
		return l
	}
	return l.WithField("trace_id", traceID)
}

// WithField returns a new logger with the provided field.
func (l *SlogWrapper) WithField(key string, value interface{}) *SlogWrapper {
	return &SlogWrapper{logger: l.logger.With(key, value)}
}

var defaultLogger atomic.Pointer[SlogWrapper]

func init() {
	defaultLogger.Store(NewLogger(InfoLevel, os.Stderr, FormatText))
}

// SetupDefault replaces the package default logger and installs it as the
// process-wide slog default, so slog.Info and friends use the same handler.
func SetupDefault(level Level, output io.Writer, format Format) *SlogWrapper {
	logger := NewLogger(level, output, format)
	defaultLogger.Store(logger)
	slog.SetDefault(logger.Slog())
	return logger
}

// GetLogger returns the default logger
func GetLogger() *SlogWrapper {
	return defaultLogger.Load()
}
