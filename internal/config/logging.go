package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// ParseLogLevel parses a log level string. "off" and "none" disable
// logging; unknown values fall back to error.
func ParseLogLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none", "disabled":
		return zerolog.Disabled
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.ErrorLevel
	}
}

// Logger is a zerolog logger writing JSON lines to a file. Without a file
// or with the level off it discards everything.
type Logger struct {
	zerolog.Logger

	mu       sync.Mutex
	file     *os.File
	filePath string
}

// NewLogger opens filePath for appending and returns a logger at level.
func NewLogger(level, filePath string) (*Logger, error) {
	lvl := ParseLogLevel(level)
	if lvl == zerolog.Disabled || filePath == "" {
		return NullLogger(), nil
	}

	filePath = ExpandHome(filePath)
	if err := os.MkdirAll(filepath.Dir(filePath), 0o750); err != nil {
		return nil, err
	}

	// #nosec G304 -- log file path is from validated config
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	return &Logger{
		Logger:   newZerolog(f, lvl),
		file:     f,
		filePath: filePath,
	}, nil
}

// NewWriterLogger logs to w, for tests and for --verbose console output.
func NewWriterLogger(w io.Writer, level string) *Logger {
	return &Logger{Logger: newZerolog(w, ParseLogLevel(level))}
}

func newZerolog(w io.Writer, lvl zerolog.Level) zerolog.Logger {
	return zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

// Component returns a sub-logger tagged with a component field.
func (l *Logger) Component(name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

// Path returns the log file path, or "" when not logging to a file.
func (l *Logger) Path() string {
	return l.filePath
}

// Close closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.Logger = zerolog.Nop()
	return err
}

// NullLogger returns a logger that discards all output.
func NullLogger() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}
