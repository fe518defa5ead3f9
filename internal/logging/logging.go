// Package logging builds the zerolog logger shared by every component.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for the log file.
const (
	MaxSizeMB  = 10
	MaxBackups = 3
	MaxAgeDays = 28
)

// Options selects where and how much to log.
type Options struct {
	// Level is a zerolog level name ("debug", "info", "warn", ...).
	// Empty means info.
	Level string

	// File, when set, receives JSON logs through a rotating writer.
	File string

	// Console, when set, receives human-readable logs.
	Console io.Writer
}

// Logger is the built logger plus the resources it owns.
type Logger struct {
	zerolog.Logger
	file *lumberjack.Logger
}

// New builds a logger. With neither File nor Console set, logs are discarded.
func New(opts Options) (*Logger, error) {
	level := zerolog.InfoLevel
	if s := strings.TrimSpace(opts.Level); s != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(s))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	var (
		writers []io.Writer
		file    *lumberjack.Logger
	)

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    MaxSizeMB,
			MaxBackups: MaxBackups,
			MaxAge:     MaxAgeDays,
			Compress:   true,
		}
		writers = append(writers, file)
	}

	if opts.Console != nil {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        opts.Console,
			TimeFormat: time.Kitchen,
		})
	}

	var out io.Writer
	switch len(writers) {
	case 0:
		return &Logger{Logger: zerolog.Nop()}, nil
	case 1:
		out = writers[0]
	default:
		out = zerolog.MultiLevelWriter(writers...)
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return &Logger{Logger: logger, file: file}, nil
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
