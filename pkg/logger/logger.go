// Package logger builds the zerolog logger used across wordcard.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/japaniel/wordcard/pkg/config"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Format selects how log lines are written.
type Format int

const (
	FormatConsole Format = iota
	FormatJSON
	FormatText
)

// ParseFormat maps a config value to a Format, console by default.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON
	case "text":
		return FormatText
	default:
		return FormatConsole
	}
}

// Builder assembles a logger from configuration.
type Builder struct {
	cfg    config.LogConfig
	stderr io.Writer
}

// NewBuilder returns a Builder for cfg writing console output to stderr.
func NewBuilder(cfg config.LogConfig) *Builder {
	return &Builder{cfg: cfg, stderr: os.Stderr}
}

// WithConsole redirects console output, mostly for tests.
func (b *Builder) WithConsole(w io.Writer) *Builder {
	b.stderr = w
	return b
}

// Build creates the logger. A configured log file is rotated with lumberjack.
func (b *Builder) Build() (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if b.cfg.LogLevel != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(b.cfg.LogLevel))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level: %w", err)
		}
		level = l
	}
	format := ParseFormat(b.cfg.LogFormat)

	writers := []io.Writer{consoleWriter(b.stderr, format, false)}
	if b.cfg.LogFile != "" {
		fw, err := b.fileWriter(format)
		if err != nil {
			return zerolog.Nop(), err
		}
		writers = append(writers, fw)
	}

	return zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger(), nil
}

func (b *Builder) fileWriter(format Format) (io.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(b.cfg.LogFile), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	maxSize := b.cfg.MaxLogSizeMB
	if maxSize <= 0 {
		maxSize = config.DefaultMaxLogSizeMB
	}
	maxBackups := b.cfg.MaxLogBackups
	if maxBackups <= 0 {
		maxBackups = config.DefaultMaxLogBackups
	}
	lj := &lumberjack.Logger{
		Filename:   b.cfg.LogFile,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		LocalTime:  true,
	}
	// Files never get color codes.
	return consoleWriter(lj, format, true), nil
}

func consoleWriter(out io.Writer, format Format, noColor bool) io.Writer {
	switch format {
	case FormatJSON:
		return out
	case FormatText:
		return zerolog.ConsoleWriter{Out: out, NoColor: true, TimeFormat: "2006-01-02 15:04:05"}
	default:
		return zerolog.ConsoleWriter{Out: out, NoColor: noColor, TimeFormat: "15:04:05"}
	}
}

// New builds a logger from cfg.
func New(cfg config.LogConfig) (zerolog.Logger, error) {
	return NewBuilder(cfg).Build()
}
