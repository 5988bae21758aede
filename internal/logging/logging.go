// Package logging builds the zerolog logger used for run lifecycle events.
// Logs go to stderr so stdout stays reserved for progress lines and reports.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Field names shared across packages.
const (
	FieldRunID    = "run_id"
	FieldFormat   = "format"
	FieldURL      = "url"
	FieldSent     = "sent"
	FieldReceived = "received"
	FieldTarget   = "target"
	FieldState    = "state"
)

// Config holds logger configuration.
type Config struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// New creates a logger writing to stderr.
func New(cfg Config) zerolog.Logger {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter creates a logger writing to w. Without JSON it uses a
// human-readable console writer.
func NewWithWriter(cfg Config, w io.Writer) zerolog.Logger {
	if w == nil {
		w = io.Discard
	}
	if !cfg.JSON {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly, NoColor: !isTerminal(w)}
	}
	return zerolog.New(w).Level(ParseLevel(cfg.Level)).With().Timestamp().Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off", "none":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
