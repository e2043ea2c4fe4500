// Package logger builds the zerolog loggers used across viewdef.
package logger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"

	permission = 0o664
)

// ErrInvalidLevel indicates an unknown log level name.
var ErrInvalidLevel = errors.New("log.level must be one of trace, debug, info, warn, error, disabled")

// Config selects level, encoding and destination. Output is "stdout",
// "stderr" or a file path opened for appending.
type Config struct {
	Level  string
	Format string
	Output string
}

// ParseLevel maps a level name to a zerolog level. Empty means info.
func ParseLevel(s string) (zerolog.Level, error) {
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.NoLevel, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
	}
	return lvl, nil
}

// New returns a logger for cfg and a function releasing its output.
func New(cfg Config) (zerolog.Logger, func() error, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), nil, err
	}

	var (
		w       io.Writer
		closeFn = func() error { return nil }
	)
	switch cfg.Output {
	case "", "stderr":
		w = os.Stderr
	case "stdout":
		w = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
		}
		w = zerolog.SyncWriter(f)
		closeFn = f.Close
	}

	return FromWriter(w, cfg.Format, lvl), closeFn, nil
}

// FromWriter builds a timestamped logger on w.
func FromWriter(w io.Writer, format string, lvl zerolog.Level) zerolog.Logger {
	if format == FormatConsole {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05", NoColor: w != os.Stderr && w != os.Stdout}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
