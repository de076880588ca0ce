// Package logging builds the zerolog loggers used across the command line.
package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	Level string // debug, info, warn, error
	JSON  bool
}

// New returns a logger writing to w. Unknown levels fall back to info.
// Console output is used unless JSON is set.
func New(w io.Writer, cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339

	out := w
	if !cfg.JSON {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05", NoColor: true}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
