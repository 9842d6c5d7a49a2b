// Package logger builds the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New returns a JSON logger. An empty or unknown level falls back to debug in
// development and info elsewhere.
func New(env, level string) zerolog.Logger {
	return NewWithWriter(os.Stdout, env, level)
}

func NewWithWriter(w io.Writer, env, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	if env == "development" || env == "dev" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: true}
	}
	l := zerolog.New(w).With().Timestamp().Logger()
	return l.Level(parseLevel(env, level))
}

// SetDefault installs l as the global logger and as the fallback for
// zerolog.Ctx on contexts that carry no logger.
func SetDefault(l zerolog.Logger) {
	log.Logger = l
	zerolog.DefaultContextLogger = &l
}

func parseLevel(env, level string) zerolog.Level {
	if lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level))); err == nil && level != "" {
		return lvl
	}
	if env == "development" || env == "dev" {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}
