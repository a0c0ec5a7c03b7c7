package util

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the process logger at the requested level, falling back to
// info when the level string is unknown.
func NewLogger(level string) zerolog.Logger {
	return newLogger(os.Stdout, level)
}

// NewConsoleLogger is NewLogger with human-readable output for the
// interactive binaries.
func NewConsoleLogger(level string) zerolog.Logger {
	return newLogger(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}, level)
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(lvl)
}
