// FILE: logging.go
// Package main – Structured logger construction.

package main

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// newLogger builds a JSON logger at the given level; unknown levels fall back to info.
func newLogger(level string) zerolog.Logger {
	return newLoggerTo(os.Stdout, level)
}

func newLoggerTo(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(lvl)
}
