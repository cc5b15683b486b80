// Package logging builds the structured logger shared by the commands.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Init returns a human-readable console logger on stderr. level is parsed
// with zerolog.ParseLevel and falls back to info.
func Init(level string) zerolog.Logger {
	return InitWriter(os.Stderr, level)
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: noColor()}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

func noColor() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}
