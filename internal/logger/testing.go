package logger

import (
	"io"

	"github.com/rs/zerolog"
)

// NewTestLogger returns a logger that discards everything below error.
func NewTestLogger() zerolog.Logger {
	return zerolog.New(io.Discard).Level(zerolog.ErrorLevel)
}

// NewBufferLogger writes debug-level JSON lines to w, for tests that assert on log output.
func NewBufferLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).Level(zerolog.DebugLevel)
}
