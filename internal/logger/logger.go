// Package logger provides the process-wide structured logger used by the
// numerical packages to surface warnings (constellation fallbacks,
// fixed-point non-convergence, clamped results) without failing a call.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var logger zerolog.Logger

func init() {
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
}

// Logger returns the shared logger.
func Logger() zerolog.Logger {
	return logger
}

// SetOutput redirects the shared logger to w.
func SetOutput(w io.Writer) {
	logger = logger.Output(w)
}

// Disable silences the shared logger.
func Disable() {
	logger = zerolog.Nop()
}
