// Package obslog builds the root logger shared by every component that
// needs to log a caught per-event error (DuplicateOrderId, UnknownOrderId,
// VarianceNonPositive, ...). Components take a zerolog.Logger field set at
// construction, following 0xtitan6-polymarket-mm's injected-logger
// convention rather than a package-level global.
package obslog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New builds a logger. pretty selects a human-readable console writer
// (for interactive use); otherwise emits line-delimited JSON, suitable for
// batch/production runs.
func New(w io.Writer, pretty bool) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000"}
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

// Nop returns a logger that discards everything, for tests and library
// callers that don't want diagnostics.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
