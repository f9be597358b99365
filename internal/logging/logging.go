// Package logging constructs the updater's structured logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// New creates a [log.Logger] writing to w with timestamps enabled.
// format is "json" or "text"; level is any level name [log.ParseLevel] accepts.
// Unknown levels fall back to info.
//
// The writer defaults to [os.Stderr].
func New(w io.Writer, level, format string) *log.Logger {
	if w == nil {
		w = os.Stderr
	}

	opts := log.Options{ReportTimestamp: true, Level: log.InfoLevel}
	if lvl, err := log.ParseLevel(level); err == nil {
		opts.Level = lvl
	}
	if strings.EqualFold(format, "json") {
		opts.Formatter = log.JSONFormatter
	}

	return log.NewWithOptions(w, opts)
}
