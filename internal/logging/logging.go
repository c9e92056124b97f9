// Package logging configures the process-wide charmbracelet logger shared by
// both binaries.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// Setup installs a default logger at the given level. When file is non-empty
// output is written to the file as well as stdout; the returned closer must be
// called on shutdown.
func Setup(prefix, level, file string) io.Closer {
	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}

	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			log.Warn("log directory not writable, logging to stdout only", "file", file, "error", err)
		} else if f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err != nil {
			log.Warn("log file not writable, logging to stdout only", "file", file, "error", err)
		} else {
			out = io.MultiWriter(os.Stdout, f)
			closer = f
		}
	}

	logger := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		Prefix:          prefix,
		Level:           ParseLevel(level),
	})
	log.SetDefault(logger)

	return closer
}

// ParseLevel maps a textual level to a log.Level, defaulting to info.
func ParseLevel(level string) log.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return log.InfoLevel
	}
	return parsed
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
