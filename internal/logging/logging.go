// Package logging installs the process-wide slog logger.
package logging

import (
	"log/slog"
	"os"
)

// Setup installs a slog default logger writing text records to stderr.
// Debug widens the level from the given base level to Debug.
func Setup(base slog.Level, debug bool) {
	level := base
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(h))
}
