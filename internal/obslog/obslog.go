// Package obslog sets up this module's one structured logger. No pack
// example imports a third-party logging library (grepped across all seven
// go.mod files), so this is the one ambient concern this module builds on
// the standard library rather than the ecosystem, per the grounding ledger.
package obslog

import (
	"log/slog"
	"os"
)

// New builds a text-handler logger writing to stderr. debug widens the
// level from Info to Debug, the shape cmd/purc's -debug flag uses.
func New(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
