// Package kutil holds the ambient plumbing every module of this kernel
// shares: structured logging and configuration loading, grounded on the
// teacher's utils package (utils/logger.go, utils/modulo.go).
package kutil

import (
	"log/slog"
	"os"
)

// NewLogger builds a structured logger tagged with moduleName, mirroring
// utils.InicializarLogger's level-string switch and module tag but
// returning the logger instead of stashing it in package-level globals —
// the kernel-context redesign (spec.md §9) passes *slog.Logger explicitly
// the same way it passes *Kernel.
func NewLogger(levelName, moduleName string) *slog.Logger {
	level := parseLevel(levelName)
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("module", moduleName)
}

func parseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
