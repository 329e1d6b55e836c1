package main

import (
	"io"
	"log/slog"
	"strings"

	"github.com/MatusOllah/slogcolor"
)

// parseLevel maps LOG_LEVEL to a slog level. ok is false for unknown values, which fall back to info.
func parseLevel(s string) (lvl slog.Level, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	case "info", "":
		return slog.LevelInfo, true
	default:
		return slog.LevelInfo, false
	}
}

// newLogHandler builds the handler for LOG_FORMAT: text (default), json or color.
func newLogHandler(w io.Writer, level slog.Level, format string) (slog.Handler, string) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}), "json"
	case "color", "colour", "pretty":
		opts := *slogcolor.DefaultOptions
		opts.Level = level
		return slogcolor.NewHandler(w, &opts), "color"
	default:
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}), "text"
	}
}
