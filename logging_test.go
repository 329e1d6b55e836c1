package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"", slog.LevelInfo, true},
		{"DEBUG", slog.LevelDebug, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"verbose", slog.LevelInfo, false},
	}
	for _, tt := range tests {
		got, ok := parseLevel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseLevel(%q) = %v,%v want %v,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNewLogHandlerFormats(t *testing.T) {
	var buf bytes.Buffer
	h, name := newLogHandler(&buf, slog.LevelInfo, "JSON")
	if name != "json" {
		t.Fatalf("format = %q", name)
	}
	slog.New(h).Info("hello", slog.String("k", "v"))
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil || rec["k"] != "v" {
		t.Errorf("json output = %q", buf.String())
	}

	buf.Reset()
	h, name = newLogHandler(&buf, slog.LevelWarn, "")
	slog.New(h).Info("dropped")
	slog.New(h).Warn("kept")
	if name != "text" || strings.Contains(buf.String(), "dropped") || !strings.Contains(buf.String(), "kept") {
		t.Errorf("text handler (%s) output = %q", name, buf.String())
	}

	buf.Reset()
	h, name = newLogHandler(&buf, slog.LevelInfo, "color")
	slog.New(h).Info("colored")
	if name != "color" || !strings.Contains(buf.String(), "colored") {
		t.Errorf("color handler (%s) output = %q", name, buf.String())
	}
}
