package logging

import (
	"log/slog"
	"testing"
)

func TestNewManagerDefaultLevel(t *testing.T) {
	m, logger := NewManager(Config{})
	t.Cleanup(func() { _ = m.Close() })

	if logger == nil {
		t.Fatal("expected logger")
	}
	if !logger.Enabled(t.Context(), slog.LevelInfo) {
		t.Error("info should be enabled by default")
	}
	if logger.Enabled(t.Context(), slog.LevelDebug) {
		t.Error("debug should be disabled by default")
	}
}

func TestReconfigureLevel(t *testing.T) {
	m, logger := NewManager(Config{Level: "info", Format: "text"})
	t.Cleanup(func() { _ = m.Close() })

	m.Reconfigure(Config{Level: "debug", Format: "text"})
	if !logger.Enabled(t.Context(), slog.LevelDebug) {
		t.Error("debug should be enabled after reconfigure")
	}

	m.Reconfigure(Config{Level: "error", Format: "text"})
	if logger.Enabled(t.Context(), slog.LevelWarn) {
		t.Error("warn should be disabled at error level")
	}
}

func TestConfigSnapshot(t *testing.T) {
	m, _ := NewManager(Config{Level: "warn", Format: "json"})
	t.Cleanup(func() { _ = m.Close() })

	got := m.Config()
	if got.Level != "warn" || got.Format != "json" {
		t.Errorf("Config() = %+v", got)
	}
}
