package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Timeout != 10*time.Second {
		t.Errorf("expected 10s timeout, got %v", cfg.Server.Timeout)
	}
	if cfg.Viewport.MinZoom != 0.87 || cfg.Viewport.MaxZoom != 2 {
		t.Errorf("unexpected zoom bounds %g..%g", cfg.Viewport.MinZoom, cfg.Viewport.MaxZoom)
	}
	if cfg.Layout.AnimationDuration != 750*time.Millisecond || cfg.Layout.Padding != 30 {
		t.Errorf("unexpected layout defaults %+v", cfg.Layout)
	}
	if cfg.Export.FileName != "graph.png" || cfg.Export.Scale != 1.5 || cfg.Export.Background != "#ffffff" {
		t.Errorf("unexpected export defaults %+v", cfg.Export)
	}
	if cfg.History.Limit != 50 {
		t.Errorf("expected history limit 50, got %d", cfg.History.Limit)
	}
	if !cfg.Watch.Enabled || cfg.Watch.Debounce != 200*time.Millisecond || cfg.Watch.PollInterval != 2*time.Second {
		t.Errorf("unexpected watch defaults %+v", cfg.Watch)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFrom_NonExistent(t *testing.T) {
	cfg, err := LoadFrom("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("expected default config, got %+v", cfg)
	}
}

func TestLoadFrom_PartialOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  base_url: http://localhost:8080
  timeout: 3s
layout:
  animate: false
viewport:
  max_zoom: 4
export:
  dir: ~/pictures
  file_name: canvas.svg
history:
  limit: 5
watch:
  debounce: 50ms
  force_poll: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Server.BaseURL != "http://localhost:8080" || cfg.Server.Timeout != 3*time.Second {
		t.Errorf("server section not applied: %+v", cfg.Server)
	}
	if cfg.Layout.Animate {
		t.Error("expected animate false")
	}
	if !cfg.Layout.Directed || cfg.Layout.SpacingFactor != 1.75 {
		t.Errorf("untouched layout keys lost their defaults: %+v", cfg.Layout)
	}
	if cfg.Viewport.MinZoom != 0.87 || cfg.Viewport.MaxZoom != 4 {
		t.Errorf("viewport = %+v", cfg.Viewport)
	}
	home, _ := os.UserHomeDir()
	if cfg.Export.Dir != filepath.Join(home, "pictures") {
		t.Errorf("export dir not expanded: %q", cfg.Export.Dir)
	}
	if cfg.History.Limit != 5 || cfg.Watch.Debounce != 50*time.Millisecond || !cfg.Watch.ForcePoll {
		t.Errorf("history/watch not applied: %+v %+v", cfg.History, cfg.Watch)
	}

	opts := cfg.CanvasOptions()
	if opts.HistoryLimit != 5 || opts.MaxZoom != 4 || opts.FileName != "canvas.svg" || opts.Layout.Animate {
		t.Errorf("CanvasOptions = %+v", opts)
	}
	ex := cfg.ExportOptions()
	if ex.FileName != "canvas.svg" || ex.Scale != 1.5 || ex.Dir != cfg.Export.Dir {
		t.Errorf("ExportOptions = %+v", ex)
	}
	if n := len(cfg.WatcherOptions()); n != 3 {
		t.Errorf("expected 3 watcher options, got %d", n)
	}
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad yaml", "layout: [unclosed", "parsing config"},
		{"bad duration", "server:\n  timeout: soon\n", "parsing config"},
		{"inverted zoom", "viewport:\n  min_zoom: 3\n  max_zoom: 1\n", "min_zoom"},
		{"zero history", "history:\n  limit: 0\n", "history.limit"},
		{"zero scale", "export:\n  scale: 0\n", "export.scale"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			cfg, err := LoadFrom(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
			if cfg != DefaultConfig() {
				t.Error("expected defaults alongside the error")
			}
		})
	}
}

func TestLoadFrom_Unreadable(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadFrom(dir); err == nil || !strings.Contains(err.Error(), "reading config") {
		t.Errorf("expected a read error for a directory, got %v", err)
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Server.LiveURL = "ws://localhost:8080/elements/live"
	cfg.Layout.AnimationDuration = 300 * time.Millisecond
	cfg.Watch.Enabled = false

	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "animation_duration: 300ms") {
		t.Errorf("durations should be written as strings:\n%s", data)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if loaded != cfg {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, cfg)
	}
}

func TestXDGOverrides(t *testing.T) {
	tests := []struct {
		env string
		fn  func() string
	}{
		{"XDG_CONFIG_HOME", ConfigDir},
		{"XDG_DATA_HOME", DataDir},
		{"XDG_STATE_HOME", StateDir},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv(tt.env, "/custom/xdg")
			if got := tt.fn(); got != "/custom/xdg/gcv" {
				t.Errorf("got %q", got)
			}
		})
	}

	t.Setenv("XDG_CONFIG_HOME", "/custom/xdg")
	if got := ConfigPath(); got != "/custom/xdg/gcv/config.yaml" {
		t.Errorf("ConfigPath = %q", got)
	}
}

func TestSaveLoad_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg := DefaultConfig()
	cfg.History.Limit = 7
	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.History.Limit != 7 {
		t.Errorf("expected limit 7, got %d", loaded.History.Limit)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandHome("~/graphs"); got != filepath.Join(home, "graphs") {
		t.Errorf("got %q", got)
	}
	if got := expandHome("/abs/graphs"); got != "/abs/graphs" {
		t.Errorf("absolute path changed: %q", got)
	}
}
