// Package config handles loading and saving gcv configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/gcv/config.yaml
//   - Data:    ~/.local/share/gcv/ (graph stores)
//   - State:   ~/.local/state/gcv/ (debug logs)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/graphcanvas/pkg/canvas"
	"github.com/vanderheijden86/graphcanvas/pkg/export"
	"github.com/vanderheijden86/graphcanvas/pkg/layout"
	"github.com/vanderheijden86/graphcanvas/pkg/watcher"
)

const appName = "gcv"

// ServerConfig points the canvas at a node server.
type ServerConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	LiveURL string        `yaml:"live_url"` // websocket feed of the parent elements
}

type LayoutConfig struct {
	Directed          bool          `yaml:"directed"`
	Animate           bool          `yaml:"animate"`
	AnimationDuration time.Duration `yaml:"animation_duration"`
	Padding           float64       `yaml:"padding"`
	ComponentSpacing  float64       `yaml:"component_spacing"`
	NodeOverlap       float64       `yaml:"node_overlap"`
	SpacingFactor     float64       `yaml:"spacing_factor"`
	Refresh           int           `yaml:"refresh"`
	Fit               bool          `yaml:"fit"`
	IncludeLabels     bool          `yaml:"include_labels"`
}

type ViewportConfig struct {
	MinZoom float64 `yaml:"min_zoom"`
	MaxZoom float64 `yaml:"max_zoom"`
}

type ExportConfig struct {
	Dir        string  `yaml:"dir"`
	FileName   string  `yaml:"file_name"`
	Scale      float64 `yaml:"scale"`
	Background string  `yaml:"background"`
}

type HistoryConfig struct {
	Limit int `yaml:"limit"`
}

// WatchConfig controls reloading the elements file when it changes.
type WatchConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Debounce     time.Duration `yaml:"debounce"`
	PollInterval time.Duration `yaml:"poll_interval"`
	ForcePoll    bool          `yaml:"force_poll"`
}

// Config is the top-level configuration for gcv.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Layout   LayoutConfig   `yaml:"layout"`
	Viewport ViewportConfig `yaml:"viewport"`
	Export   ExportConfig   `yaml:"export"`
	History  HistoryConfig  `yaml:"history"`
	Watch    WatchConfig    `yaml:"watch"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	lo := layout.DefaultOptions()
	return Config{
		Server: ServerConfig{Timeout: 10 * time.Second},
		Layout: LayoutConfig{
			Directed:          lo.Directed,
			Animate:           lo.Animate,
			AnimationDuration: lo.AnimationDuration,
			Padding:           lo.Padding,
			ComponentSpacing:  lo.ComponentSpacing,
			NodeOverlap:       lo.NodeOverlap,
			SpacingFactor:     lo.SpacingFactor,
			Refresh:           lo.Refresh,
			Fit:               lo.Fit,
			IncludeLabels:     lo.IncludeLabels,
		},
		Viewport: ViewportConfig{MinZoom: layout.DefaultMinZoom, MaxZoom: layout.DefaultMaxZoom},
		Export: ExportConfig{
			Dir:        ".",
			FileName:   export.DefaultFileName,
			Scale:      export.DefaultScale,
			Background: export.DefaultBackground,
		},
		History: HistoryConfig{Limit: 50},
		Watch: WatchConfig{
			Enabled:      true,
			Debounce:     watcher.DefaultDebounceDuration,
			PollInterval: watcher.DefaultPollInterval,
		},
	}
}

// ConfigDir returns the XDG config directory for gcv.
func ConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DataDir returns the XDG data directory for gcv.
func DataDir() string {
	return xdgDir("XDG_DATA_HOME", ".local", "share")
}

// StateDir returns the XDG state directory for gcv.
func StateDir() string {
	return xdgDir("XDG_STATE_HOME", ".local", "state")
}

func xdgDir(env string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(append(append([]string{home}, fallback...), appName)...)
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path. Keys absent from the file keep
// their defaults. Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return DefaultConfig(), fmt.Errorf("parsing config: %w", err)
	}

	cfg.Export.Dir = expandHome(cfg.Export.Dir)
	return cfg, nil
}

// Validate rejects values the canvas cannot work with.
func (c Config) Validate() error {
	switch {
	case c.Viewport.MinZoom <= 0 || c.Viewport.MaxZoom < c.Viewport.MinZoom:
		return fmt.Errorf("viewport: need 0 < min_zoom <= max_zoom, got %g..%g", c.Viewport.MinZoom, c.Viewport.MaxZoom)
	case c.History.Limit < 1:
		return fmt.Errorf("history.limit must be at least 1, got %d", c.History.Limit)
	case c.Export.Scale <= 0:
		return fmt.Errorf("export.scale must be positive, got %g", c.Export.Scale)
	case c.Server.Timeout < 0:
		return fmt.Errorf("server.timeout must not be negative")
	}
	return nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// LayoutOptions converts the layout section.
func (c Config) LayoutOptions() layout.Options {
	l := c.Layout
	return layout.Options{
		Directed:          l.Directed,
		Padding:           l.Padding,
		ComponentSpacing:  l.ComponentSpacing,
		NodeOverlap:       l.NodeOverlap,
		SpacingFactor:     l.SpacingFactor,
		IncludeLabels:     l.IncludeLabels,
		Fit:               l.Fit,
		Animate:           l.Animate,
		AnimationDuration: l.AnimationDuration,
		Refresh:           l.Refresh,
	}
}

// CanvasOptions builds the canvas options from the layout, viewport,
// history and export sections.
func (c Config) CanvasOptions() canvas.Options {
	opts := canvas.DefaultOptions()
	opts.Layout = c.LayoutOptions()
	opts.MinZoom = c.Viewport.MinZoom
	opts.MaxZoom = c.Viewport.MaxZoom
	opts.HistoryLimit = c.History.Limit
	if c.Export.FileName != "" {
		opts.FileName = c.Export.FileName
	}
	return opts
}

// ExportOptions builds the image export options.
func (c Config) ExportOptions() export.Options {
	opts := export.DefaultOptions()
	opts.Dir = c.Export.Dir
	if c.Export.FileName != "" {
		opts.FileName = c.Export.FileName
	}
	opts.Scale = c.Export.Scale
	opts.Background = c.Export.Background
	opts.Layout = c.LayoutOptions()
	return opts
}

// WatcherOptions builds the file watcher options.
func (c Config) WatcherOptions() []watcher.Option {
	return []watcher.Option{
		watcher.WithDebounce(c.Watch.Debounce),
		watcher.WithPollInterval(c.Watch.PollInterval),
		watcher.WithForcePoll(c.Watch.ForcePoll),
	}
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
