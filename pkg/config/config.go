// Package config handles loading and saving taxview configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config: ~/.config/taxview/config.yaml
//   - State:  ~/.local/state/taxview/ (debug logs)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const appName = "taxview"

// DataConfig locates the pipeline artifacts.
type DataConfig struct {
	Dir  string `yaml:"dir,omitempty"`  // searched when Data/Rich are empty
	Data string `yaml:"data,omitempty"` // cluster_data.json path or URL
	Rich string `yaml:"rich,omitempty"` // cluster_data_rich.json path or URL; "-" disables
}

// ViewConfig holds initial view settings.
type ViewConfig struct {
	Threshold   int  `yaml:"threshold"`              // purity slider, 0-100
	DetailsOpen bool `yaml:"details_open,omitempty"` // start with the details pane shown
}

// ExportConfig controls image export.
type ExportConfig struct {
	Dir    string `yaml:"dir,omitempty"`
	Format string `yaml:"format,omitempty"` // png or svg
	Width  int    `yaml:"width,omitempty"`  // viewport pixels
	Height int    `yaml:"height,omitempty"`
}

// SearchConfig caps the suggestion list.
type SearchConfig struct {
	MaxCategories int `yaml:"max_categories,omitempty"`
	MaxClusters   int `yaml:"max_clusters,omitempty"`
	MaxTotal      int `yaml:"max_total,omitempty"`
}

// WatchConfig controls --watch reloading.
type WatchConfig struct {
	Enabled      bool          `yaml:"enabled,omitempty"`
	Debounce     time.Duration `yaml:"debounce,omitempty"`
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`
}

// Config is the top-level configuration.
type Config struct {
	Data   DataConfig   `yaml:"data,omitempty"`
	View   ViewConfig   `yaml:"view"`
	Export ExportConfig `yaml:"export,omitempty"`
	Search SearchConfig `yaml:"search,omitempty"`
	Watch  WatchConfig  `yaml:"watch,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Data: DataConfig{Dir: "outputs"},
		View: ViewConfig{Threshold: 0, DetailsOpen: true},
		Export: ExportConfig{
			Dir:    ".",
			Format: "png",
			Width:  1600,
			Height: 900,
		},
		Search: SearchConfig{MaxCategories: 5, MaxClusters: 8, MaxTotal: 10},
		Watch: WatchConfig{
			Debounce:     200 * time.Millisecond,
			PollInterval: 2 * time.Second,
		},
	}
}

// ConfigDir returns the XDG config directory for taxview.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName)
}

// StateDir returns the XDG state directory for taxview.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", appName)
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

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
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
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Data.Dir = expandHome(cfg.Data.Dir)
	cfg.Data.Data = expandHome(cfg.Data.Data)
	cfg.Data.Rich = expandHome(cfg.Data.Rich)
	cfg.Export.Dir = expandHome(cfg.Export.Dir)

	return cfg, cfg.Validate()
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
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

// Validate rejects values the application cannot use.
func (c Config) Validate() error {
	if c.View.Threshold < 0 || c.View.Threshold > 100 {
		return fmt.Errorf("view.threshold must be within 0-100, got %d", c.View.Threshold)
	}
	switch strings.ToLower(c.Export.Format) {
	case "", "png", "svg":
	default:
		return fmt.Errorf("export.format must be png or svg, got %q", c.Export.Format)
	}
	if c.Export.Width < 0 || c.Export.Height < 0 {
		return fmt.Errorf("export size must be positive, got %dx%d", c.Export.Width, c.Export.Height)
	}
	if c.Watch.Debounce < 0 || c.Watch.PollInterval < 0 {
		return fmt.Errorf("watch intervals must not be negative")
	}
	return nil
}

// RichDisabled reports whether breakdown loading was switched off.
func (d DataConfig) RichDisabled() bool { return d.Rich == "-" }

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
