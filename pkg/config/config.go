package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DetectorWatch = "watch"
	DetectorPoll  = "poll"
)

type Config struct {
	// Change detection
	Detector       string `yaml:"detector"`
	PollIntervalMS int    `yaml:"poll_interval_ms"`

	// Window
	WindowWidth  int `yaml:"window_width"`
	WindowHeight int `yaml:"window_height"`
	TargetFPS    int `yaml:"target_fps"`

	// Scene
	Grid                bool   `yaml:"grid"`
	GridSlices          int    `yaml:"grid_slices"`
	Background          string `yaml:"background"`
	BackgroundUnfocused string `yaml:"background_unfocused"`

	// Camera controls
	DragSensitivityX float32 `yaml:"drag_sensitivity_x"`
	DragSensitivityY float32 `yaml:"drag_sensitivity_y"`
	ZoomSensitivity  float32 `yaml:"zoom_sensitivity"`
	PanSensitivity   float32 `yaml:"pan_sensitivity"`

	// UI Settings
	ColorTheme string `yaml:"color_theme"`
	Quiet      bool   `yaml:"quiet"`

	// keys whose file value was rejected, in field order
	replaced []string
}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// DefaultConfig returns a Config struct with default values
func DefaultConfig() *Config {
	return &Config{
		Detector:            DetectorWatch,
		PollIntervalMS:      500,
		WindowWidth:         800,
		WindowHeight:        450,
		TargetFPS:           60,
		Grid:                true,
		GridSlices:          20,
		Background:          "#484848",
		BackgroundUnfocused: "#000000",
		DragSensitivityX:    0.004,
		DragSensitivityY:    0.006,
		ZoomSensitivity:     0.08,
		PanSensitivity:      0.004,
		ColorTheme:          "auto",
		Quiet:               false,
	}
}

// DefaultPath returns the config file location.
// Follows XDG Base Directory specification on Unix and uses AppData on Windows
func DefaultPath() (string, error) {
	// Check XDG_CONFIG_HOME first (Unix-like systems)
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "bricklayer", "config.yaml"), nil
	}

	// Check if we're on Windows by looking for APPDATA
	if appData := os.Getenv("APPDATA"); appData != "" {
		return filepath.Join(appData, "bricklayer", "config.yaml"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	// Fall back to ~/.config/bricklayer/config.yaml
	return filepath.Join(homeDir, ".config", "bricklayer", "config.yaml"), nil
}

// Load reads configuration from the specified file path
func Load(path string) (*Config, error) {
	// Start with default config
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		// If file doesn't exist, return default config (not an error)
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults replaces missing or invalid values with defaults and records
// every key it had to replace
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	c.replaced = nil

	replace := func(key string, invalid bool, apply func()) {
		if invalid {
			apply()
			c.replaced = append(c.replaced, key)
		}
	}

	replace("detector", c.Detector != DetectorWatch && c.Detector != DetectorPoll, func() { c.Detector = def.Detector })
	replace("poll_interval_ms", c.PollIntervalMS <= 0, func() { c.PollIntervalMS = def.PollIntervalMS })
	replace("window_width", c.WindowWidth <= 0, func() { c.WindowWidth = def.WindowWidth })
	replace("window_height", c.WindowHeight <= 0, func() { c.WindowHeight = def.WindowHeight })
	replace("target_fps", c.TargetFPS <= 0, func() { c.TargetFPS = def.TargetFPS })
	replace("grid_slices", c.GridSlices <= 0, func() { c.GridSlices = def.GridSlices })
	replace("background", !hexColor.MatchString(c.Background), func() { c.Background = def.Background })
	replace("background_unfocused", !hexColor.MatchString(c.BackgroundUnfocused), func() { c.BackgroundUnfocused = def.BackgroundUnfocused })
	replace("drag_sensitivity_x", c.DragSensitivityX <= 0, func() { c.DragSensitivityX = def.DragSensitivityX })
	replace("drag_sensitivity_y", c.DragSensitivityY <= 0, func() { c.DragSensitivityY = def.DragSensitivityY })
	replace("zoom_sensitivity", c.ZoomSensitivity <= 0, func() { c.ZoomSensitivity = def.ZoomSensitivity })
	replace("pan_sensitivity", c.PanSensitivity <= 0, func() { c.PanSensitivity = def.PanSensitivity })

	// An empty theme means "auto" and is not an error
	if c.ColorTheme == "" {
		c.ColorTheme = def.ColorTheme
	}
}

// Replaced lists the keys Load rejected and reset to their defaults.
// Callers that only need a working config can ignore it.
func (c *Config) Replaced() []string {
	return c.replaced
}

// PollInterval returns the polling cadence as a duration
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// Save persists the current configuration to the specified file path
func (c *Config) Save(path string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ParseHexColor converts "#rrggbb" to its components
func ParseHexColor(s string) (r, g, b uint8, err error) {
	if !hexColor.MatchString(s) {
		return 0, 0, 0, fmt.Errorf("invalid color %q: want #rrggbb", s)
	}
	var v uint32
	if _, err := fmt.Sscanf(s[1:], "%06x", &v); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v), nil
}
