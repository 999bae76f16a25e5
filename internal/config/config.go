// Package config holds the lkdemo tool's configuration: which ports to
// open and the LED color palette the potentiometer sweep runs through.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the demo configuration. Empty port names fall back to the
// library's defaults for the hardware.
type Config struct {
	KeyboardPort    string  `json:"keyboard_port"`
	ControlPort     string  `json:"control_port"`
	OutputPort      string  `json:"output_port"`
	AlwaysInControl bool    `json:"always_in_control"`
	Palette         []uint8 `json:"palette"`
}

// DefaultPalette is the red/green gradient the demo sweeps through, ordered
// dark-to-bright so adjacent potentiometer values give adjacent colors.
func DefaultPalette() []uint8 {
	return []uint8{
		1, 2, 3, 5, 6, 7, 9, 10, 11, 13, 14, 15,
		19, 23, 27, 31, 35, 39, 43, 47, 51, 55, 59, 63,
		18, 22, 26, 30, 34, 38, 42, 46, 50, 54, 58, 62,
		17, 21, 25, 29, 33, 37, 41, 45, 49, 53, 57, 61,
		16, 20, 24, 28, 32, 36, 40, 44, 48, 52, 56, 60,
	}
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		AlwaysInControl: true,
		Palette:         DefaultPalette(),
	}
}

// Path returns the full path to the per-user config file.
func Path() (string, error) {
	configHome, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configHome, "lkdemo", "config.json"), nil
}

// Load reads the per-user config, returning defaults if the file does not
// exist yet.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads the config from an explicit path. Unlike Load, a missing
// file is an error.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if len(cfg.Palette) == 0 {
		cfg.Palette = DefaultPalette()
	}
	for _, c := range cfg.Palette {
		if c > 0x7F {
			return nil, fmt.Errorf("parse config %s: palette color %d out of range", path, c)
		}
	}
	return &cfg, nil
}

// Save writes the config to the per-user config file.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes the config to an explicit path, creating directories as
// needed.
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
