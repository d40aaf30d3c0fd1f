package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	cfg := Default()

	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the engines cannot honour.
func (c *Config) Validate() error {
	if c.Mesh.NormalsBatch <= 0 {
		return fmt.Errorf("mesh.normals_batch must be positive, got %d", c.Mesh.NormalsBatch)
	}
	if c.Mesh.SmoothIterations < 0 {
		return fmt.Errorf("mesh.smooth_iterations must not be negative, got %d", c.Mesh.SmoothIterations)
	}
	if c.Decimation.Fraction <= 0 || c.Decimation.Fraction > 1 {
		return fmt.Errorf("decimation.fraction must be in (0, 1], got %g", c.Decimation.Fraction)
	}
	if b := c.Chunk.QuantizationBits; b < 1 || b > 30 {
		return fmt.Errorf("chunk.quantization_bits must be in [1, 30], got %d", b)
	}
	return nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./volmesh.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "volmesh")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "volmesh")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "volmesh")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "volmesh")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
