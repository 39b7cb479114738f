package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("config: invalid")

// Config holds the runtime settings shared by the tools. Zero fields in a
// file keep their defaults.
type Config struct {
	TickRate       int      `yaml:"tick_rate"`
	Workers        int      `yaml:"workers"`
	ControllersDir string   `yaml:"controllers_dir"`
	ClipCatalogs   []string `yaml:"clip_catalogs"`
	Watch          bool     `yaml:"watch"`
	LogLevel       string   `yaml:"log_level"`
	LogFormat      string   `yaml:"log_format"`
}

func Default() Config {
	return Config{
		TickRate:       60,
		Workers:        runtime.GOMAXPROCS(0),
		ControllersDir: "prefabs",
		ClipCatalogs:   []string{"clips/hero.yaml", "clips/props.yaml"},
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.TickRate <= 0 {
		return fmt.Errorf("%w: tick_rate must be positive, got %d", ErrInvalid, c.TickRate)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalid, c.Workers)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %v", ErrInvalid, err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalid, c.LogFormat)
	}
	return nil
}

// DT is the fixed tick length in seconds.
func (c Config) DT() float32 {
	return 1 / float32(c.TickRate)
}
