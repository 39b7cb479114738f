package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "animctl.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if cfg.TickRate != 60 || cfg.ControllersDir != "prefabs" {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, "tick_rate: 30\nworkers: 2\nwatch: true\nlog_level: debug\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TickRate != 30 || cfg.Workers != 2 || !cfg.Watch || cfg.LogLevel != "debug" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.LogFormat != "text" || len(cfg.ClipCatalogs) == 0 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	if dt := cfg.DT(); dt < 0.0333 || dt > 0.0334 {
		t.Fatalf("dt = %v", dt)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "zero tick rate", body: "tick_rate: 0\n"},
		{name: "negative workers", body: "workers: -1\n"},
		{name: "bad level", body: "log_level: loud\n"},
		{name: "bad format", body: "log_format: xml\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("err = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := Load(writeConfig(t, "tick_rate: [")); err == nil {
		t.Fatal("expected parse error")
	}
}
