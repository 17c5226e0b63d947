package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Tiling.RightStepsPerRow != 2 {
		t.Errorf("Expected 2 right steps per row, got %d", cfg.Tiling.RightStepsPerRow)
	}
	if cfg.Curvature.Segments != 32 {
		t.Errorf("Expected 32 curvature segments, got %d", cfg.Curvature.Segments)
	}
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Cache.MaxEntries != DefaultConfig().Cache.MaxEntries {
		t.Errorf("Expected default max entries, got %d", cfg.Cache.MaxEntries)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	for _, name := range []string{"panelspace.yaml", "panelspace.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)

			cfg := DefaultConfig()
			cfg.Cache.MaxEntries = 7
			cfg.Cache.Filter = "lanczos"
			cfg.Grid.ForwardOffset = 3.5
			cfg.Tiling.ReorientToViewer = true

			if err := SaveConfig(cfg, path); err != nil {
				t.Fatalf("SaveConfig failed: %v", err)
			}

			loaded, err := LoadConfig(path)
			if err != nil {
				t.Fatalf("LoadConfig failed: %v", err)
			}
			if loaded.Cache.MaxEntries != 7 {
				t.Errorf("Expected max entries 7, got %d", loaded.Cache.MaxEntries)
			}
			if loaded.Cache.Filter != "lanczos" {
				t.Errorf("Expected filter lanczos, got %q", loaded.Cache.Filter)
			}
			if loaded.Grid.ForwardOffset != 3.5 {
				t.Errorf("Expected forward offset 3.5, got %f", loaded.Grid.ForwardOffset)
			}
			if !loaded.Tiling.ReorientToViewer {
				t.Error("Expected reorientToViewer to survive the round trip")
			}
		})
	}
}

func TestLoadConfigPartialYAMLKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	if err := os.WriteFile(path, []byte("cache:\n  maxEntries: 3\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Cache.MaxEntries != 3 {
		t.Errorf("Expected max entries 3, got %d", cfg.Cache.MaxEntries)
	}
	if cfg.Panel.DefaultWidth != DefaultConfig().Panel.DefaultWidth {
		t.Errorf("Expected default panel width to be kept, got %f", cfg.Panel.DefaultWidth)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero entries", func(c *Config) { c.Cache.MaxEntries = 0 }},
		{"zero dimension", func(c *Config) { c.Cache.MaxTextureDimension = 0 }},
		{"no workers", func(c *Config) { c.Cache.Workers = 0 }},
		{"unknown filter", func(c *Config) { c.Cache.Filter = "nearest" }},
		{"negative panel", func(c *Config) { c.Panel.DefaultHeight = -1 }},
		{"no segments", func(c *Config) { c.Curvature.Segments = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestLoadConfigRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("cache:\n  filter: nearest\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid, got %v", err)
	}
}
