// Package config provides configuration loading and management for panelspace.
// It handles loading configuration from YAML or TOML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every error returned from Validate.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the application configuration
type Config struct {
	// Cache parameters
	Cache struct {
		// MaxEntries is the number of decoded images kept before LRU eviction
		MaxEntries int `yaml:"maxEntries" toml:"maxEntries"`

		// MaxTextureDimension bounds the larger side of a cached image in pixels
		MaxTextureDimension int `yaml:"maxTextureDimension" toml:"maxTextureDimension"`

		// Workers is the number of concurrent file read/decode workers
		Workers int `yaml:"workers" toml:"workers"`

		// Filter selects the downsampling filter: area, bilinear, bicubic or lanczos
		Filter string `yaml:"filter" toml:"filter"`

		// GenerateMips builds a full mip chain for every cached texture
		GenerateMips bool `yaml:"generateMips" toml:"generateMips"`

		// Anisotropy is the maximum anisotropic filtering level of the sampler
		Anisotropy int `yaml:"anisotropy" toml:"anisotropy"`
	} `yaml:"cache" toml:"cache"`

	// Panel parameters
	Panel struct {
		// DefaultWidth and DefaultHeight are the panel size in meters before the image is known
		DefaultWidth  float64 `yaml:"defaultWidth" toml:"defaultWidth"`
		DefaultHeight float64 `yaml:"defaultHeight" toml:"defaultHeight"`

		// AutoFitAspect resizes a panel to the loaded image's aspect ratio
		AutoFitAspect bool `yaml:"autoFitAspect" toml:"autoFitAspect"`
	} `yaml:"panel" toml:"panel"`

	// Curved grid parameters
	Grid struct {
		RowSpacing    float64 `yaml:"rowSpacing" toml:"rowSpacing"`
		ColumnSpacing float64 `yaml:"columnSpacing" toml:"columnSpacing"`

		// ForwardOffset is the arc radius, the distance from the viewer to every panel
		ForwardOffset float64 `yaml:"forwardOffset" toml:"forwardOffset"`

		// UpOffset raises the first row relative to eye height
		UpOffset float64 `yaml:"upOffset" toml:"upOffset"`
	} `yaml:"grid" toml:"grid"`

	// Tiling parameters
	Tiling struct {
		Spacing float64 `yaml:"spacing" toml:"spacing"`

		// ForwardDistance places the first tiled panel in front of the viewer
		ForwardDistance float64 `yaml:"forwardDistance" toml:"forwardDistance"`

		// RightStepsPerRow is how many panels are placed to the right before dropping a row
		RightStepsPerRow int `yaml:"rightStepsPerRow" toml:"rightStepsPerRow"`

		// ReorientToViewer turns each new panel toward the current viewer instead of
		// keeping the orientation of the first placement
		ReorientToViewer bool `yaml:"reorientToViewer" toml:"reorientToViewer"`
	} `yaml:"tiling" toml:"tiling"`

	// Curvature parameters
	Curvature struct {
		Segments         int     `yaml:"segments" toml:"segments"`
		ControlBarHeight float64 `yaml:"controlBarHeight" toml:"controlBarHeight"`
		ControlMargin    float64 `yaml:"controlMargin" toml:"controlMargin"`
	} `yaml:"curvature" toml:"curvature"`

	// Source parameters
	Source struct {
		// Extensions lists the file extensions treated as images
		Extensions []string `yaml:"extensions" toml:"extensions"`
	} `yaml:"source" toml:"source"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Cache.MaxEntries = 64
	cfg.Cache.MaxTextureDimension = 4096
	cfg.Cache.Workers = runtime.NumCPU()
	cfg.Cache.Filter = "area"
	cfg.Cache.GenerateMips = true
	cfg.Cache.Anisotropy = 8

	cfg.Panel.DefaultWidth = 1.0
	cfg.Panel.DefaultHeight = 0.75
	cfg.Panel.AutoFitAspect = true

	cfg.Grid.RowSpacing = 0.1
	cfg.Grid.ColumnSpacing = 0.1
	cfg.Grid.ForwardOffset = 2.0
	cfg.Grid.UpOffset = 0.0

	cfg.Tiling.Spacing = 0.1
	cfg.Tiling.ForwardDistance = 1.5
	cfg.Tiling.RightStepsPerRow = 2
	cfg.Tiling.ReorientToViewer = false

	cfg.Curvature.Segments = 32
	cfg.Curvature.ControlBarHeight = 0.08
	cfg.Curvature.ControlMargin = 0.01

	cfg.Source.Extensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp", ".tif", ".tiff"}

	return cfg
}

// Validate reports the first out-of-range option
func (c *Config) Validate() error {
	switch {
	case c.Cache.MaxEntries < 1:
		return fmt.Errorf("%w: cache.maxEntries must be at least 1, got %d", ErrInvalid, c.Cache.MaxEntries)
	case c.Cache.MaxTextureDimension < 1:
		return fmt.Errorf("%w: cache.maxTextureDimension must be at least 1, got %d", ErrInvalid, c.Cache.MaxTextureDimension)
	case c.Cache.Workers < 1:
		return fmt.Errorf("%w: cache.workers must be at least 1, got %d", ErrInvalid, c.Cache.Workers)
	case c.Panel.DefaultWidth <= 0 || c.Panel.DefaultHeight <= 0:
		return fmt.Errorf("%w: panel size must be positive", ErrInvalid)
	case c.Tiling.RightStepsPerRow < 0:
		return fmt.Errorf("%w: tiling.rightStepsPerRow must not be negative", ErrInvalid)
	case c.Curvature.Segments < 1:
		return fmt.Errorf("%w: curvature.segments must be at least 1, got %d", ErrInvalid, c.Curvature.Segments)
	}
	switch strings.ToLower(c.Cache.Filter) {
	case "area", "bilinear", "bicubic", "lanczos":
	default:
		return fmt.Errorf("%w: unknown cache.filter %q", ErrInvalid, c.Cache.Filter)
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// LoadConfig loads configuration from a YAML or TOML file.
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if isTOML(configPath) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig saves the configuration to a YAML or TOML file, chosen by extension
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	var data []byte
	if isTOML(configPath) {
		var sb strings.Builder
		if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		data = []byte(sb.String())
	} else {
		var err error
		data, err = yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
