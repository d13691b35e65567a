// Package config provides configuration loading and management for volfields.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"volfields/pkg/fields"
	"volfields/pkg/filter"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// Sigma is the Gaussian smoothing width in physical units
		Sigma float64 `yaml:"sigma"`

		// NumCores specifies how many labels or files are processed at once
		NumCores int `yaml:"numCores"`

		// LabelTolerance is the half width of the window isolating each label
		LabelTolerance float64 `yaml:"labelTolerance"`

		// SkipBackground drops label 0 from indicator extraction
		SkipBackground bool `yaml:"skipBackground"`

		// MaxLabels rejects segmentations with a wider label range (0 = no limit)
		MaxLabels int `yaml:"maxLabels"`
	} `yaml:"processing"`

	// Gaussian kernel truncation
	Gaussian struct {
		MaxError       float64 `yaml:"maxError"`
		MaxKernelWidth int     `yaml:"maxKernelWidth"`
	} `yaml:"gaussian"`

	// Output parameters
	Output struct {
		// Dir is where fields are written
		Dir string `yaml:"dir"`

		// Compress writes gzip encoded NRRD files
		Compress bool `yaml:"compress"`

		// Preview saves the centre slice of every field along each axis
		Preview bool `yaml:"preview"`

		// PreviewFormat is "png" or "jpeg"
		PreviewFormat string `yaml:"previewFormat"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.Sigma = 1.0
	cfg.Processing.NumCores = runtime.NumCPU()
	cfg.Processing.LabelTolerance = fields.DefaultLabelTolerance
	cfg.Processing.SkipBackground = false
	cfg.Processing.MaxLabels = 256

	cfg.Gaussian.MaxError = filter.DefaultMaxError
	cfg.Gaussian.MaxKernelWidth = filter.DefaultMaxKernelWidth

	cfg.Output.Dir = "fields"
	cfg.Output.Compress = false
	cfg.Output.Preview = false
	cfg.Output.PreviewFormat = "png"
	cfg.Output.Verbose = true

	return cfg
}

// Validate checks values that would make the pipeline misbehave
func (c *Config) Validate() error {
	if c.Processing.Sigma < 0 {
		return fmt.Errorf("sigma must be non-negative, got %g", c.Processing.Sigma)
	}
	if c.Processing.NumCores < 1 {
		return fmt.Errorf("numCores must be at least 1, got %d", c.Processing.NumCores)
	}
	if c.Processing.LabelTolerance <= 0 || c.Processing.LabelTolerance >= 0.5 {
		return fmt.Errorf("labelTolerance must be in (0, 0.5), got %g", c.Processing.LabelTolerance)
	}
	if c.Processing.MaxLabels < 0 {
		return fmt.Errorf("maxLabels must be non-negative, got %d", c.Processing.MaxLabels)
	}
	if c.Gaussian.MaxError <= 0 || c.Gaussian.MaxError >= 1 {
		return fmt.Errorf("gaussian maxError must be in (0, 1), got %g", c.Gaussian.MaxError)
	}
	if c.Gaussian.MaxKernelWidth < 1 {
		return fmt.Errorf("gaussian maxKernelWidth must be positive, got %d", c.Gaussian.MaxKernelWidth)
	}
	switch c.Output.PreviewFormat {
	case "png", "jpeg", "jpg":
	default:
		return fmt.Errorf("unknown preview format %q", c.Output.PreviewFormat)
	}
	return nil
}

// Params converts the processing sections into extractor parameters
func (c *Config) Params() fields.Params {
	return fields.Params{
		Sigma:          c.Processing.Sigma,
		NumCores:       c.Processing.NumCores,
		LabelTolerance: c.Processing.LabelTolerance,
		SkipBackground: c.Processing.SkipBackground,
		MaxLabels:      c.Processing.MaxLabels,
		Verbose:        c.Output.Verbose,
		Gaussian: filter.GaussianOptions{
			MaxError:       c.Gaussian.MaxError,
			MaxKernelWidth: c.Gaussian.MaxKernelWidth,
		},
	}
}

// LoadConfig loads configuration from a YAML file
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

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
