// Package config holds tossa's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/japaniel/tossa/pkg/picker"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = "tossa.yaml"

// Config is the main configuration structure.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Picker   PickerConfig   `yaml:"picker"`
	Practice PracticeConfig `yaml:"practice"`
	Import   ImportConfig   `yaml:"import"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// PickerConfig tunes phrase selection.
type PickerConfig struct {
	ReviewRate  float64 `yaml:"review_rate"`
	StarPenalty float64 `yaml:"star_penalty"`
	// Seed fixes the random sequence. 0 seeds from the clock.
	Seed int64 `yaml:"seed"`
}

// PracticeConfig configures the interactive practice loop.
type PracticeConfig struct {
	AnswerTimeLimit string `yaml:"answer_time_limit"`
	StarStreak      int    `yaml:"star_streak"` // consecutive correct answers that earn a star
}

// ImportConfig sizes the import pipeline.
type ImportConfig struct {
	Workers   int `yaml:"workers"`
	BatchSize int `yaml:"batch_size"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "tossa.db"},
		Picker: PickerConfig{
			ReviewRate:  picker.DefaultReviewRate,
			StarPenalty: picker.DefaultStarPenalty,
		},
		Practice: PracticeConfig{
			AnswerTimeLimit: "20s",
			StarStreak:      3,
		},
		Import: ImportConfig{
			Workers:   4,
			BatchSize: 50,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to path, creating its directory.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if path := os.Getenv("TOSSA_DB"); path != "" {
		c.Database.Path = path
	}
	if rate := os.Getenv("TOSSA_REVIEW_RATE"); rate != "" {
		v, err := strconv.ParseFloat(rate, 64)
		if err != nil {
			return fmt.Errorf("TOSSA_REVIEW_RATE: %w", err)
		}
		c.Picker.ReviewRate = v
	}
	return nil
}

// GetAnswerTimeLimit returns the practice answer limit, falling back to 20s
// when the configured value does not parse.
func (c *Config) GetAnswerTimeLimit() time.Duration {
	d, err := time.ParseDuration(c.Practice.AnswerTimeLimit)
	if err != nil {
		return 20 * time.Second
	}
	return d
}

// PickerConfig converts the picker section, keeping the fixed window defaults.
func (c *Config) PickerConfig() picker.Config {
	pc := picker.DefaultConfig()
	pc.ReviewRate = c.Picker.ReviewRate
	pc.StarPenalty = c.Picker.StarPenalty
	return pc
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database path is empty (set database.path or TOSSA_DB)"))
	}
	if c.Picker.ReviewRate < 0 || c.Picker.ReviewRate > 1 {
		errs = append(errs, fmt.Errorf("review rate %v out of range [0,1]", c.Picker.ReviewRate))
	}
	if c.Picker.StarPenalty < 0 {
		errs = append(errs, fmt.Errorf("star penalty %v must be non-negative", c.Picker.StarPenalty))
	}
	if d, err := time.ParseDuration(c.Practice.AnswerTimeLimit); err != nil || d <= 0 {
		errs = append(errs, fmt.Errorf("invalid answer time limit %q", c.Practice.AnswerTimeLimit))
	}
	if c.Practice.StarStreak < 1 {
		errs = append(errs, fmt.Errorf("star streak %d must be at least 1", c.Practice.StarStreak))
	}
	if c.Import.Workers < 1 || c.Import.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("import workers (%d) and batch size (%d) must be positive", c.Import.Workers, c.Import.BatchSize))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid logging level %q", c.Logging.Level))
	}
	return errors.Join(errs...)
}
