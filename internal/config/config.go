package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/javi11/parchive/internal/gf16"
)

// Config represents the complete application configuration
type Config struct {
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
	Create CreateConfig `yaml:"create" mapstructure:"create"`
	Verify VerifyConfig `yaml:"verify" mapstructure:"verify"`
	Repair RepairConfig `yaml:"repair" mapstructure:"repair"`
	IO     IOConfig     `yaml:"io" mapstructure:"io"`
}

// LogConfig represents logging configuration with rotation support
type LogConfig struct {
	File       string `yaml:"file" mapstructure:"file"`               // Log file path (empty = console only)
	Level      string `yaml:"level" mapstructure:"level"`             // Log level (debug, info, warn, error)
	Format     string `yaml:"format" mapstructure:"format"`           // text or json
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size"`       // Max size in MB before rotation
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"`         // Max age in days to keep files
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"` // Max number of old files to keep
	Compress   bool   `yaml:"compress" mapstructure:"compress"`       // Compress old log files
}

// CreateConfig holds the defaults for new recovery sets
type CreateConfig struct {
	SliceSize      int64  `yaml:"slice_size" mapstructure:"slice_size"`
	RecoverySlices int    `yaml:"recovery_slices" mapstructure:"recovery_slices"`
	Creator        string `yaml:"creator" mapstructure:"creator"`
	MaxWorkers     int    `yaml:"max_workers" mapstructure:"max_workers"`
}

// VerifyConfig controls verification and source file discovery
type VerifyConfig struct {
	MaxWorkers          int  `yaml:"max_workers" mapstructure:"max_workers"`
	ProbeSubdirectories bool `yaml:"probe_subdirectories" mapstructure:"probe_subdirectories"`
	ProbeCacheSize      int  `yaml:"probe_cache_size" mapstructure:"probe_cache_size"`
}

type RepairConfig struct {
	VerifyAfterRepair bool `yaml:"verify_after_repair" mapstructure:"verify_after_repair"`
}

// IOConfig controls retries of transient open failures
type IOConfig struct {
	OpenAttempts uint          `yaml:"open_attempts" mapstructure:"open_attempts"`
	OpenDelay    time.Duration `yaml:"open_delay" mapstructure:"open_delay"`
}

const (
	maxSliceSize = 1 << 30

	// maxRecoverySlices is the largest usable recovery exponent.
	maxRecoverySlices = gf16.Limit - 1
)

var validLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Log.Level != "" && !slices.Contains(validLevels, c.Log.Level) {
		return fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}

	if c.Log.Format != "" && c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be one of: text, json")
	}

	if c.Create.SliceSize <= 0 || c.Create.SliceSize%4 != 0 {
		return fmt.Errorf("create slice_size must be a positive multiple of 4")
	}

	if c.Create.SliceSize > maxSliceSize {
		return fmt.Errorf("create slice_size must not exceed %d", maxSliceSize)
	}

	if c.Create.RecoverySlices < 0 || c.Create.RecoverySlices > maxRecoverySlices {
		return fmt.Errorf("create recovery_slices must be between 0 and %d", maxRecoverySlices)
	}

	if c.Create.MaxWorkers <= 0 {
		return fmt.Errorf("create max_workers must be greater than 0")
	}

	if c.Verify.MaxWorkers <= 0 {
		return fmt.Errorf("verify max_workers must be greater than 0")
	}

	if c.Verify.ProbeCacheSize <= 0 {
		return fmt.Errorf("verify probe_cache_size must be greater than 0")
	}

	if c.IO.OpenAttempts == 0 {
		return fmt.Errorf("io open_attempts must be greater than 0")
	}

	return nil
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			File:       "",     // Empty = console only
			Level:      "info", // Default log level
			Format:     "text",
			MaxSize:    100,  // 100MB max size
			MaxAge:     30,   // Keep for 30 days
			MaxBackups: 10,   // Keep 10 old files
			Compress:   true, // Compress old files
		},
		Create: CreateConfig{
			SliceSize:      768000,
			RecoverySlices: 100,
			Creator:        "parchive",
			MaxWorkers:     4,
		},
		Verify: VerifyConfig{
			MaxWorkers:          4,
			ProbeSubdirectories: true,
			ProbeCacheSize:      1024,
		},
		Repair: RepairConfig{
			VerifyAfterRepair: true,
		},
		IO: IOConfig{
			OpenAttempts: 3,
			OpenDelay:    50 * time.Millisecond,
		},
	}
}
