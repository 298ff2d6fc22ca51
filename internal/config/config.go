// Package config defines the application configuration for the qrscan CLI
// and demo server, loaded from files, environment variables, and flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/MeKo-Tech/qrscan/camera"
	"github.com/MeKo-Tech/qrscan/decode"
)

// Config represents the complete configuration for the qrscan application.
// It covers the scan commands (image, serve) and supports loading from
// configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Scanner session configuration
	Scanner ScannerConfig `mapstructure:"scanner" yaml:"scanner" json:"scanner"`

	// Decode backend configuration
	Decode DecodeConfig `mapstructure:"decode" yaml:"decode" json:"decode"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
}

// ScannerConfig contains live scan session settings.
type ScannerConfig struct {
	CanvasSize      int    `mapstructure:"canvas_size" yaml:"canvas_size" json:"canvas_size"`
	PreferredFacing string `mapstructure:"preferred_facing" yaml:"preferred_facing" json:"preferred_facing"`
	GracePeriodMS   int    `mapstructure:"grace_period_ms" yaml:"grace_period_ms" json:"grace_period_ms"`
}

// DecodeConfig contains decode backend settings.
type DecodeConfig struct {
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	Inversion  string `mapstructure:"inversion" yaml:"inversion" json:"inversion"`
	RetryFull  bool   `mapstructure:"retry_full" yaml:"retry_full" json:"retry_full"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Scanner: ScannerConfig{
			CanvasSize:      400,
			PreferredFacing: string(camera.FacingEnvironment),
			GracePeriodMS:   300,
		},
		Decode: DecodeConfig{
			TimeoutSec: 10,
			Inversion:  "both",
			RetryFull:  true,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
		},
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)",
			c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	validFacings := []string{string(camera.FacingEnvironment), string(camera.FacingUser)}
	if !contains(validFacings, c.Scanner.PreferredFacing) {
		return fmt.Errorf("invalid preferred facing: %s (must be one of: %s)",
			c.Scanner.PreferredFacing, strings.Join(validFacings, ", "))
	}

	validInversions := []string{"original", "inverted", "both"}
	if !contains(validInversions, c.Decode.Inversion) {
		return fmt.Errorf("invalid inversion mode: %s (must be one of: %s)",
			c.Decode.Inversion, strings.Join(validInversions, ", "))
	}

	if c.Scanner.CanvasSize <= 0 {
		return fmt.Errorf("invalid canvas size: %d (must be positive)", c.Scanner.CanvasSize)
	}
	if c.Scanner.GracePeriodMS < 0 {
		return fmt.Errorf("invalid grace period: %d (must not be negative)", c.Scanner.GracePeriodMS)
	}
	if c.Decode.TimeoutSec <= 0 {
		return fmt.Errorf("invalid decode timeout: %d (must be positive)", c.Decode.TimeoutSec)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}

	return nil
}

// PreferredFacing converts the configured facing string to a camera facing.
func (c *Config) PreferredFacing() camera.Facing {
	if c.Scanner.PreferredFacing == string(camera.FacingUser) {
		return camera.FacingUser
	}
	return camera.FacingEnvironment
}

// InversionMode converts the configured inversion string to a decode mode.
func (c *Config) InversionMode() decode.InversionMode {
	switch c.Decode.Inversion {
	case "original":
		return decode.ScanOriginal
	case "inverted":
		return decode.ScanInverted
	default:
		return decode.ScanBoth
	}
}

// DecodeTimeout returns the decode deadline as a duration.
func (c *Config) DecodeTimeout() time.Duration {
	return time.Duration(c.Decode.TimeoutSec) * time.Second
}

// GracePeriod returns the camera release grace period as a duration.
func (c *Config) GracePeriod() time.Duration {
	return time.Duration(c.Scanner.GracePeriodMS) * time.Millisecond
}

// contains checks if a slice contains a string.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
