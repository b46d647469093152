package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-docconv/internal/fileutil"
	"github.com/alnah/go-docconv/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrFieldRange      = errors.New("field out of range")
)

// Field length limits.
const (
	MaxPathLength  = 4096 // PATH_MAX on Linux
	MaxShortLength = 10   // "medium", "webp", "always"
)

// Numeric bounds. A zero value always means "use the built-in default".
const (
	MinDPI, MaxDPI                     = 72, 600
	MinEncodeQuality, MaxEncodeQuality = 1, 100
	MinResize, MaxResize               = 1, 100
	MaxTimeout                         = time.Hour
	MaxCaptureIterations               = 1000
	MinCaptureHeight, MaxCaptureHeight = 1000, 100000
	MinViewportWidth, MaxViewportWidth = 320, 7680
	MaxCapturePause                    = time.Minute
)

// Config holds every setting the CLI reads from a file or the environment.
type Config struct {
	Output   OutputConfig   `yaml:"output"`
	Quality  QualityConfig  `yaml:"quality"`
	Timeouts TimeoutsConfig `yaml:"timeouts"`
	Capture  CaptureConfig  `yaml:"capture"`
	Browser  BrowserConfig  `yaml:"browser"`
	Tools    ToolsConfig    `yaml:"tools"`
	Log      LogConfig      `yaml:"log"`
}

// OutputConfig defines output destination options.
type OutputConfig struct {
	DefaultDir string `yaml:"defaultDir"` // Empty = must specify
}

// QualityConfig holds the default job settings.
type QualityConfig struct {
	Tier          string `yaml:"tier"`          // "high", "medium", "low"
	DPI           int    `yaml:"dpi"`           // PDF rasterization, 72-600
	Format        string `yaml:"format"`        // "png", "jpg", "webp"
	EncodeQuality int    `yaml:"encodeQuality"` // 1-100
	ResizePercent int    `yaml:"resizePercent"` // 1-100
}

// TimeoutsConfig bounds external calls.
type TimeoutsConfig struct {
	Office    time.Duration `yaml:"office"`    // One document conversion
	Readiness time.Duration `yaml:"readiness"` // Webpage readiness wait
	PDFEngine time.Duration `yaml:"pdfEngine"` // One poppler call
}

// CaptureConfig tunes webpage stabilization and the screenshot fallback.
type CaptureConfig struct {
	MaxIterations int           `yaml:"maxIterations"`
	ScrollPause   time.Duration `yaml:"scrollPause"`
	SettlePause   time.Duration `yaml:"settlePause"`
	MaxHeight     int           `yaml:"maxHeight"` // Screenshot cap in px
	FallbackDPI   int           `yaml:"fallbackDPI"`
	ViewportWidth int           `yaml:"viewportWidth"`
}

// BrowserConfig controls browser discovery.
type BrowserConfig struct {
	Bin           string `yaml:"bin"`
	NoSandbox     bool   `yaml:"noSandbox"`
	AllowDownload bool   `yaml:"allowDownload"` // Managed Chromium download
}

// ToolsConfig overrides external tool locations. Empty = search PATH.
type ToolsConfig struct {
	Soffice   string `yaml:"soffice"`
	PDFToPPM  string `yaml:"pdftoppm"`
	PDFInfo   string `yaml:"pdfinfo"`
	PDFImages string `yaml:"pdfimages"`
}

// LogConfig controls console and file logging.
type LogConfig struct {
	File  string `yaml:"file"`  // Optional append-only log file
	Color string `yaml:"color"` // "auto", "always", "never"
}

// Validate checks field lengths and numeric ranges.
// Called automatically by LoadConfig, but available for consumers
// who construct Config manually.
func (c *Config) Validate() error {
	for _, f := range []struct {
		name  string
		value string
		max   int
	}{
		{"output.defaultDir", c.Output.DefaultDir, MaxPathLength},
		{"browser.bin", c.Browser.Bin, MaxPathLength},
		{"tools.soffice", c.Tools.Soffice, MaxPathLength},
		{"tools.pdftoppm", c.Tools.PDFToPPM, MaxPathLength},
		{"tools.pdfinfo", c.Tools.PDFInfo, MaxPathLength},
		{"tools.pdfimages", c.Tools.PDFImages, MaxPathLength},
		{"log.file", c.Log.File, MaxPathLength},
		{"quality.tier", c.Quality.Tier, MaxShortLength},
		{"quality.format", c.Quality.Format, MaxShortLength},
		{"log.color", c.Log.Color, MaxShortLength},
	} {
		if err := validateFieldLength(f.name, f.value, f.max); err != nil {
			return err
		}
	}

	if err := validateOneOf("quality.tier", c.Quality.Tier, "high", "medium", "low"); err != nil {
		return err
	}
	if err := validateOneOf("quality.format", c.Quality.Format, "png", "jpg", "jpeg", "webp"); err != nil {
		return err
	}
	if err := validateOneOf("log.color", c.Log.Color, "auto", "always", "never"); err != nil {
		return err
	}

	for _, f := range []struct {
		name     string
		value    int
		min, max int
	}{
		{"quality.dpi", c.Quality.DPI, MinDPI, MaxDPI},
		{"quality.encodeQuality", c.Quality.EncodeQuality, MinEncodeQuality, MaxEncodeQuality},
		{"quality.resizePercent", c.Quality.ResizePercent, MinResize, MaxResize},
		{"capture.maxIterations", c.Capture.MaxIterations, 1, MaxCaptureIterations},
		{"capture.maxHeight", c.Capture.MaxHeight, MinCaptureHeight, MaxCaptureHeight},
		{"capture.fallbackDPI", c.Capture.FallbackDPI, MinDPI, MaxDPI},
		{"capture.viewportWidth", c.Capture.ViewportWidth, MinViewportWidth, MaxViewportWidth},
	} {
		if err := validateIntRange(f.name, f.value, f.min, f.max); err != nil {
			return err
		}
	}

	for _, f := range []struct {
		name  string
		value time.Duration
		max   time.Duration
	}{
		{"timeouts.office", c.Timeouts.Office, MaxTimeout},
		{"timeouts.readiness", c.Timeouts.Readiness, MaxTimeout},
		{"timeouts.pdfEngine", c.Timeouts.PDFEngine, MaxTimeout},
		{"capture.scrollPause", c.Capture.ScrollPause, MaxCapturePause},
		{"capture.settlePause", c.Capture.SettlePause, MaxCapturePause},
	} {
		if f.value < 0 || f.value > f.max {
			return fmt.Errorf("%w: %s must be between 0 and %s, got %s", ErrFieldRange, f.name, f.max, f.value)
		}
	}

	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// validateIntRange accepts zero (unset) or a value within [lo, hi].
func validateIntRange(fieldName string, value, lo, hi int) error {
	if value != 0 && (value < lo || value > hi) {
		return fmt.Errorf("%w: %s must be between %d and %d, got %d", ErrFieldRange, fieldName, lo, hi, value)
	}
	return nil
}

// validateOneOf accepts empty (unset) or one of allowed, case-insensitively.
func validateOneOf(fieldName, value string, allowed ...string) error {
	if value == "" {
		return nil
	}
	for _, a := range allowed {
		if strings.EqualFold(value, a) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s: invalid value %q (must be %s)", ErrFieldRange, fieldName, value, strings.Join(allowed, ", "))
}

// DefaultConfig returns the configuration used when no file is given.
// Numeric zero values defer to the library defaults.
func DefaultConfig() *Config {
	return &Config{
		Quality: QualityConfig{Tier: "high", Format: "png"},
		Browser: BrowserConfig{AllowDownload: true},
		Log:     LogConfig{Color: "auto"},
	}
}

// LoadConfig loads configuration from a file path or config name, on top of
// DefaultConfig. If nameOrPath contains a path separator, it's treated as a
// file path. Otherwise, it's treated as a config name and searched in
// standard locations. Returns error if the file is not found (no silent
// fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if fileutil.IsFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, <user config dir>/go-docconv/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileutil.FileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, "go-docconv", name+ext)
			if fileutil.FileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}
