package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override: DOCCONV_TIMEOUTS_OFFICE=90s.
const EnvPrefix = "DOCCONV"

// EnvConfigPath names the config file to load when --config is not given.
const EnvConfigPath = EnvPrefix + "_CONFIG"

// envField binds one config key to the field it overrides.
type envField struct {
	key string
	set func(c *Config, raw string) error
}

func stringField(key string, field func(*Config) *string) envField {
	return envField{key: key, set: func(c *Config, raw string) error {
		*field(c) = raw
		return nil
	}}
}

func intField(key string, field func(*Config) *int) envField {
	return envField{key: key, set: func(c *Config, raw string) error {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%w: %s: %q is not an integer", ErrConfigParse, key, raw)
		}
		*field(c) = n
		return nil
	}}
}

func durationField(key string, field func(*Config) *time.Duration) envField {
	return envField{key: key, set: func(c *Config, raw string) error {
		d, err := time.ParseDuration(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%w: %s: %q is not a duration", ErrConfigParse, key, raw)
		}
		*field(c) = d
		return nil
	}}
}

func boolField(key string, field func(*Config) *bool) envField {
	return envField{key: key, set: func(c *Config, raw string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%w: %s: %q is not a boolean", ErrConfigParse, key, raw)
		}
		*field(c) = b
		return nil
	}}
}

var envFields = []envField{
	stringField("output.defaultDir", func(c *Config) *string { return &c.Output.DefaultDir }),
	stringField("quality.tier", func(c *Config) *string { return &c.Quality.Tier }),
	intField("quality.dpi", func(c *Config) *int { return &c.Quality.DPI }),
	stringField("quality.format", func(c *Config) *string { return &c.Quality.Format }),
	intField("quality.encodeQuality", func(c *Config) *int { return &c.Quality.EncodeQuality }),
	intField("quality.resizePercent", func(c *Config) *int { return &c.Quality.ResizePercent }),
	durationField("timeouts.office", func(c *Config) *time.Duration { return &c.Timeouts.Office }),
	durationField("timeouts.readiness", func(c *Config) *time.Duration { return &c.Timeouts.Readiness }),
	durationField("timeouts.pdfEngine", func(c *Config) *time.Duration { return &c.Timeouts.PDFEngine }),
	intField("capture.maxIterations", func(c *Config) *int { return &c.Capture.MaxIterations }),
	durationField("capture.scrollPause", func(c *Config) *time.Duration { return &c.Capture.ScrollPause }),
	durationField("capture.settlePause", func(c *Config) *time.Duration { return &c.Capture.SettlePause }),
	intField("capture.maxHeight", func(c *Config) *int { return &c.Capture.MaxHeight }),
	intField("capture.fallbackDPI", func(c *Config) *int { return &c.Capture.FallbackDPI }),
	intField("capture.viewportWidth", func(c *Config) *int { return &c.Capture.ViewportWidth }),
	stringField("browser.bin", func(c *Config) *string { return &c.Browser.Bin }),
	boolField("browser.noSandbox", func(c *Config) *bool { return &c.Browser.NoSandbox }),
	boolField("browser.allowDownload", func(c *Config) *bool { return &c.Browser.AllowDownload }),
	stringField("tools.soffice", func(c *Config) *string { return &c.Tools.Soffice }),
	stringField("tools.pdftoppm", func(c *Config) *string { return &c.Tools.PDFToPPM }),
	stringField("tools.pdfinfo", func(c *Config) *string { return &c.Tools.PDFInfo }),
	stringField("tools.pdfimages", func(c *Config) *string { return &c.Tools.PDFImages }),
	stringField("log.file", func(c *Config) *string { return &c.Log.File }),
	stringField("log.color", func(c *Config) *string { return &c.Log.Color }),
}

// legacyEnv keeps the go-rod variables working as fallbacks.
var legacyEnv = map[string]string{
	"browser.bin":       "ROD_BROWSER_BIN",
	"browser.noSandbox": "ROD_NO_SANDBOX",
}

// EnvName returns the environment variable that overrides key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// newEnvViper returns a viper instance that resolves config keys from the
// environment only.
func newEnvViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		_ = v.BindEnv(key, EnvName(key), legacy)
	}
	return v
}

// ApplyEnv overrides cfg with every DOCCONV_* variable that is set, then
// validates the result. Priority: CLI flags > env vars > config file >
// defaults (flags are applied later by the caller).
func ApplyEnv(cfg *Config) error {
	v := newEnvViper()
	for _, f := range envFields {
		if !v.IsSet(f.key) {
			continue
		}
		if err := f.set(cfg, v.GetString(f.key)); err != nil {
			return err
		}
	}
	return cfg.Validate()
}

// UnknownEnvVars returns the DOCCONV_* names in environ that match no
// config key, sorted. Helps catch typos like DOCCONV_TIMEOUT_OFFICE.
func UnknownEnvVars(environ []string) []string {
	known := map[string]bool{EnvConfigPath: true}
	for _, f := range envFields {
		known[EnvName(f.key)] = true
	}

	var unknown []string
	for _, kv := range environ {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, EnvPrefix+"_") && !known[name] {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	return unknown
}
