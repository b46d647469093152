package main

import (
	"io"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-docconv/internal/config"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// jobFlags holds the output and quality flags of one job.
type jobFlags struct {
	output        string
	quality       string
	dpi           int
	format        string
	encodeQuality int
	resize        int
	urlsFile      string
}

// runtimeFlags holds backend and logging overrides.
type runtimeFlags struct {
	officeTimeout time.Duration
	readyTimeout  time.Duration
	browserBin    string
	noSandbox     bool
	noDownload    bool
	logFile       string
	color         string
	noInteractive bool
}

// convertFlags holds every flag of a conversion command.
type convertFlags struct {
	common  commonFlags
	job     jobFlags
	runtime runtimeFlags

	fs *flag.FlagSet // Kept for Changed lookups in mergeFlags
}

func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only print warnings and errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "print debug output")
}

func addJobFlags(fs *flag.FlagSet, f *jobFlags) {
	fs.StringVarP(&f.output, "output", "o", "", "output directory, or file for single-output commands")
	fs.StringVar(&f.quality, "quality", "", "quality tier: high, medium, low")
	fs.IntVar(&f.dpi, "dpi", 0, "PDF rasterization resolution (72-600)")
	fs.StringVar(&f.format, "format", "", "image format: png, jpg, webp")
	fs.IntVar(&f.encodeQuality, "encode-quality", 0, "lossy encode quality (1-100)")
	fs.IntVar(&f.resize, "resize", 0, "resize percentage when re-encoding (1-100)")
	fs.StringVar(&f.urlsFile, "urls-file", "", "file with one URL per line (web)")
}

func addRuntimeFlags(fs *flag.FlagSet, f *runtimeFlags) {
	fs.DurationVar(&f.officeTimeout, "office-timeout", 0, "per-document office conversion timeout")
	fs.DurationVar(&f.readyTimeout, "ready-timeout", 0, "webpage readiness timeout")
	fs.StringVar(&f.browserBin, "browser-bin", "", "Chrome/Edge binary to use")
	fs.BoolVar(&f.noSandbox, "no-sandbox", false, "disable the browser sandbox (containers, CI)")
	fs.BoolVar(&f.noDownload, "no-download", false, "never download a managed Chromium")
	fs.StringVar(&f.logFile, "log-file", "", "append log lines to this file")
	fs.StringVar(&f.color, "color", "", "colour output: auto, always, never")
	fs.BoolVar(&f.noInteractive, "no-interactive", false, "ignore pause/resume/stop commands on stdin")
}

// newConvertFlagSet builds the flag set of a conversion command.
func newConvertFlagSet(name string, f *convertFlags) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SortFlags = false
	addCommonFlags(fs, &f.common)
	addJobFlags(fs, &f.job)
	addRuntimeFlags(fs, &f.runtime)
	return fs
}

// parseConvertFlags parses args and returns the flags and positional arguments.
func parseConvertFlags(name string, args []string) (*convertFlags, []string, error) {
	f := &convertFlags{}
	f.fs = newConvertFlagSet(name, f)
	if err := f.fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, f.fs.Args(), nil
}

// mergeFlags applies explicitly set flags on top of cfg.
// Priority: CLI flags > env vars > config file > defaults.
func mergeFlags(f *convertFlags, cfg *config.Config) {
	changed := f.fs.Changed

	if changed("output") {
		cfg.Output.DefaultDir = f.job.output
	}
	if changed("quality") {
		cfg.Quality.Tier = f.job.quality
	}
	if changed("dpi") {
		cfg.Quality.DPI = f.job.dpi
	}
	if changed("format") {
		cfg.Quality.Format = f.job.format
	}
	if changed("encode-quality") {
		cfg.Quality.EncodeQuality = f.job.encodeQuality
	}
	if changed("resize") {
		cfg.Quality.ResizePercent = f.job.resize
	}
	if changed("office-timeout") {
		cfg.Timeouts.Office = f.runtime.officeTimeout
	}
	if changed("ready-timeout") {
		cfg.Timeouts.Readiness = f.runtime.readyTimeout
	}
	if changed("browser-bin") {
		cfg.Browser.Bin = f.runtime.browserBin
	}
	if f.runtime.noSandbox {
		cfg.Browser.NoSandbox = true
	}
	if f.runtime.noDownload {
		cfg.Browser.AllowDownload = false
	}
	if changed("log-file") {
		cfg.Log.File = f.runtime.logFile
	}
	if changed("color") {
		cfg.Log.Color = f.runtime.color
	}
}
