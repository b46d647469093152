package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"

	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"

	docconv "github.com/alnah/go-docconv"
	"github.com/alnah/go-docconv/internal/config"
	"github.com/alnah/go-docconv/internal/hints"
	"github.com/alnah/go-docconv/internal/logging"
)

// runConvert runs one conversion command and returns its exit code.
func runConvert(ctx context.Context, cmd command, args []string, env *Environment) int {
	flags, positional, err := parseConvertFlags(cmd.name, args)
	if errors.Is(err, flag.ErrHelp) {
		printCommandUsage(env.Stdout, cmd)
		return ExitSuccess
	}
	if err != nil {
		fmt.Fprintf(env.Stderr, "docconv %s: %v\n", cmd.name, err)
		printCommandUsage(env.Stderr, cmd)
		return ExitUsage
	}

	cfg, err := loadConfig(flags.common.config, env)
	if err != nil {
		return fail(env, err)
	}
	mergeFlags(flags, cfg)
	if err := cfg.Validate(); err != nil {
		return fail(env, err)
	}

	logger, err := logging.New(logging.Options{
		Color:   cfg.Log.Color,
		File:    cfg.Log.File,
		Verbose: flags.common.verbose,
		Stdout:  env.Stdout,
		Stderr:  env.Stderr,
	})
	if err != nil {
		return fail(env, err)
	}
	defer func() { _ = logger.Close() }()

	// Error ignored: maxprocs.Set only fails if GOMAXPROCS is invalid, in
	// which case the runtime default applies.
	undo, _ := maxprocs.Set(maxprocs.Logger(logger.Debug))
	defer undo()

	for _, name := range config.UnknownEnvVars(env.environ()) {
		logger.Warn("unknown environment variable %s (typo?)", name)
	}

	job, err := buildJob(cmd, positional, flags, cfg)
	if err != nil {
		logger.Error("%v", err)
		return exitCodeFor(err)
	}

	service := docconv.NewService(ctx, serviceOptions(cfg, env)...)
	if err := checkDomain(service, cmd, cfg); err != nil {
		logger.Error("%v", err)
		return exitCodeFor(err)
	}

	var commands <-chan string
	if env.Stdin != nil && !flags.runtime.noInteractive {
		done := make(chan struct{})
		defer close(done)
		commands = readCommands(done, env.Stdin)
		logger.Info("controls: p=pause, r=resume, s=stop (then Enter)")
	}

	fn := func(ctx context.Context, ctrl *docconv.Controller, reporter docconv.Reporter) bool {
		return cmd.run(service, ctx, ctrl, reporter, job)
	}
	result, err := supervise(ctx, docconv.NewRunner(), cmd.name, fn, commands, &eventLogger{logger: logger, quiet: flags.common.quiet})
	if err != nil {
		logger.Error("%v", err)
		return ExitGeneral
	}

	switch {
	case result.cancelled:
		logger.Warn("%v%s", docconv.ErrUserCancelled, hints.ForCancelled())
		return ExitCancelled
	case !result.ok:
		return ExitGeneral
	}
	return ExitSuccess
}

// fail prints a setup error with its hint and returns the matching exit code.
func fail(env *Environment, err error) int {
	fmt.Fprintf(env.Stderr, "docconv: %v%s\n", err, hintFor(err))
	return exitCodeFor(err)
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound(nil)
	case errors.Is(err, os.ErrPermission):
		return hints.ForOutputDirectory()
	}
	return ""
}

// loadConfig resolves the config file (flag, then DOCCONV_CONFIG, then
// built-in defaults) and applies DOCCONV_* overrides.
func loadConfig(name string, env *Environment) (*config.Config, error) {
	if name == "" {
		name = env.getenv(config.EnvConfigPath)
	}

	cfg := config.DefaultConfig()
	if name != "" {
		var err error
		if cfg, err = config.LoadConfig(name); err != nil {
			return nil, err
		}
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildJob resolves inputs, output and settings for cmd.
func buildJob(cmd command, positional []string, flags *convertFlags, cfg *config.Config) (docconv.Job, error) {
	var urlsText string
	if flags.job.urlsFile != "" {
		if cmd.kind != inputURLs {
			return docconv.Job{}, fmt.Errorf("%w: --urls-file only applies to web", ErrUsage)
		}
		data, err := os.ReadFile(flags.job.urlsFile) // #nosec G304 -- user-provided list
		if err != nil {
			return docconv.Job{}, fmt.Errorf("reading URL list: %w", err)
		}
		urlsText = string(data)
	}

	inputs, err := cmd.resolveInputs(positional, urlsText)
	if err != nil {
		return docconv.Job{}, err
	}

	if cfg.Output.DefaultDir == "" {
		return docconv.Job{}, ErrNoOutput
	}

	settings, err := buildSettings(cfg)
	if err != nil {
		return docconv.Job{}, err
	}

	return docconv.Job{Inputs: inputs, Output: cfg.Output.DefaultDir, Settings: settings}, nil
}

// buildSettings converts the quality section to job settings. Zero fields
// are left for the service to default per operation.
func buildSettings(cfg *config.Config) (docconv.Settings, error) {
	s := docconv.Settings{
		DPI:           cfg.Quality.DPI,
		EncodeQuality: cfg.Quality.EncodeQuality,
		ResizePercent: cfg.Quality.ResizePercent,
	}
	if cfg.Quality.Tier != "" {
		q, err := docconv.ParseQuality(cfg.Quality.Tier)
		if err != nil {
			return docconv.Settings{}, err
		}
		s.Quality = q
	}
	if cfg.Quality.Format != "" {
		f, err := docconv.ParseImageFormat(cfg.Quality.Format)
		if err != nil {
			return docconv.Settings{}, err
		}
		s.Format = f
	}
	return s, nil
}

// serviceOptions maps the config onto service options, followed by env.Options.
func serviceOptions(cfg *config.Config, env *Environment) []docconv.Option {
	capture := docconv.DefaultCaptureSettings()
	if cfg.Timeouts.Readiness > 0 {
		capture.ReadyTimeout = cfg.Timeouts.Readiness
	}
	if cfg.Capture.MaxIterations > 0 {
		capture.MaxIterations = cfg.Capture.MaxIterations
	}
	if cfg.Capture.ScrollPause > 0 {
		capture.ScrollPause = cfg.Capture.ScrollPause
	}
	if cfg.Capture.SettlePause > 0 {
		capture.SettlePause = cfg.Capture.SettlePause
	}
	if cfg.Capture.MaxHeight > 0 {
		capture.MaxHeight = cfg.Capture.MaxHeight
	}
	if cfg.Capture.ViewportWidth > 0 {
		capture.ViewportWidth = cfg.Capture.ViewportWidth
	}
	if cfg.Capture.FallbackDPI > 0 {
		capture.FallbackDPI = float64(cfg.Capture.FallbackDPI)
	}

	opts := []docconv.Option{
		docconv.WithBrowser(docconv.BrowserOptions{
			Bin:           cfg.Browser.Bin,
			NoSandbox:     cfg.Browser.NoSandbox,
			AllowDownload: cfg.Browser.AllowDownload,
		}),
		docconv.WithOffice(docconv.OfficeOptions{
			Soffice: cfg.Tools.Soffice,
			Timeout: cfg.Timeouts.Office,
		}),
		docconv.WithPDFEngine(docconv.PDFEngineOptions{
			PDFInfo:   cfg.Tools.PDFInfo,
			PDFToPPM:  cfg.Tools.PDFToPPM,
			PDFImages: cfg.Tools.PDFImages,
			Timeout:   cfg.Timeouts.PDFEngine,
		}),
		docconv.WithCapture(capture),
	}
	return append(opts, env.Options...)
}

// checkDomain fails fast when no backend of the command's domain probed
// as available.
func checkDomain(service *docconv.Service, cmd command, cfg *config.Config) error {
	if cmd.domain == "" || domainAvailable(service.Selector().Capabilities(), cmd.domain) {
		return nil
	}
	return fmt.Errorf("%w: %s%s", docconv.ErrToolUnavailable, cmd.domain, unavailableHint(cmd.domain, cfg))
}

func domainAvailable(table []docconv.Capability, domain docconv.Domain) bool {
	for _, c := range table {
		if c.Domain == domain && c.Available {
			return true
		}
	}
	return false
}

func unavailableHint(domain docconv.Domain, cfg *config.Config) string {
	switch domain {
	case docconv.DomainDocuments, docconv.DomainSheets:
		return hints.ForOfficeUnavailable(runtime.GOOS)
	case docconv.DomainPDF:
		return hints.ForPDFEngineUnavailable(runtime.GOOS)
	case docconv.DomainWeb:
		return hints.ForBrowserUnavailable(cfg.Browser.AllowDownload)
	}
	return ""
}
