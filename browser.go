package docconv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/rod/lib/utils"

	"github.com/alnah/go-docconv/internal/fileutil"
	"github.com/alnah/go-docconv/internal/process"
)

// BrowserSession is one headless page owned by a single capture. Close must
// tear down the page and the browser process tree.
type BrowserSession interface {
	Navigate(url string) error
	WaitReady(timeout time.Duration) error
	ScrollToBottom() error
	ScrollToTop() error
	DocumentHeight() (int, error)
	PrintToPDF(opts PrintOptions) ([]byte, error)
	Screenshot(width, height int) ([]byte, error)
	Close() error
}

// PrintOptions is the page geometry for the print-to-PDF protocol, in inches.
type PrintOptions struct {
	PaperWidth  float64
	PaperHeight float64
	Margin      float64
}

// A4 portrait with 0.4 inch margins.
var defaultPrintOptions = PrintOptions{
	PaperWidth:  8.27,
	PaperHeight: 11.69,
	Margin:      0.4,
}

// Compile-time interface checks
var (
	_ BrowserSession = (*rodSession)(nil)
	_ BrowserBackend = (*localBrowser)(nil)
	_ BrowserBackend = (*managedBrowser)(nil)
)

// Initial window size of every session.
const (
	windowWidth  = 1920
	windowHeight = 1080
)

// BrowserOptions configures how browser processes are launched.
type BrowserOptions struct {
	Bin           string // Explicit browser binary; overrides lookup for chrome
	NoSandbox     bool   // Required in containers and CI
	AllowDownload bool   // Permit on-demand browser downloads
	DownloadDir   string // Empty = rod default
}

// rodSession implements BrowserSession with go-rod.
type rodSession struct {
	ctx      context.Context
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

// launchSession starts bin headless and opens a blank page.
func launchSession(ctx context.Context, bin string, noSandbox bool) (*rodSession, error) {
	l := launcher.New().
		Context(ctx).
		Bin(bin).
		Headless(true).
		NoSandbox(noSandbox).
		Set("disable-gpu").
		Set("hide-scrollbars").
		Set("window-size", fmt.Sprintf("%d,%d", windowWidth, windowHeight))

	u, err := l.Launch()
	if err != nil {
		if l.PID() > 0 {
			l.Kill()
		}
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	s := &rodSession{ctx: ctx, launcher: l}
	s.browser = rod.New().ControlURL(u).Context(ctx)
	if err := s.browser.Connect(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	s.page, err = s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	return s, nil
}

// Navigate opens url in the session page.
func (s *rodSession) Navigate(url string) error {
	if err := s.page.Navigate(url); err != nil {
		return fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	return nil
}

// WaitReady waits for the body element, bounded by timeout.
func (s *rodSession) WaitReady(timeout time.Duration) error {
	if _, err := s.page.Timeout(timeout).Element("body"); err != nil {
		return fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	return nil
}

// ScrollToBottom scrolls the viewport to the current document bottom.
func (s *rodSession) ScrollToBottom() error {
	_, err := s.page.Eval(`() => window.scrollTo(0, document.body ? document.body.scrollHeight : 0)`)
	return err
}

// ScrollToTop scrolls the viewport back to the origin.
func (s *rodSession) ScrollToTop() error {
	_, err := s.page.Eval(`() => window.scrollTo(0, 0)`)
	return err
}

// DocumentHeight measures the full scrollable height in CSS pixels.
func (s *rodSession) DocumentHeight() (int, error) {
	res, err := s.page.Eval(`() => Math.max(
		document.body ? document.body.scrollHeight : 0,
		document.documentElement ? document.documentElement.scrollHeight : 0)`)
	if err != nil {
		return 0, err
	}
	return res.Value.Int(), nil
}

// PrintToPDF renders the page through the browser's print protocol.
func (s *rodSession) PrintToPDF(opts PrintOptions) ([]byte, error) {
	reader, err := s.page.PDF(&proto.PagePrintToPDF{
		Landscape:         false,
		PrintBackground:   true,
		PreferCSSPageSize: true,
		Scale:             floatPtr(1),
		PaperWidth:        floatPtr(opts.PaperWidth),
		PaperHeight:       floatPtr(opts.PaperHeight),
		MarginTop:         floatPtr(opts.Margin),
		MarginBottom:      floatPtr(opts.Margin),
		MarginLeft:        floatPtr(opts.Margin),
		MarginRight:       floatPtr(opts.Margin),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}

	pdfBuf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrPDFGeneration, err)
	}
	return pdfBuf, nil
}

// Screenshot resizes the viewport to width x height and captures it as PNG.
func (s *rodSession) Screenshot(width, height int) ([]byte, error) {
	err := s.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: resizing viewport: %v", ErrScreenshot, err)
	}

	data, err := s.page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format:                proto.PageCaptureScreenshotFormatPng,
		CaptureBeyondViewport: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScreenshot, err)
	}
	return data, nil
}

// Close releases the page and browser, then kills the process tree.
// It is safe to call on a partially constructed session.
func (s *rodSession) Close() error {
	var errs []error
	if s.page != nil {
		if err := s.page.Close(); err != nil && !errors.Is(err, context.Canceled) {
			errs = append(errs, err)
		}
		s.page = nil
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil && !errors.Is(err, context.Canceled) {
			errs = append(errs, err)
		}
		s.browser = nil
	}
	if s.launcher != nil {
		// Cleanup blocks until the process exits, so only a started
		// launcher may reach it.
		if pid := s.launcher.PID(); pid > 0 {
			process.KillProcessGroup(pid)
			s.launcher.Kill()
			s.launcher.Cleanup()
		}
		s.launcher = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrCleanup, errors.Join(errs...))
	}
	return nil
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}

// localBrowser is an installed Chromium-based browser found on this host.
type localBrowser struct {
	name      string
	lookup    func() (string, bool)
	noSandbox bool
}

// Name implements Backend.
func (b *localBrowser) Name() string { return b.name }

// Probe implements Backend.
func (b *localBrowser) Probe(context.Context) error {
	if _, ok := b.lookup(); !ok {
		return fmt.Errorf("%w: %s not installed", ErrToolUnavailable, b.name)
	}
	return nil
}

// Launch implements BrowserBackend.
func (b *localBrowser) Launch(ctx context.Context) (BrowserSession, error) {
	bin, ok := b.lookup()
	if !ok {
		return nil, fmt.Errorf("%w: %s not installed", ErrToolUnavailable, b.name)
	}
	return launchSession(ctx, bin, b.noSandbox)
}

// managedBrowser downloads a pinned Chromium build from an ordered list of
// hosts the first time it is launched.
type managedBrowser struct {
	name    string
	hosts   []launcher.Host
	opts    BrowserOptions
	fetchMu chan struct{}
}

func newManagedBrowser(name string, opts BrowserOptions, hosts ...launcher.Host) *managedBrowser {
	return &managedBrowser{name: name, hosts: hosts, opts: opts, fetchMu: make(chan struct{}, 1)}
}

// Name implements Backend.
func (b *managedBrowser) Name() string { return b.name }

// Probe implements Backend. Acquisition is deferred to Launch.
func (b *managedBrowser) Probe(context.Context) error {
	if !b.opts.AllowDownload {
		return fmt.Errorf("%w: browser downloads disabled", ErrToolUnavailable)
	}
	return nil
}

// Launch implements BrowserBackend.
func (b *managedBrowser) Launch(ctx context.Context) (BrowserSession, error) {
	bin, err := b.fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: downloading browser: %v", ErrBrowserConnect, err)
	}
	return launchSession(ctx, bin, b.opts.NoSandbox)
}

// fetch returns the cached binary or downloads it. Concurrent callers are
// serialized so only one download runs.
func (b *managedBrowser) fetch(ctx context.Context) (string, error) {
	select {
	case b.fetchMu <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-b.fetchMu }()

	lc := launcher.NewBrowser()
	lc.Context = ctx
	lc.Hosts = b.hosts
	lc.Logger = utils.LoggerQuiet
	if b.opts.DownloadDir != "" {
		lc.RootDir = b.opts.DownloadDir
	}
	return lc.Get()
}

// chromeLookup finds Chrome or Chromium, honoring an explicit binary.
func chromeLookup(bin string) func() (string, bool) {
	return func() (string, bool) {
		if bin != "" {
			return bin, fileutil.FileExists(bin)
		}
		return launcher.LookPath()
	}
}

// edgeLookup finds Microsoft Edge in its standard install locations.
func edgeLookup() (string, bool) {
	var candidates []string
	switch runtime.GOOS {
	case "windows":
		for _, env := range []string{"ProgramFiles(x86)", "ProgramFiles", "LocalAppData"} {
			if dir := os.Getenv(env); dir != "" {
				candidates = append(candidates, dir+`\Microsoft\Edge\Application\msedge.exe`)
			}
		}
	case "darwin":
		candidates = append(candidates, "/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge")
	default:
		for _, name := range []string{"microsoft-edge", "microsoft-edge-stable"} {
			if p, err := exec.LookPath(name); err == nil {
				candidates = append(candidates, p)
			}
		}
		candidates = append(candidates, "/opt/microsoft/msedge/msedge")
	}
	for _, c := range candidates {
		if fileutil.FileExists(c) {
			return c, true
		}
	}
	return "", false
}

// browserCandidates returns the web backends in priority order: installed
// Edge, installed Chrome, then downloads from the primary and mirror hosts.
func browserCandidates(opts BrowserOptions) []Backend {
	return []Backend{
		&localBrowser{name: "edge", lookup: edgeLookup, noSandbox: opts.NoSandbox},
		&localBrowser{name: "chrome", lookup: chromeLookup(opts.Bin), noSandbox: opts.NoSandbox},
		newManagedBrowser("chromium-download", opts, launcher.HostGoogle),
		newManagedBrowser("chromium-mirror", opts, launcher.HostNPM, launcher.HostPlaywright),
	}
}
