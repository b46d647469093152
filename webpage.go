package docconv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"os"
	"time"

	"github.com/alnah/go-docconv/internal/fileutil"
)

// CaptureSettings bounds every phase of a webpage capture.
type CaptureSettings struct {
	LoadDelay     time.Duration // Pause after navigation before the readiness probe
	ReadyTimeout  time.Duration // Readiness probe ceiling; expiry is not fatal
	MaxIterations int           // Stabilization loop bound
	ScrollPause   time.Duration // Pause after each scroll
	SettlePause   time.Duration // Pause after scrolling back to top
	MaxHeight     int           // Screenshot height cap in CSS pixels
	HeightPadding int           // Extra pixels below the measured height
	ViewportWidth int           // Screenshot viewport width
	FallbackDPI   float64       // Resolution of the screenshot PDF
	Print         PrintOptions
}

// DefaultCaptureSettings returns the standard capture bounds.
func DefaultCaptureSettings() CaptureSettings {
	return CaptureSettings{
		LoadDelay:     3 * time.Second,
		ReadyTimeout:  15 * time.Second,
		MaxIterations: 30,
		ScrollPause:   500 * time.Millisecond,
		SettlePause:   time.Second,
		MaxHeight:     16000,
		HeightPadding: 200,
		ViewportWidth: windowWidth,
		FallbackDPI:   150,
		Print:         defaultPrintOptions,
	}
}

// renderState is the phase of one capture.
type renderState int

const (
	stateLoading renderState = iota
	stateStabilizing
	stateRendering
	stateDone
	stateFailed
)

func (s renderState) String() string {
	switch s {
	case stateLoading:
		return "loading"
	case stateStabilizing:
		return "stabilizing"
	case stateRendering:
		return "rendering"
	case stateDone:
		return "done"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// renderSession is the ephemeral state of one capture.
type renderSession struct {
	state      renderState
	lastHeight int
	iterations int
}

// WebpageRenderer captures one URL per call into a PDF file.
type WebpageRenderer struct {
	ctrl     *Controller
	reporter Reporter
	settings CaptureSettings
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewWebpageRenderer creates a renderer that checks ctrl while stabilizing.
// A nil ctrl never pauses.
func NewWebpageRenderer(ctrl *Controller, reporter Reporter, settings CaptureSettings) *WebpageRenderer {
	if ctrl == nil {
		ctrl = NewController()
	}
	if reporter == nil {
		reporter = Discard
	}
	return &WebpageRenderer{
		ctrl:     ctrl,
		reporter: reporter,
		settings: settings,
		sleep:    sleepContext,
	}
}

// Render launches a session from backend, captures url into output and tears
// the session down on every path. Launch and capture failures are reported so
// the caller can move on to the next backend; a stop or a cancelled context
// is returned as is and ends the item.
func (r *WebpageRenderer) Render(ctx context.Context, backend BrowserBackend, url, output string) error {
	sess, err := backend.Launch(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", errFallThrough, err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			r.reporter.Log(fmt.Sprintf("  %v", cerr))
		}
	}()

	err = r.Capture(ctx, sess, url, output)
	if err == nil || errors.Is(err, ErrUserCancelled) || ctx.Err() != nil {
		return err
	}
	return fmt.Errorf("%w: %w", errFallThrough, err)
}

// Capture drives sess through Loading, Stabilizing and Rendering. Output is
// written only once a rendering tier succeeds, so a cancelled or failed
// capture leaves nothing behind.
func (r *WebpageRenderer) Capture(ctx context.Context, sess BrowserSession, url, output string) error {
	rs := &renderSession{state: stateLoading}
	err := r.capture(ctx, sess, rs, url, output)
	if err != nil {
		r.reporter.Log(fmt.Sprintf("  capture %s while %s", stateFailed, rs.state))
		rs.state = stateFailed
		return err
	}
	rs.state = stateDone
	return nil
}

func (r *WebpageRenderer) capture(ctx context.Context, sess BrowserSession, rs *renderSession, url, output string) error {
	if err := r.load(ctx, sess, url); err != nil {
		return err
	}

	rs.state = stateStabilizing
	if err := r.stabilize(ctx, sess, rs); err != nil {
		return err
	}

	rs.state = stateRendering
	return r.render(sess, rs, output)
}

// load navigates and waits for the page to become minimally ready. A
// readiness timeout is logged and ignored.
func (r *WebpageRenderer) load(ctx context.Context, sess BrowserSession, url string) error {
	if err := sess.Navigate(url); err != nil {
		return err
	}
	if err := r.sleep(ctx, r.settings.LoadDelay); err != nil {
		return err
	}
	if err := sess.WaitReady(r.settings.ReadyTimeout); err != nil {
		r.reporter.Log(fmt.Sprintf("  page not ready after %v, continuing", r.settings.ReadyTimeout))
	}
	return nil
}

// stabilize scrolls until the document height stops changing or the
// iteration bound is reached, then returns to the top.
func (r *WebpageRenderer) stabilize(ctx context.Context, sess BrowserSession, rs *renderSession) error {
	h, err := sess.DocumentHeight()
	if err != nil {
		r.reporter.Log(fmt.Sprintf("  cannot measure page height: %v", err))
	}
	rs.lastHeight = h

	for rs.iterations < r.settings.MaxIterations {
		if !r.ctrl.CheckContinue() {
			return ErrUserCancelled
		}
		rs.iterations++

		if err := sess.ScrollToBottom(); err != nil {
			r.reporter.Log(fmt.Sprintf("  scroll failed: %v", err))
			break
		}
		if err := r.sleep(ctx, r.settings.ScrollPause); err != nil {
			return err
		}
		h, err := sess.DocumentHeight()
		if err != nil {
			r.reporter.Log(fmt.Sprintf("  cannot measure page height: %v", err))
			break
		}
		if h == rs.lastHeight {
			break
		}
		rs.lastHeight = h
	}
	r.reporter.Log(fmt.Sprintf("  stabilized at %dpx after %d scroll(s)", rs.lastHeight, rs.iterations))

	if err := sess.ScrollToTop(); err != nil {
		r.reporter.Log(fmt.Sprintf("  scroll to top failed: %v", err))
	}
	return r.sleep(ctx, r.settings.SettlePause)
}

// render tries print-to-PDF first and falls back to a full-page screenshot.
func (r *WebpageRenderer) render(sess BrowserSession, rs *renderSession, output string) error {
	data, err := sess.PrintToPDF(r.settings.Print)
	if err == nil && len(data) > 0 {
		return writeOutput(output, data)
	}
	if err == nil {
		err = fmt.Errorf("%w: empty document", ErrPDFGeneration)
	}
	r.reporter.Log(fmt.Sprintf("  print failed (%v), falling back to screenshot", err))

	if fbErr := r.renderScreenshot(sess, rs, output); fbErr != nil {
		return fmt.Errorf("%w: print: %v; screenshot: %w", ErrExternalOperation, err, fbErr)
	}
	return nil
}

// renderScreenshot captures the stabilized page as one raster page. Pages
// taller than MaxHeight are truncated at the cap.
func (r *WebpageRenderer) renderScreenshot(sess BrowserSession, rs *renderSession, output string) error {
	height := rs.lastHeight + r.settings.HeightPadding
	if height > r.settings.MaxHeight {
		r.reporter.Log(fmt.Sprintf("  WARN: page height %dpx exceeds capture limit %dpx, output truncated", height, r.settings.MaxHeight))
		height = r.settings.MaxHeight
	}
	if height <= 0 {
		height = windowHeight
	}

	data, err := sess.Screenshot(r.settings.ViewportWidth, height)
	if err != nil {
		return err
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: decoding screenshot: %v", ErrScreenshot, err)
	}

	doc := newImagePDF()
	if err := doc.AddImage(img, r.settings.FallbackDPI, 0); err != nil {
		return err
	}
	return doc.WriteFile(output)
}

// writeOutput writes data to path with the standard output permissions.
func writeOutput(path string, data []byte) error {
	if err := os.WriteFile(path, data, fileutil.FilePermissions); err != nil { // #nosec G306 -- output files are user documents
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// sleepContext pauses for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
