package docconv

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// Notes:
// - mockSession scripts document heights and rendering failures; every
//   pause is replaced with a no-op so captures run instantly.
// - Real browser behavior is covered by service_integration_test.go (integration tag).

// ---------------------------------------------------------------------------
// Test Infrastructure - Mock session and backend
// ---------------------------------------------------------------------------

type mockSession struct {
	mu sync.Mutex

	heights   []int // successive DocumentHeight results; last repeats
	heightIdx int

	navigateErr   error
	waitErr       error
	printErr      error
	printData     []byte
	screenshotErr error

	onScroll func(n int)

	calls         []string
	scrolls       int
	screenshotH   int
	closed        bool
	printAttempts int
}

func (m *mockSession) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockSession) Navigate(string) error {
	m.record("navigate")
	return m.navigateErr
}

func (m *mockSession) WaitReady(time.Duration) error {
	m.record("wait")
	return m.waitErr
}

func (m *mockSession) ScrollToBottom() error {
	m.record("scroll")
	m.scrolls++
	if m.onScroll != nil {
		m.onScroll(m.scrolls)
	}
	return nil
}

func (m *mockSession) ScrollToTop() error {
	m.record("top")
	return nil
}

func (m *mockSession) DocumentHeight() (int, error) {
	if len(m.heights) == 0 {
		return 1000, nil
	}
	h := m.heights[m.heightIdx]
	if m.heightIdx < len(m.heights)-1 {
		m.heightIdx++
	}
	return h, nil
}

func (m *mockSession) PrintToPDF(PrintOptions) ([]byte, error) {
	m.record("print")
	m.printAttempts++
	if m.printErr != nil {
		return nil, m.printErr
	}
	if m.printData != nil {
		return m.printData, nil
	}
	return []byte("%PDF-1.4 printed"), nil
}

func (m *mockSession) Screenshot(width, height int) ([]byte, error) {
	m.record("screenshot")
	m.screenshotH = height
	if m.screenshotErr != nil {
		return nil, m.screenshotErr
	}
	return pngBytes(width/100, height/100), nil
}

func (m *mockSession) Close() error {
	m.closed = true
	return nil
}

var _ BrowserSession = (*mockSession)(nil)

type mockBrowser struct {
	name      string
	launchErr error
	sessions  []*mockSession
	newSess   func() *mockSession
}

func (b *mockBrowser) Name() string                { return b.name }
func (b *mockBrowser) Probe(context.Context) error { return nil }

func (b *mockBrowser) Launch(context.Context) (BrowserSession, error) {
	if b.launchErr != nil {
		return nil, b.launchErr
	}
	s := &mockSession{}
	if b.newSess != nil {
		s = b.newSess()
	}
	b.sessions = append(b.sessions, s)
	return s, nil
}

var _ BrowserBackend = (*mockBrowser)(nil)

func pngBytes(w, h int) []byte {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 10, B: 10, A: 255})
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

func instantRenderer(ctrl *Controller, rep Reporter) *WebpageRenderer {
	r := NewWebpageRenderer(ctrl, rep, DefaultCaptureSettings())
	r.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return r
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path) // #nosec G304 -- test path
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return data
}

// ---------------------------------------------------------------------------
// TestWebpageRenderer_Capture - Rendering tiers
// ---------------------------------------------------------------------------

func TestWebpageRenderer_Capture_PrintSucceeds(t *testing.T) {
	t.Parallel()

	sess := &mockSession{heights: []int{1000, 1500, 1500}}
	out := filepath.Join(t.TempDir(), "page.pdf")

	if err := instantRenderer(NewController(), nil).Capture(context.Background(), sess, "https://example.com", out); err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if got := string(readFile(t, out)); got != "%PDF-1.4 printed" {
		t.Errorf("output = %q, want printed bytes", got)
	}
	for _, c := range sess.calls {
		if c == "screenshot" {
			t.Error("screenshot taken although print succeeded")
		}
	}
}

func TestWebpageRenderer_Capture_ScreenshotFallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		printErr  error
		printData []byte
	}{
		{name: "print error", printErr: ErrPDFGeneration},
		{name: "empty print", printData: []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sess := &mockSession{heights: []int{800}, printErr: tt.printErr, printData: tt.printData}
			out := filepath.Join(t.TempDir(), "page.pdf")

			if err := instantRenderer(NewController(), nil).Capture(context.Background(), sess, "https://example.com", out); err != nil {
				t.Fatalf("Capture() error = %v", err)
			}
			if sess.printAttempts != 1 {
				t.Errorf("print attempts = %d, want 1", sess.printAttempts)
			}
			if last := sess.calls[len(sess.calls)-1]; last != "screenshot" {
				t.Errorf("last call = %q, want screenshot after print", last)
			}
			if !bytes.HasPrefix(readFile(t, out), []byte("%PDF-")) {
				t.Error("fallback output is not a PDF")
			}
			if sess.screenshotH != 800+200 {
				t.Errorf("screenshot height = %d, want %d", sess.screenshotH, 1000)
			}
		})
	}
}

func TestWebpageRenderer_Capture_HeightCap(t *testing.T) {
	t.Parallel()

	sess := &mockSession{heights: []int{40000}, printErr: ErrPDFGeneration}
	rep := &recordingReporter{}
	out := filepath.Join(t.TempDir(), "tall.pdf")

	if err := instantRenderer(NewController(), rep).Capture(context.Background(), sess, "https://example.com", out); err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if sess.screenshotH != 16000 {
		t.Errorf("screenshot height = %d, want cap 16000", sess.screenshotH)
	}
	if !strings.Contains(rep.joined(), "WARN") {
		t.Errorf("truncation not warned:\n%s", rep.joined())
	}
}

func TestWebpageRenderer_Capture_BothTiersFail(t *testing.T) {
	t.Parallel()

	sess := &mockSession{printErr: ErrPDFGeneration, screenshotErr: ErrScreenshot}
	out := filepath.Join(t.TempDir(), "page.pdf")

	err := instantRenderer(NewController(), nil).Capture(context.Background(), sess, "https://example.com", out)
	if !errors.Is(err, ErrExternalOperation) || !errors.Is(err, ErrScreenshot) {
		t.Errorf("error = %v, want ErrExternalOperation wrapping ErrScreenshot", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("output written although both tiers failed")
	}
}

func TestWebpageRenderer_Capture_ReadyTimeoutIsNotFatal(t *testing.T) {
	t.Parallel()

	sess := &mockSession{waitErr: ErrPageLoad}
	out := filepath.Join(t.TempDir(), "page.pdf")

	if err := instantRenderer(NewController(), nil).Capture(context.Background(), sess, "https://example.com", out); err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
}

func TestWebpageRenderer_Capture_NavigateError(t *testing.T) {
	t.Parallel()

	sess := &mockSession{navigateErr: ErrPageLoad}
	out := filepath.Join(t.TempDir(), "page.pdf")

	if err := instantRenderer(NewController(), nil).Capture(context.Background(), sess, "https://example.com", out); !errors.Is(err, ErrPageLoad) {
		t.Errorf("error = %v, want ErrPageLoad", err)
	}
}

// ---------------------------------------------------------------------------
// TestWebpageRenderer_Stabilize - Bounded scrolling
// ---------------------------------------------------------------------------

func TestWebpageRenderer_Stabilize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		heights     []int
		wantScrolls int
	}{
		{name: "static page", heights: []int{1000}, wantScrolls: 1},
		{name: "grows twice", heights: []int{1000, 2000, 3000, 3000}, wantScrolls: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sess := &mockSession{heights: tt.heights}
			out := filepath.Join(t.TempDir(), "page.pdf")
			if err := instantRenderer(NewController(), nil).Capture(context.Background(), sess, "https://example.com", out); err != nil {
				t.Fatalf("Capture() error = %v", err)
			}
			if sess.scrolls != tt.wantScrolls {
				t.Errorf("scrolls = %d, want %d", sess.scrolls, tt.wantScrolls)
			}
		})
	}
}

func TestWebpageRenderer_Stabilize_NeverConverges(t *testing.T) {
	t.Parallel()

	heights := make([]int, 100)
	for i := range heights {
		heights[i] = 1000 * (i + 1)
	}
	sess := &mockSession{heights: heights}
	out := filepath.Join(t.TempDir(), "page.pdf")

	if err := instantRenderer(NewController(), nil).Capture(context.Background(), sess, "https://example.com", out); err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if sess.scrolls != 30 {
		t.Errorf("scrolls = %d, want bound 30", sess.scrolls)
	}
}

func TestWebpageRenderer_Stabilize_StopCancels(t *testing.T) {
	t.Parallel()

	ctrl := NewController()
	sess := &mockSession{heights: []int{1, 2, 3, 4, 5, 6}}
	sess.onScroll = func(n int) {
		if n == 2 {
			ctrl.Stop()
		}
	}
	out := filepath.Join(t.TempDir(), "page.pdf")

	err := instantRenderer(ctrl, nil).Capture(context.Background(), sess, "https://example.com", out)
	if !errors.Is(err, ErrUserCancelled) {
		t.Fatalf("error = %v, want ErrUserCancelled", err)
	}
	if sess.printAttempts != 0 {
		t.Error("rendered after cancellation")
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("output written after cancellation")
	}
}

// ---------------------------------------------------------------------------
// TestWebpageRenderer_Render - Session lifecycle
// ---------------------------------------------------------------------------

func TestWebpageRenderer_Render_ClosesSession(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		session func() *mockSession
		wantErr bool
	}{
		{name: "success", session: func() *mockSession { return &mockSession{} }},
		{name: "failure", session: func() *mockSession { return &mockSession{navigateErr: ErrPageLoad} }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b := &mockBrowser{name: "mock", newSess: tt.session}
			err := instantRenderer(NewController(), nil).Render(context.Background(), b, "https://example.com", filepath.Join(t.TempDir(), "p.pdf"))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Render() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(b.sessions) != 1 || !b.sessions[0].closed {
				t.Error("session not closed")
			}
		})
	}
}

func TestWebpageRenderer_Render_LaunchFailureFallsThrough(t *testing.T) {
	t.Parallel()

	b := &mockBrowser{name: "mock", launchErr: ErrBrowserConnect}
	err := instantRenderer(NewController(), nil).Render(context.Background(), b, "https://example.com", filepath.Join(t.TempDir(), "p.pdf"))
	if !errors.Is(err, errFallThrough) || !errors.Is(err, ErrBrowserConnect) {
		t.Errorf("error = %v, want errFallThrough wrapping ErrBrowserConnect", err)
	}
}

func TestWebpageRenderer_Render_FailureClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		session         func(ctrl *Controller) *mockSession
		wantFallThrough bool
		wantErr         error
	}{
		{
			name:            "navigation failure",
			session:         func(*Controller) *mockSession { return &mockSession{navigateErr: ErrPageLoad} },
			wantFallThrough: true,
			wantErr:         ErrPageLoad,
		},
		{
			name: "both tiers fail",
			session: func(*Controller) *mockSession {
				return &mockSession{printErr: ErrPDFGeneration, screenshotErr: ErrScreenshot}
			},
			wantFallThrough: true,
			wantErr:         ErrScreenshot,
		},
		{
			name: "stop stays terminal",
			session: func(ctrl *Controller) *mockSession {
				s := &mockSession{heights: []int{1, 2, 3, 4}}
				s.onScroll = func(int) { ctrl.Stop() }
				return s
			},
			wantErr: ErrUserCancelled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := NewController()
			b := &mockBrowser{name: "mock", newSess: func() *mockSession { return tt.session(ctrl) }}
			err := instantRenderer(ctrl, nil).Render(context.Background(), b, "https://example.com", filepath.Join(t.TempDir(), "p.pdf"))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Render() error = %v, want %v", err, tt.wantErr)
			}
			if got := errors.Is(err, errFallThrough); got != tt.wantFallThrough {
				t.Errorf("falls through = %v, want %v (%v)", got, tt.wantFallThrough, err)
			}
		})
	}
}

func TestWebpageRenderer_Render_CancelledContextStaysTerminal(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	b := &mockBrowser{name: "mock", newSess: func() *mockSession {
		s := &mockSession{heights: []int{1, 2, 3, 4}}
		s.onScroll = func(int) { cancel() }
		return s
	}}
	err := instantRenderer(NewController(), nil).Render(ctx, b, "https://example.com", filepath.Join(t.TempDir(), "p.pdf"))
	if err == nil || errors.Is(err, errFallThrough) {
		t.Errorf("Render() error = %v, want a terminal error", err)
	}
}

// ---------------------------------------------------------------------------
// TestWebBatch - Stop during the second of three URLs
// ---------------------------------------------------------------------------

func TestWebBatch_StopMidStabilization(t *testing.T) {
	t.Parallel()

	ctrl := NewController()
	b := &mockBrowser{name: "mock"}
	launches := 0
	b.newSess = func() *mockSession {
		launches++
		s := &mockSession{heights: []int{1000, 2000, 3000, 4000}}
		if launches == 2 {
			s.onScroll = func(n int) {
				if n == 1 {
					ctrl.Stop()
				}
			}
		}
		return s
	}

	rep := &recordingReporter{}
	renderer := instantRenderer(ctrl, rep)
	dir := t.TempDir()
	urls := []string{"https://a.example", "https://b.example", "https://c.example"}

	got := NewExecutor(ctrl, rep).Run(context.Background(), urls, dir, URLNamer(), func(ctx context.Context, url, out string) error {
		return renderer.Render(ctx, b, url, out)
	})

	if !got {
		t.Error("Run() = false, want true with one page captured")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("output files = %d, want 1", len(entries))
	}
	if !strings.Contains(rep.joined(), "succeeded 1/3") {
		t.Errorf("summary missing:\n%s", rep.joined())
	}
	for i, s := range b.sessions {
		if !s.closed {
			t.Errorf("session %d left open", i)
		}
	}
	if len(b.sessions) != 2 {
		t.Errorf("sessions launched = %d, want 2", len(b.sessions))
	}
}

func TestSleepContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("sleepContext() = %v, want context.Canceled", err)
	}
	if err := sleepContext(context.Background(), 0); err != nil {
		t.Errorf("sleepContext(0) = %v", err)
	}
}
