package docconv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/alnah/go-docconv/internal/fileutil"
)

// DefaultOfficeTimeout bounds one office-suite conversion.
const DefaultOfficeTimeout = 120 * time.Second

// OfficeOptions configures the office-suite backends.
type OfficeOptions struct {
	Soffice string        // Explicit LibreOffice binary; empty = search
	Timeout time.Duration // Per-conversion ceiling; zero = DefaultOfficeTimeout
}

func (o OfficeOptions) timeout() time.Duration {
	if o.Timeout <= 0 {
		return DefaultOfficeTimeout
	}
	return o.Timeout
}

// comDocument selects which COM object model a backend drives and how it
// exports PDF: Word saves as PDF, WPS Writer and every spreadsheet
// application export a fixed format.
type comDocument int

const (
	comWordSaveAs comDocument = iota
	comWriterExport
	comWorkbookExport
)

// PDF export constants of the office object models.
const (
	wdFormatPDF = 17
	xlTypePDF   = 0
)

// comBackend converts through a desktop office suite's automation server.
// The first ProgID that can be instantiated is used.
type comBackend struct {
	name     string
	progIDs  []string
	document comDocument
	timeout  time.Duration
}

var _ DocumentBackend = (*comBackend)(nil)

// Name implements Backend.
func (b *comBackend) Name() string { return b.name }

// Probe implements Backend. The application is started and quit once.
func (b *comBackend) Probe(ctx context.Context) error {
	return runCOM(ctx, b.timeout, func() error {
		return probeCOM(b.progIDs)
	})
}

// ConvertToPDF implements DocumentBackend. Any failure moves on to the next
// backend.
func (b *comBackend) ConvertToPDF(ctx context.Context, input, output string) error {
	in, err := filepath.Abs(input)
	if err != nil {
		return fmt.Errorf("%w: %v", errFallThrough, err)
	}
	out, err := filepath.Abs(output)
	if err != nil {
		return fmt.Errorf("%w: %v", errFallThrough, err)
	}

	err = runCOM(ctx, b.timeout, func() error {
		return convertCOM(b.progIDs, b.document, in, out)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", errFallThrough, err)
	}
	return nil
}

// runCOM runs fn on a dedicated OS thread and waits at most timeout. On
// timeout the thread is abandoned; the automation server is still quit by fn.
func runCOM(ctx context.Context, timeout time.Duration, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		done <- withCOM(fn)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w: office automation after %v", ErrExternalOperation, ErrTimeout, timeout)
		}
		return ctx.Err()
	}
}

// sofficeBackend converts with LibreOffice in headless mode.
type sofficeBackend struct {
	bin    string
	runner commandRunner
	lookup func() (string, bool)
}

var _ DocumentBackend = (*sofficeBackend)(nil)

func newSofficeBackend(opts OfficeOptions) *sofficeBackend {
	return &sofficeBackend{
		bin:    opts.Soffice,
		runner: &execRunner{timeout: opts.timeout()},
		lookup: sofficeLookup,
	}
}

// Name implements Backend.
func (b *sofficeBackend) Name() string { return "libreoffice" }

// Probe implements Backend.
func (b *sofficeBackend) Probe(context.Context) error {
	if _, err := b.path(); err != nil {
		return err
	}
	return nil
}

func (b *sofficeBackend) path() (string, error) {
	if b.bin != "" {
		if !fileutil.FileExists(b.bin) {
			return "", fmt.Errorf("%w: soffice not found at %s", ErrToolUnavailable, b.bin)
		}
		return b.bin, nil
	}
	if p, ok := b.lookup(); ok {
		return p, nil
	}
	return "", fmt.Errorf("%w: LibreOffice not installed", ErrToolUnavailable)
}

// ConvertToPDF implements DocumentBackend. LibreOffice always writes
// <outdir>/<stem>.pdf, so it converts into a private directory and the
// result is moved to output.
func (b *sofficeBackend) ConvertToPDF(ctx context.Context, input, output string) error {
	bin, err := b.path()
	if err != nil {
		return fmt.Errorf("%w: %w", errFallThrough, err)
	}

	workDir, cleanup, err := fileutil.TempDir("soffice")
	if err != nil {
		return fmt.Errorf("%w: %v", errFallThrough, err)
	}
	defer func() { _ = cleanup() }()

	in, err := filepath.Abs(input)
	if err != nil {
		return fmt.Errorf("%w: %v", errFallThrough, err)
	}
	profile := filepath.ToSlash(filepath.Join(workDir, "profile"))
	_, err = b.runner.Run(ctx, bin,
		"-env:UserInstallation=file:///"+trimLeadingSlash(profile),
		"--headless",
		"--convert-to", "pdf",
		"--outdir", workDir,
		in,
	)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		return fmt.Errorf("%w: %w", errFallThrough, err)
	}

	produced := filepath.Join(workDir, fileutil.Stem(in)+".pdf")
	if !fileutil.FileExists(produced) {
		return fmt.Errorf("%w: %w: soffice produced no output", errFallThrough, ErrExternalOperation)
	}
	if err := moveFile(produced, output); err != nil {
		return fmt.Errorf("%w: %v", errFallThrough, err)
	}
	return nil
}

func trimLeadingSlash(p string) string {
	for len(p) > 0 && p[0] == '/' {
		p = p[1:]
	}
	return p
}

// moveFile renames src to dst, copying when they are on different volumes.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	data, err := os.ReadFile(src) // #nosec G304 -- src is inside our temp dir
	if err != nil {
		return fmt.Errorf("reading %s: %w", src, err)
	}
	if err := writeOutput(dst, data); err != nil {
		return err
	}
	return os.Remove(src)
}

// sofficeLookup searches the standard install locations, then PATH.
func sofficeLookup() (string, bool) {
	var candidates []string
	switch runtime.GOOS {
	case "windows":
		for _, env := range []string{"ProgramFiles", "ProgramFiles(x86)"} {
			if dir := os.Getenv(env); dir != "" {
				candidates = append(candidates, filepath.Join(dir, "LibreOffice", "program", "soffice.exe"))
			}
		}
	case "darwin":
		candidates = append(candidates,
			"/opt/homebrew/bin/soffice",
			"/Applications/LibreOffice.app/Contents/MacOS/soffice",
		)
	default:
		candidates = append(candidates, "/usr/bin/libreoffice", "/usr/bin/soffice")
	}
	for _, c := range candidates {
		if fileutil.FileExists(c) {
			return c, true
		}
	}
	for _, name := range []string{"soffice", "libreoffice"} {
		if p, err := exec.LookPath(name); err == nil {
			return p, true
		}
	}
	return "", false
}

// officeCandidates returns the document and sheet backends in priority order.
func officeCandidates(opts OfficeOptions) (documents, sheets []Backend) {
	t := opts.timeout()
	soffice := newSofficeBackend(opts)
	documents = []Backend{
		&comBackend{name: "ms-word", progIDs: []string{"Word.Application"}, document: comWordSaveAs, timeout: t},
		&comBackend{name: "wps-writer", progIDs: []string{"KWPS.Application", "KET.Application"}, document: comWriterExport, timeout: t},
		soffice,
	}
	sheets = []Backend{
		&comBackend{name: "ms-excel", progIDs: []string{"Excel.Application"}, document: comWorkbookExport, timeout: t},
		&comBackend{name: "wps-spreadsheets", progIDs: []string{"KET.Application", "ET.Application"}, document: comWorkbookExport, timeout: t},
		soffice,
	}
	return documents, sheets
}
