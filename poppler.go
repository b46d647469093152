package docconv

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-docconv/internal/fileutil"
)

// DefaultPDFEngineTimeout bounds one poppler invocation.
const DefaultPDFEngineTimeout = 60 * time.Second

// PDFEngineOptions locates the poppler tools.
type PDFEngineOptions struct {
	PDFInfo   string // Empty = "pdfinfo" from PATH
	PDFToPPM  string // Empty = "pdftoppm" from PATH
	PDFImages string // Empty = "pdfimages" from PATH
	Timeout   time.Duration
}

// pdfEngine rasterizes pages and extracts embedded images with poppler.
// Every method works on a single page so callers can check for a pause
// between pages.
type pdfEngine struct {
	runner    commandRunner
	pdfinfo   string
	pdftoppm  string
	pdfimages string
	lookPath  func(string) (string, error)
}

var _ Backend = (*pdfEngine)(nil)

func newPDFEngine(opts PDFEngineOptions) *pdfEngine {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultPDFEngineTimeout
	}
	return &pdfEngine{
		runner:    &execRunner{timeout: timeout},
		pdfinfo:   orDefault(opts.PDFInfo, "pdfinfo"),
		pdftoppm:  orDefault(opts.PDFToPPM, "pdftoppm"),
		pdfimages: orDefault(opts.PDFImages, "pdfimages"),
		lookPath:  exec.LookPath,
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Name implements Backend.
func (e *pdfEngine) Name() string { return "poppler" }

// Probe implements Backend.
func (e *pdfEngine) Probe(context.Context) error {
	var missing []string
	for _, tool := range []string{e.pdfinfo, e.pdftoppm, e.pdfimages} {
		if _, err := e.lookPath(tool); err != nil {
			missing = append(missing, filepath.Base(tool))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: poppler tools missing: %s", ErrToolUnavailable, strings.Join(missing, ", "))
	}
	return nil
}

// PageCount reads the number of pages from pdfinfo.
func (e *pdfEngine) PageCount(ctx context.Context, input string) (int, error) {
	res, err := e.runner.Run(ctx, e.pdfinfo, input)
	if err != nil {
		return 0, err
	}
	for _, line := range strings.Split(res.Stdout, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 2 && fields[0] == "Pages:" {
			n, err := strconv.Atoi(fields[1])
			if err != nil || n < 0 {
				break
			}
			return n, nil
		}
	}
	return 0, fmt.Errorf("%w: pdfinfo reported no page count for %s", ErrExternalOperation, input)
}

// RenderPage rasterizes page n of input at dpi into output. Only PNG and
// JPEG are produced natively; JPEG pages use quality 95.
func (e *pdfEngine) RenderPage(ctx context.Context, input string, n, dpi int, format ImageFormat, output string) error {
	ext := filepath.Ext(output)
	prefix := strings.TrimSuffix(output, ext)

	args := []string{
		"-f", strconv.Itoa(n),
		"-l", strconv.Itoa(n),
		"-r", strconv.Itoa(dpi),
	}
	produced := prefix + ".png"
	switch format {
	case FormatJPG:
		args = append(args, "-jpeg", "-jpegopt", "quality="+strconv.Itoa(pageJPEGQuality))
		produced = prefix + ".jpg"
	case FormatPNG:
		args = append(args, "-png")
	default:
		return fmt.Errorf("%w: %q cannot be rendered directly", ErrInvalidFormat, format)
	}
	args = append(args, "-singlefile", input, prefix)

	if _, err := e.runner.Run(ctx, e.pdftoppm, args...); err != nil {
		return err
	}
	if !fileutil.FileExists(produced) {
		return fmt.Errorf("%w: pdftoppm produced no image for page %d", ErrExternalOperation, n)
	}
	if produced != output {
		return os.Rename(produced, output)
	}
	return nil
}

// extractedName matches pdfimages -p output: <prefix>-<page>-<index>.<ext>.
var extractedName = regexp.MustCompile(`-(\d+)-(\d+)\.([A-Za-z0-9]+)$`)

// sidecarExt is the decode-parameters file pdfimages -all writes next to
// each CCITT image. It is not an image.
const sidecarExt = "params"

// ExtractPage writes every image embedded in page n of input into dir as
// image_page<n>_<m>.<ext>, m counting from 1. It returns how many were
// written.
func (e *pdfEngine) ExtractPage(ctx context.Context, input string, n int, dir string) (int, error) {
	work, cleanup, err := fileutil.TempDir("pdfimages")
	if err != nil {
		return 0, err
	}
	defer func() { _ = cleanup() }()

	page := strconv.Itoa(n)
	prefix := filepath.Join(work, "img")
	if _, err := e.runner.Run(ctx, e.pdfimages, "-all", "-p", "-f", page, "-l", page, input, prefix); err != nil {
		return 0, err
	}

	entries, err := os.ReadDir(work)
	if err != nil {
		return 0, fmt.Errorf("reading extracted images: %w", err)
	}
	type extracted struct {
		name  string
		index int
		ext   string
	}
	var found []extracted
	for _, entry := range entries {
		m := extractedName.FindStringSubmatch(entry.Name())
		if m == nil || strings.EqualFold(m[3], sidecarExt) {
			continue
		}
		idx, _ := strconv.Atoi(m[2])
		found = append(found, extracted{name: entry.Name(), index: idx, ext: strings.ToLower(m[3])})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].index < found[j].index })

	for i, f := range found {
		dst := filepath.Join(dir, fmt.Sprintf("image_page%d_%d.%s", n, i+1, f.ext))
		if err := moveFile(filepath.Join(work, f.name), dst); err != nil {
			return i, err
		}
	}
	return len(found), nil
}
