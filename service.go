package docconv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-docconv/internal/fileutil"
)

// Job is the input of one batch operation.
type Job struct {
	Inputs   []string // Files, URLs, or a single folder for FolderToWebP
	Output   string   // Output directory, or a file path for single-output operations
	Settings Settings // Zero fields take the operation's defaults
}

// pageEngine rasterizes and extracts PDF pages one at a time.
type pageEngine interface {
	Backend
	PageCount(ctx context.Context, input string) (int, error)
	RenderPage(ctx context.Context, input string, n, dpi int, format ImageFormat, output string) error
	ExtractPage(ctx context.Context, input string, n int, dir string) (int, error)
}

var _ pageEngine = (*pdfEngine)(nil)

// Option configures a Service.
type Option func(*Service)

// WithBrowser sets how browser backends are located and launched.
func WithBrowser(opts BrowserOptions) Option {
	return func(s *Service) { s.browser = opts }
}

// WithOffice sets the office-suite backend options.
func WithOffice(opts OfficeOptions) Option {
	return func(s *Service) { s.office = opts }
}

// WithPDFEngine sets the poppler tool locations.
func WithPDFEngine(opts PDFEngineOptions) Option {
	return func(s *Service) { s.pdf = opts }
}

// WithCapture sets the webpage capture bounds.
func WithCapture(settings CaptureSettings) Option {
	return func(s *Service) { s.capture = settings }
}

// WithRegistry replaces the built-in backend registry.
func WithRegistry(r Registry) Option {
	return func(s *Service) { s.registry = r }
}

// Service runs every batch conversion over one probed set of backends.
// Each operation is safe to call from a worker goroutine; only one job should
// use a given Controller at a time.
type Service struct {
	browser  BrowserOptions
	office   OfficeOptions
	pdf      PDFEngineOptions
	capture  CaptureSettings
	registry Registry

	selector *Selector
}

// NewService probes every backend once and returns a ready Service.
func NewService(ctx context.Context, opts ...Option) *Service {
	s := &Service{
		browser: BrowserOptions{AllowDownload: true},
		capture: DefaultCaptureSettings(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = DefaultRegistry(s.browser, s.office, s.pdf)
	}
	s.selector = NewSelector(ctx, s.registry)
	return s
}

// DefaultRegistry returns every built-in backend in priority order.
func DefaultRegistry(browser BrowserOptions, office OfficeOptions, pdf PDFEngineOptions) Registry {
	documents, sheets := officeCandidates(office)
	return Registry{
		DomainDocuments: documents,
		DomainSheets:    sheets,
		DomainWeb:       browserCandidates(browser),
		DomainPDF:       {newPDFEngine(pdf)},
	}
}

// Selector returns the backend selector, for capability reports.
func (s *Service) Selector() *Selector {
	return s.selector
}

// prepare fills defaults, validates settings and resolves the output target.
// Single-output mode applies when one input is given and Output already
// names a file with ext.
func (s *Service) prepare(reporter Reporter, job *Job, dpi int, ext string, name NameFunc) (string, NameFunc, bool) {
	job.Settings = job.Settings.withDefaults(dpi)
	if err := job.Settings.Validate(); err != nil {
		reporter.Log(fmt.Sprintf("invalid settings: %v", err))
		return "", nil, false
	}
	if ext != "" && len(job.Inputs) == 1 && fileutil.HasExtension(job.Output, extAliases(ext)...) {
		return filepath.Dir(job.Output), FixedNamer(filepath.Base(job.Output)), true
	}
	return job.Output, name, true
}

// extAliases returns the file extensions, with the dot, that name an output
// of type ext.
func extAliases(ext string) []string {
	if ext == string(FormatJPG) {
		return []string{".jpg", ".jpeg"}
	}
	return []string{"." + ext}
}

// ---------------------------------------------------------------------------
// Office documents and webpages
// ---------------------------------------------------------------------------

// DocumentsToPDF converts word-processing documents with the first office
// backend that succeeds for each file.
func (s *Service) DocumentsToPDF(ctx context.Context, ctrl *Controller, reporter Reporter, job Job) bool {
	return s.officeToPDF(ctx, ctrl, reporter, job, DomainDocuments)
}

// SheetsToPDF converts spreadsheets with the first office backend that
// succeeds for each file.
func (s *Service) SheetsToPDF(ctx context.Context, ctrl *Controller, reporter Reporter, job Job) bool {
	return s.officeToPDF(ctx, ctrl, reporter, job, DomainSheets)
}

func (s *Service) officeToPDF(ctx context.Context, ctrl *Controller, reporter Reporter, job Job, domain Domain) bool {
	reporter = orDiscard(reporter)
	ctrl = orController(ctrl)
	dir, name, ok := s.prepare(reporter, &job, DefaultRasterDPI, "pdf", StemNamer("pdf"))
	if !ok {
		return false
	}
	return NewExecutor(ctrl, reporter).Run(ctx, job.Inputs, dir, name, func(ctx context.Context, input, output string) error {
		return tryBackends(s.selector, reporter, domain, func(b DocumentBackend) error {
			return b.ConvertToPDF(ctx, input, output)
		})
	})
}

// URLsToPDF captures each URL into its own PDF. A browser that cannot be
// launched, or whose capture fails, is skipped in favor of the next
// candidate; a stop ends the item without trying further browsers.
func (s *Service) URLsToPDF(ctx context.Context, ctrl *Controller, reporter Reporter, job Job) bool {
	reporter = orDiscard(reporter)
	ctrl = orController(ctrl)
	dir, name, ok := s.prepare(reporter, &job, DefaultRasterDPI, "pdf", URLNamer())
	if !ok {
		return false
	}
	renderer := NewWebpageRenderer(ctrl, reporter, s.capture)
	return NewExecutor(ctrl, reporter).Run(ctx, job.Inputs, dir, name, func(ctx context.Context, url, output string) error {
		return tryBackends(s.selector, reporter, DomainWeb, func(b BrowserBackend) error {
			return renderer.Render(ctx, b, url, output)
		})
	})
}

// ---------------------------------------------------------------------------
// Images to a single document
// ---------------------------------------------------------------------------

// ImagesToPDF combines images, in order, into one PDF with one page per
// image. Output is a .pdf path or a directory receiving images.pdf.
func (s *Service) ImagesToPDF(ctx context.Context, ctrl *Controller, reporter Reporter, job Job) bool {
	reporter = orDiscard(reporter)
	ctrl = orController(ctrl)
	job.Settings = job.Settings.withDefaults(DefaultRasterDPI)
	if err := job.Settings.Validate(); err != nil {
		reporter.Log(fmt.Sprintf("invalid settings: %v", err))
		return false
	}
	output, ok := aggregateOutput(reporter, job.Output, "images.pdf")
	if !ok {
		return false
	}

	q := job.Settings.Quality
	jpegQuality := q.EncodeQuality()
	if q == QualityHigh {
		jpegQuality = 0
	}

	doc := newImagePDF()
	done := eachImage(ctx, ctrl, reporter, job.Inputs, func(path string) error {
		img, err := decodeImageFile(path)
		if err != nil {
			return err
		}
		return doc.AddImage(img, float64(q.DPI()), jpegQuality)
	})
	if !done {
		return false
	}
	if doc.Pages() == 0 {
		reporter.Log("no image could be converted")
		return false
	}

	if err := doc.WriteFile(output); err != nil {
		reporter.Log(fmt.Sprintf("FAILED: %v", err))
		return false
	}
	reporter.Log(fmt.Sprintf("created %s (%d page(s))", output, doc.Pages()))
	return true
}

// ImagesToSlides places each image, in order, centered on its own 16:9
// slide of one presentation. Medium and low quality shrink large images
// first.
func (s *Service) ImagesToSlides(ctx context.Context, ctrl *Controller, reporter Reporter, job Job) bool {
	reporter = orDiscard(reporter)
	ctrl = orController(ctrl)
	job.Settings = job.Settings.withDefaults(DefaultSlideDPI)
	if err := job.Settings.Validate(); err != nil {
		reporter.Log(fmt.Sprintf("invalid settings: %v", err))
		return false
	}
	output, ok := aggregateOutput(reporter, job.Output, "images.pptx")
	if !ok {
		return false
	}

	q := job.Settings.Quality
	jpegQuality := DefaultReencodeQuality
	if q == QualityHigh {
		jpegQuality = pageJPEGQuality
	}

	deck, err := createSlideDeck(output)
	if err != nil {
		reporter.Log(fmt.Sprintf("FAILED: %v", err))
		return false
	}
	done := eachImage(ctx, ctrl, reporter, job.Inputs, func(path string) error {
		img, err := decodeImageFile(path)
		if err != nil {
			return err
		}
		if w, h, ok := q.thumbnailBounds(); ok {
			img = thumbnail(img, w, h)
		}
		return deck.AddImage(img, ScreenDPI, jpegQuality)
	})
	if !done {
		deck.Abort()
		return false
	}

	slides := deck.Slides()
	if err := deck.Close(); err != nil {
		reporter.Log(fmt.Sprintf("FAILED: %v", err))
		return false
	}
	reporter.Log(fmt.Sprintf("created %s (%d slide(s))", output, slides))
	return true
}

// aggregateOutput resolves the single output file of an aggregate operation
// and creates its directory.
func aggregateOutput(reporter Reporter, output, defaultName string) (string, bool) {
	if !fileutil.HasExtension(output, extAliases(strings.TrimPrefix(filepath.Ext(defaultName), "."))...) {
		output = filepath.Join(output, defaultName)
	}
	if err := os.MkdirAll(filepath.Dir(output), dirPermissions); err != nil {
		reporter.Log(fmt.Sprintf("cannot create output directory %s: %v", filepath.Dir(output), err))
		return "", false
	}
	return output, true
}

// eachImage is the loop of the aggregate operations. Unlike Executor.Run a
// stop discards everything, since the single output is incomplete. A failed
// image is logged and skipped.
func eachImage(ctx context.Context, ctrl *Controller, reporter Reporter, inputs []string, add func(path string) error) bool {
	total := len(inputs)
	if total == 0 {
		return false
	}
	reporter.Log(fmt.Sprintf("combining %d image(s)", total))
	for i, path := range inputs {
		if !ctrl.CheckContinue() || ctx.Err() != nil {
			reporter.Log("stopped by user")
			return false
		}
		reporter.Progress(i+1, total)
		reporter.Log(fmt.Sprintf("[%d/%d] %s", i+1, total, filepath.Base(path)))
		if err := add(path); err != nil {
			reporter.Log("  FAILED: " + err.Error())
		}
	}
	return true
}

// ---------------------------------------------------------------------------
// PDF page conversions
// ---------------------------------------------------------------------------

// PDFsToSlides turns each PDF into a presentation with one page per slide.
func (s *Service) PDFsToSlides(ctx context.Context, ctrl *Controller, reporter Reporter, job Job) bool {
	reporter = orDiscard(reporter)
	ctrl = orController(ctrl)
	dir, name, ok := s.prepare(reporter, &job, DefaultSlideDPI, "pptx", StemNamer("pptx"))
	if !ok {
		return false
	}
	engine, ok := s.engine(reporter)
	if !ok {
		return false
	}
	dpi := job.Settings.DPI

	return NewExecutor(ctrl, reporter).Run(ctx, job.Inputs, dir, name, func(ctx context.Context, input, output string) error {
		pages, err := engine.PageCount(ctx, input)
		if err != nil {
			return err
		}
		work, cleanup, err := fileutil.TempDir("slides")
		if err != nil {
			return err
		}
		defer func() { _ = cleanup() }()

		deck, err := createSlideDeck(output)
		if err != nil {
			return err
		}
		err = runPages(ctrl, reporter, "", pages, func(n int) error {
			page := filepath.Join(work, fmt.Sprintf("page_%d.png", n))
			if err := engine.RenderPage(ctx, input, n, dpi, FormatPNG, page); err != nil {
				return err
			}
			img, err := decodeImageFile(page)
			if err != nil {
				return err
			}
			_ = os.Remove(page)
			return deck.AddImage(img, float64(dpi), 0)
		})
		if err != nil {
			deck.Abort()
			return err
		}
		return deck.Close()
	})
}

// PDFsToImages rasterizes every page of each PDF into a folder named after
// the PDF.
func (s *Service) PDFsToImages(ctx context.Context, ctrl *Controller, reporter Reporter, job Job) bool {
	reporter = orDiscard(reporter)
	ctrl = orController(ctrl)
	dir, name, ok := s.prepare(reporter, &job, DefaultRasterDPI, "", DirNamer())
	if !ok {
		return false
	}
	engine, ok := s.engine(reporter)
	if !ok {
		return false
	}
	settings := job.Settings

	return NewExecutor(ctrl, reporter).Run(ctx, job.Inputs, dir, name, func(ctx context.Context, input, output string) error {
		pages, err := engine.PageCount(ctx, input)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(output, dirPermissions); err != nil {
			return fmt.Errorf("creating %s: %w", output, err)
		}
		reporter.Log(fmt.Sprintf("  %d page(s) at %d dpi", pages, settings.DPI))

		stem := fileutil.Stem(input)
		err = runPages(ctrl, reporter, output, pages, func(n int) error {
			target := filepath.Join(output, fmt.Sprintf("%s_page_%03d.%s", stem, n, settings.Format))
			if settings.Format != FormatWebP {
				return engine.RenderPage(ctx, input, n, settings.DPI, settings.Format, target)
			}
			png := strings.TrimSuffix(target, ".webp") + ".png"
			if err := engine.RenderPage(ctx, input, n, settings.DPI, FormatPNG, png); err != nil {
				return err
			}
			defer func() { _ = os.Remove(png) }()
			return reencodeFile(png, target, FormatWebP, 0, 100)
		})
		if err != nil {
			return err
		}
		reporter.Log(fmt.Sprintf("  %d image(s) saved to %s", pages, output))
		return nil
	})
}

// ExtractPDFImages copies the images embedded in each PDF into a folder
// named after the PDF. A PDF without images still succeeds.
func (s *Service) ExtractPDFImages(ctx context.Context, ctrl *Controller, reporter Reporter, job Job) bool {
	reporter = orDiscard(reporter)
	ctrl = orController(ctrl)
	dir, name, ok := s.prepare(reporter, &job, DefaultRasterDPI, "", DirNamer())
	if !ok {
		return false
	}
	engine, ok := s.engine(reporter)
	if !ok {
		return false
	}

	return NewExecutor(ctrl, reporter).Run(ctx, job.Inputs, dir, name, func(ctx context.Context, input, output string) error {
		pages, err := engine.PageCount(ctx, input)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(output, dirPermissions); err != nil {
			return fmt.Errorf("creating %s: %w", output, err)
		}

		found := 0
		err = runPages(ctrl, reporter, output, pages, func(n int) error {
			count, err := engine.ExtractPage(ctx, input, n, output)
			found += count
			return err
		})
		if err != nil {
			return err
		}
		if found == 0 {
			reporter.Log("  WARN: no embedded images found")
		} else {
			reporter.Log(fmt.Sprintf("  extracted %d image(s)", found))
		}
		return nil
	})
}

// engine returns the PDF engine or logs why none is available.
func (s *Service) engine(reporter Reporter) (pageEngine, bool) {
	b, ok := s.selector.Select(DomainPDF)
	if ok {
		if e, ok := b.(pageEngine); ok {
			return e, true
		}
	}
	reporter.Log(fmt.Sprintf("%v: no PDF engine (install poppler-utils)", ErrToolUnavailable))
	return nil, false
}

// ---------------------------------------------------------------------------
// Image re-encoding
// ---------------------------------------------------------------------------

// ImagesToWebP re-encodes each image as lossless WebP, or as JPEG when the
// format is jpg, scaled by the resize percentage.
func (s *Service) ImagesToWebP(ctx context.Context, ctrl *Controller, reporter Reporter, job Job) bool {
	reporter = orDiscard(reporter)
	ctrl = orController(ctrl)
	format := FormatWebP
	if job.Settings.Format == FormatJPG {
		format = FormatJPG
	}
	job.Settings.Format = format

	dir, name, ok := s.prepare(reporter, &job, DefaultRasterDPI, string(format), StemNamer(string(format)))
	if !ok {
		return false
	}
	settings := job.Settings
	if format == FormatWebP {
		reporter.Log("WebP output is lossless; encode quality ignored")
	}

	return NewExecutor(ctrl, reporter).Run(ctx, job.Inputs, dir, name, func(_ context.Context, input, output string) error {
		return reencodeFile(input, output, format, settings.EncodeQuality, settings.ResizePercent)
	})
}

// FolderToWebP collects every image under the first input folder,
// recursively, and re-encodes them like ImagesToWebP.
func (s *Service) FolderToWebP(ctx context.Context, ctrl *Controller, reporter Reporter, job Job) bool {
	reporter = orDiscard(reporter)
	ctrl = orController(ctrl)
	if len(job.Inputs) == 0 {
		reporter.Log("no input folder given")
		return false
	}
	files, err := fileutil.WalkFiles(job.Inputs[0], folderImageExtensions...)
	if err != nil {
		reporter.Log(err.Error())
		return false
	}
	if len(files) == 0 {
		reporter.Log("WARN: no images found in " + job.Inputs[0])
		return false
	}
	reporter.Log(fmt.Sprintf("found %d image(s)", len(files)))
	job.Inputs = files
	return s.ImagesToWebP(ctx, ctrl, reporter, job)
}

// orController gives a job without a controller one that never pauses.
func orController(c *Controller) *Controller {
	if c == nil {
		return NewController()
	}
	return c
}

func orDiscard(r Reporter) Reporter {
	if r == nil {
		return Discard
	}
	return r
}
