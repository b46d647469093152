package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	docconv "github.com/alnah/go-docconv"
	"github.com/alnah/go-docconv/internal/fileutil"
)

// Sentinel errors for command resolution.
var (
	ErrUsage            = errors.New("invalid usage")
	ErrUnknownCommand   = errors.New("unknown command")
	ErrNoInput          = errors.New("no input")
	ErrNoOutput         = errors.New("no output directory: use -o or set output.defaultDir")
	ErrUnsupportedInput = errors.New("unsupported input")
)

// conversion is a batch operation of docconv.Service, taken as a method expression.
type conversion func(*docconv.Service, context.Context, *docconv.Controller, docconv.Reporter, docconv.Job) bool

// inputKind tells how a command's positional arguments are resolved.
type inputKind int

const (
	inputFiles  inputKind = iota // Files, or folders searched for matching files
	inputURLs                    // URLs or bare hosts, plus --urls-file
	inputFolder                  // Exactly one folder, walked by the service
)

// command describes one conversion subcommand.
type command struct {
	name    string
	summary string
	args    string
	kind    inputKind
	exts    []string       // Accepted input extensions, with the dot
	domain  docconv.Domain // Required backend domain; empty for pure Go work
	run     conversion
}

var (
	documentExtensions = []string{".docx", ".doc", ".wps", ".rtf", ".odt"}
	sheetExtensions    = []string{".xlsx", ".xls", ".csv", ".ods"}
	pdfExtensions      = []string{".pdf"}
)

var commands = []command{
	{
		name: "docs", summary: "Convert Word/WPS documents to PDF", args: "<file|folder>...",
		exts: documentExtensions, domain: docconv.DomainDocuments, run: (*docconv.Service).DocumentsToPDF,
	},
	{
		name: "sheets", summary: "Convert spreadsheets to PDF", args: "<file|folder>...",
		exts: sheetExtensions, domain: docconv.DomainSheets, run: (*docconv.Service).SheetsToPDF,
	},
	{
		name: "web", summary: "Capture webpages as PDF", args: "<url>... [--urls-file f]",
		kind: inputURLs, domain: docconv.DomainWeb, run: (*docconv.Service).URLsToPDF,
	},
	{
		name: "images-pdf", summary: "Combine images into one PDF", args: "<image|folder>...",
		exts: docconv.ImageExtensions, run: (*docconv.Service).ImagesToPDF,
	},
	{
		name: "images-slides", summary: "Combine images into one slide deck", args: "<image|folder>...",
		exts: docconv.ImageExtensions, run: (*docconv.Service).ImagesToSlides,
	},
	{
		name: "pdf-slides", summary: "Turn each PDF page into a slide", args: "<pdf|folder>...",
		exts: pdfExtensions, domain: docconv.DomainPDF, run: (*docconv.Service).PDFsToSlides,
	},
	{
		name: "pdf-images", summary: "Rasterize PDF pages to images", args: "<pdf|folder>...",
		exts: pdfExtensions, domain: docconv.DomainPDF, run: (*docconv.Service).PDFsToImages,
	},
	{
		name: "pdf-extract", summary: "Extract embedded images from PDFs", args: "<pdf|folder>...",
		exts: pdfExtensions, domain: docconv.DomainPDF, run: (*docconv.Service).ExtractPDFImages,
	},
	{
		name: "webp", summary: "Re-encode images (WebP, PNG or JPG)", args: "<image|folder>...",
		exts: docconv.ImageExtensions, run: (*docconv.Service).ImagesToWebP,
	},
	{
		name: "folder-webp", summary: "Re-encode every image under a folder", args: "<folder>",
		kind: inputFolder, run: (*docconv.Service).FolderToWebP,
	},
}

// lookupCommand returns the command registered under name.
func lookupCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

// resolveInputs turns positional arguments into the job's input list.
// urlsText is the content of --urls-file, if any.
func (c command) resolveInputs(args []string, urlsText string) ([]string, error) {
	switch c.kind {
	case inputURLs:
		return resolveURLs(args, urlsText)
	case inputFolder:
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: %s takes exactly one folder", ErrUsage, c.name)
		}
		if !fileutil.DirExists(args[0]) {
			return nil, fmt.Errorf("%w: %s is not a folder", ErrNoInput, args[0])
		}
		return args, nil
	default:
		return resolveFiles(args, c.exts)
	}
}

// resolveFiles expands folders to their matching files and checks that every
// explicit file exists and has an accepted extension.
func resolveFiles(args []string, exts []string) ([]string, error) {
	if len(args) == 0 {
		return nil, ErrNoInput
	}

	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoInput, err)
		}
		if info.IsDir() {
			found, err := fileutil.WalkFiles(arg, exts...)
			if err != nil {
				return nil, err
			}
			files = append(files, found...)
			continue
		}
		if !fileutil.HasExtension(arg, exts...) {
			return nil, fmt.Errorf("%w: %s (expected %s)", ErrUnsupportedInput, arg, strings.Join(exts, ", "))
		}
		files = append(files, arg)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no %s files found", ErrNoInput, strings.Join(exts, "/"))
	}
	return files, nil
}

// resolveURLs merges URL arguments with a URL list, in that order. Both go
// through docconv.ParseURLList, so a bare host gets https:// prepended.
func resolveURLs(args []string, urlsText string) ([]string, error) {
	urls := docconv.ParseURLList(strings.Join(args, "\n") + "\n" + urlsText)
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: give URLs as arguments or with --urls-file", ErrNoInput)
	}
	return urls, nil
}
