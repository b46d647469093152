package docconv

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"strconv"
	"time"

	"codeberg.org/go-pdf/fpdf"

	"github.com/alnah/go-docconv/internal/fileutil"
)

// imagePDF builds a PDF with one full-bleed raster image per page. Each page
// is sized so the image prints at its dpi.
type imagePDF struct {
	pdf   *fpdf.Fpdf
	pages int
}

func newImagePDF() *imagePDF {
	pdf := fpdf.NewCustom(&fpdf.InitType{UnitStr: "pt"})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("go-docconv", false)
	pdf.SetCreationDate(time.Now())
	return &imagePDF{pdf: pdf}
}

// AddImage appends a page holding img, flattened over white. A jpegQuality of
// zero embeds the page losslessly as PNG.
func (d *imagePDF) AddImage(img image.Image, dpi float64, jpegQuality int) error {
	flat := FlattenRGB(img)
	size := PixelSize(flat.Bounds(), PointsPerInch, dpi)
	if size.W <= 0 || size.H <= 0 {
		return fmt.Errorf("%w: %dx%d px", ErrInvalidImageSize, flat.Bounds().Dx(), flat.Bounds().Dy())
	}

	var buf bytes.Buffer
	imageType := "png"
	if jpegQuality > 0 {
		imageType = "jpg"
		if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return fmt.Errorf("encoding page image: %w", err)
		}
	} else if err := png.Encode(&buf, flat); err != nil {
		return fmt.Errorf("encoding page image: %w", err)
	}

	d.pages++
	name := "page" + strconv.Itoa(d.pages)
	opts := fpdf.ImageOptions{ImageType: imageType}
	d.pdf.RegisterImageOptionsReader(name, opts, &buf)
	d.pdf.AddPageFormat("P", fpdf.SizeType{Wd: size.W, Ht: size.H})
	d.pdf.ImageOptions(name, 0, 0, size.W, size.H, false, opts, 0, "")
	if err := d.pdf.Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}
	return nil
}

// Pages returns the number of pages added so far.
func (d *imagePDF) Pages() int {
	return d.pages
}

// WriteTo encodes the document to w.
func (d *imagePDF) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	if err := d.pdf.Output(cw); err != nil {
		return cw.n, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}
	return cw.n, nil
}

// WriteFile encodes the document to path. A failed write removes the file.
func (d *imagePDF) WriteFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fileutil.FilePermissions) // #nosec G302 G304 -- output files are user documents
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}
	if _, err := d.WriteTo(f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
