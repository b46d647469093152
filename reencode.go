package docconv

import (
	"bufio"
	"fmt"
	"image"
	_ "image/gif" // register GIF decoder
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"

	"github.com/HugoSmits86/nativewebp"
	_ "golang.org/x/image/bmp" // register BMP decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/alnah/go-docconv/internal/fileutil"
)

// ImageExtensions are the raster inputs accepted by the image conversions.
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".gif", ".tiff", ".tif", ".webp"}

// folderImageExtensions are collected by FolderToWebP.
var folderImageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".gif", ".tiff"}

// decodeImageFile decodes any registered raster format.
func decodeImageFile(path string) (image.Image, error) {
	f, err := os.Open(path) // #nosec G304 -- user-selected input
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrInvalidFormat, path, err)
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrInvalidImageSize, path)
	}
	return img, nil
}

// thumbnail shrinks img to fit within maxW x maxH, preserving aspect ratio.
// Images already inside the box are returned unchanged.
func thumbnail(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	scale := math.Min(float64(maxW)/float64(b.Dx()), float64(maxH)/float64(b.Dy()))
	if scale >= 1 {
		return img
	}
	return scaleImage(img, scale)
}

// resizePercent scales img by pct percent. 100 returns img unchanged.
func resizePercent(img image.Image, pct int) image.Image {
	if pct == 100 {
		return img
	}
	return scaleImage(img, float64(pct)/100)
}

func scaleImage(img image.Image, scale float64) image.Image {
	b := img.Bounds()
	w := max(1, int(float64(b.Dx())*scale))
	h := max(1, int(float64(b.Dy())*scale))
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// encodeImage writes img in format. JPEG output is flattened over white and
// uses quality; WebP output is lossless and ignores it.
func encodeImage(w io.Writer, img image.Image, format ImageFormat, quality int) error {
	var err error
	switch format {
	case FormatPNG:
		err = png.Encode(w, img)
	case FormatJPG:
		err = jpeg.Encode(w, FlattenRGB(img), &jpeg.Options{Quality: quality})
	case FormatWebP:
		err = nativewebp.Encode(w, img, &nativewebp.Options{})
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFormat, format)
	}
	if err != nil {
		return fmt.Errorf("encoding %s: %w", format, err)
	}
	return nil
}

// writeImageFile encodes img into path. A failed write removes the file.
func writeImageFile(path string, img image.Image, format ImageFormat, quality int) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fileutil.FilePermissions) // #nosec G302 G304 -- output files are user documents
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("writing %s: %w", path, cerr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	bw := bufio.NewWriter(f)
	if err := encodeImage(bw, img, format, quality); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// reencodeFile decodes input, scales it by resize percent and writes it to
// output in format.
func reencodeFile(input, output string, format ImageFormat, quality, resize int) error {
	img, err := decodeImageFile(input)
	if err != nil {
		return err
	}
	return writeImageFile(output, resizePercent(img, resize), format, quality)
}
