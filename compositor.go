package docconv

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
)

// Reference units per inch for the physical-unit spaces used on output pages.
const (
	PointsPerInch = 72.0     // PDF user space
	EMUPerInch    = 914400.0 // OOXML drawing space
	ScreenDPI     = 96.0     // Nominal resolution of images without a known dpi
)

// fitMargin leaves a 5% border around placed content.
const fitMargin = 0.95

// Size is a width and height in one physical-unit space.
type Size struct {
	W, H float64
}

// Placement is the position and size of content on a canvas.
type Placement struct {
	X, Y, W, H float64
}

// Fit scales content uniformly to 95% of the binding canvas dimension and
// centers it.
func Fit(content, canvas Size) (Placement, error) {
	if content.W <= 0 || content.H <= 0 || canvas.W <= 0 || canvas.H <= 0 {
		return Placement{}, fmt.Errorf("%w: content %.2fx%.2f, canvas %.2fx%.2f",
			ErrInvalidImageSize, content.W, content.H, canvas.W, canvas.H)
	}

	scale := math.Min(canvas.W/content.W, canvas.H/content.H) * fitMargin
	w := content.W * scale
	h := content.H * scale
	return Placement{
		X: (canvas.W - w) / 2,
		Y: (canvas.H - h) / 2,
		W: w,
		H: h,
	}, nil
}

// PixelsToPhysical converts a pixel length at dpi into a physical unit with
// unitsPerInch reference units per inch.
func PixelsToPhysical(px int, unitsPerInch, dpi float64) float64 {
	return float64(px) * (unitsPerInch / dpi)
}

// PixelSize returns the physical size of an image of bounds b at dpi.
func PixelSize(b image.Rectangle, unitsPerInch, dpi float64) Size {
	return Size{
		W: PixelsToPhysical(b.Dx(), unitsPerInch, dpi),
		H: PixelsToPhysical(b.Dy(), unitsPerInch, dpi),
	}
}

// FlattenRGB composites img over an opaque white background, dropping any
// transparency. The result is always an *image.RGBA with alpha 255.
func FlattenRGB(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}
