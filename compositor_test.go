package docconv

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"
)

const tolerance = 1e-9

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) <= tolerance*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

// ---------------------------------------------------------------------------
// TestFit - Aspect-preserving placement
// ---------------------------------------------------------------------------

func TestFit(t *testing.T) {
	t.Parallel()

	slide := Size{W: 13.333 * EMUPerInch, H: 7.5 * EMUPerInch}
	a4 := Size{W: 595.28, H: 841.89}

	tests := []struct {
		name    string
		content Size
		canvas  Size
	}{
		{"landscape image on slide", Size{1920, 1080}, slide},
		{"portrait image on slide", Size{1080, 1920}, slide},
		{"square on a4", Size{500, 500}, a4},
		{"tiny image is upscaled", Size{3, 2}, a4},
		{"huge image is downscaled", Size{40000, 100}, slide},
		{"exact canvas ratio", Size{16, 9}, Size{1600, 900}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := Fit(tt.content, tt.canvas)
			if err != nil {
				t.Fatalf("Fit() error = %v", err)
			}

			if !approxEqual(p.W/p.H, tt.content.W/tt.content.H) {
				t.Errorf("aspect = %v, want %v", p.W/p.H, tt.content.W/tt.content.H)
			}

			maxW, maxH := fitMargin*tt.canvas.W, fitMargin*tt.canvas.H
			if p.W > maxW*(1+tolerance) || p.H > maxH*(1+tolerance) {
				t.Errorf("size %vx%v exceeds %vx%v", p.W, p.H, maxW, maxH)
			}
			if !approxEqual(p.W, maxW) && !approxEqual(p.H, maxH) {
				t.Errorf("neither dimension is binding: %vx%v in %vx%v", p.W, p.H, maxW, maxH)
			}

			if !approxEqual(p.X, (tt.canvas.W-p.W)/2) || !approxEqual(p.Y, (tt.canvas.H-p.H)/2) {
				t.Errorf("offset = (%v, %v), not centered", p.X, p.Y)
			}
		})
	}
}

func TestFit_InvalidSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content Size
		canvas  Size
	}{
		{"zero width", Size{0, 10}, Size{10, 10}},
		{"zero height", Size{10, 0}, Size{10, 10}},
		{"negative canvas", Size{10, 10}, Size{-1, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Fit(tt.content, tt.canvas); !errors.Is(err, ErrInvalidImageSize) {
				t.Errorf("error = %v, want ErrInvalidImageSize", err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestPixelsToPhysical - Unit conversion
// ---------------------------------------------------------------------------

func TestPixelsToPhysical(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		px           int
		unitsPerInch float64
		dpi          float64
		want         float64
	}{
		{"150 dpi screenshot to points", 1500, PointsPerInch, 150, 720},
		{"96 dpi image to EMU", 96, EMUPerInch, ScreenDPI, EMUPerInch},
		{"200 dpi page to points", 1700, PointsPerInch, 200, 612},
		{"zero pixels", 0, PointsPerInch, 300, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := PixelsToPhysical(tt.px, tt.unitsPerInch, tt.dpi); !approxEqual(got, tt.want) {
				t.Errorf("PixelsToPhysical() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPixelSize(t *testing.T) {
	t.Parallel()

	got := PixelSize(image.Rect(10, 10, 310, 160), PointsPerInch, 150)
	if !approxEqual(got.W, 144) || !approxEqual(got.H, 72) {
		t.Errorf("PixelSize() = %+v, want {144 72}", got)
	}
}

// ---------------------------------------------------------------------------
// TestFlattenRGB - Transparency over white
// ---------------------------------------------------------------------------

func TestFlattenRGB(t *testing.T) {
	t.Parallel()

	src := image.NewNRGBA(image.Rect(5, 5, 7, 6))
	src.Set(5, 5, color.NRGBA{R: 0, G: 0, B: 0, A: 0})
	src.Set(6, 5, color.NRGBA{R: 255, G: 0, B: 0, A: 255})

	got := FlattenRGB(src)

	if got.Bounds() != image.Rect(0, 0, 2, 1) {
		t.Fatalf("bounds = %v, want origin-based 2x1", got.Bounds())
	}
	if c := got.RGBAAt(0, 0); c != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("transparent pixel = %v, want white", c)
	}
	if c := got.RGBAAt(1, 0); c != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("opaque pixel = %v, want red", c)
	}
}
