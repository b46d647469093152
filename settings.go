package docconv

import (
	"fmt"
	"strings"
)

// Quality is an output quality tier.
type Quality string

const (
	QualityHigh   Quality = "high"
	QualityMedium Quality = "medium"
	QualityLow    Quality = "low"
)

// tierSettings maps each tier to its dpi and encode quality.
var tierSettings = map[Quality]struct{ dpi, encodeQuality int }{
	QualityHigh:   {dpi: 300, encodeQuality: 100},
	QualityMedium: {dpi: 150, encodeQuality: 85},
	QualityLow:    {dpi: 72, encodeQuality: 70},
}

// ParseQuality converts a tier name (case-insensitive) into a Quality.
func ParseQuality(s string) (Quality, error) {
	q := Quality(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := tierSettings[q]; !ok {
		return "", fmt.Errorf("%w: %q (must be high, medium, or low)", ErrInvalidQuality, s)
	}
	return q, nil
}

// DPI returns the raster resolution of the tier.
func (q Quality) DPI() int {
	return tierSettings[q].dpi
}

// EncodeQuality returns the lossy encode quality of the tier.
func (q Quality) EncodeQuality() int {
	return tierSettings[q].encodeQuality
}

// thumbnailBounds returns the maximum pixel box for slide images, or false
// when images are embedded at full size.
func (q Quality) thumbnailBounds() (w, h int, ok bool) {
	switch q {
	case QualityMedium:
		return 1920, 1080, true
	case QualityLow:
		return 1280, 720, true
	default:
		return 0, 0, false
	}
}

// ImageFormat is a raster output format.
type ImageFormat string

const (
	FormatPNG  ImageFormat = "png"
	FormatJPG  ImageFormat = "jpg"
	FormatWebP ImageFormat = "webp"
)

// ParseImageFormat accepts png, jpg, jpeg and webp (case-insensitive).
func ParseImageFormat(s string) (ImageFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPG, nil
	case "webp":
		return FormatWebP, nil
	default:
		return "", fmt.Errorf("%w: %q (must be png, jpg, or webp)", ErrInvalidFormat, s)
	}
}

// Settings limits.
const (
	MinDPI           = 72
	MaxDPI           = 600
	MinEncodeQuality = 1
	MaxEncodeQuality = 100
	MinResize        = 1
	MaxResize        = 100
)

// Default settings.
const (
	DefaultRasterDPI       = 200
	DefaultSlideDPI        = 150
	DefaultReencodeQuality = 85
	DefaultResizePercent   = 100
	pageJPEGQuality        = 95
)

// Settings is the configuration of one job.
type Settings struct {
	Quality       Quality     // images->PDF and images->slides
	DPI           int         // PDF rasterization
	Format        ImageFormat // PDF->images and re-encode output
	EncodeQuality int         // lossy re-encode quality
	ResizePercent int         // re-encode resize
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		Quality:       QualityHigh,
		DPI:           DefaultRasterDPI,
		Format:        FormatPNG,
		EncodeQuality: DefaultReencodeQuality,
		ResizePercent: DefaultResizePercent,
	}
}

// Validate checks every field against its allowed range.
func (s Settings) Validate() error {
	if _, ok := tierSettings[s.Quality]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidQuality, s.Quality)
	}
	if s.DPI < MinDPI || s.DPI > MaxDPI {
		return fmt.Errorf("%w: %d (must be %d-%d)", ErrInvalidDPI, s.DPI, MinDPI, MaxDPI)
	}
	switch s.Format {
	case FormatPNG, FormatJPG, FormatWebP:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFormat, s.Format)
	}
	if s.EncodeQuality < MinEncodeQuality || s.EncodeQuality > MaxEncodeQuality {
		return fmt.Errorf("%w: %d (must be %d-%d)", ErrInvalidEncodeQuality, s.EncodeQuality, MinEncodeQuality, MaxEncodeQuality)
	}
	if s.ResizePercent < MinResize || s.ResizePercent > MaxResize {
		return fmt.Errorf("%w: %d (must be %d-%d)", ErrInvalidResize, s.ResizePercent, MinResize, MaxResize)
	}
	return nil
}

// withDefaults fills zero fields, using dpi for an unset DPI.
func (s Settings) withDefaults(dpi int) Settings {
	d := DefaultSettings()
	if s.Quality == "" {
		s.Quality = d.Quality
	}
	if s.DPI == 0 {
		s.DPI = dpi
	}
	if s.Format == "" {
		s.Format = d.Format
	}
	if s.EncodeQuality == 0 {
		s.EncodeQuality = d.EncodeQuality
	}
	if s.ResizePercent == 0 {
		s.ResizePercent = d.ResizePercent
	}
	return s
}
