package docconv

import "errors"

// Sentinel errors for library operations.
var (
	// Item failure taxonomy. A single-item operation returns one of these
	// (possibly wrapped); the batch loop logs it and moves on.
	ErrToolUnavailable   = errors.New("no conversion backend available")
	ErrExternalOperation = errors.New("external operation failed")
	ErrTimeout           = errors.New("external operation timed out")
	ErrUserCancelled     = errors.New("cancelled by user")
	ErrCleanup           = errors.New("cleanup failed")

	// Browser errors.
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrPDFGeneration  = errors.New("PDF generation failed")
	ErrScreenshot     = errors.New("screenshot capture failed")

	// Settings validation errors.
	ErrInvalidQuality       = errors.New("invalid quality tier")
	ErrInvalidDPI           = errors.New("invalid dpi")
	ErrInvalidFormat        = errors.New("invalid image format")
	ErrInvalidEncodeQuality = errors.New("invalid encode quality")
	ErrInvalidResize        = errors.New("invalid resize percentage")
	ErrInvalidImageSize     = errors.New("invalid image size")

	// Job errors.
	ErrJobRunning   = errors.New("job already running")
	ErrNoRunningJob = errors.New("no running job")
)
