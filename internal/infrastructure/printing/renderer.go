package printing

import (
	"context"
)

// PaperSize defines the physical output paper
type PaperSize string

const (
	PaperSizeA4     PaperSize = "A4"     // 210mm x 297mm
	PaperSizeA5     PaperSize = "A5"     // 148mm x 210mm
	PaperSizeLetter PaperSize = "LETTER" // 216mm x 279mm
)

// IsValid checks if the PaperSize is a valid value
func (p PaperSize) IsValid() bool {
	switch p {
	case PaperSizeA4, PaperSizeA5, PaperSizeLetter:
		return true
	}
	return false
}

// Dimensions returns the paper dimensions in millimeters (width, height)
// in portrait orientation
func (p PaperSize) Dimensions() (width, height int) {
	switch p {
	case PaperSizeA5:
		return 148, 210
	case PaperSizeLetter:
		return 216, 279
	default:
		return 210, 297
	}
}

// Orientation defines portrait or landscape output
type Orientation string

const (
	OrientationPortrait  Orientation = "PORTRAIT"
	OrientationLandscape Orientation = "LANDSCAPE"
)

// PageOptions controls the layout of the exported PDF
type PageOptions struct {
	PaperSize   PaperSize
	Orientation Orientation
	// PrintBackground includes background graphics
	PrintBackground bool
	// PreferCSSPageSize lets the document's @page size win over PaperSize
	PreferCSSPageSize bool
}

// CertificatePageOptions returns the fixed page policy for certificates:
// A4 landscape with backgrounds, honoring the template's own @page size.
func CertificatePageOptions() PageOptions {
	return PageOptions{
		PaperSize:         PaperSizeA4,
		Orientation:       OrientationLandscape,
		PrintBackground:   true,
		PreferCSSPageSize: true,
	}
}

// BrowserLauncher acquires headless rendering engine sessions
type BrowserLauncher interface {
	// Launch starts a browser session. The caller owns the session and
	// must Close it.
	Launch(ctx context.Context) (BrowserSession, error)
}

// BrowserSession is one acquired rendering engine instance
type BrowserSession interface {
	// PrintPDF loads the markup, waits for layout and exports a PDF
	PrintPDF(ctx context.Context, html string, opts PageOptions) ([]byte, error)
	// Close tears the engine down
	Close() error
}

// RenderError represents an error during rendering or conversion
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// Error codes for rendering failures
const (
	ErrCodeRenderTimeout      = "RENDER_TIMEOUT"
	ErrCodeRenderFailed       = "RENDER_FAILED"
	ErrCodeInvalidHTML        = "INVALID_HTML"
	ErrCodeInvalidTemplate    = "INVALID_TEMPLATE"
	ErrCodeInvalidPaperSize   = "INVALID_PAPER_SIZE"
	ErrCodeEngineLaunchFailed = "ENGINE_LAUNCH_FAILED"
	ErrCodeAssetMissing       = "ASSET_MISSING"
)

// NewRenderError creates a new RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
