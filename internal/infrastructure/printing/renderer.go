// Package printing renders invoices and proforma invoices to PDF with headless
// Chrome and stores them as downloadable documents.
package printing

import (
	"context"
	"errors"
	"time"
)

// Render error codes
const (
	ErrCodeRenderTimeout = "RENDER_TIMEOUT"
	ErrCodeRenderFailed  = "RENDER_FAILED"
	ErrCodeInvalidHTML   = "INVALID_HTML"
)

// RenderError is a failed HTML to PDF conversion
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

func (e *RenderError) Unwrap() error { return e.Cause }

// NewRenderError creates a RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{Code: code, Message: message, Cause: cause}
}

// IsTimeout reports whether err is a render timeout
func IsTimeout(err error) bool {
	var re *RenderError
	return errors.As(err, &re) && re.Code == ErrCodeRenderTimeout
}

// PageSetup is the A4 page geometry in millimetres
type PageSetup struct {
	WidthMM  float64
	HeightMM float64
	MarginMM float64
}

// A4 is the invoice page
var A4 = PageSetup{WidthMM: 210, HeightMM: 297, MarginMM: 12}

// PDFRenderer converts a complete HTML document to PDF bytes
type PDFRenderer interface {
	Render(ctx context.Context, html string, page PageSetup) ([]byte, error)
	Close() error
}

const defaultRenderTimeout = 30 * time.Second

func mmToInches(mm float64) float64 {
	return mm / 25.4
}
