package printing

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/flipflop/backend/internal/domain/billing"
	"go.uber.org/zap"
)

// KeyPrefix is the storage folder for invoice documents
const KeyPrefix = "invoices"

// Store is the subset of storage.Store the printer writes to
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// InvoicePrinter renders invoice snapshots to PDF and stores them
type InvoicePrinter struct {
	renderer PDFRenderer
	store    Store
	logger   *zap.Logger
}

// NewInvoicePrinter creates a printer
func NewInvoicePrinter(renderer PDFRenderer, store Store, logger *zap.Logger) *InvoicePrinter {
	return &InvoicePrinter{renderer: renderer, store: store, logger: logger.Named("invoice_printer")}
}

// Print renders data and returns the public URL of the stored PDF. Documents
// are keyed by number, so printing again overwrites the previous file.
func (p *InvoicePrinter) Print(ctx context.Context, kind DocumentKind, data billing.InvoiceData) (string, error) {
	if strings.TrimSpace(data.Number) == "" {
		return "", NewRenderError(ErrCodeInvalidHTML, "document number is empty", nil)
	}
	html, err := RenderHTML(kind, data)
	if err != nil {
		return "", fmt.Errorf("failed to render invoice template: %w", err)
	}
	pdf, err := p.renderer.Render(ctx, html, A4)
	if err != nil {
		return "", err
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		return "", NewRenderError(ErrCodeRenderFailed, "renderer did not return a PDF", nil)
	}

	key := KeyPrefix + "/" + string(kind) + "-" + data.Number + ".pdf"
	url, err := p.store.Put(ctx, key, pdf, "application/pdf")
	if err != nil {
		return "", fmt.Errorf("failed to store %s: %w", key, err)
	}
	p.logger.Info("Invoice document stored",
		zap.String("kind", string(kind)),
		zap.String("number", data.Number),
		zap.String("url", url),
	)
	return url, nil
}

// Close releases the renderer
func (p *InvoicePrinter) Close() error {
	return p.renderer.Close()
}
