package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flipflop/backend/internal/domain/billing"
	"github.com/flipflop/backend/internal/domain/identity"
	"github.com/flipflop/backend/internal/domain/sales"
	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/flipflop/backend/internal/infrastructure/printing"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DocumentPrinter renders an invoice snapshot to a stored PDF and returns its URL
type DocumentPrinter interface {
	Print(ctx context.Context, kind printing.DocumentKind, data billing.InvoiceData) (string, error)
}

// InvoiceService issues proforma and final invoices for orders
type InvoiceService struct {
	invoices  billing.InvoiceRepository
	settings  billing.SettingsRepository
	orders    sales.OrderRepository
	users     identity.UserRepository
	addresses identity.AddressRepository
	printer   DocumentPrinter
	logger    *zap.Logger
}

// NewInvoiceService creates a new InvoiceService. printer may be nil, in
// which case documents are stored without a PDF.
func NewInvoiceService(
	invoices billing.InvoiceRepository,
	settings billing.SettingsRepository,
	orders sales.OrderRepository,
	users identity.UserRepository,
	addresses identity.AddressRepository,
	printer DocumentPrinter,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		invoices:  invoices,
		settings:  settings,
		orders:    orders,
		users:     users,
		addresses: addresses,
		printer:   printer,
		logger:    logger,
	}
}

// IssueProforma issues the proforma invoice of an order. An order keeps the
// proforma issued first.
func (s *InvoiceService) IssueProforma(ctx context.Context, o *sales.Order) (*billing.ProformaInvoice, error) {
	existing, err := s.invoices.FindProformaByOrder(ctx, o.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	data, err := s.snapshot(ctx, o)
	if err != nil {
		return nil, err
	}
	number, err := s.invoices.NextNumber(ctx, billing.ProformaNumberPrefix, now)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate proforma number: %w", err)
	}
	proforma, err := billing.NewProformaInvoice(o.ID, number, data)
	if err != nil {
		return nil, err
	}
	proforma.FileURL = s.print(ctx, printing.KindProforma, proforma.Data)

	if err := s.invoices.SaveProforma(ctx, proforma); err != nil {
		return nil, err
	}
	s.logger.Info("Proforma invoice issued",
		zap.String("order_id", o.ID.String()),
		zap.String("number", number),
	)
	return proforma, nil
}

// IssueInvoice issues the final invoice of a paid order, once
func (s *InvoiceService) IssueInvoice(ctx context.Context, o *sales.Order) (*billing.Invoice, error) {
	existing, err := s.invoices.FindInvoiceByOrder(ctx, o.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	data, err := s.snapshot(ctx, o)
	if err != nil {
		return nil, err
	}
	number, err := s.invoices.NextNumber(ctx, billing.InvoiceNumberPrefix, now)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate invoice number: %w", err)
	}
	invoice, err := billing.NewInvoice(o.ID, number, data, now)
	if err != nil {
		return nil, err
	}
	invoice.FileURL = s.print(ctx, printing.KindInvoice, invoice.Data)

	if err := s.invoices.SaveInvoice(ctx, invoice); err != nil {
		return nil, err
	}
	s.logger.Info("Invoice issued",
		zap.String("order_id", o.ID.String()),
		zap.String("number", number),
	)
	return invoice, nil
}

// ForOrder returns the documents issued for an order of userID
func (s *InvoiceService) ForOrder(ctx context.Context, userID, orderID uuid.UUID, isAdmin bool) (*OrderDocumentsResponse, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !o.BelongsTo(userID) {
		return nil, shared.ErrNotFound
	}

	resp := &OrderDocumentsResponse{OrderID: o.ID, OrderNumber: o.OrderNumber}
	proforma, err := s.invoices.FindProformaByOrder(ctx, o.ID)
	switch {
	case err == nil:
		resp.Proforma = toProformaResponse(proforma)
	case !errors.Is(err, shared.ErrNotFound):
		return nil, err
	}
	invoice, err := s.invoices.FindInvoiceByOrder(ctx, o.ID)
	switch {
	case err == nil:
		resp.Invoice = toInvoiceResponse(invoice)
	case !errors.Is(err, shared.ErrNotFound):
		return nil, err
	}
	return resp, nil
}

// snapshot freezes seller, customer, lines and totals of the order
func (s *InvoiceService) snapshot(ctx context.Context, o *sales.Order) (billing.InvoiceData, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return billing.InvoiceData{}, fmt.Errorf("failed to load company settings: %w", err)
	}

	data := billing.InvoiceData{
		OrderNumber: o.OrderNumber,
		Seller: billing.Party{
			Name:       settings.Name,
			Street:     settings.Street,
			City:       settings.City,
			PostalCode: settings.PostalCode,
			Country:    settings.Country,
			Email:      settings.Email,
			Phone:      settings.Phone,
			ICO:        settings.ICO,
			DIC:        settings.DIC,
			Website:    settings.Website,
		},
		Subtotal:     o.Subtotal,
		Tax:          o.Tax,
		ShippingCost: o.ShippingCost,
		Discount:     o.Discount,
		Total:        o.Total,
		Currency:     string(o.Currency),
		PaymentRef:   o.PaymentTransactionID,
	}
	for _, it := range o.Items {
		data.Lines = append(data.Lines, billing.InvoiceLine{
			Name:      it.ProductName,
			SKU:       it.ProductSKU,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Total:     it.TotalPrice,
		})
	}

	user, err := s.users.FindByID(ctx, o.UserID)
	if err != nil {
		return billing.InvoiceData{}, fmt.Errorf("failed to load customer: %w", err)
	}
	data.Customer = billing.Party{
		Name:  user.FullName(),
		Email: user.Email,
		Phone: user.Phone,
	}

	// The address may have been deleted since checkout
	address, err := s.addresses.FindByID(ctx, o.DeliveryAddressID)
	switch {
	case err == nil:
		data.Customer.Name = address.FirstName + " " + address.LastName
		data.Customer.Street = address.Street
		data.Customer.City = address.City
		data.Customer.PostalCode = address.PostalCode
		data.Customer.Country = address.Country
		if address.Phone != "" {
			data.Customer.Phone = address.Phone
		}
	case !errors.Is(err, shared.ErrNotFound):
		return billing.InvoiceData{}, fmt.Errorf("failed to load delivery address: %w", err)
	}
	return data, nil
}

// print renders the PDF. A failed render leaves the document without a file.
func (s *InvoiceService) print(ctx context.Context, kind printing.DocumentKind, data billing.InvoiceData) string {
	if s.printer == nil {
		return ""
	}
	url, err := s.printer.Print(ctx, kind, data)
	if err != nil {
		s.logger.Warn("Failed to render invoice PDF",
			zap.String("kind", string(kind)),
			zap.String("number", data.Number),
			zap.Error(err),
		)
		return ""
	}
	return url
}
