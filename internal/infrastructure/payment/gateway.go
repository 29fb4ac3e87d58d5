package payment

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/flipflop/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Provider names
const (
	ProviderPayU   = "payu"
	ProviderStripe = "stripe"
)

// Status is the provider-neutral outcome carried by a payment notification
type Status string

const (
	StatusCompleted Status = "COMPLETED"
	StatusCanceled  Status = "CANCELED"
	StatusRejected  Status = "REJECTED"
	StatusPending   Status = "PENDING"
)

var (
	// ErrPayment wraps failures of the payment provider
	ErrPayment = shared.NewDomainError("ERR_PAYMENT", "Payment provider request failed")
	// ErrInvalidSignature rejects notifications whose signature does not verify
	ErrInvalidSignature = shared.NewDomainError("INVALID_SIGNATURE", "Payment notification signature is invalid")
	// ErrIgnoredNotification marks provider events that carry no payment outcome
	ErrIgnoredNotification = shared.NewDomainError("IGNORED_NOTIFICATION", "Payment notification ignored")
)

// Item is one line shown on the provider's payment page
type Item struct {
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// CreateRequest asks the provider for a payment of one order
type CreateRequest struct {
	OrderID       uuid.UUID
	OrderNumber   string
	Amount        decimal.Decimal
	Currency      string
	Description   string
	CustomerEmail string
	CustomerIP    string
	Items         []Item
}

// CreateResult is where the customer must be sent to pay
type CreateResult struct {
	TransactionID string
	RedirectURI   string
}

// Notification is a verified, provider-neutral payment callback
type Notification struct {
	OrderID       uuid.UUID
	TransactionID string
	Status        Status
	Amount        decimal.Decimal
}

// Gateway is a payment provider
type Gateway interface {
	Name() string
	CreatePayment(ctx context.Context, req CreateRequest) (*CreateResult, error)
	Refund(ctx context.Context, transactionID string, amount decimal.Decimal, reason string) error
	// ParseNotification verifies the signature in header and decodes payload
	ParseNotification(payload []byte, header http.Header) (*Notification, error)
}

// New creates the gateway selected by cfg.Provider
func New(cfg config.PaymentConfig, logger *zap.Logger) (Gateway, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderPayU:
		return NewServiceGateway(cfg, logger)
	case ProviderStripe:
		return NewStripeGateway(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.Provider)
	}
}

// toMinor converts an amount to the smallest currency unit
func toMinor(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func fromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

func paymentError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPayment, fmt.Sprintf(format, args...))
}
