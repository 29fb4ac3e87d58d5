package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/flipflop/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// StripeSignatureHeader is the header Stripe signs webhooks with
const StripeSignatureHeader = "Stripe-Signature"

// defaultStripeTimeout matches the client timeout stripe-go uses for its own backends
const defaultStripeTimeout = 80 * time.Second

// StripeGateway takes payments through Stripe Checkout. The checkout session
// id is the transaction id stored on the order.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
	successURL    string
	cancelURL     string
	logger        *zap.Logger
}

// StripeOption customises a StripeGateway
type StripeOption func(*stripe.BackendConfig)

// WithStripeBackendURL points the API client at url, used against stripe-mock
func WithStripeBackendURL(url string, hc *http.Client) StripeOption {
	return func(bc *stripe.BackendConfig) {
		bc.URL = stripe.String(url)
		if hc != nil {
			bc.HTTPClient = hc
		}
	}
}

// NewStripeGateway creates a gateway with its own API client
func NewStripeGateway(cfg config.PaymentConfig, logger *zap.Logger, opts ...StripeOption) (*StripeGateway, error) {
	if cfg.StripeKey == "" {
		return nil, errors.New("payment.stripe_key is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultStripeTimeout
	}
	bc := &stripe.BackendConfig{
		HTTPClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		MaxNetworkRetries: stripe.Int64(2),
		LeveledLogger:     stripeLogger{logger.Named("stripe").Sugar()},
	}
	for _, opt := range opts {
		opt(bc)
	}
	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, bc),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, bc),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, bc),
	}
	return &StripeGateway{
		api:           client.New(cfg.StripeKey, backends),
		webhookSecret: cfg.WebhookSecret,
		successURL:    cfg.ContinueURL,
		cancelURL:     cfg.CancelURL,
		logger:        logger.Named("payment"),
	}, nil
}

// Name returns the provider name
func (g *StripeGateway) Name() string { return ProviderStripe }

// CreatePayment opens a Checkout session for the order total
func (g *StripeGateway) CreatePayment(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = "czk"
	}
	name := req.Description
	if name == "" {
		name = "Order " + req.OrderNumber
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(req.OrderID.String()),
		SuccessURL:        stripe.String(continueURL(g.successURL, req.OrderID)),
		CancelURL:         stripe.String(continueURL(g.cancelURL, req.OrderID)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(toMinor(req.Amount)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(name),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{"order_id": req.OrderID.String()},
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.AddMetadata("order_id", req.OrderID.String())
	params.AddMetadata("order_number", req.OrderNumber)
	params.SetIdempotencyKey("checkout-" + req.OrderID.String())
	params.Context = ctx

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, paymentError("stripe checkout: %v", err)
	}
	g.logger.Info("Checkout session created",
		zap.String("order_id", req.OrderID.String()),
		zap.String("session_id", sess.ID),
	)
	return &CreateResult{TransactionID: sess.ID, RedirectURI: sess.URL}, nil
}

// Refund refunds amount of the payment behind a checkout session
func (g *StripeGateway) Refund(ctx context.Context, transactionID string, amount decimal.Decimal, reason string) error {
	getParams := &stripe.CheckoutSessionParams{}
	getParams.Context = ctx
	sess, err := g.api.CheckoutSessions.Get(transactionID, getParams)
	if err != nil {
		return paymentError("stripe session lookup: %v", err)
	}
	if sess.PaymentIntent == nil || sess.PaymentIntent.ID == "" {
		return paymentError("session %s has no payment to refund", transactionID)
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(sess.PaymentIntent.ID),
		Amount:        stripe.Int64(toMinor(amount)),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.AddMetadata("reason", reason)
	params.SetIdempotencyKey("refund-" + transactionID)
	params.Context = ctx
	if _, err := g.api.Refunds.New(params); err != nil {
		return paymentError("stripe refund: %v", err)
	}
	g.logger.Info("Payment refunded", zap.String("session_id", transactionID), zap.String("amount", amount.String()))
	return nil
}

// ParseNotification verifies Stripe-Signature and maps checkout session events
func (g *StripeGateway) ParseNotification(payload []byte, header http.Header) (*Notification, error) {
	event, err := webhook.ConstructEventWithOptions(payload, header.Get(StripeSignatureHeader), g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, ErrInvalidSignature
	}

	var status Status
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		status = StatusPending
	case stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		status = StatusCompleted
	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		status = StatusRejected
	case stripe.EventTypeCheckoutSessionExpired:
		status = StatusCanceled
	default:
		return nil, fmt.Errorf("%w: %s", ErrIgnoredNotification, event.Type)
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("%w: malformed session", ErrIgnoredNotification)
	}
	if event.Type == stripe.EventTypeCheckoutSessionCompleted && sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
		status = StatusCompleted
	}

	ref := sess.ClientReferenceID
	if ref == "" {
		ref = sess.Metadata["order_id"]
	}
	orderID, err := uuid.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown order reference", ErrIgnoredNotification)
	}
	return &Notification{
		OrderID:       orderID,
		TransactionID: sess.ID,
		Status:        status,
		Amount:        fromMinor(sess.AmountTotal),
	}, nil
}

type stripeLogger struct{ s *zap.SugaredLogger }

func (l stripeLogger) Debugf(format string, v ...any) { l.s.Debugf(format, v...) }
func (l stripeLogger) Infof(format string, v ...any)  { l.s.Debugf(format, v...) }
func (l stripeLogger) Warnf(format string, v ...any)  { l.s.Warnf(format, v...) }
func (l stripeLogger) Errorf(format string, v ...any) { l.s.Errorf(format, v...) }
