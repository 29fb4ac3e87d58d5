// Package notification sends customer notifications through the notification
// service. Delivery is best effort: failures are logged, never returned to the
// business flow that triggered them.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/flipflop/backend/internal/infrastructure/config"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Channel is the delivery medium
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelTelegram Channel = "telegram"
	ChannelWhatsApp Channel = "whatsapp"
)

// Type identifies the notification template
type Type string

const (
	TypeOrderConfirmation   Type = "order_confirmation"
	TypePaymentConfirmation Type = "payment_confirmation"
	TypeOrderStatusUpdate   Type = "order_status_update"
	TypeShipmentTracking    Type = "shipment_tracking"
	TypeLowStock            Type = "low_stock"
	TypeCustom              Type = "custom"
)

// Message is the body posted to /notifications/send
type Message struct {
	Channel      Channel        `json:"channel"`
	Type         Type           `json:"type"`
	Recipient    string         `json:"recipient"`
	Subject      string         `json:"subject,omitempty"`
	Message      string         `json:"message"`
	TemplateData map[string]any `json:"templateData,omitempty"`
}

// Response is the notification service reply
type Response struct {
	Success bool `json:"success"`
	Data    *struct {
		ID        string  `json:"id"`
		Status    string  `json:"status"`
		Channel   Channel `json:"channel"`
		Recipient string  `json:"recipient"`
	} `json:"data,omitempty"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Recorder counts delivery attempts
type Recorder interface {
	Notification(kind string, err error)
}

// ErrDisabled is returned by Send when notifications are switched off
var ErrDisabled = errors.New("notifications disabled")

const defaultTimeout = 10 * time.Second

// Client talks to the notification service
type Client struct {
	baseURL  string
	enabled  bool
	timeout  time.Duration
	http     *http.Client
	logger   *zap.Logger
	recorder Recorder

	wg sync.WaitGroup
}

// Option customises a Client
type Option func(*Client)

// WithHTTPClient replaces the instrumented default client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRecorder attaches delivery metrics
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// NewClient creates a client for cfg
func NewClient(cfg config.NotificationConfig, logger *zap.Logger, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		enabled: cfg.Enabled && cfg.URL != "",
		timeout: timeout,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger.Named("notification"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether notifications are delivered at all
func (c *Client) Enabled() bool { return c.enabled }

// Send delivers msg and waits for the reply
func (c *Client) Send(ctx context.Context, msg Message) (*Response, error) {
	if !c.enabled {
		return nil, ErrDisabled
	}
	if msg.Channel == "" {
		msg.Channel = ChannelEmail
	}
	resp, err := c.post(ctx, msg)
	if c.recorder != nil {
		c.recorder.Notification(string(msg.Type), err)
	}
	if err != nil {
		return nil, err
	}
	c.logger.Info("Notification sent",
		zap.String("channel", string(msg.Channel)),
		zap.String("type", string(msg.Type)),
		zap.String("recipient", msg.Recipient),
	)
	return resp, nil
}

func (c *Client) post(ctx context.Context, msg Message) (*Response, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/notifications/send", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("notification request failed: %w", err)
	}
	defer res.Body.Close()

	var out Response
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil && res.StatusCode < 300 {
		return nil, fmt.Errorf("failed to decode notification response: %w", err)
	}
	if res.StatusCode >= 300 || !out.Success {
		reason := res.Status
		if out.Error != nil {
			reason = out.Error.Code + ": " + out.Error.Message
		}
		return &out, fmt.Errorf("notification rejected: %s", reason)
	}
	return &out, nil
}

// Dispatch sends msg on a background goroutine with its own deadline, so the
// caller's request context ending does not abort delivery. Errors are logged.
func (c *Client) Dispatch(msg Message) {
	if !c.enabled || msg.Recipient == "" {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		if _, err := c.Send(ctx, msg); err != nil {
			c.logger.Warn("Failed to send notification",
				zap.String("type", string(msg.Type)),
				zap.String("recipient", msg.Recipient),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until dispatched notifications finish or ctx ends
func (c *Client) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ping checks that the notification service answers its health endpoint
func (c *Client) Ping(ctx context.Context) error {
	if !c.enabled {
		return ErrDisabled
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return fmt.Errorf("notification service returned %s", res.Status)
	}
	return nil
}

// OrderConfirmation tells the customer their order was placed
func (c *Client) OrderConfirmation(recipient, orderNumber string, total decimal.Decimal) {
	c.Dispatch(Message{
		Type:      TypeOrderConfirmation,
		Recipient: recipient,
		Subject:   "Potvrzení objednávky " + orderNumber,
		Message:   "Vaše objednávka {{orderNumber}} byla úspěšně vytvořena. Celková částka: {{orderTotal}} Kč.",
		TemplateData: map[string]any{
			"orderNumber": orderNumber,
			"orderTotal":  total.StringFixed(2),
		},
	})
}

// PaymentConfirmation tells the customer their payment arrived
func (c *Client) PaymentConfirmation(recipient, orderNumber string, amount decimal.Decimal) {
	c.Dispatch(Message{
		Type:      TypePaymentConfirmation,
		Recipient: recipient,
		Subject:   "Potvrzení platby za objednávku " + orderNumber,
		Message:   "Platba za objednávku {{orderNumber}} byla úspěšně přijata. Částka: {{paymentAmount}} Kč.",
		TemplateData: map[string]any{
			"orderNumber":   orderNumber,
			"paymentAmount": amount.StringFixed(2),
		},
	})
}

// OrderStatusUpdate tells the customer their order changed status
func (c *Client) OrderStatusUpdate(recipient, orderNumber, status string) {
	c.Dispatch(Message{
		Type:      TypeOrderStatusUpdate,
		Recipient: recipient,
		Subject:   "Aktualizace stavu objednávky " + orderNumber,
		Message:   "Stav vaší objednávky {{orderNumber}} byl aktualizován na: {{status}}.",
		TemplateData: map[string]any{
			"orderNumber": orderNumber,
			"status":      status,
		},
	})
}

// ShipmentTracking sends the parcel tracking number
func (c *Client) ShipmentTracking(recipient, orderNumber, trackingNumber string) {
	c.Dispatch(Message{
		Type:      TypeShipmentTracking,
		Recipient: recipient,
		Subject:   "Informace o odeslání objednávky " + orderNumber,
		Message:   "Vaše objednávka {{orderNumber}} byla odeslána. Sledovací číslo: {{trackingNumber}}.",
		TemplateData: map[string]any{
			"orderNumber":    orderNumber,
			"trackingNumber": trackingNumber,
		},
	})
}

// LowStock alerts the shop operator that a product is running out
func (c *Client) LowStock(recipient, sku, name string, stock int) {
	c.Dispatch(Message{
		Type:      TypeLowStock,
		Recipient: recipient,
		Subject:   "Docházející zásoba " + sku,
		Message:   "Produkt {{name}} ({{sku}}) má na skladě {{stock}} ks.",
		TemplateData: map[string]any{
			"sku":   sku,
			"name":  name,
			"stock": stock,
		},
	})
}
