package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/flipflop/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// SignatureHeader carries the hex HMAC-SHA256 of the request body
const SignatureHeader = "X-Signature"

// ServiceGateway calls the payment microservice, which fronts PayU
type ServiceGateway struct {
	baseURL       string
	clientID      string
	clientSecret  string
	webhookSecret string
	notifyURL     string
	continueURL   string
	http          *http.Client
	logger        *zap.Logger
}

// NewServiceGateway creates the payment microservice client
func NewServiceGateway(cfg config.PaymentConfig, logger *zap.Logger) (*ServiceGateway, error) {
	if cfg.ServiceURL == "" {
		return nil, errors.New("payment.service_url is required")
	}
	if _, err := url.Parse(cfg.ServiceURL); err != nil {
		return nil, fmt.Errorf("invalid payment.service_url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ServiceGateway{
		baseURL:       strings.TrimRight(cfg.ServiceURL, "/"),
		clientID:      cfg.ClientID,
		clientSecret:  cfg.ClientSecret,
		webhookSecret: cfg.WebhookSecret,
		notifyURL:     cfg.NotifyURL,
		continueURL:   cfg.ContinueURL,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger.Named("payment"),
	}, nil
}

// Name returns the provider name
func (g *ServiceGateway) Name() string { return ProviderPayU }

type payuProduct struct {
	Name      string `json:"name"`
	UnitPrice string `json:"unitPrice"`
	Quantity  string `json:"quantity"`
}

type payuCreateBody struct {
	OrderID       string        `json:"orderId"`
	OrderNumber   string        `json:"orderNumber"`
	TotalAmount   string        `json:"totalAmount"`
	CurrencyCode  string        `json:"currencyCode"`
	Description   string        `json:"description"`
	CustomerEmail string        `json:"customerEmail,omitempty"`
	CustomerIP    string        `json:"customerIp,omitempty"`
	NotifyURL     string        `json:"notifyUrl,omitempty"`
	ContinueURL   string        `json:"continueUrl,omitempty"`
	Products      []payuProduct `json:"products"`
}

type payuEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreatePayment registers the order with PayU and returns the hosted payment page
func (g *ServiceGateway) CreatePayment(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	currency := req.Currency
	if currency == "" {
		currency = "CZK"
	}
	body := payuCreateBody{
		OrderID:       req.OrderID.String(),
		OrderNumber:   req.OrderNumber,
		TotalAmount:   strconv.FormatInt(toMinor(req.Amount), 10),
		CurrencyCode:  currency,
		Description:   req.Description,
		CustomerEmail: req.CustomerEmail,
		CustomerIP:    req.CustomerIP,
		NotifyURL:     g.notifyURL,
		ContinueURL:   continueURL(g.continueURL, req.OrderID),
	}
	for _, it := range req.Items {
		body.Products = append(body.Products, payuProduct{
			Name:      it.Name,
			UnitPrice: strconv.FormatInt(toMinor(it.UnitPrice), 10),
			Quantity:  strconv.Itoa(it.Quantity),
		})
	}

	var out struct {
		RedirectURI string `json:"redirectUri"`
		OrderID     string `json:"orderId"`
	}
	if err := g.call(ctx, "/payu/create-payment", body, &out); err != nil {
		return nil, err
	}
	if out.OrderID == "" || out.RedirectURI == "" {
		return nil, paymentError("incomplete create-payment response")
	}
	g.logger.Info("Payment created",
		zap.String("order_id", req.OrderID.String()),
		zap.String("transaction_id", out.OrderID),
	)
	return &CreateResult{TransactionID: out.OrderID, RedirectURI: out.RedirectURI}, nil
}

// Refund returns amount of a completed payment
func (g *ServiceGateway) Refund(ctx context.Context, transactionID string, amount decimal.Decimal, reason string) error {
	if transactionID == "" {
		return paymentError("refund needs a transaction id")
	}
	body := map[string]string{
		"amount":      strconv.FormatInt(toMinor(amount), 10),
		"description": reason,
	}
	if err := g.call(ctx, "/payu/refund/"+url.PathEscape(transactionID), body, nil); err != nil {
		return err
	}
	g.logger.Info("Payment refunded", zap.String("transaction_id", transactionID), zap.String("amount", amount.String()))
	return nil
}

func (g *ServiceGateway) call(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Client-Id", g.clientID)
	req.Header.Set(SignatureHeader, Sign(g.clientSecret, payload))

	res, err := g.http.Do(req)
	if err != nil {
		return paymentError("%v", err)
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return paymentError("read response: %v", err)
	}

	var env payuEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return paymentError("%s: undecodable response", res.Status)
	}
	if res.StatusCode >= 300 || !env.Success {
		if env.Error != nil {
			return paymentError("%s: %s", env.Error.Code, env.Error.Message)
		}
		return paymentError("%s", res.Status)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return paymentError("decode data: %v", err)
		}
	}
	return nil
}

type payuNotification struct {
	Order struct {
		OrderID     string `json:"orderId"`
		ExtOrderID  string `json:"extOrderId"`
		Status      string `json:"status"`
		TotalAmount string `json:"totalAmount"`
	} `json:"order"`
}

// ParseNotification verifies X-Signature and decodes a PayU order notification
func (g *ServiceGateway) ParseNotification(payload []byte, header http.Header) (*Notification, error) {
	if !Verify(g.webhookSecret, payload, header.Get(SignatureHeader)) {
		return nil, ErrInvalidSignature
	}
	var n payuNotification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, fmt.Errorf("%w: malformed notification", ErrIgnoredNotification)
	}
	orderID, err := uuid.Parse(n.Order.ExtOrderID)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown order reference", ErrIgnoredNotification)
	}
	out := &Notification{
		OrderID:       orderID,
		TransactionID: n.Order.OrderID,
		Status:        mapPayUStatus(n.Order.Status),
	}
	if minor, err := strconv.ParseInt(n.Order.TotalAmount, 10, 64); err == nil {
		out.Amount = fromMinor(minor)
	}
	return out, nil
}

func mapPayUStatus(s string) Status {
	switch strings.ToUpper(s) {
	case "COMPLETED":
		return StatusCompleted
	case "CANCELED", "CANCELLED":
		return StatusCanceled
	case "REJECTED":
		return StatusRejected
	default:
		return StatusPending
	}
}

// Sign returns the hex HMAC-SHA256 of payload under secret
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks signature against payload in constant time. An empty secret
// never verifies.
func Verify(secret string, payload []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(signature, "sha256="))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(got, mac.Sum(nil))
}

func continueURL(base string, orderID uuid.UUID) string {
	if base == "" {
		return ""
	}
	if strings.Contains(base, "{orderId}") {
		return strings.ReplaceAll(base, "{orderId}", orderID.String())
	}
	return strings.TrimRight(base, "/") + "/" + orderID.String()
}
