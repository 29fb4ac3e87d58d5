// Package supplierapi talks to dropshipping supplier APIs: it pulls catalogue
// feeds and pushes orders for fulfilment.
package supplierapi

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/flipflop/backend/internal/domain/supplier"
	"github.com/flipflop/backend/internal/infrastructure/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// APIConfig keys understood per supplier
const (
	KeyCatalogPath = "catalog_path"
	KeyOrdersPath  = "orders_path"
	KeyAuthHeader  = "auth_header"
	KeyMaxPages    = "max_pages"
)

const (
	defaultCatalogPath = "/products"
	defaultOrdersPath  = "/orders"
	defaultMaxPages    = 50
)

// ErrSupplierAPI wraps failures of a supplier endpoint
var ErrSupplierAPI = shared.NewDomainError("SUPPLIER_API_ERROR", "Supplier API request failed")

// Client calls supplier APIs
type Client struct {
	http      *http.Client
	batchSize int
	logger    *zap.Logger
}

// NewClient creates a supplier API client
func NewClient(cfg config.SupplierConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	batch := cfg.SyncBatchSize
	if batch <= 0 {
		batch = 100
	}
	return &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		batchSize: batch,
		logger:    logger.Named("supplierapi"),
	}
}

// FetchCatalog pages through the supplier's catalogue until a short page
func (c *Client) FetchCatalog(ctx context.Context, s *supplier.Supplier) ([]supplier.CatalogItem, error) {
	if err := s.CanSync(); err != nil {
		return nil, err
	}
	base, err := endpoint(s, KeyCatalogPath, defaultCatalogPath)
	if err != nil {
		return nil, err
	}
	maxPages := intConfig(s.APIConfig, KeyMaxPages, defaultMaxPages)

	var all []supplier.CatalogItem
	for page := 1; page <= maxPages; page++ {
		u := *base
		q := u.Query()
		q.Set("page", strconv.Itoa(page))
		q.Set("limit", strconv.Itoa(c.batchSize))
		u.RawQuery = q.Encode()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		c.authorize(req, s, nil)

		raw, err := c.do(req)
		if err != nil {
			return nil, err
		}
		items, err := decodeCatalog(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSupplierAPI, err)
		}
		all = append(all, items...)
		if len(items) < c.batchSize {
			break
		}
	}
	c.logger.Info("Supplier catalogue fetched",
		zap.String("supplier_id", s.ID.String()),
		zap.Int("items", len(all)),
	)
	return all, nil
}

// ForwardOrder posts an order to the supplier. The body is signed with the
// supplier's API secret when one is configured.
func (c *Client) ForwardOrder(ctx context.Context, s *supplier.Supplier, order supplier.ForwardedOrder) error {
	if !s.HasAPI() {
		return shared.NewDomainError("SUPPLIER_NO_API", "Supplier has no API configured")
	}
	u, err := endpoint(s, KeyOrdersPath, defaultOrdersPath)
	if err != nil {
		return err
	}
	body, err := json.Marshal(order)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", order.OrderNumber)
	c.authorize(req, s, body)

	if _, err := c.do(req); err != nil {
		return err
	}
	c.logger.Info("Order forwarded to supplier",
		zap.String("supplier_id", s.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.Int("lines", len(order.Lines)),
	)
	return nil
}

func (c *Client) authorize(req *http.Request, s *supplier.Supplier, body []byte) {
	if s.APIKey != "" {
		header, _ := s.APIConfig[KeyAuthHeader].(string)
		if header == "" {
			req.Header.Set("Authorization", "Bearer "+s.APIKey)
		} else {
			req.Header.Set(header, s.APIKey)
		}
	}
	if s.APISecret != "" && body != nil {
		mac := hmac.New(sha256.New, []byte(s.APISecret))
		mac.Write(body)
		req.Header.Set("X-Signature", hex.EncodeToString(mac.Sum(nil)))
	}
	req.Header.Set("Accept", "application/json")
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSupplierAPI, err)
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(res.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrSupplierAPI, err)
	}
	if res.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s %s returned %s", ErrSupplierAPI, req.Method, req.URL.Path, res.Status)
	}
	return raw, nil
}

// decodeCatalog accepts a bare array or an object wrapping it in items, data
// or products
func decodeCatalog(raw []byte) ([]supplier.CatalogItem, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	var items []supplier.CatalogItem
	if raw[0] == '[' {
		err := json.Unmarshal(raw, &items)
		return items, err
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	for _, key := range []string{"items", "data", "products"} {
		if v, ok := wrapped[key]; ok {
			err := json.Unmarshal(v, &items)
			return items, err
		}
	}
	return nil, fmt.Errorf("catalogue response has no items")
}

func endpoint(s *supplier.Supplier, key, fallback string) (*url.URL, error) {
	path, _ := s.APIConfig[key].(string)
	if path == "" {
		path = fallback
	}
	u, err := url.Parse(strings.TrimRight(s.APIURL, "/") + "/" + strings.TrimLeft(path, "/"))
	if err != nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Supplier API URL is invalid")
	}
	return u, nil
}

func intConfig(m map[string]any, key string, fallback int) int {
	switch v := m[key].(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case int:
		if v > 0 {
			return v
		}
	}
	return fallback
}
