// Package ai wraps the Ollama chat API used by the shop assistant
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/flipflop/backend/internal/infrastructure/config"
	"github.com/ollama/ollama/api"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const defaultHost = "http://localhost:11434"

// ErrUnavailable is returned when the assistant is disabled or the model fails
var ErrUnavailable = shared.NewDomainError("AI_UNAVAILABLE", "Shop assistant is unavailable")

// Message is one turn of a conversation
type Message struct {
	Role    string
	Content string
}

// OllamaClient sends chat requests to an Ollama server
type OllamaClient struct {
	client      *api.Client
	model       string
	temperature float64
	timeout     time.Duration
	enabled     bool
	logger      *zap.Logger
}

// NewOllamaClient creates a client for cfg
func NewOllamaClient(cfg config.AIConfig, logger *zap.Logger) (*OllamaClient, error) {
	host := cfg.OllamaURL
	if host == "" {
		host = defaultHost
	}
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ai.ollama_url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	hc := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	return &OllamaClient{
		client:      api.NewClient(base, hc),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     timeout,
		enabled:     cfg.Enabled && cfg.Model != "",
		logger:      logger.Named("ai"),
	}, nil
}

// Enabled reports whether chat requests are sent at all
func (c *OllamaClient) Enabled() bool { return c.enabled }

// Chat sends system plus the conversation and returns the assistant's reply
func (c *OllamaClient) Chat(ctx context.Context, system string, messages []Message) (string, error) {
	if !c.enabled {
		return "", ErrUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msgs := make([]api.Message, 0, len(messages)+1)
	if system != "" {
		msgs = append(msgs, api.Message{Role: "system", Content: system})
	}
	for _, m := range messages {
		msgs = append(msgs, api.Message{Role: m.Role, Content: m.Content})
	}

	stream := false
	start := time.Now()
	var reply strings.Builder
	err := c.client.Chat(ctx, &api.ChatRequest{
		Model:    c.model,
		Messages: msgs,
		Stream:   &stream,
		Options:  map[string]any{"temperature": c.temperature},
	}, func(resp api.ChatResponse) error {
		reply.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		c.logger.Warn("Chat request failed", zap.String("model", c.model), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	out := strings.TrimSpace(reply.String())
	if out == "" {
		return "", fmt.Errorf("%w: empty reply", ErrUnavailable)
	}
	c.logger.Debug("Chat completed",
		zap.String("model", c.model),
		zap.Duration("latency", time.Since(start)),
		zap.Int("reply_chars", len(out)),
	)
	return out, nil
}

// Ping checks that the Ollama server is reachable
func (c *OllamaClient) Ping(ctx context.Context) error {
	if !c.enabled {
		return errors.New("assistant disabled")
	}
	return c.client.Heartbeat(ctx)
}
