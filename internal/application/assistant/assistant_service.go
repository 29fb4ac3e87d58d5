// Package assistant answers shopper questions through the language model
package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/flipflop/backend/internal/domain/catalog"
	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/flipflop/backend/internal/infrastructure/ai"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxContextProducts bounds how many products are described in one prompt
const maxContextProducts = 10

const systemPrompt = `You are the shopping assistant of FlipFlop, an online shop.
Answer briefly and politely in the language of the customer.
Only recommend products that are listed below or that the customer mentions.
Never invent prices, stock levels or order details. Prices are in CZK.`

// Chatter sends a conversation to the language model
type Chatter interface {
	Chat(ctx context.Context, system string, messages []ai.Message) (string, error)
}

// ProductSummarizer resolves product IDs to the active products
type ProductSummarizer interface {
	Summaries(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error)
}

// ChatTurn is an earlier message of the conversation
type ChatTurn struct {
	Role    string `json:"role" binding:"required,oneof=user assistant"`
	Content string `json:"content" binding:"required,max=4000"`
}

// ChatRequest is a shopper message with optional page context. Context may
// carry "productId" or "productIds".
type ChatRequest struct {
	Message string         `json:"message" binding:"required,max=4000"`
	Context map[string]any `json:"context"`
	History []ChatTurn     `json:"history" binding:"max=20,dive"`
}

// ChatResponse is the assistant's reply
type ChatResponse struct {
	Reply    string      `json:"reply"`
	Products []uuid.UUID `json:"products"`
}

// Service answers shopper questions
type Service struct {
	llm      Chatter
	products ProductSummarizer
	logger   *zap.Logger
}

// NewService creates a new assistant Service
func NewService(llm Chatter, products ProductSummarizer, logger *zap.Logger) *Service {
	return &Service{llm: llm, products: products, logger: logger}
}

// Chat answers the shopper's message. Unknown or inactive products in the
// context are left out of the prompt.
func (s *Service) Chat(ctx context.Context, userID uuid.UUID, req ChatRequest) (*ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Message cannot be empty")
	}

	ids := productIDs(req.Context)
	var products []catalog.Product
	if len(ids) > 0 {
		var err error
		products, err = s.products.Summaries(ctx, ids)
		if err != nil {
			s.logger.Warn("Failed to resolve context products", zap.Error(err))
			products = nil
		}
	}

	messages := make([]ai.Message, 0, len(req.History)+1)
	for _, turn := range req.History {
		messages = append(messages, ai.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, ai.Message{Role: "user", Content: message})

	reply, err := s.llm.Chat(ctx, buildPrompt(products), messages)
	if err != nil {
		return nil, err
	}

	referenced := make([]uuid.UUID, 0, len(products))
	for _, p := range products {
		referenced = append(referenced, p.ID)
	}
	s.logger.Info("Assistant replied",
		zap.String("user_id", userID.String()),
		zap.Int("context_products", len(products)),
	)
	return &ChatResponse{Reply: reply, Products: referenced}, nil
}

func buildPrompt(products []catalog.Product) string {
	if len(products) == 0 {
		return systemPrompt
	}
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\nProducts the customer is looking at:\n")
	for _, p := range products {
		fmt.Fprintf(&b, "- %s (SKU %s): %s CZK", p.Name, p.SKU, p.Price.StringFixed(2))
		switch {
		case !p.TrackInventory:
			b.WriteString(", available")
		case p.StockQuantity > 0:
			fmt.Fprintf(&b, ", %d in stock", p.StockQuantity)
		default:
			b.WriteString(", out of stock")
		}
		if p.Brand != "" {
			fmt.Fprintf(&b, ", brand %s", p.Brand)
		}
		if p.ShortDescription != "" {
			fmt.Fprintf(&b, ". %s", p.ShortDescription)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// productIDs reads product IDs from the request context. Malformed IDs are skipped.
func productIDs(c map[string]any) []uuid.UUID {
	var raw []string
	if v, ok := c["productId"].(string); ok {
		raw = append(raw, v)
	}
	switch v := c["productIds"].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	case []string:
		raw = append(raw, v...)
	}

	seen := make(map[uuid.UUID]bool, len(raw))
	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(strings.TrimSpace(r))
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
		if len(ids) == maxContextProducts {
			break
		}
	}
	return ids
}
