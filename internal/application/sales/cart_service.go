package sales

import (
	"context"
	"errors"

	"github.com/flipflop/backend/internal/domain/catalog"
	"github.com/flipflop/backend/internal/domain/sales"
	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartService manages shopping carts
type CartService struct {
	carts    sales.CartRepository
	products catalog.ProductRepository
	logger   *zap.Logger
}

// NewCartService creates a new CartService
func NewCartService(carts sales.CartRepository, products catalog.ProductRepository, logger *zap.Logger) *CartService {
	return &CartService{carts: carts, products: products, logger: logger}
}

// Get returns the user's cart with current product details
func (s *CartService) Get(ctx context.Context, userID uuid.UUID) (*CartResponse, error) {
	items, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	byID := map[uuid.UUID]*catalog.Product{}
	if len(ids) > 0 {
		products, err := s.products.FindByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for i := range products {
			byID[products[i].ID] = &products[i]
		}
	}

	resp := &CartResponse{Items: make([]CartItemResponse, 0, len(items)), Subtotal: decimal.Zero}
	for i := range items {
		it := &items[i]
		line := CartItemResponse{
			ID:        it.ID,
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
			Price:     it.Price,
			LineTotal: it.LineTotal(),
		}
		if p, ok := byID[it.ProductID]; ok {
			line.ProductName = p.Name
			line.ImageURL = p.MainImageURL
			line.Available = p.CheckAvailable(it.VariantID, it.Quantity) == nil
		}
		resp.Items = append(resp.Items, line)
		resp.ItemCount += it.Quantity
		resp.Subtotal = resp.Subtotal.Add(line.LineTotal)
	}
	return resp, nil
}

// AddItem adds a product to the cart. Adding a product already in the cart
// increases the quantity of the existing line and keeps its price.
func (s *CartService) AddItem(ctx context.Context, userID uuid.UUID, req CartItemRequest) (*CartResponse, error) {
	resp, err := s.addItem(ctx, userID, req)
	if errors.Is(err, shared.ErrAlreadyExists) {
		// a concurrent add created the line first; merge into it
		return s.addItem(ctx, userID, req)
	}
	return resp, err
}

func (s *CartService) addItem(ctx context.Context, userID uuid.UUID, req CartItemRequest) (*CartResponse, error) {
	p, err := s.products.FindByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	existing, err := s.carts.FindLine(ctx, userID, req.ProductID, req.VariantID)
	switch {
	case err == nil:
		if err := p.CheckAvailable(req.VariantID, existing.Quantity+req.Quantity); err != nil {
			return nil, err
		}
		if err := existing.Increase(req.Quantity); err != nil {
			return nil, err
		}
		if err := s.carts.Save(ctx, existing); err != nil {
			return nil, err
		}
	case errors.Is(err, shared.ErrNotFound):
		if err := p.CheckAvailable(req.VariantID, req.Quantity); err != nil {
			return nil, err
		}
		price, err := p.PriceFor(req.VariantID)
		if err != nil {
			return nil, err
		}
		item, err := sales.NewCartItem(userID, p.ID, req.VariantID, req.Quantity, price)
		if err != nil {
			return nil, err
		}
		if err := s.carts.Save(ctx, item); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	return s.Get(ctx, userID)
}

// UpdateItem sets the quantity of a cart line
func (s *CartService) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, req UpdateCartItemRequest) (*CartResponse, error) {
	item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	p, err := s.products.FindByID(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}
	if err := p.CheckAvailable(item.VariantID, req.Quantity); err != nil {
		return nil, err
	}
	if err := item.SetQuantity(req.Quantity); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, item); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

// RemoveItem deletes a cart line
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartResponse, error) {
	if _, err := s.ownedItem(ctx, userID, itemID); err != nil {
		return nil, err
	}
	if err := s.carts.Delete(ctx, itemID); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

// Clear empties the cart
func (s *CartService) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.carts.ClearByUser(ctx, userID)
}

func (s *CartService) ownedItem(ctx context.Context, userID, itemID uuid.UUID) (*sales.CartItem, error) {
	item, err := s.carts.FindByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.UserID != userID {
		return nil, shared.ErrNotFound
	}
	return item, nil
}
