package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/flipflop/backend/internal/domain/catalog"
	"github.com/flipflop/backend/internal/domain/identity"
	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CategoryStore is the part of the category repository the seeder needs
type CategoryStore interface {
	FindBySlug(ctx context.Context, slug string) (*catalog.Category, error)
	Save(ctx context.Context, c *catalog.Category) error
}

// ProductStore is the part of the product repository the seeder needs
type ProductStore interface {
	ExistsBySKU(ctx context.Context, sku string) (bool, error)
	Save(ctx context.Context, p *catalog.Product) error
}

// UserStore is the part of the user repository the seeder needs
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*identity.User, error)
	Save(ctx context.Context, u *identity.User) error
}

// Result counts what a seeding run did
type Result struct {
	CategoriesCreated int
	CategoriesSkipped int
	ProductsCreated   int
	ProductsSkipped   int
}

// Seeder writes fixtures through the repositories. Existing rows, matched by
// slug or SKU, are left untouched so a fixture can be applied repeatedly.
type Seeder struct {
	categories CategoryStore
	products   ProductStore
	users      UserStore
	logger     *zap.Logger
	dryRun     bool
}

// NewSeeder creates a Seeder; with dryRun set nothing is saved
func NewSeeder(categories CategoryStore, products ProductStore, users UserStore, logger *zap.Logger, dryRun bool) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{
		categories: categories,
		products:   products,
		users:      users,
		logger:     logger,
		dryRun:     dryRun,
	}
}

// Apply creates the fixture's categories, then its products
func (s *Seeder) Apply(ctx context.Context, fx *Fixture) (Result, error) {
	var res Result
	slugIDs := make(map[string]*catalog.Category, len(fx.Categories))

	for _, cf := range fx.Categories {
		c, created, err := s.ensureCategory(ctx, cf, slugIDs)
		if err != nil {
			return res, fmt.Errorf("category %q: %w", cf.Name, err)
		}
		slugIDs[c.Slug] = c
		if created {
			res.CategoriesCreated++
		} else {
			res.CategoriesSkipped++
		}
	}

	for _, pf := range fx.Products {
		created, err := s.ensureProduct(ctx, pf, slugIDs)
		if err != nil {
			return res, fmt.Errorf("product %s: %w", pf.SKU, err)
		}
		if created {
			res.ProductsCreated++
		} else {
			res.ProductsSkipped++
		}
	}

	s.logger.Info("Seeding finished",
		zap.Int("categories_created", res.CategoriesCreated),
		zap.Int("categories_skipped", res.CategoriesSkipped),
		zap.Int("products_created", res.ProductsCreated),
		zap.Int("products_skipped", res.ProductsSkipped),
		zap.Bool("dry_run", s.dryRun),
	)
	return res, nil
}

func (s *Seeder) ensureCategory(ctx context.Context, cf CategoryFixture, known map[string]*catalog.Category) (*catalog.Category, bool, error) {
	c, err := catalog.NewCategory(cf.Name, cf.Slug)
	if err != nil {
		return nil, false, err
	}
	existing, err := s.lookupCategory(ctx, c.Slug, known)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	if err := c.Update(c.Name, c.Slug, cf.Description, "", cf.SortOrder); err != nil {
		return nil, false, err
	}
	if cf.Parent != "" {
		parent, err := s.lookupCategory(ctx, cf.Parent, known)
		if err != nil {
			return nil, false, err
		}
		if parent == nil {
			return nil, false, fmt.Errorf("unknown parent category %q", cf.Parent)
		}
		if err := c.SetParent(&parent.ID); err != nil {
			return nil, false, err
		}
	}
	if !s.dryRun {
		if err := s.categories.Save(ctx, c); err != nil {
			return nil, false, err
		}
	}
	s.logger.Debug("Category created", zap.String("slug", c.Slug))
	return c, true, nil
}

func (s *Seeder) lookupCategory(ctx context.Context, slug string, known map[string]*catalog.Category) (*catalog.Category, error) {
	slug = catalog.Slugify(slug)
	if c, ok := known[slug]; ok {
		return c, nil
	}
	c, err := s.categories.FindBySlug(ctx, slug)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	return c, err
}

func (s *Seeder) ensureProduct(ctx context.Context, pf ProductFixture, categories map[string]*catalog.Category) (bool, error) {
	price, err := parsePrice(pf.Price)
	if err != nil {
		return false, err
	}
	p, err := catalog.NewProduct(pf.Name, pf.SKU, price)
	if err != nil {
		return false, err
	}
	exists, err := s.products.ExistsBySKU(ctx, p.SKU)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	if err := p.UpdateDetails(catalog.ProductDetails{
		Name:             p.Name,
		Description:      pf.Description,
		ShortDescription: pf.ShortDescription,
		Brand:            pf.Brand,
		Attributes:       pf.Attributes,
	}); err != nil {
		return false, err
	}
	if pf.CompareAtPrice != "" {
		compareAt, err := parsePrice(pf.CompareAtPrice)
		if err != nil {
			return false, err
		}
		if err := p.SetPrice(price, &compareAt); err != nil {
			return false, err
		}
	}
	if err := p.SetStock(pf.Stock); err != nil {
		return false, err
	}
	p.SetTrackInventory(!pf.Untracked)
	for _, url := range pf.Images {
		p.AddImage(url, false)
	}

	ids := make([]uuid.UUID, 0, len(pf.Categories))
	for _, slug := range pf.Categories {
		c, err := s.lookupCategory(ctx, slug, categories)
		if err != nil {
			return false, err
		}
		if c == nil {
			return false, fmt.Errorf("unknown category %q", slug)
		}
		ids = append(ids, c.ID)
	}
	p.SetCategories(ids)

	for _, vf := range pf.Variants {
		var vPrice *decimal.Decimal
		if vf.Price != "" {
			d, err := parsePrice(vf.Price)
			if err != nil {
				return false, err
			}
			vPrice = &d
		}
		if _, err := p.AddVariant(strings.ToUpper(vf.SKU), vf.Name, vPrice, vf.Stock, vf.Options); err != nil {
			return false, fmt.Errorf("variant %s: %w", vf.SKU, err)
		}
	}
	if pf.Inactive {
		p.Deactivate()
	}

	if !s.dryRun {
		if err := s.products.Save(ctx, p); err != nil {
			return false, err
		}
	}
	s.logger.Debug("Product created", zap.String("sku", p.SKU), zap.Int("variants", len(p.Variants)))
	return true, nil
}

// EnsureAdmin creates an administrator, or grants the role to an existing
// account with that email. It reports whether a new account was created.
func (s *Seeder) EnsureAdmin(ctx context.Context, email, password, firstName, lastName string) (bool, error) {
	u, err := s.users.FindByEmail(ctx, identity.NormalizeEmail(email))
	switch {
	case err == nil:
		if u.IsAdmin {
			return false, nil
		}
		u.GrantAdmin()
		if s.dryRun {
			return false, nil
		}
		return false, s.users.Save(ctx, u)
	case !errors.Is(err, shared.ErrNotFound):
		return false, err
	}

	u, err = identity.NewUser(email, password, firstName, lastName)
	if err != nil {
		return false, err
	}
	u.GrantAdmin()
	if s.dryRun {
		return true, nil
	}
	if err := s.users.Save(ctx, u); err != nil {
		return false, err
	}
	s.logger.Info("Administrator created", zap.String("email", u.Email))
	return true, nil
}
