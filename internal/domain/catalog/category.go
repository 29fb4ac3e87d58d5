package catalog

import (
	"strings"

	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Category groups products for navigation. Categories form a tree through ParentID.
type Category struct {
	shared.BaseAggregateRoot
	Name        string
	Slug        string
	Description string
	ParentID    *uuid.UUID
	ImageURL    string
	SortOrder   int
	IsActive    bool
}

// NewCategory creates an active category. An empty slug is derived from the name.
func NewCategory(name, slug string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Category name cannot be empty")
	}
	if len(name) > 255 {
		return nil, shared.NewDomainError("INVALID_NAME", "Category name cannot exceed 255 characters")
	}
	slug, err := normalizeSlug(slug, name)
	if err != nil {
		return nil, err
	}

	c := &Category{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Slug:              slug,
		IsActive:          true,
	}
	c.AddDomainEvent(NewCategoryCreatedEvent(c))
	return c, nil
}

// Update changes the descriptive fields of the category
func (c *Category) Update(name, slug, description, imageURL string, sortOrder int) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Category name cannot be empty")
	}
	normalized, err := normalizeSlug(slug, name)
	if err != nil {
		return err
	}
	c.Name = name
	c.Slug = normalized
	c.Description = description
	c.ImageURL = imageURL
	c.SortOrder = sortOrder
	c.touch()
	return nil
}

// SetParent moves the category under parentID; nil makes it a root
func (c *Category) SetParent(parentID *uuid.UUID) error {
	if parentID != nil && *parentID == c.ID {
		return shared.NewDomainError("INVALID_PARENT", "Category cannot be its own parent")
	}
	c.ParentID = parentID
	c.touch()
	return nil
}

// Activate makes the category visible in the storefront
func (c *Category) Activate() {
	c.IsActive = true
	c.touch()
}

// Deactivate hides the category from the storefront
func (c *Category) Deactivate() {
	c.IsActive = false
	c.touch()
}

func (c *Category) touch() {
	c.Touch()
	c.IncrementVersion()
}

func normalizeSlug(slug, name string) (string, error) {
	if strings.TrimSpace(slug) == "" {
		slug = name
	}
	s := Slugify(slug)
	if s == "" {
		return "", shared.NewDomainError("INVALID_SLUG", "Slug must contain at least one letter or digit")
	}
	return s, nil
}
