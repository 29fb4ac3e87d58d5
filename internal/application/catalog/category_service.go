package catalog

import (
	"context"
	"errors"
	"sort"

	"github.com/flipflop/backend/internal/domain/catalog"
	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CategoryService handles category-related business operations
type CategoryService struct {
	categoryRepo catalog.CategoryRepository
	logger       *zap.Logger
}

// NewCategoryService creates a new CategoryService
func NewCategoryService(categoryRepo catalog.CategoryRepository, logger *zap.Logger) *CategoryService {
	return &CategoryService{categoryRepo: categoryRepo, logger: logger}
}

// Create creates a new category
func (s *CategoryService) Create(ctx context.Context, req CreateCategoryRequest) (*CategoryResponse, error) {
	category, err := catalog.NewCategory(req.Name, req.Slug)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSlugFree(ctx, category.Slug, uuid.Nil); err != nil {
		return nil, err
	}
	if err := category.Update(category.Name, category.Slug, req.Description, req.ImageURL, req.SortOrder); err != nil {
		return nil, err
	}
	if req.ParentID != nil {
		if err := s.checkParent(ctx, category.ID, *req.ParentID); err != nil {
			return nil, err
		}
		if err := category.SetParent(req.ParentID); err != nil {
			return nil, err
		}
	}

	if err := s.categoryRepo.Save(ctx, category); err != nil {
		return nil, err
	}
	s.logger.Info("Category created", zap.String("category_id", category.ID.String()), zap.String("slug", category.Slug))
	resp := ToCategoryResponse(category)
	return &resp, nil
}

// GetByID retrieves a category. Inactive categories are visible to admins only.
func (s *CategoryService) GetByID(ctx context.Context, id uuid.UUID, isAdmin bool) (*CategoryResponse, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !category.IsActive && !isAdmin {
		return nil, shared.ErrNotFound
	}
	resp := ToCategoryResponse(category)
	return &resp, nil
}

// List returns all categories ordered by sort order, then name
func (s *CategoryService) List(ctx context.Context, activeOnly bool) ([]CategoryResponse, error) {
	categories, err := s.categoryRepo.FindAll(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	sortCategories(categories)
	out := make([]CategoryResponse, 0, len(categories))
	for i := range categories {
		out = append(out, ToCategoryResponse(&categories[i]))
	}
	return out, nil
}

// GetTree returns the categories as a forest rooted at top-level categories
func (s *CategoryService) GetTree(ctx context.Context, activeOnly bool) ([]CategoryTreeNode, error) {
	categories, err := s.categoryRepo.FindAll(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	sortCategories(categories)
	return buildCategoryTree(categories), nil
}

// Update applies the provided fields to a category
func (s *CategoryService) Update(ctx context.Context, id uuid.UUID, req UpdateCategoryRequest) (*CategoryResponse, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name, slug := category.Name, category.Slug
	description, imageURL, sortOrder := category.Description, category.ImageURL, category.SortOrder
	if req.Name != nil {
		name = *req.Name
		// A renamed category without an explicit slug gets a fresh one
		if req.Slug == nil {
			slug = ""
		}
	}
	if req.Slug != nil {
		slug = *req.Slug
	}
	if req.Description != nil {
		description = *req.Description
	}
	if req.ImageURL != nil {
		imageURL = *req.ImageURL
	}
	if req.SortOrder != nil {
		sortOrder = *req.SortOrder
	}
	if err := category.Update(name, slug, description, imageURL, sortOrder); err != nil {
		return nil, err
	}
	if err := s.ensureSlugFree(ctx, category.Slug, category.ID); err != nil {
		return nil, err
	}

	switch {
	case req.ClearParent:
		if err := category.SetParent(nil); err != nil {
			return nil, err
		}
	case req.ParentID != nil:
		if err := s.checkParent(ctx, category.ID, *req.ParentID); err != nil {
			return nil, err
		}
		if err := category.SetParent(req.ParentID); err != nil {
			return nil, err
		}
	}
	if req.IsActive != nil {
		if *req.IsActive {
			category.Activate()
		} else {
			category.Deactivate()
		}
	}

	if err := s.categoryRepo.Save(ctx, category); err != nil {
		return nil, err
	}
	resp := ToCategoryResponse(category)
	return &resp, nil
}

// Delete deletes a category without subcategories. Products lose the link.
func (s *CategoryService) Delete(ctx context.Context, id uuid.UUID) error {
	// Check if category exists
	if _, err := s.categoryRepo.FindByID(ctx, id); err != nil {
		return err
	}

	// Check if category has children
	hasChildren, err := s.categoryRepo.HasChildren(ctx, id)
	if err != nil {
		return err
	}
	if hasChildren {
		return shared.NewDomainError("HAS_CHILDREN", "Cannot delete category with children")
	}
	return s.categoryRepo.Delete(ctx, id)
}

func (s *CategoryService) ensureSlugFree(ctx context.Context, slug string, self uuid.UUID) error {
	existing, err := s.categoryRepo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	if existing.ID != self {
		return shared.NewDomainError("ALREADY_EXISTS", "Category with this slug already exists")
	}
	return nil
}

// checkParent rejects missing parents and moves that would create a cycle
func (s *CategoryService) checkParent(ctx context.Context, id, parentID uuid.UUID) error {
	if parentID == id {
		return shared.NewDomainError("INVALID_PARENT", "Category cannot be its own parent")
	}
	seen := map[uuid.UUID]bool{id: true}
	next := &parentID
	for next != nil {
		if seen[*next] {
			return shared.NewDomainError("INVALID_PARENT", "Category cannot be moved under its own descendant")
		}
		seen[*next] = true
		parent, err := s.categoryRepo.FindByID(ctx, *next)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewDomainError("INVALID_PARENT", "Parent category not found")
			}
			return err
		}
		next = parent.ParentID
	}
	return nil
}

func sortCategories(categories []catalog.Category) {
	sort.SliceStable(categories, func(i, j int) bool {
		if categories[i].SortOrder != categories[j].SortOrder {
			return categories[i].SortOrder < categories[j].SortOrder
		}
		return categories[i].Name < categories[j].Name
	})
}

// buildCategoryTree builds a tree structure from a flat, sorted list.
// Categories whose parent is missing from the list become roots.
func buildCategoryTree(categories []catalog.Category) []CategoryTreeNode {
	present := make(map[uuid.UUID]bool, len(categories))
	for _, c := range categories {
		present[c.ID] = true
	}
	children := make(map[uuid.UUID][]*catalog.Category)
	var roots []*catalog.Category
	for i := range categories {
		c := &categories[i]
		if c.ParentID == nil || !present[*c.ParentID] {
			roots = append(roots, c)
			continue
		}
		children[*c.ParentID] = append(children[*c.ParentID], c)
	}

	var build func(nodes []*catalog.Category) []CategoryTreeNode
	build = func(nodes []*catalog.Category) []CategoryTreeNode {
		out := make([]CategoryTreeNode, 0, len(nodes))
		for _, c := range nodes {
			out = append(out, CategoryTreeNode{
				CategoryResponse: ToCategoryResponse(c),
				Children:         build(children[c.ID]),
			})
		}
		return out
	}
	return build(roots)
}
