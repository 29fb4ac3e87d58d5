package catalog

import (
	"context"
	"testing"

	"github.com/flipflop/backend/internal/domain/catalog"
	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCategory(t *testing.T, name string, parent *uuid.UUID, sortOrder int) *catalog.Category {
	t.Helper()
	c, err := catalog.NewCategory(name, "")
	require.NoError(t, err)
	require.NoError(t, c.Update(c.Name, c.Slug, "", "", sortOrder))
	require.NoError(t, c.SetParent(parent))
	c.ClearDomainEvents()
	return c
}

func TestCategoryService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("derives the slug", func(t *testing.T) {
		repo := new(MockCategoryRepository)
		repo.On("FindBySlug", mock.Anything, "zlute-zabky").Return(nil, shared.ErrNotFound)
		repo.On("Save", mock.Anything, mock.Anything).Return(nil)
		svc := NewCategoryService(repo, zap.NewNop())

		resp, err := svc.Create(ctx, CreateCategoryRequest{Name: "Žluté žabky", SortOrder: 3})
		require.NoError(t, err)
		assert.Equal(t, "zlute-zabky", resp.Slug)
		assert.Equal(t, 3, resp.SortOrder)
	})

	t.Run("slug taken", func(t *testing.T) {
		repo := new(MockCategoryRepository)
		repo.On("FindBySlug", mock.Anything, "sandals").Return(newTestCategory(t, "Sandals", nil, 0), nil)
		svc := NewCategoryService(repo, zap.NewNop())

		_, err := svc.Create(ctx, CreateCategoryRequest{Name: "Sandals"})
		assert.Equal(t, "ALREADY_EXISTS", shared.ErrorCode(err))
	})

	t.Run("missing parent", func(t *testing.T) {
		repo := new(MockCategoryRepository)
		parentID := uuid.New()
		repo.On("FindBySlug", mock.Anything, "kids").Return(nil, shared.ErrNotFound)
		repo.On("FindByID", mock.Anything, parentID).Return(nil, shared.ErrNotFound)
		svc := NewCategoryService(repo, zap.NewNop())

		_, err := svc.Create(ctx, CreateCategoryRequest{Name: "Kids", ParentID: &parentID})
		assert.Equal(t, "INVALID_PARENT", shared.ErrorCode(err))
	})
}

func TestCategoryService_UpdateRejectsCycles(t *testing.T) {
	ctx := context.Background()
	repo := new(MockCategoryRepository)
	root := newTestCategory(t, "Shoes", nil, 0)
	child := newTestCategory(t, "Sandals", &root.ID, 0)
	repo.On("FindByID", mock.Anything, root.ID).Return(root, nil)
	repo.On("FindByID", mock.Anything, child.ID).Return(child, nil)
	repo.On("FindBySlug", mock.Anything, "shoes").Return(root, nil)
	svc := NewCategoryService(repo, zap.NewNop())

	_, err := svc.Update(ctx, root.ID, UpdateCategoryRequest{ParentID: &child.ID})
	assert.Equal(t, "INVALID_PARENT", shared.ErrorCode(err))
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCategoryService_Delete(t *testing.T) {
	ctx := context.Background()
	repo := new(MockCategoryRepository)
	parent := newTestCategory(t, "Shoes", nil, 0)
	leaf := newTestCategory(t, "Sandals", &parent.ID, 0)
	repo.On("FindByID", mock.Anything, parent.ID).Return(parent, nil)
	repo.On("FindByID", mock.Anything, leaf.ID).Return(leaf, nil)
	repo.On("HasChildren", mock.Anything, parent.ID).Return(true, nil)
	repo.On("HasChildren", mock.Anything, leaf.ID).Return(false, nil)
	repo.On("Delete", mock.Anything, leaf.ID).Return(nil).Once()
	svc := NewCategoryService(repo, zap.NewNop())

	err := svc.Delete(ctx, parent.ID)
	assert.Equal(t, "HAS_CHILDREN", shared.ErrorCode(err))

	require.NoError(t, svc.Delete(ctx, leaf.ID))
	repo.AssertExpectations(t)
}

func TestBuildCategoryTree(t *testing.T) {
	shoes := newTestCategory(t, "Shoes", nil, 1)
	bags := newTestCategory(t, "Bags", nil, 0)
	sandals := newTestCategory(t, "Sandals", &shoes.ID, 0)
	flipflops := newTestCategory(t, "Flip-flops", &sandals.ID, 0)
	orphanParent := uuid.New()
	orphan := newTestCategory(t, "Orphan", &orphanParent, 5)

	categories := []catalog.Category{*flipflops, *shoes, *sandals, *bags, *orphan}
	sortCategories(categories)
	tree := buildCategoryTree(categories)

	require.Len(t, tree, 3)
	assert.Equal(t, "Bags", tree[0].Name)
	assert.Equal(t, "Shoes", tree[1].Name)
	assert.Equal(t, "Orphan", tree[2].Name)
	require.Len(t, tree[1].Children, 1)
	assert.Equal(t, "Sandals", tree[1].Children[0].Name)
	require.Len(t, tree[1].Children[0].Children, 1)
	assert.Equal(t, "Flip-flops", tree[1].Children[0].Children[0].Name)
	assert.Empty(t, tree[0].Children)
}
