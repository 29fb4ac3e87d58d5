package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/flipflop/backend/internal/interfaces/http/dto"
	"github.com/flipflop/backend/internal/interfaces/http/middleware"
	"github.com/flipflop/backend/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext(method, target string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, nil)
	return c, w
}

var decodeResponse = testutil.DecodeResponse

func TestRequireUser(t *testing.T) {
	h := &BaseHandler{}

	t.Run("authenticated", func(t *testing.T) {
		c, _ := newTestContext("GET", "/")
		id := uuid.New()
		c.Set(middleware.JWTUserIDKey, id.String())

		got, ok := h.requireUser(c)
		assert.True(t, ok)
		assert.Equal(t, id, got)
	})

	t.Run("anonymous", func(t *testing.T) {
		c, w := newTestContext("GET", "/")

		_, ok := h.requireUser(c)
		assert.False(t, ok)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestUUIDParam(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext("GET", "/")
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}

	_, ok := h.uuidParam(c, "id")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidInput, decodeResponse(t, w).Error.Code)
}

func TestSuccessPage(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext("GET", "/")
	page := shared.NewPaginated[string](nil, 45, 2, 20)

	successPage(h, c, &page)

	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, []any{}, resp.Data)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(45), resp.Meta.Total)
	assert.Equal(t, 3, resp.Meta.TotalPages)
}

func TestBaseHandlerResponses(t *testing.T) {
	h := &BaseHandler{}

	c, w := newTestContext("POST", "/")
	h.Created(c, gin.H{"id": "1"})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, decodeResponse(t, w).Success)

	c, w = newTestContext("DELETE", "/")
	h.NoContent(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)

	c, w = newTestContext("GET", "/")
	c.Set("request_id", "req-77")
	h.ErrorWithCode(c, dto.ErrCodeRateLimited, "slow down")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "req-77", decodeResponse(t, w).Error.RequestID)
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantHTTP int
		wantCode string
	}{
		{"not found", shared.ErrNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
		{"already exists", shared.ErrAlreadyExists, http.StatusConflict, dto.ErrCodeAlreadyExists},
		{"invalid input", shared.ErrInvalidInput, http.StatusBadRequest, dto.ErrCodeInvalidInput},
		{"invalid state kept verbatim", shared.ErrInvalidState, http.StatusUnprocessableEntity, "INVALID_STATE"},
		{"concurrency", shared.ErrConcurrencyConflict, http.StatusConflict, "CONCURRENCY_CONFLICT"},
		{"stock", shared.ErrInsufficientStock, http.StatusUnprocessableEntity, "INSUFFICIENT_STOCK"},
		{"forbidden", shared.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"wrapped", fmt.Errorf("checkout: %w", shared.NewDomainError("EMPTY_CART", "Cart is empty")), http.StatusUnprocessableEntity, "EMPTY_CART"},
		{"payment", shared.NewDomainError("ERR_PAYMENT", "gateway down"), http.StatusBadGateway, "ERR_PAYMENT"},
		{"unknown invalid", shared.NewDomainError("INVALID_SKU", "bad sku"), http.StatusBadRequest, "INVALID_SKU"},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, dto.ErrCodeTimeout},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			c, w := newTestContext("GET", "/")

			h.HandleError(c, tt.err)

			assert.Equal(t, tt.wantHTTP, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}

	t.Run("nil writes nothing", func(t *testing.T) {
		h := &BaseHandler{}
		c, w := newTestContext("GET", "/")
		h.HandleError(c, nil)
		assert.Zero(t, w.Body.Len())
	})
}

func TestHandleError_HidesInternalMessage(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext("GET", "/")

	h.HandleError(c, errors.New("pq: password authentication failed"))

	assert.NotContains(t, w.Body.String(), "password")
}
