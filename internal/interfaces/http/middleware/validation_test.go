package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/flipflop/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registerInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Quantity int    `json:"quantity" binding:"omitempty,gte=1"`
}

func validationRouter() *gin.Engine {
	SetupValidator()
	router := gin.New()
	router.POST("/test", func(c *gin.Context) {
		var req registerInput
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	return router
}

func postValidation(t *testing.T, body, requestID string) (*httptest.ResponseRecorder, dto.Response) {
	t.Helper()
	req := httptest.NewRequest("POST", "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if requestID != "" {
		req.Header.Set(RequestIDHeader, requestID)
	}
	w := httptest.NewRecorder()
	validationRouter().ServeHTTP(w, req)

	var resp dto.Response
	if w.Code != http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestWireFieldName(t *testing.T) {
	type fields struct {
		JSON    string `json:"sku,omitempty"`
		Form    string `form:"page"`
		Both    string `json:"name" form:"n"`
		Hidden  string `json:"-"`
		Untaged string
	}
	typ := reflect.TypeOf(fields{})
	want := []string{"sku", "page", "name", "", ""}
	for i, name := range want {
		assert.Equal(t, name, wireFieldName(typ.Field(i)), typ.Field(i).Name)
	}
}

func TestSetupValidator(t *testing.T) {
	SetupValidator()

	_, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)
}

func TestHandleValidationError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("field errors use json names", func(t *testing.T) {
		w, resp := postValidation(t, `{"email":"nope","password":"short"}`, "req-1")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, "req-1", resp.Error.RequestID)
		require.Len(t, resp.Error.Details, 2)
		assert.Equal(t, "email", resp.Error.Details[0].Field)
		assert.Equal(t, "Invalid email format", resp.Error.Details[0].Message)
		assert.Equal(t, "password", resp.Error.Details[1].Field)
		assert.Equal(t, "Must be at least 8 characters", resp.Error.Details[1].Message)
	})

	t.Run("malformed json", func(t *testing.T) {
		w, resp := postValidation(t, `{"email":`, "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Request body is not valid JSON", resp.Error.Message)
		assert.Empty(t, resp.Error.Details)
	})

	t.Run("wrong type", func(t *testing.T) {
		w, resp := postValidation(t, `{"email":"a@b.cz","password":"longenough","quantity":"two"}`, "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "quantity", resp.Error.Details[0].Field)
	})

	t.Run("valid input passes", func(t *testing.T) {
		w, _ := postValidation(t, `{"email":"jana@example.cz","password":"longenough","quantity":2}`, "")
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestGetValidationMessage(t *testing.T) {
	type input struct {
		Required string `validate:"required"`
		Email    string `validate:"omitempty,email"`
		Min      string `validate:"min=5"`
		Max      string `validate:"max=3"`
		Len      string `validate:"len=5"`
		UUID     string `validate:"omitempty,uuid"`
		OneOf    string `validate:"omitempty,oneof=pending paid"`
		GTE      int    `validate:"gte=10"`
		URL      string `validate:"omitempty,url"`
		Items    []int  `validate:"min=1"`
		Unknown  string `validate:"omitempty,hexcolor"`
	}

	err := validator.New().Struct(input{
		Email: "invalid", Min: "ab", Max: "toolong", Len: "ab",
		UUID: "invalid", OneOf: "lost", URL: "invalid", Unknown: "red",
	})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)

	got := map[string]string{}
	for _, e := range verrs {
		got[e.Field()] = getValidationMessage(e)
	}

	assert.Equal(t, map[string]string{
		"Required": "This field is required",
		"Email":    "Invalid email format",
		"Min":      "Must be at least 5 characters",
		"Max":      "Must be at most 3 characters",
		"Len":      "Must be exactly 5 characters",
		"UUID":     "Invalid UUID format",
		"OneOf":    "Must be one of: pending paid",
		"GTE":      "Must be greater than or equal to 10",
		"URL":      "Invalid URL format",
		"Items":    "Must be at least 1",
		"Unknown":  "Invalid value",
	}, got)
}
