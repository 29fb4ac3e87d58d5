package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func marshalMap(t *testing.T, v any) map[string]any {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestErrorEnvelope(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "Order not found", "req-123")
	raw := marshalMap(t, resp)

	assert.Equal(t, false, raw["success"])
	assert.NotContains(t, raw, "data")
	assert.NotContains(t, raw, "meta")
	assert.Equal(t, map[string]any{
		"code":      ErrCodeNotFound,
		"message":   "Order not found",
		"requestId": "req-123",
	}, raw["error"])

	plain := marshalMap(t, NewErrorResponse(ErrCodeInternal, "boom"))
	assert.NotContains(t, plain["error"], "requestId")
}

func TestValidationEnvelope(t *testing.T) {
	resp := NewValidationErrorResponse("Request validation failed", "req-789", []ValidationDetail{
		{Field: "email", Message: "Invalid email format"},
		{Field: "quantity", Message: "Must be at least 1"},
	})

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	errObj := marshalMap(t, resp)["error"].(map[string]any)
	assert.Len(t, errObj["details"], 2)
}

func TestSuccessEnvelope(t *testing.T) {
	raw := marshalMap(t, NewSuccessResponse(map[string]int{"items": 2}))
	assert.Equal(t, true, raw["success"])
	assert.NotContains(t, raw, "error")
	assert.NotContains(t, raw, "meta")
}

func TestSuccessEnvelopeWithMeta(t *testing.T) {
	tests := []struct {
		total              int64
		pageSize           int
		wantPages, wantSize int
	}{
		{100, 10, 10, 10},
		{101, 10, 11, 10},
		{0, 10, 0, 10},
		{9, 10, 1, 10},
		{100, 0, 5, 20},
		{100, -1, 5, 20},
	}
	for _, tt := range tests {
		resp := NewSuccessResponseWithMeta([]string{}, tt.total, 2, tt.pageSize)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, tt.wantPages, resp.Meta.TotalPages, "total %d size %d", tt.total, tt.pageSize)
		assert.Equal(t, tt.wantSize, resp.Meta.PageSize)
		assert.Equal(t, 2, resp.Meta.Page)
	}

	meta := marshalMap(t, NewSuccessResponseWithMeta([]string{"a"}, 45, 1, 20))["meta"]
	assert.Equal(t, map[string]any{"total": 45.0, "page": 1.0, "pageSize": 20.0, "totalPages": 3.0}, meta)
}
