package handler

import "github.com/flipflop/backend/internal/interfaces/http/dto"

// Envelope documents dto.Response with a concrete data type for swag
type Envelope[T any] struct {
	Success bool           `json:"success" example:"true"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

// ErrorEnvelope documents the failure shape of dto.Response
type ErrorEnvelope struct {
	Success bool          `json:"success" example:"false"`
	Error   dto.ErrorInfo `json:"error"`
}
