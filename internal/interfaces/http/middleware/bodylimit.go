package middleware

import (
	"net/http"
	"strings"

	"github.com/flipflop/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// BodyLimitConfig caps request bodies. MaxUploadBytes, when set, replaces
// MaxBytes for multipart requests carrying product images.
type BodyLimitConfig struct {
	MaxBytes       int64
	MaxUploadBytes int64
}

func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return BodyLimitWithConfig(BodyLimitConfig{MaxBytes: maxBytes})
}

// BodyLimitWithConfig answers 413 when the declared length is over the limit.
// Bodies of unknown length are wrapped in http.MaxBytesReader, so reading past
// the limit fails inside the handler's bind.
func BodyLimitWithConfig(cfg BodyLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := cfg.limitFor(c.ContentType())
		switch {
		case limit <= 0:
		case c.Request.ContentLength > limit:
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
				dto.ErrCodePayloadTooLarge, "Request body exceeds maximum allowed size", GetRequestID(c)))
			return
		default:
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

func (cfg BodyLimitConfig) limitFor(contentType string) int64 {
	if cfg.MaxUploadBytes > 0 && strings.HasPrefix(contentType, "multipart/") {
		return cfg.MaxUploadBytes
	}
	return cfg.MaxBytes
}
