package dto

import (
	"net/http"
	"strings"
)

// Codes generated by the HTTP layer itself. Domain codes such as
// INVALID_STATE or HAS_CHILDREN go out verbatim.
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"

	ErrCodeValidation   = "ERR_VALIDATION"
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"

	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"

	ErrCodeNotFound      = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	ErrCodeConflict      = "ERR_CONFLICT"

	ErrCodePayment          = "ERR_PAYMENT"
	ErrCodeInvalidSignature = "INVALID_SIGNATURE"
	ErrCodeAIUnavailable    = "AI_UNAVAILABLE"

	ErrCodePayloadTooLarge = "ERR_PAYLOAD_TOO_LARGE"
	ErrCodeRateLimited     = "ERR_RATE_LIMITED"
	ErrCodeTooManyRequests = "ERR_TOO_MANY_REQUESTS"
	ErrCodeTimeout         = "ERR_TIMEOUT"
)

// statusByCode lists every code whose status is not implied by its shape
var statusByCode = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	ErrCodeUnauthorized:     http.StatusUnauthorized,
	ErrCodeInvalidSignature: http.StatusUnauthorized,
	"UNAUTHORIZED":          http.StatusUnauthorized,
	"INVALID_CREDENTIALS":   http.StatusUnauthorized,
	"TOKEN_EXPIRED":         http.StatusUnauthorized,
	"TOKEN_INVALID":         http.StatusUnauthorized,
	"TOKEN_REVOKED":         http.StatusUnauthorized,
	"TOKEN_MAX_REFRESH":     http.StatusUnauthorized,

	ErrCodeForbidden:      http.StatusForbidden,
	"FORBIDDEN":           http.StatusForbidden,
	"ACCOUNT_DEACTIVATED": http.StatusForbidden,

	ErrCodeNotFound: http.StatusNotFound,

	ErrCodeAlreadyExists:   http.StatusConflict,
	ErrCodeConflict:        http.StatusConflict,
	"CONCURRENCY_CONFLICT": http.StatusConflict,
	"DUPLICATE_CHECKOUT":   http.StatusConflict,
	"HAS_CHILDREN":         http.StatusConflict,

	// INVALID_STATE is a business rule, not malformed input
	"INVALID_STATE":      http.StatusUnprocessableEntity,
	"INSUFFICIENT_STOCK": http.StatusUnprocessableEntity,

	ErrCodePayment:       http.StatusBadGateway,
	"SUPPLIER_API_ERROR": http.StatusBadGateway,
	"FETCH_FAILED":       http.StatusBadGateway,
	ErrCodeAIUnavailable: http.StatusServiceUnavailable,

	ErrCodePayloadTooLarge:   http.StatusRequestEntityTooLarge,
	"IMAGE_TOO_LARGE":        http.StatusRequestEntityTooLarge,
	"UNSUPPORTED_IMAGE_TYPE": http.StatusUnsupportedMediaType,
	ErrCodeRateLimited:       http.StatusTooManyRequests,
	ErrCodeTooManyRequests:   http.StatusTooManyRequests,
	ErrCodeTimeout:           http.StatusGatewayTimeout,
}

// domainAliases renames the generic shared.DomainError codes to their ERR_
// form on the wire
var domainAliases = map[string]string{
	"NOT_FOUND":        ErrCodeNotFound,
	"ALREADY_EXISTS":   ErrCodeAlreadyExists,
	"INVALID_INPUT":    ErrCodeInvalidInput,
	"VALIDATION_ERROR": ErrCodeValidation,
	"BAD_REQUEST":      ErrCodeBadRequest,
	"INTERNAL_ERROR":   ErrCodeInternal,
	"SAVE_FAILED":      ErrCodeInternal,
}

// NormalizeErrorCode returns the wire form of a domain error code
func NormalizeErrorCode(code string) string {
	if alias, ok := domainAliases[code]; ok {
		return alias
	}
	return code
}

// GetHTTPStatus returns the status listed for code, or 500
func GetHTTPStatus(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainHTTPStatus resolves a domain code. Unlisted codes map by shape:
// *_NOT_FOUND is 404, INVALID_* is 400 and the rest are 422 business rule
// violations (EMPTY_CART, INSUFFICIENT_STOCK, SUPPLIER_INACTIVE, ...).
func DomainHTTPStatus(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	switch {
	case strings.HasSuffix(code, "_NOT_FOUND"):
		return http.StatusNotFound
	case strings.HasPrefix(code, "INVALID_"):
		return http.StatusBadRequest
	default:
		return http.StatusUnprocessableEntity
	}
}
