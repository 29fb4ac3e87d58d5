package shared

import "errors"

// DomainError carries a stable code that the HTTP layer maps to a status
// and echoes in the error envelope.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *DomainError) Error() string { return e.Message }

// Is compares by code, so errors.Is(err, ErrNotFound) matches any
// NOT_FOUND error regardless of message.
func (e *DomainError) Is(target error) bool {
	var de *DomainError
	return errors.As(target, &de) && de.Code == e.Code
}

func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another request")
	ErrForbidden           = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in the current state")
	ErrInsufficientStock   = NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")
)

// ErrorCode returns the code of the first DomainError in err's chain, or ""
func ErrorCode(err error) string {
	if de := new(DomainError); errors.As(err, &de) {
		return de.Code
	}
	return ""
}
