package shared

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error codes shared by every ledger operation.
const (
	CodeNotFound              = "NOT_FOUND"
	CodeInvalidArgument       = "INVALID_ARGUMENT"
	CodeInsufficientStock     = "INSUFFICIENT_STOCK"
	CodeConflict              = "CONFLICT"
	CodeTransientLockConflict = "TRANSIENT_LOCK_CONFLICT"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code, so that
// errors.Is(err, ErrNotFound) matches every not-found error.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetail returns a copy of the error carrying an extra detail.
func (e *DomainError) WithDetail(key string, value any) *DomainError {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{Code: e.Code, Message: e.Message, Details: details, Err: e.Err}
}

// Wrap returns a copy of the error with err recorded as its cause.
func (e *DomainError) Wrap(err error) *DomainError {
	return &DomainError{Code: e.Code, Message: e.Message, Details: e.Details, Err: err}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound              = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidArgument       = NewDomainError(CodeInvalidArgument, "Invalid argument")
	ErrInsufficientStock     = NewDomainError(CodeInsufficientStock, "Insufficient stock available")
	ErrConflict              = NewDomainError(CodeConflict, "Operation conflicts with current state")
	ErrTransientLockConflict = NewDomainError(CodeTransientLockConflict, "Lock wait timed out or deadlock detected, retry the operation")
)

// NewNotFoundError reports a missing resource identified by ref.
func NewNotFoundError(resource, ref string) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s %s not found", resource, ref)).
		WithDetail("resource", resource)
}

// NewInvalidArgumentError reports a rejected input field.
func NewInvalidArgumentError(field, message string) *DomainError {
	return NewDomainError(CodeInvalidArgument, message).WithDetail("field", field)
}

// NewConflictError reports an operation rejected by the current state.
func NewConflictError(message string) *DomainError {
	return NewDomainError(CodeConflict, message)
}

// NewInsufficientStockError reports that a request exceeds available stock by shortage.
func NewInsufficientStockError(shortage decimal.Decimal) *DomainError {
	return NewDomainError(CodeInsufficientStock,
		fmt.Sprintf("insufficient stock: short by %s", shortage.String())).
		WithDetail("shortage", shortage)
}

// ShortageOf extracts the shortage carried by an insufficient stock error.
func ShortageOf(err error) (decimal.Decimal, bool) {
	var de *DomainError
	if !errors.As(err, &de) || de.Code != CodeInsufficientStock {
		return decimal.Zero, false
	}
	shortage, ok := de.Details["shortage"].(decimal.Decimal)
	return shortage, ok
}

// IsRetryable reports whether err is a transient lock conflict that can be
// retried from scratch.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransientLockConflict)
}
