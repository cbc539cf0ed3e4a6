package dto

import (
	"net/http"

	"github.com/mfgops/ledger/internal/domain/shared"
)

// API error codes. Domain codes are exposed with an ERR_ prefix.
const (
	ErrCodeInternal              = "ERR_INTERNAL"
	ErrCodeNotFound              = "ERR_NOT_FOUND"
	ErrCodeInvalidArgument       = "ERR_INVALID_ARGUMENT"
	ErrCodeInsufficientStock     = "ERR_INSUFFICIENT_STOCK"
	ErrCodeConflict              = "ERR_CONFLICT"
	ErrCodeTransientLockConflict = "ERR_TRANSIENT_LOCK_CONFLICT"
	ErrCodeRequestTooLarge       = "ERR_REQUEST_TOO_LARGE"
	ErrCodeServiceUnavailable    = "ERR_SERVICE_UNAVAILABLE"
)

// domainCodes maps shared.DomainError codes to API codes
var domainCodes = map[string]string{
	shared.CodeNotFound:              ErrCodeNotFound,
	shared.CodeInvalidArgument:       ErrCodeInvalidArgument,
	shared.CodeInsufficientStock:     ErrCodeInsufficientStock,
	shared.CodeConflict:              ErrCodeConflict,
	shared.CodeTransientLockConflict: ErrCodeTransientLockConflict,
}

// ErrorCodeHTTPStatus maps API error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:              http.StatusInternalServerError,
	ErrCodeNotFound:              http.StatusNotFound,
	ErrCodeInvalidArgument:       http.StatusBadRequest,
	ErrCodeInsufficientStock:     http.StatusUnprocessableEntity,
	ErrCodeConflict:              http.StatusConflict,
	ErrCodeTransientLockConflict: http.StatusServiceUnavailable,
	ErrCodeRequestTooLarge:       http.StatusRequestEntityTooLarge,
	ErrCodeServiceUnavailable:    http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status for an API code, 500 when unknown
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// NormalizeErrorCode converts a domain code to its API code.
// Codes that are already API codes, or unknown, are returned as-is.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := domainCodes[code]; ok {
		return apiCode
	}
	return code
}
