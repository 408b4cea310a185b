package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeValidationRequired is used when a required field is missing
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	// ErrCodeValidationRange is used when a value is out of range
	ErrCodeValidationRange = "ERR_VALIDATION_RANGE"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeConcurrencyConflict is used when the invoice version check fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	// ErrCodeIdempotencyInProgress is used when a request with the same
	// idempotency key is still being processed
	ErrCodeIdempotencyInProgress = "ERR_IDEMPOTENCY_IN_PROGRESS"
	// ErrCodeIdempotencyMismatch is used when an idempotency key is reused
	// with a different request body
	ErrCodeIdempotencyMismatch = "ERR_IDEMPOTENCY_MISMATCH"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeBusinessRule is used for generic business rule violations
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodePayloadTooLarge is used when the body exceeds the size limit
	ErrCodePayloadTooLarge = "ERR_PAYLOAD_TOO_LARGE"
	// ErrCodeRateLimited is used when a client exceeds its request budget
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
	// ErrCodeForbidden is used when the client address is not allowed
	ErrCodeForbidden = "ERR_FORBIDDEN"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,

	ErrCodeNotFound:              http.StatusNotFound,
	ErrCodeAlreadyExists:         http.StatusConflict,
	ErrCodeConflict:              http.StatusConflict,
	ErrCodeConcurrencyConflict:   http.StatusConflict,
	ErrCodeIdempotencyInProgress: http.StatusConflict,
	ErrCodeIdempotencyMismatch:   http.StatusUnprocessableEntity,

	ErrCodeInvalidState: http.StatusUnprocessableEntity,
	ErrCodeBusinessRule: http.StatusUnprocessableEntity,

	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodePayloadTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeForbidden:       http.StatusForbidden,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping maps domain error codes to API error codes
var LegacyErrorCodeMapping = map[string]string{
	"NOT_FOUND":              ErrCodeNotFound,
	"ALREADY_EXISTS":         ErrCodeAlreadyExists,
	"INVALID_INPUT":          ErrCodeInvalidInput,
	"INVALID_STATE":          ErrCodeInvalidState,
	"CONCURRENCY_CONFLICT":   ErrCodeConcurrencyConflict,
	"VALIDATION_ERROR":       ErrCodeValidation,
	"BAD_REQUEST":            ErrCodeBadRequest,
	"INTERNAL_ERROR":         ErrCodeInternal,
	"INVALID_TITLE":          ErrCodeValidationRequired,
	"INVALID_QUANTITY":       ErrCodeValidationRange,
	"INVALID_PRICE":          ErrCodeValidationRange,
	"AMOUNT_TOO_LARGE":       ErrCodeValidationRange,
	"INVALID_PERCENTAGE":     ErrCodeValidationRange,
	"INVALID_TAX_RATE":       ErrCodeValidationRange,
	"INVALID_DISCOUNT":       ErrCodeValidationRange,
	"INVALID_DISCOUNT_TYPE":  ErrCodeInvalidInput,
	"INVALID_INVOICE":        ErrCodeInvalidInput,
	"INVALID_INVOICE_NUMBER": ErrCodeValidationRequired,
	"DUPLICATE_ITEM_ID":      ErrCodeInvalidInput,
	"NO_ITEMS":               ErrCodeBusinessRule,
}

// NormalizeErrorCode converts a domain error code to the API format
// If the code is already in the API format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := LegacyErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}

// DomainCode is the inverse of NormalizeErrorCode for the codes clients
// react to. It returns "" for codes without a domain sentinel.
func DomainCode(apiCode string) string {
	switch apiCode {
	case ErrCodeNotFound:
		return "NOT_FOUND"
	case ErrCodeConcurrencyConflict:
		return "CONCURRENCY_CONFLICT"
	case ErrCodeAlreadyExists:
		return "ALREADY_EXISTS"
	case ErrCodeInvalidState:
		return "INVALID_STATE"
	case ErrCodeInvalidInput, ErrCodeValidation, ErrCodeValidationRequired, ErrCodeValidationRange:
		return "INVALID_INPUT"
	default:
		return ""
	}
}
