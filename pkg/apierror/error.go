package apierror

import (
	"encoding/json"
	"net/http"
)

// Error represents a structured API error response.
type Error struct {
	StatusCode int          `json:"-"`
	Code       string       `json:"code"`
	Message    string       `json:"message"`
	Details    []FieldError `json:"details,omitempty"`
}

// FieldError represents a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// WithDetails adds field-level error details.
func (e *Error) WithDetails(details ...FieldError) *Error {
	e.Details = details
	return e
}

// ToJSON converts the error to JSON bytes.
func (e *Error) ToJSON() []byte {
	response := map[string]interface{}{
		"success": false,
		"error": map[string]interface{}{
			"code":    e.Code,
			"message": e.Message,
		},
	}

	if len(e.Details) > 0 {
		response["error"].(map[string]interface{})["details"] = e.Details
	}

	data, _ := json.Marshal(response)
	return data
}

// BadRequest creates a 400 Bad Request error.
func BadRequest(message string) *Error {
	return &Error{
		StatusCode: http.StatusBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
	}
}

// ValidationError creates a 400 error with validation details.
// Validation errors are surfaced immediately and never enter the sync queue.
func ValidationError(message string, details ...FieldError) *Error {
	return &Error{
		StatusCode: http.StatusBadRequest,
		Code:       "VALIDATION_ERROR",
		Message:    message,
		Details:    details,
	}
}

// ItemNotFound creates a 404 error for an unknown inventory item.
func ItemNotFound(message string) *Error {
	if message == "" {
		message = "Item not found"
	}
	return &Error{
		StatusCode: http.StatusNotFound,
		Code:       "ITEM_NOT_FOUND",
		Message:    message,
	}
}

// InsufficientStock creates a 409 error for a sale exceeding on-hand quantity.
func InsufficientStock(message string) *Error {
	if message == "" {
		message = "Insufficient stock"
	}
	return &Error{
		StatusCode: http.StatusConflict,
		Code:       "INSUFFICIENT_STOCK",
		Message:    message,
	}
}

// DatabaseError creates a 500 error for a local store failure.
func DatabaseError(message string) *Error {
	if message == "" {
		message = "There was a problem saving your data"
	}
	return &Error{
		StatusCode: http.StatusInternalServerError,
		Code:       "DATABASE_ERROR",
		Message:    message,
	}
}

// NetworkError creates a 502 error for a failed remote call.
func NetworkError(message string) *Error {
	if message == "" {
		message = "Remote request failed"
	}
	return &Error{
		StatusCode: http.StatusBadGateway,
		Code:       "NETWORK_ERROR",
		Message:    message,
	}
}

// SyncError creates a 500 error for a drain-pass failure on one item.
func SyncError(message string) *Error {
	if message == "" {
		message = "Sync operation failed"
	}
	return &Error{
		StatusCode: http.StatusInternalServerError,
		Code:       "SYNC_ERROR",
		Message:    message,
	}
}

// NotFound creates a 404 Not Found error.
func NotFound(message string) *Error {
	if message == "" {
		message = "Resource not found"
	}
	return &Error{
		StatusCode: http.StatusNotFound,
		Code:       "NOT_FOUND",
		Message:    message,
	}
}

// Conflict creates a 409 Conflict error.
func Conflict(message string) *Error {
	return &Error{
		StatusCode: http.StatusConflict,
		Code:       "CONFLICT",
		Message:    message,
	}
}

// InternalError creates a 500 Internal Server Error.
func InternalError(message string) *Error {
	if message == "" {
		message = "An unexpected error occurred"
	}
	return &Error{
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    message,
	}
}

// ServiceUnavailable creates a 503 Service Unavailable error.
func ServiceUnavailable(message string) *Error {
	if message == "" {
		message = "Service temporarily unavailable"
	}
	return &Error{
		StatusCode: http.StatusServiceUnavailable,
		Code:       "SERVICE_UNAVAILABLE",
		Message:    message,
	}
}
