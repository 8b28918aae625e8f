// ABOUTME: Standardized JSON error envelope for the plugin repository API
// ABOUTME: Used by handlers to write errors and by the client to decode them

package errors

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// ErrorResponse is the error body every API handler writes.
//
// Usage:
//
//	WriteError(w, http.StatusNotFound, ErrNotFound, "Plugin not found")
type ErrorResponse struct {
	Code    string       `json:"code"`              // Machine-readable error code (e.g., "not_found")
	Message string       `json:"message"`           // Human-readable error message
	Status  int          `json:"status"`            // HTTP status code
	Field   string       `json:"field,omitempty"`   // Field that caused the error, for validation errors
	Details string       `json:"details,omitempty"` // Additional context
	Fields  []FieldError `json:"fields,omitempty"`  // Every failing field when more than one rule fails
}

// FieldError names one failing field and the rule it broke.
type FieldError struct {
	Field string `json:"field"`
	Code  string `json:"code"`
}

// Error makes ErrorResponse usable as a Go error on the client side.
func (e *ErrorResponse) Error() string {
	msg := fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
	if e.Field != "" {
		msg += " (" + e.Field + ")"
	}
	if e.Details != "" {
		msg += ": " + e.Details
	}
	return msg
}

// WriteError writes a standardized error response.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	Write(w, ErrorResponse{
		Code:    code,
		Message: message,
		Status:  status,
	})
}

// WriteErrorWithField writes an error response that points at one field.
//
// Example:
//
//	WriteErrorWithField(w, http.StatusBadRequest, ErrValidationFailed, "Please input url!", "plugin_url")
func WriteErrorWithField(w http.ResponseWriter, status int, code, message, field string) {
	Write(w, ErrorResponse{
		Code:    code,
		Message: message,
		Status:  status,
		Field:   field,
	})
}

// WriteErrorWithDetails writes an error response with additional details.
//
// Example:
//
//	WriteErrorWithDetails(w, http.StatusInternalServerError, ErrDatabaseError, "Failed to save plugin", err.Error())
func WriteErrorWithDetails(w http.ResponseWriter, status int, code, message, details string) {
	Write(w, ErrorResponse{
		Code:    code,
		Message: message,
		Status:  status,
		Details: details,
	})
}

// Write serializes resp with its own status code.
func Write(w http.ResponseWriter, resp ErrorResponse) {
	WriteJSON(w, resp.Status, resp)
}

// WriteJSON writes v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Read decodes an error body. Bodies that are not an ErrorResponse still
// yield one carrying the status and the raw text as details.
func Read(status int, body io.Reader) *ErrorResponse {
	raw, _ := io.ReadAll(io.LimitReader(body, 64*1024))
	var resp ErrorResponse
	if err := json.Unmarshal(raw, &resp); err != nil || resp.Code == "" {
		resp = ErrorResponse{
			Code:    codeForStatus(status),
			Message: http.StatusText(status),
			Details: string(raw),
		}
	}
	resp.Status = status
	return &resp
}

func codeForStatus(status int) string {
	switch {
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusConflict:
		return ErrConflict
	case status >= 500:
		return ErrInternal
	}
	return ErrInvalidRequest
}

// Error codes written by the API
const (
	// Client errors (4xx)
	ErrInvalidRequest   = "invalid_request"
	ErrInvalidBody      = "invalid_request_body"
	ErrMissingField     = "missing_field"
	ErrValidationFailed = "validation_failed"
	ErrNotFound         = "not_found"
	ErrConflict         = "conflict"

	// Server errors (5xx)
	ErrInternal      = "internal_error"
	ErrDatabaseError = "database_error"
)
