// Package errors provides standardized error handling for the answer pipeline.
package errors

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Administrative configuration errors (fatal at startup).
	ErrCodeConfigLoad      ErrorCode = "CONFIG_LOAD_ERROR"
	ErrCodeDuplicateClient ErrorCode = "DUPLICATE_CLIENT"

	// Lookup errors (caller supplied an unknown identifier).
	ErrCodeClientNotFound ErrorCode = "CLIENT_NOT_FOUND"
	ErrCodeModeNotFound   ErrorCode = "MODE_NOT_FOUND"

	// Request validation errors.
	ErrCodeEmptyQuery          ErrorCode = "EMPTY_QUERY"
	ErrCodeInvalidModeOverride ErrorCode = "INVALID_MODE_OVERRIDE"

	// Template/context mismatch (a configuration defect, never retried).
	ErrCodeUnresolvedPlaceholder ErrorCode = "UNRESOLVED_PLACEHOLDER"

	// External dependency failures.
	ErrCodeRetrievalUnavailable  ErrorCode = "RETRIEVAL_UNAVAILABLE"
	ErrCodeCompletionUnavailable ErrorCode = "COMPLETION_UNAVAILABLE"

	// Fallback for errors produced outside this package.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewConfigLoadError creates a non-retryable configuration load error.
func NewConfigLoadError(source string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfigLoad,
		Message:   "Configuration source is malformed or unreadable",
		Details:   fmt.Sprintf("source: %s, error: %s", source, err.Error()),
		Retryable: false,
		Metadata:  map[string]interface{}{"source": source},
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicateClientError creates a non-retryable duplicate registration error.
func NewDuplicateClientError(clientID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateClient,
		Message:   "Client id already registered",
		Details:   fmt.Sprintf("clientId: %s", clientID),
		Retryable: false,
		Metadata:  map[string]interface{}{"clientId": clientID},
		Timestamp: time.Now().UTC(),
	}
}

// NewClientNotFoundError creates a non-retryable unknown-client error.
func NewClientNotFoundError(clientID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeClientNotFound,
		Message:   "Client not found in registry",
		Details:   fmt.Sprintf("clientId: %s", clientID),
		Retryable: false,
		Metadata:  map[string]interface{}{"clientId": clientID},
		Timestamp: time.Now().UTC(),
	}
}

// NewModeNotFoundError creates a non-retryable unknown-mode error.
func NewModeNotFoundError(modeID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeModeNotFound,
		Message:   "Mode not found in catalog",
		Details:   fmt.Sprintf("modeId: %s", modeID),
		Retryable: false,
		Metadata:  map[string]interface{}{"modeId": modeID},
		Timestamp: time.Now().UTC(),
	}
}

// NewEmptyQueryError creates a non-retryable blank-query error.
func NewEmptyQueryError() *StandardError {
	return &StandardError{
		Code:      ErrCodeEmptyQuery,
		Message:   "Query must not be blank",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidModeOverrideError creates a non-retryable override rejection.
func NewInvalidModeOverrideError(modeID, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidModeOverride,
		Message:   "Mode override rejected",
		Details:   fmt.Sprintf("modeId: %s, %s", modeID, details),
		Retryable: false,
		Metadata:  map[string]interface{}{"modeId": modeID},
		Timestamp: time.Now().UTC(),
	}
}

// NewUnresolvedPlaceholderError creates a non-retryable template resolution error.
// The failing token name is carried in both Details and Metadata.
func NewUnresolvedPlaceholderError(token, modeID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnresolvedPlaceholder,
		Message:   fmt.Sprintf("Template placeholder {%s} could not be resolved", token),
		Details:   fmt.Sprintf("token: %s, modeId: %s", token, modeID),
		Retryable: false,
		Metadata:  map[string]interface{}{"token": token, "modeId": modeID},
		Timestamp: time.Now().UTC(),
	}
}

// NewRetrievalUnavailableError creates a retryable retrieval backend error.
func NewRetrievalUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRetrievalUnavailable,
		Message:   "Retrieval backend unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCompletionUnavailableError creates a retryable completion backend error.
func NewCompletionUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCompletionUnavailable,
		Message:   "Completion backend unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Retry Policy
// ==========================

// GetRetryCount returns the attempt budget for an error code. External
// dependency failures retry; configuration and caller errors never do.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeRetrievalUnavailable:
		return 3

	case ErrCodeCompletionUnavailable:
		return 2

	default:
		return 0
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// ==========================
// 4. HTTP Mapping
// ==========================

// HTTPStatus maps an error code to the status the request surface returns.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeClientNotFound, ErrCodeModeNotFound:
		return http.StatusNotFound
	case ErrCodeEmptyQuery, ErrCodeInvalidModeOverride:
		return http.StatusBadRequest
	case ErrCodeRetrievalUnavailable, ErrCodeCompletionUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// Normalize ensures any error is a StandardError.
func Normalize(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "CONFIG") || strings.Contains(codeStr, "DUPLICATE"):
		return "CONFIG"
	case strings.Contains(codeStr, "NOT_FOUND"):
		return "LOOKUP"
	case strings.Contains(codeStr, "PLACEHOLDER"):
		return "TEMPLATE"
	case strings.Contains(codeStr, "QUERY") || strings.Contains(codeStr, "OVERRIDE"):
		return "REQUEST"
	case strings.Contains(codeStr, "RETRIEVAL") || strings.Contains(codeStr, "COMPLETION"):
		return "EXTERNAL"
	default:
		return "OTHER"
	}
}
