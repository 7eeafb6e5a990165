// Package errors provides the service-level error taxonomy shared by the HTTP
// boundary and the workflow worker.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorCode is a fixed categorical failure identifier. Callers only ever see
// these codes and their messages, never raw upstream errors.
type ErrorCode string

const (
	ErrCodeInvalidSearchRequest ErrorCode = "INVALID_SEARCH_REQUEST"
	ErrCodeSearchFailed         ErrorCode = "SEARCH_FAILED"
	ErrCodeHistoryUnavailable   ErrorCode = "HISTORY_UNAVAILABLE"
	ErrCodeHistoryWriteFailed   ErrorCode = "HISTORY_WRITE_FAILED"
	ErrCodeUpstreamUnavailable  ErrorCode = "UPSTREAM_UNAVAILABLE"
	ErrCodeUpstreamTimeout      ErrorCode = "UPSTREAM_TIMEOUT"
	ErrCodeInternal             ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// HTTPStatus maps the code onto the status the HTTP boundary responds with.
func (e *StandardError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeInvalidSearchRequest:
		return http.StatusBadRequest
	case ErrCodeUpstreamTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// NewInvalidSearchRequestError is returned for structurally invalid input.
func NewInvalidSearchRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidSearchRequest,
		Message:   "Invalid search request",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchFailedError is the single user-visible failure for the search
// paths. message is the fixed text shown to the caller, e.g. "PBS search failed".
func NewSearchFailedError(message string, cause error) *StandardError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return &StandardError{
		Code:      ErrCodeSearchFailed,
		Message:   message,
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewHistoryUnavailableError is returned when the ledger cannot be read.
func NewHistoryUnavailableError(cause error) *StandardError {
	return &StandardError{
		Code:      ErrCodeHistoryUnavailable,
		Message:   "Failed to retrieve search history",
		Details:   cause.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewHistoryWriteFailedError is logged, never returned to callers.
func NewHistoryWriteFailedError(cause error) *StandardError {
	return &StandardError{
		Code:      ErrCodeHistoryWriteFailed,
		Message:   "Failed to record search history",
		Details:   cause.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func NewUpstreamUnavailableError(source string, cause error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamUnavailable,
		Message:   fmt.Sprintf("Upstream '%s' unavailable", source),
		Details:   cause.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"source": source},
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func NewUpstreamTimeoutError(source string, cause error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamTimeout,
		Message:   fmt.Sprintf("Upstream '%s' timeout", source),
		Details:   cause.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"source": source},
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// GetRetryCount is the number of job retries granted per code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeSearchFailed, ErrCodeHistoryUnavailable:
		return 2
	case ErrCodeUpstreamUnavailable, ErrCodeUpstreamTimeout:
		return 1
	default:
		return 0
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "HISTORY"):
		return "HISTORY"
	case strings.Contains(codeStr, "UPSTREAM"):
		return "UPSTREAM"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	default:
		return "OTHER"
	}
}

// AsStandardError normalizes any error into a StandardError. A wrapped
// StandardError anywhere in the chain is returned as is.
func AsStandardError(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}
