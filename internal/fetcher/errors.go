package fetcher

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents the category of error that occurred during a fetch operation
type ErrorType string

const (
	// ErrorTypeValidation indicates missing or out-of-domain query parameters (raised before any I/O)
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeCredentials indicates a required credential is absent after resolution (raised before any I/O)
	ErrorTypeCredentials ErrorType = "credentials"
	// ErrorTypeProvider indicates a non-retryable upstream failure (HTTP 4xx except 429, API error payloads)
	ErrorTypeProvider ErrorType = "provider"
	// ErrorTypeRateLimit indicates the upstream kept throttling after all retries (HTTP 429)
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeServer indicates the upstream kept failing after all retries (HTTP 5xx)
	ErrorTypeServer ErrorType = "server"
	// ErrorTypeNetwork indicates a network-level error (connection refused, DNS, etc.)
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeTimeout indicates the extraction deadline expired
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeCanceled indicates the caller canceled the fetch
	ErrorTypeCanceled ErrorType = "canceled"
	// ErrorTypeDataShape indicates the upstream payload lacks an expected field
	ErrorTypeDataShape ErrorType = "data_shape"
	// ErrorTypeDuplicateRegistration indicates a (category, provider) pair was registered twice
	ErrorTypeDuplicateRegistration ErrorType = "duplicate_registration"
	// ErrorTypeDuplicateProvider indicates two providers share a name
	ErrorTypeDuplicateProvider ErrorType = "duplicate_provider"
	// ErrorTypeNotFound indicates an unknown category, provider, or (category, provider) pair
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeContract indicates a fetcher does not honor the category contract
	ErrorTypeContract ErrorType = "contract"
	// ErrorTypeReentrant indicates a blocking fetch was started from inside a blocking worker
	ErrorTypeReentrant ErrorType = "reentrant"
)

// FetchError represents a structured error from a fetch operation
type FetchError struct {
	Type       ErrorType
	Retryable  bool
	StatusCode int
	Provider   string
	Message    string
	Cause      error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Type))
	b.WriteString(" error")
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	b.WriteString(": ")
	if e.Provider != "" {
		b.WriteString(e.Provider)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// WithProvider returns a copy of e attributed to provider
func (e *FetchError) WithProvider(provider string) *FetchError {
	cp := *e
	cp.Provider = provider
	return &cp
}

// IsType reports whether err carries a FetchError of the given type
func IsType(err error, t ErrorType) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Type == t
}

// TypeOf returns the FetchError type carried by err, or "" if there is none
func TypeOf(err error) ErrorType {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Type
	}
	return ""
}

// NewValidationError creates a validation error
func NewValidationError(message string, cause error) *FetchError {
	return &FetchError{
		Type:    ErrorTypeValidation,
		Message: message,
		Cause:   cause,
	}
}

// NewCredentialsError creates a credentials error
func NewCredentialsError(provider, message string) *FetchError {
	return &FetchError{
		Type:     ErrorTypeCredentials,
		Provider: provider,
		Message:  message,
	}
}

// NewProviderError creates a non-retryable upstream error
func NewProviderError(statusCode int, message string) *FetchError {
	return &FetchError{
		Type:       ErrorTypeProvider,
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewNetworkError creates a network error
func NewNetworkError(cause error) *FetchError {
	return &FetchError{
		Type:      ErrorTypeNetwork,
		Retryable: true,
		Message:   "network request failed",
		Cause:     cause,
	}
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError(statusCode int) *FetchError {
	return &FetchError{
		Type:       ErrorTypeRateLimit,
		Retryable:  true,
		StatusCode: statusCode,
		Message:    "rate limit exceeded",
	}
}

// NewServerError creates a server error
func NewServerError(statusCode int) *FetchError {
	return &FetchError{
		Type:       ErrorTypeServer,
		Retryable:  true,
		StatusCode: statusCode,
		Message:    "server returned an error",
	}
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(cause error) *FetchError {
	return &FetchError{
		Type:      ErrorTypeTimeout,
		Retryable: true,
		Message:   "request timed out",
		Cause:     cause,
	}
}

// NewCanceledError creates a cancellation error
func NewCanceledError(cause error) *FetchError {
	return &FetchError{
		Type:    ErrorTypeCanceled,
		Message: "request canceled",
		Cause:   cause,
	}
}

// NewDataShapeError creates a data shape error
func NewDataShapeError(message string) *FetchError {
	return &FetchError{
		Type:    ErrorTypeDataShape,
		Message: message,
	}
}

// NewNotFoundError creates a not-found error
func NewNotFoundError(message string) *FetchError {
	return &FetchError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewContractError creates a contract error
func NewContractError(message string) *FetchError {
	return &FetchError{
		Type:    ErrorTypeContract,
		Message: message,
	}
}

// ClassifyHTTPError classifies an HTTP status code into an appropriate FetchError
func ClassifyHTTPError(statusCode int) *FetchError {
	switch {
	case statusCode == 429:
		return NewRateLimitError(statusCode)
	case statusCode >= 500:
		return NewServerError(statusCode)
	case statusCode >= 400:
		return NewProviderError(statusCode, fmt.Sprintf("client error: HTTP %d", statusCode))
	default:
		return &FetchError{
			Type:       ErrorTypeProvider,
			StatusCode: statusCode,
			Message:    fmt.Sprintf("unexpected status code: %d", statusCode),
		}
	}
}
