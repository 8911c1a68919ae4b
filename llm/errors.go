package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorCategory classifies a gateway failure.
type ErrorCategory string

const (
	CategoryAuthentication ErrorCategory = "authentication"
	CategoryAccessDenied   ErrorCategory = "access_denied"
	CategoryNotFound       ErrorCategory = "not_found"
	CategoryInvalidRequest ErrorCategory = "invalid_request"
	CategoryRateLimit      ErrorCategory = "rate_limit"
	CategoryServer         ErrorCategory = "server"
	CategoryTimeout        ErrorCategory = "timeout"
	CategoryContextLength  ErrorCategory = "context_length"
	CategoryContentFilter  ErrorCategory = "content_filter"
	CategoryNetwork        ErrorCategory = "network"
	CategoryConfiguration  ErrorCategory = "configuration"
	CategoryAborted        ErrorCategory = "aborted"
	CategoryUnknown        ErrorCategory = "unknown"
)

// GatewayError is the single error type returned by the gateway layer.
type GatewayError struct {
	Category   ErrorCategory
	Provider   string
	StatusCode int
	Message    string
	Retryable  bool
	RetryAfter *float64 // seconds, when the provider supplied one
	Cause      error
}

func (e *GatewayError) Error() string {
	var sb strings.Builder
	sb.WriteString("model gateway")
	if e.Provider != "" {
		fmt.Fprintf(&sb, " [%s]", e.Provider)
	}
	fmt.Fprintf(&sb, " %s", e.Category)
	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, " (status=%d)", e.StatusCode)
	}
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	return sb.String()
}

func (e *GatewayError) Unwrap() error {
	return e.Cause
}

// retryableCategories lists categories that are safe to retry.
var retryableCategories = map[ErrorCategory]bool{
	CategoryRateLimit: true,
	CategoryServer:    true,
	CategoryTimeout:   true,
	CategoryNetwork:   true,
	CategoryUnknown:   true,
}

func newGatewayError(category ErrorCategory, provider string, status int, message string, cause error) *GatewayError {
	return &GatewayError{
		Category:   category,
		Provider:   provider,
		StatusCode: status,
		Message:    message,
		Retryable:  retryableCategories[category],
		Cause:      cause,
	}
}

// ErrorFromStatusCode maps an HTTP status code to a GatewayError.
func ErrorFromStatusCode(statusCode int, message, provider string, retryAfter *float64) *GatewayError {
	var category ErrorCategory
	switch statusCode {
	case 400, 422:
		category = CategoryInvalidRequest
	case 401:
		category = CategoryAuthentication
	case 403:
		category = CategoryAccessDenied
	case 404:
		category = CategoryNotFound
	case 408:
		category = CategoryTimeout
	case 413:
		category = CategoryContextLength
	case 429:
		category = CategoryRateLimit
	case 500, 502, 503, 504:
		category = CategoryServer
	default:
		category = CategoryUnknown
	}
	e := newGatewayError(category, provider, statusCode, message, nil)
	e.RetryAfter = retryAfter
	return e
}

// ClassifyError converts an arbitrary provider failure into a GatewayError by
// inspecting its message. Errors that already are GatewayErrors are returned
// unchanged.
func ClassifyError(provider string, err error) error {
	if err == nil {
		return nil
	}
	var ge *GatewayError
	if errors.As(err, &ge) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return newGatewayError(CategoryAborted, provider, 0, err.Error(), err)
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "401") || strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key") || strings.Contains(lower, "invalid key"):
		return newGatewayError(CategoryAuthentication, provider, 401, msg, err)
	case strings.Contains(lower, "403") || strings.Contains(lower, "forbidden"):
		return newGatewayError(CategoryAccessDenied, provider, 403, msg, err)
	case strings.Contains(lower, "404") || strings.Contains(lower, "not found"):
		return newGatewayError(CategoryNotFound, provider, 404, msg, err)
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit"):
		return newGatewayError(CategoryRateLimit, provider, 429, msg, err)
	case strings.Contains(lower, "context length") || strings.Contains(lower, "too many tokens"):
		return newGatewayError(CategoryContextLength, provider, 413, msg, err)
	case strings.Contains(lower, "500") || strings.Contains(lower, "internal server"):
		return newGatewayError(CategoryServer, provider, 500, msg, err)
	case strings.Contains(lower, "timeout"):
		return newGatewayError(CategoryTimeout, provider, 0, msg, err)
	case strings.Contains(lower, "content filter") || strings.Contains(lower, "safety"):
		return newGatewayError(CategoryContentFilter, provider, 0, msg, err)
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host"):
		return newGatewayError(CategoryNetwork, provider, 0, msg, err)
	default:
		return newGatewayError(CategoryUnknown, provider, 0, msg, err)
	}
}

// IsRetryable reports whether err is safe to retry. Non-gateway errors are
// treated as retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Retryable
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// CategoryOf returns the category of a gateway error, or CategoryUnknown.
func CategoryOf(err error) ErrorCategory {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Category
	}
	return CategoryUnknown
}
