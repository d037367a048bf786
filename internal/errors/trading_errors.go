package errors

import (
	"fmt"
	"strings"
)

// ErrorCategory represents different types of errors that can occur
type ErrorCategory string

const (
	// Errors the caller can recover from by correcting input
	ErrorCategoryValidation ErrorCategory = "VALIDATION"

	// Broker submission/cancellation failure, retried once via the
	// fallback gateway before being surfaced
	ErrorCategoryExecution ErrorCategory = "EXECUTION"

	// Missing price or fundamental data; computations degrade to
	// synthetic/default values instead of failing
	ErrorCategoryDataUnavailable ErrorCategory = "DATA_UNAVAILABLE"

	// Infrastructure errors
	ErrorCategoryNetwork   ErrorCategory = "NETWORK"
	ErrorCategoryTimeout   ErrorCategory = "TIMEOUT"
	ErrorCategoryRateLimit ErrorCategory = "RATE_LIMIT"

	// Errors that should stop the engine
	ErrorCategoryConfiguration ErrorCategory = "CONFIG"
	ErrorCategoryFatal         ErrorCategory = "FATAL"
)

// TradingError is a categorized error with component context
type TradingError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
	Retryable  bool
}

// Error implements the error interface
func (e *TradingError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Category, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Category, e.Component, e.Operation, e.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (e *TradingError) Unwrap() error {
	return e.Underlying
}

// IsRetryable returns whether this error can be retried
func (e *TradingError) IsRetryable() bool {
	return e.Retryable
}

// IsFatal returns whether this error should stop the engine
func (e *TradingError) IsFatal() bool {
	return e.Category == ErrorCategoryFatal || e.Category == ErrorCategoryConfiguration
}

// New creates a new categorized trading error
func New(category ErrorCategory, component, operation, message string) *TradingError {
	return &TradingError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
		Retryable: isRetryableCategory(category),
	}
}

// Wrap wraps an existing error with trading error context
func Wrap(err error, category ErrorCategory, component, operation string) *TradingError {
	if err == nil {
		return nil
	}
	return &TradingError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
		Retryable:  isRetryableCategory(category),
	}
}

// WithRetryable sets the retryable flag
func (e *TradingError) WithRetryable(retryable bool) *TradingError {
	e.Retryable = retryable
	return e
}

func isRetryableCategory(category ErrorCategory) bool {
	switch category {
	case ErrorCategoryNetwork, ErrorCategoryTimeout, ErrorCategoryRateLimit:
		return true
	case ErrorCategoryValidation, ErrorCategoryConfiguration, ErrorCategoryFatal:
		return false
	default:
		return false
	}
}

// Categorize attempts to categorize a generic error from its message
func Categorize(err error, component, operation string) *TradingError {
	if err == nil {
		return nil
	}
	if terr, ok := err.(*TradingError); ok {
		return terr
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "context deadline exceeded"):
		return Wrap(err, ErrorCategoryTimeout, component, operation)
	case strings.Contains(msg, "connection") || strings.Contains(msg, "network") ||
		strings.Contains(msg, "dial") || strings.Contains(msg, "dns"):
		return Wrap(err, ErrorCategoryNetwork, component, operation)
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests"):
		return Wrap(err, ErrorCategoryRateLimit, component, operation)
	case strings.Contains(msg, "insufficient") || strings.Contains(msg, "rejected"):
		return Wrap(err, ErrorCategoryExecution, component, operation).WithRetryable(false)
	case strings.Contains(msg, "invalid") || strings.Contains(msg, "required"):
		return Wrap(err, ErrorCategoryValidation, component, operation)
	case strings.Contains(msg, "no data") || strings.Contains(msg, "not found") ||
		strings.Contains(msg, "stale"):
		return Wrap(err, ErrorCategoryDataUnavailable, component, operation)
	default:
		return Wrap(err, ErrorCategoryExecution, component, operation)
	}
}

// Common error constructors

func NewValidationError(component, operation, message string) *TradingError {
	return New(ErrorCategoryValidation, component, operation, message)
}

func NewExecutionError(component, operation string, err error) *TradingError {
	return Wrap(err, ErrorCategoryExecution, component, operation)
}

func NewDataUnavailableError(component, operation, message string) *TradingError {
	return New(ErrorCategoryDataUnavailable, component, operation, message)
}

func NewTimeoutError(component, operation string, err error) *TradingError {
	return Wrap(err, ErrorCategoryTimeout, component, operation)
}

func NewConfigurationError(component, operation, message string) *TradingError {
	return New(ErrorCategoryConfiguration, component, operation, message)
}

// IsCategory reports whether err is a TradingError of the given category
func IsCategory(err error, category ErrorCategory) bool {
	terr, ok := err.(*TradingError)
	return ok && terr.Category == category
}
