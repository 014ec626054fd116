// Package errors provides custom error types for the qtoggleserver client.
// These errors enable programmatic error checking with errors.Is across the
// notification subsystem: expectation outcomes, listen loop state, and API
// call failures all resolve to well-known sentinels.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for the qtoggleserver client
var (
	// ErrExpectTimeout indicates that an expectation expired before a
	// matching event arrived
	ErrExpectTimeout = errors.New("expectation timed out")

	// ErrExpectCanceled indicates that an expectation was withdrawn before
	// a matching event arrived
	ErrExpectCanceled = errors.New("expectation canceled")

	// ErrNoSuchExpectation indicates that no registered expectation matches
	// the given handle or criteria
	ErrNoSuchExpectation = errors.New("no such expectation")

	// ErrAlreadyListening indicates that the listen loop is already running
	ErrAlreadyListening = errors.New("already listening")

	// ErrClientClosed indicates that the client has been closed
	ErrClientClosed = errors.New("client closed")

	// ErrServerUnavailable indicates that the server is temporarily unreachable
	ErrServerUnavailable = errors.New("server unavailable")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")
)

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// APIError represents an error response from the qToggle API
type APIError struct {
	Endpoint   string // API path, e.g. "/webhooks"
	StatusCode int
	Code       string // server error code from the response body, e.g. "no-such-function"
	Message    string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	switch {
	case e.Code != "" && e.StatusCode != 0:
		return fmt.Sprintf("API error at %s (status %d): %s", e.Endpoint, e.StatusCode, e.Code)
	case e.StatusCode != 0:
		return fmt.Sprintf("API error at %s (status %d): %s", e.Endpoint, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("API error at %s: %s", e.Endpoint, e.Message)
	}
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	if e.StatusCode >= 500 {
		return target == ErrServerUnavailable
	}
	return false
}

// NewAPIError creates a new APIError
func NewAPIError(endpoint string, statusCode int, code string) *APIError {
	return &APIError{
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Code:       code,
	}
}

// ExpectTimeoutError reports the expectation that expired, so callers can
// log what exactly they were waiting for
type ExpectTimeoutError struct {
	EventType string
	Timeout   time.Duration
}

// Error implements the error interface
func (e *ExpectTimeoutError) Error() string {
	if e.EventType != "" {
		return fmt.Sprintf("expectation for %s timed out after %s", e.EventType, e.Timeout)
	}
	return fmt.Sprintf("expectation timed out after %s", e.Timeout)
}

// Is implements errors.Is support
func (e *ExpectTimeoutError) Is(target error) bool {
	return target == ErrExpectTimeout || target == ErrTimeout
}

// NewExpectTimeoutError creates a new ExpectTimeoutError
func NewExpectTimeoutError(eventType string, timeout time.Duration) *ExpectTimeoutError {
	return &ExpectTimeoutError{EventType: eventType, Timeout: timeout}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml", etc.
	File    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "open", "close"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// Helper functions for error checking

// IsExpectTimeout checks if an error is an expectation timeout
func IsExpectTimeout(err error) bool {
	return errors.Is(err, ErrExpectTimeout)
}

// IsExpectCanceled checks if an error is an expectation cancellation
func IsExpectCanceled(err error) bool {
	return errors.Is(err, ErrExpectCanceled)
}

// IsNoSuchExpectation checks if an error reports a missing expectation
func IsNoSuchExpectation(err error) bool {
	return errors.Is(err, ErrNoSuchExpectation)
}

// IsAlreadyListening checks if an error reports a running listen loop
func IsAlreadyListening(err error) bool {
	return errors.Is(err, ErrAlreadyListening)
}

// IsClientClosed checks if an error reports a closed client
func IsClientClosed(err error) bool {
	return errors.Is(err, ErrClientClosed)
}

// IsServerUnavailable checks if an error indicates server unavailability
func IsServerUnavailable(err error) bool {
	return errors.Is(err, ErrServerUnavailable)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// WrapAPI wraps an error as an APIError
func WrapAPI(endpoint string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &APIError{
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Message:    err.Error(),
		Err:        err,
	}
}

// WrapConfig wraps an error as a ConfigError
func WrapConfig(component string, err error) error {
	if err == nil {
		return nil
	}
	return NewConfigError(component, err.Error(), err)
}
