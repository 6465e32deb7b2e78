// Package errors defines custom error types and error handling utilities for the Credence API.
// Every error carries a stable code, an HTTP status and a public description that is safe
// to render to clients. Internal messages and causes are for logs only.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Code identifies an error class.
type Code string

const (
	CodeNotConfigured        Code = "not_configured"
	CodeAuthenticationFailed Code = "authentication_failed"
	CodeInvalidToken         Code = "invalid_token"
	CodeExpiredToken         Code = "expired_token"
	CodeAccountNotFound      Code = "account_not_found"
	CodeTamperedOrCorrupt    Code = "tampered_or_corrupt"
	CodeInvalidDigest        Code = "invalid_digest"
	CodeInvalidRequest       Code = "invalid_request"
	CodeNotFound             Code = "not_found"
	CodeConflict             Code = "conflict"
	CodeForbidden            Code = "forbidden"
	CodeInsecureTransport    Code = "insecure_transport"
	CodeRateLimitExceeded    Code = "rate_limit_exceeded"
	CodeServerError          Code = "server_error"
)

// ================================================================================
// Base Error Interface
// ================================================================================

// CredenceError represents a structured error with additional metadata
type CredenceError interface {
	error

	// Code returns the error class
	Code() Code

	// HTTPStatus returns the HTTP status code
	HTTPStatus() int

	// Description returns the client-safe description
	Description() string

	// Unwrap returns the underlying error for error chain support
	Unwrap() error

	// WithCause returns a copy carrying cause
	WithCause(cause error) CredenceError

	// WithMessage returns a copy carrying an internal message
	WithMessage(message string) CredenceError

	// WithMetadata returns a copy carrying an additional metadata entry
	WithMetadata(key string, value interface{}) CredenceError

	// Metadata returns all metadata
	Metadata() map[string]interface{}
}

// ================================================================================
// Base Error Implementation
// ================================================================================

type baseError struct {
	code        Code
	parent      Code
	httpStatus  int
	description string
	message     string
	cause       error
	metadata    map[string]interface{}
}

// Error implements the error interface. The cause is deliberately left out so
// that formatting an error never pulls lower-level detail into a client string.
func (e *baseError) Error() string {
	if e.message != "" {
		return e.message
	}
	return e.description
}

func (e *baseError) Code() Code {
	return e.code
}

func (e *baseError) HTTPStatus() int {
	return e.httpStatus
}

func (e *baseError) Description() string {
	return e.description
}

func (e *baseError) Unwrap() error {
	return e.cause
}

// Is reports a match for any CredenceError of the same code, so predefined
// values work as sentinels: errors.Is(err, ErrInvalidToken). A variant also
// matches its parent class.
func (e *baseError) Is(target error) bool {
	t, ok := target.(CredenceError)
	if !ok {
		return false
	}
	return t.Code() == e.code || (e.parent != "" && t.Code() == e.parent)
}

// PublicCode returns the code rendered to clients. Variants render as their
// parent so callers cannot tell them apart.
func (e *baseError) PublicCode() Code {
	if e.parent != "" {
		return e.parent
	}
	return e.code
}

func (e *baseError) clone() *baseError {
	c := *e
	c.metadata = make(map[string]interface{}, len(e.metadata))
	for k, v := range e.metadata {
		c.metadata[k] = v
	}
	return &c
}

func (e *baseError) WithCause(cause error) CredenceError {
	c := e.clone()
	c.cause = cause
	return c
}

func (e *baseError) WithMessage(message string) CredenceError {
	c := e.clone()
	c.message = message
	return c
}

func (e *baseError) WithMetadata(key string, value interface{}) CredenceError {
	c := e.clone()
	c.metadata[key] = value
	return c
}

func (e *baseError) Metadata() map[string]interface{} {
	return e.metadata
}

// ================================================================================
// Error Constructor
// ================================================================================

// NewError creates a new CredenceError with the specified parameters
func NewError(code Code, httpStatus int, description string, message string) CredenceError {
	return &baseError{
		code:        code,
		httpStatus:  httpStatus,
		description: description,
		message:     message,
		metadata:    make(map[string]interface{}),
	}
}

// NewVariant creates a CredenceError that is also a parent-class error.
func NewVariant(parent CredenceError, code Code, message string) CredenceError {
	return &baseError{
		code:        code,
		parent:      parent.Code(),
		httpStatus:  parent.HTTPStatus(),
		description: parent.Description(),
		message:     message,
		metadata:    make(map[string]interface{}),
	}
}

// ================================================================================
// Predefined Errors
// ================================================================================

var (
	// ErrNotConfigured is returned when a key slot is used before it was set up.
	// It is a programmer/deployment error and should stop the process at startup.
	ErrNotConfigured = NewError(CodeNotConfigured, http.StatusInternalServerError,
		"Internal server error", "key store slot not configured")

	// ErrAuthenticationFailed covers unknown usernames and wrong passwords alike.
	ErrAuthenticationFailed = NewError(CodeAuthenticationFailed, http.StatusUnauthorized,
		"Invalid credentials", "invalid username or password")

	// ErrInvalidToken covers missing, malformed, forged and mis-keyed tokens.
	ErrInvalidToken = NewError(CodeInvalidToken, http.StatusForbidden,
		"Invalid auth token", "")

	// ErrExpiredToken is an InvalidToken variant; it renders identically.
	ErrExpiredToken = NewVariant(ErrInvalidToken, CodeExpiredToken, "auth token expired")

	// ErrAccountNotFound is returned when a valid token names an account that no longer exists.
	ErrAccountNotFound = NewVariant(ErrInvalidToken, CodeAccountNotFound, "token account not found")

	// ErrTamperedOrCorrupt is returned when an encrypted field fails authentication.
	ErrTamperedOrCorrupt = NewError(CodeTamperedOrCorrupt, http.StatusInternalServerError,
		"Internal server error", "encrypted field failed integrity check")

	// ErrInvalidDigest is returned for a stored password digest that cannot be parsed.
	ErrInvalidDigest = NewError(CodeInvalidDigest, http.StatusInternalServerError,
		"Internal server error", "malformed password digest")

	ErrInvalidRequest = NewError(CodeInvalidRequest, http.StatusBadRequest,
		"Illegal request", "")

	ErrNotFound = NewError(CodeNotFound, http.StatusNotFound,
		"Resource not found", "")

	ErrConflict = NewError(CodeConflict, http.StatusConflict,
		"Resource already exists", "")

	// ErrForbidden is returned when an authenticated account acts on a resource it does not own.
	ErrForbidden = NewError(CodeForbidden, http.StatusForbidden,
		"Forbidden", "")

	ErrInsecureTransport = NewError(CodeInsecureTransport, http.StatusForbidden,
		"TLS/SSL Required", "")

	ErrRateLimitExceeded = NewError(CodeRateLimitExceeded, http.StatusTooManyRequests,
		"Too many requests, please try again later", "")

	ErrServerError = NewError(CodeServerError, http.StatusInternalServerError,
		"Internal server error", "")
)

// ================================================================================
// Domain-Specific Error Constructors
// ================================================================================

// ErrResourceNotFound creates a not found error for a resource kind
func ErrResourceNotFound(resource string) CredenceError {
	return ErrNotFound.WithMessage(fmt.Sprintf("%s not found", resource)).
		WithMetadata("resource", resource)
}

// ErrInvalidParameter creates an invalid request error naming a parameter
func ErrInvalidParameter(paramName string) CredenceError {
	return ErrInvalidRequest.WithMessage(fmt.Sprintf("invalid parameter: %s", paramName)).
		WithMetadata("parameter", paramName)
}

// ErrInternal wraps an unexpected error as a server error
func ErrInternal(message string, cause error) CredenceError {
	return ErrServerError.WithMessage(message).WithCause(cause)
}

// ================================================================================
// Error Validation Utilities
// ================================================================================

// AsCredenceError finds the first CredenceError in err's chain
func AsCredenceError(err error) (CredenceError, bool) {
	var ce CredenceError
	if stderrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// New returns a plain error.
func New(text string) error {
	return stderrors.New(text)
}

// IsAuthenticationError reports whether err belongs to the unauthorized family
// that must collapse into one client response.
func IsAuthenticationError(err error) bool {
	ce, ok := AsCredenceError(err)
	if !ok {
		return false
	}
	switch ce.Code() {
	case CodeAuthenticationFailed, CodeInvalidToken, CodeExpiredToken, CodeAccountNotFound:
		return true
	}
	return false
}

// ShouldLogError determines if an error should be logged at error level
func ShouldLogError(err error) bool {
	if ce, ok := AsCredenceError(err); ok {
		return ce.HTTPStatus() >= http.StatusInternalServerError
	}
	return true
}

// ================================================================================
// Error Response Builder
// ================================================================================

// ErrorResponse represents the JSON structure for error responses
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ToErrorResponse converts any error to a client-safe ErrorResponse and status.
// Metadata, internal messages and causes never leave the process.
func ToErrorResponse(err error) (int, *ErrorResponse) {
	ce, ok := AsCredenceError(err)
	if !ok {
		ce = ErrServerError
	}
	code := ce.Code()
	if v, ok := ce.(interface{ PublicCode() Code }); ok {
		code = v.PublicCode()
	}
	if ce.HTTPStatus() >= http.StatusInternalServerError {
		code = CodeServerError
	}
	return ce.HTTPStatus(), &ErrorResponse{
		Error:   string(code),
		Message: ce.Description(),
	}
}
