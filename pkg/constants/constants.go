// Package constants defines system-wide constants for the Credence API.
// This package provides type-safe constant definitions used across all modules.
package constants

import "time"

// ================================================================================
// Token Constants
// ================================================================================

// TokenScheme is the only accepted Authorization header scheme.
// The comparison is case-sensitive and the scheme is followed by exactly one space.
const TokenScheme = "Bearer"

const (
	// AuthTokenDefaultTTL is the default lifetime of an issued auth token (one week)
	AuthTokenDefaultTTL = 7 * 24 * time.Hour

	// AuthTokenIssuer is the "iss" claim stamped on every auth token
	AuthTokenIssuer = "credence-api"
)

// ================================================================================
// Key Constants
// ================================================================================

// KeySize is the length in bytes of every key held by the key store.
const KeySize = 32

// ================================================================================
// Password Hashing Constants
// ================================================================================

const (
	// Argon2Memory is the default argon2id memory cost in KiB (64 MiB)
	Argon2Memory uint32 = 64 * 1024

	// Argon2Iterations is the default argon2id time cost
	Argon2Iterations uint32 = 1

	// Argon2Parallelism is the default argon2id lane count
	Argon2Parallelism uint8 = 4

	// Argon2SaltLength is the length of the random salt in bytes
	Argon2SaltLength = 16

	// Argon2KeyLength is the length of the derived hash in bytes
	Argon2KeyLength uint32 = 32
)

// ================================================================================
// Audit Event Constants
// ================================================================================

// AuditEventType represents different types of auditable events
type AuditEventType string

const (
	// EventTypeAuthentication is emitted on every password authentication attempt
	EventTypeAuthentication AuditEventType = "authentication"

	// EventTypeAccountCreated is emitted when an account is created
	EventTypeAccountCreated AuditEventType = "account_created"

	// EventTypeTokenRejected is emitted when a presented token fails validation
	EventTypeTokenRejected AuditEventType = "token_rejected"

	// EventTypeRateLimitExceeded is emitted when a client exceeds the login rate limit
	EventTypeRateLimitExceeded AuditEventType = "rate_limit_exceeded"
)

// AuditEventResult represents the result of an audited event
type AuditEventResult string

const (
	// AuditResultSuccess indicates the operation succeeded
	AuditResultSuccess AuditEventResult = "success"

	// AuditResultFailure indicates the operation failed
	AuditResultFailure AuditEventResult = "failure"
)

// ================================================================================
// Rate Limit Constants
// ================================================================================

// RateLimitScope represents the dimension a rate limit is applied on
type RateLimitScope string

const (
	// RateLimitScopeLogin limits password authentication attempts per client IP
	RateLimitScopeLogin RateLimitScope = "login"

	// RateLimitScopeSignup limits account creation per client IP
	RateLimitScopeSignup RateLimitScope = "signup"
)

const (
	// DefaultLoginAttemptsPerMinute is the default number of login attempts allowed per window
	DefaultLoginAttemptsPerMinute = 10

	// DefaultRateLimitWindow is the default fixed window length
	DefaultRateLimitWindow = time.Minute
)

// ================================================================================
// Logging Constants
// ================================================================================

// LogLevel represents the severity level of log messages
type LogLevel string

const (
	// LogLevelDebug is the most verbose logging level
	LogLevelDebug LogLevel = "debug"

	// LogLevelInfo is the standard informational logging level
	LogLevelInfo LogLevel = "info"

	// LogLevelWarn indicates potential issues
	LogLevelWarn LogLevel = "warn"

	// LogLevelError indicates errors that need attention
	LogLevelError LogLevel = "error"
)

// ================================================================================
// Context Keys
// ================================================================================

// ContextKey represents keys used in context.Context and gin.Context
type ContextKey string

const (
	// ContextKeyRequestID is the key for request ID in context
	ContextKeyRequestID ContextKey = "request_id"

	// ContextKeyTraceID is the key for distributed trace ID in context
	ContextKeyTraceID ContextKey = "trace_id"

	// ContextKeyAccount is the key for the authenticated *models.Account
	ContextKeyAccount ContextKey = "auth_account"
)

// ================================================================================
// HTTP Constants
// ================================================================================

const (
	// HeaderAuthorization is the standard authorization header
	HeaderAuthorization = "Authorization"

	// HeaderForwardedProto is set by TLS-terminating proxies
	HeaderForwardedProto = "X-Forwarded-Proto"

	// HeaderRequestID carries the request correlation id
	HeaderRequestID = "X-Request-ID"

	// APIRoot is the versioned API prefix
	APIRoot = "/api/v1"
)

// ================================================================================
// Environment Constants
// ================================================================================

const (
	EnvironmentDevelopment = "development"
	EnvironmentTest        = "test"
	EnvironmentProduction  = "production"
)
