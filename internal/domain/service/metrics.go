package service

import (
	"time"

	"github.com/turtacn/credence/pkg/constants"
)

// Metrics defines the interface for collecting security metrics.
// This abstraction allows the application layer to remain independent of the specific monitoring implementation (e.g., Prometheus).
type Metrics interface {
	// RecordAuthentication records the outcome of a password authentication.
	RecordAuthentication(result string, duration time.Duration)

	// RecordTokenValidation records the outcome of a token validation.
	RecordTokenValidation(result string)

	// RecordFieldCipherFailure records a field that failed to encrypt or decrypt.
	RecordFieldCipherFailure(operation string)

	// RecordRateLimitHit records an event when a rate limit is triggered.
	RecordRateLimitHit(scope constants.RateLimitScope)
}

type noopMetrics struct{}

// NewNoopMetrics returns a Metrics that records nothing.
func NewNoopMetrics() Metrics {
	return noopMetrics{}
}

func (noopMetrics) RecordAuthentication(string, time.Duration)  {}
func (noopMetrics) RecordTokenValidation(string)                {}
func (noopMetrics) RecordFieldCipherFailure(string)             {}
func (noopMetrics) RecordRateLimitHit(constants.RateLimitScope) {}
