package service

import (
	"context"
	"time"

	"github.com/turtacn/credence/pkg/constants"
)

//go:generate mockery --name RateLimitService --output mocks --outpkg mocks

// RateLimitService defines the interface for checking and managing rate limits.
type RateLimitService interface {
	// Allow counts one attempt for identifier within scope and reports whether
	// it is within the limit, the attempts left, and when the window resets.
	Allow(ctx context.Context, scope constants.RateLimitScope, identifier string) (allowed bool, remaining int, resetAt time.Time, err error)

	// Reset clears the counter for identifier, e.g. after a successful login.
	Reset(ctx context.Context, scope constants.RateLimitScope, identifier string) error
}
