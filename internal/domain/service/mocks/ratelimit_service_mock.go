package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/turtacn/credence/pkg/constants"
)

// MockRateLimitService is a mock implementation of service.RateLimitService
type MockRateLimitService struct {
	mock.Mock
}

func (m *MockRateLimitService) Allow(ctx context.Context, scope constants.RateLimitScope, identifier string) (bool, int, time.Time, error) {
	args := m.Called(ctx, scope, identifier)
	return args.Bool(0), args.Int(1), args.Get(2).(time.Time), args.Error(3)
}

func (m *MockRateLimitService) Reset(ctx context.Context, scope constants.RateLimitScope, identifier string) error {
	args := m.Called(ctx, scope, identifier)
	return args.Error(0)
}
