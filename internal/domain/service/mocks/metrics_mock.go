package mocks

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/turtacn/credence/pkg/constants"
)

// MockMetrics is a mock implementation of service.Metrics
type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) RecordAuthentication(result string, duration time.Duration) {
	m.Called(result, duration)
}

func (m *MockMetrics) RecordTokenValidation(result string) {
	m.Called(result)
}

func (m *MockMetrics) RecordFieldCipherFailure(operation string) {
	m.Called(operation)
}

func (m *MockMetrics) RecordRateLimitHit(scope constants.RateLimitScope) {
	m.Called(scope)
}
