// Package service defines the interfaces for domain services.
package service

import (
	"context"

	"github.com/turtacn/credence/internal/domain/models"
)

//go:generate mockery --name AuditService --output mocks --outpkg mocks

// AuditService records security events. Failing to record an event must
// never change the outcome of the request that produced it.
type AuditService interface {
	LogEvent(ctx context.Context, event *models.AuditEvent) error
}
