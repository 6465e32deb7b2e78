// Package audit provides the audit sinks of the Credence API: structured log
// lines, a database table, or a Kafka topic.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/turtacn/credence/internal/domain/models"
	"github.com/turtacn/credence/internal/domain/service"
)

var _ service.AuditService = (*GormAuditService)(nil)

// auditRecord is the row form of models.AuditEvent.
type auditRecord struct {
	EventID   uuid.UUID  `gorm:"type:uuid;primaryKey"`
	EventType string     `gorm:"index;not null"`
	Result    string     `gorm:"not null"`
	AccountID *uuid.UUID `gorm:"type:uuid;index"`
	Username  string
	IPAddress string
	UserAgent string
	TraceID   string
	Reason    string
	Timestamp time.Time `gorm:"index;not null"`
}

func (auditRecord) TableName() string {
	return "audit_events"
}

// GormAuditService provides a GORM-backed implementation of the AuditService.
// It stores audit events in a relational database.
type GormAuditService struct {
	db *gorm.DB
}

// NewGormAuditService creates the sink and migrates the audit_events table.
func NewGormAuditService(ctx context.Context, db *gorm.DB) (*GormAuditService, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle is required")
	}
	if err := db.WithContext(ctx).AutoMigrate(&auditRecord{}); err != nil {
		return nil, fmt.Errorf("migrate audit_events: %w", err)
	}
	return &GormAuditService{db: db}, nil
}

// LogEvent saves an AuditEvent to the database.
func (s *GormAuditService) LogEvent(ctx context.Context, event *models.AuditEvent) error {
	if event == nil {
		return nil
	}
	rec := auditRecord{
		EventID:   event.EventID,
		EventType: string(event.EventType),
		Result:    string(event.Result),
		AccountID: event.AccountID,
		Username:  event.Username,
		IPAddress: event.IPAddress,
		UserAgent: event.UserAgent,
		TraceID:   event.TraceID,
		Reason:    event.Reason,
		Timestamp: event.Timestamp,
	}
	return s.db.WithContext(ctx).Create(&rec).Error
}

// Close is a no-op; the database handle is owned by the caller.
func (s *GormAuditService) Close() error {
	return nil
}
