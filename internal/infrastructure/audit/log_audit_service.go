package audit

import (
	"context"

	"github.com/turtacn/credence/internal/domain/models"
	"github.com/turtacn/credence/internal/domain/service"
	"github.com/turtacn/credence/pkg/logger"
)

var _ service.AuditService = (*LogAuditService)(nil)

// LogAuditService writes audit events as structured log lines.
type LogAuditService struct {
	logger logger.Logger
}

// NewLogAuditService creates a log-backed audit sink.
func NewLogAuditService(log logger.Logger) *LogAuditService {
	return &LogAuditService{logger: log.WithComponent("audit")}
}

// LogEvent logs the event at info level and its reason at debug level.
func (s *LogAuditService) LogEvent(ctx context.Context, event *models.AuditEvent) error {
	if event == nil {
		return nil
	}
	fields := []logger.Field{
		logger.String("event_id", event.EventID.String()),
		logger.String("event_type", string(event.EventType)),
		logger.String("result", string(event.Result)),
		logger.String("username", event.Username),
		logger.String("ip_address", event.IPAddress),
		logger.String("user_agent", event.UserAgent),
	}
	if event.AccountID != nil {
		fields = append(fields, logger.String("account_id", event.AccountID.String()))
	}
	if event.TraceID != "" {
		fields = append(fields, logger.String("event_trace_id", event.TraceID))
	}
	s.logger.Info(ctx, "Audit event", fields...)
	// Failure reasons tell unknown accounts from wrong passwords, so they stay at debug.
	if event.Reason != "" {
		s.logger.Debug(ctx, "Audit event reason",
			logger.String("event_id", event.EventID.String()),
			logger.String("reason", event.Reason),
		)
	}
	return nil
}

// Close is a no-op.
func (s *LogAuditService) Close() error {
	return nil
}
