package audit

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/turtacn/credence/internal/config"
	"github.com/turtacn/credence/internal/domain/models"
	"github.com/turtacn/credence/internal/domain/service"
	"github.com/turtacn/credence/pkg/logger"
)

// Sink is an AuditService that owns resources.
type Sink interface {
	service.AuditService
	Close() error
}

type noopSink struct{}

func (noopSink) LogEvent(context.Context, *models.AuditEvent) error { return nil }
func (noopSink) Close() error                                      { return nil }

// NewSink builds the sink named by cfg.Sink. db is only used by the
// "database" sink. A disabled audit config yields a sink that drops events.
func NewSink(ctx context.Context, cfg *config.AuditConfig, db *gorm.DB, log logger.Logger) (Sink, error) {
	if cfg == nil || !cfg.Enabled {
		return noopSink{}, nil
	}
	switch cfg.Sink {
	case "log", "":
		return NewLogAuditService(log), nil
	case "database":
		return NewGormAuditService(ctx, db)
	case "kafka":
		return NewKafkaProducer(cfg, log)
	default:
		return nil, fmt.Errorf("unknown audit sink %q", cfg.Sink)
	}
}
