package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/credence/pkg/constants"
)

// AuditEvent is a single security-relevant event. It never carries a password,
// a token or key material.
type AuditEvent struct {
	EventID   uuid.UUID                  `json:"event_id"`
	EventType constants.AuditEventType   `json:"event_type"`
	Result    constants.AuditEventResult `json:"result"`
	AccountID *uuid.UUID                 `json:"account_id,omitempty"`
	Username  string                     `json:"username,omitempty"`
	IPAddress string                     `json:"ip_address,omitempty"`
	UserAgent string                     `json:"user_agent,omitempty"`
	TraceID   string                     `json:"trace_id,omitempty"`
	Reason    string                     `json:"reason,omitempty"`
	Timestamp time.Time                  `json:"timestamp"`
}

// NewAuditEvent creates a new audit event stamped with the current time.
func NewAuditEvent(eventType constants.AuditEventType, result constants.AuditEventResult) *AuditEvent {
	return &AuditEvent{
		EventID:   uuid.New(),
		EventType: eventType,
		Result:    result,
		Timestamp: time.Now().UTC(),
	}
}

// WithAccount sets the account the event concerns.
func (e *AuditEvent) WithAccount(id uuid.UUID, username string) *AuditEvent {
	e.AccountID = &id
	e.Username = username
	return e
}

// WithUsername records the username an anonymous attempt claimed.
func (e *AuditEvent) WithUsername(username string) *AuditEvent {
	e.Username = username
	return e
}

// WithContextInfo sets request-derived information.
func (e *AuditEvent) WithContextInfo(ip, ua, traceID string) *AuditEvent {
	e.IPAddress = ip
	e.UserAgent = ua
	e.TraceID = traceID
	return e
}

// WithReason sets an internal reason code such as "unknown_account".
func (e *AuditEvent) WithReason(reason string) *AuditEvent {
	e.Reason = reason
	return e
}
