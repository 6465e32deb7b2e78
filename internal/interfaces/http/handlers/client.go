// Package handlers holds the gin handlers of the Credence API.
package handlers

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/credence/internal/application/dto"
	"github.com/turtacn/credence/pkg/constants"
)

// clientInfo describes the caller of c for audit and rate limiting.
func clientInfo(c *gin.Context) dto.ClientInfo {
	info := dto.ClientInfo{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
	info.TraceID = c.GetString(string(constants.ContextKeyTraceID))
	if info.TraceID == "" {
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.IsValid() {
			info.TraceID = sc.TraceID().String()
		}
	}
	return info
}
