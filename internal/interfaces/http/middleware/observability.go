package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/credence/pkg/constants"
	"github.com/turtacn/credence/pkg/logger"
)

// Tracer starts request spans. *monitoring.TracingManager implements it.
type Tracer interface {
	StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span)
	ExtractTraceContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context
}

// HTTPMetrics records request counts and latency. *monitoring.Metrics implements it.
type HTTPMetrics interface {
	RequestStarted()
	RequestFinished(method, route string, status int, duration time.Duration)
}

// ObservabilityMiddleware returns a Gin middleware that integrates Prometheus metrics and OpenTelemetry tracing.
// For each HTTP request, it starts a server span continuing any incoming trace,
// records request metrics labeled by route template, and writes one access log line.
func ObservabilityMiddleware(tracer Tracer, metrics HTTPMetrics, log logger.Logger) gin.HandlerFunc {
	log = log.WithComponent("http")
	return func(c *gin.Context) {
		start := time.Now()
		metrics.RequestStarted()

		ctx := tracer.ExtractTraceContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.StartSpan(ctx, c.Request.Method+" "+c.FullPath(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(c.Request.Method),
				semconv.ClientAddress(c.ClientIP()),
			),
		)
		defer span.End()
		if sc := span.SpanContext(); sc.HasTraceID() {
			c.Set(string(constants.ContextKeyTraceID), sc.TraceID().String())
		}

		// Inject the updated context with the new span into the request.
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		// Use c.FullPath() to get the route template (e.g., "/projects/:project_id") for low-cardinality labels.
		route := c.FullPath()
		if route == "" {
			route = "not_found"
		}
		status := c.Writer.Status()
		duration := time.Since(start)
		metrics.RequestFinished(c.Request.Method, route, status, duration)

		span.SetName(c.Request.Method + " " + route)
		span.SetAttributes(
			semconv.HTTPRoute(route),
			semconv.HTTPResponseStatusCode(status),
		)
		if status >= 500 {
			span.SetStatus(codes.Error, "server error")
		}

		log.Info(ctx, "Request processed",
			logger.String("method", c.Request.Method),
			logger.String("route", route),
			logger.Int("status", status),
			logger.Int64("latency_ms", duration.Milliseconds()),
			logger.String("client_ip", c.ClientIP()),
		)
	}
}
