package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/turtacn/credence/internal/domain/service/mocks"
	"github.com/turtacn/credence/internal/infrastructure/monitoring"
	"github.com/turtacn/credence/internal/infrastructure/ratelimit"
	"github.com/turtacn/credence/pkg/constants"
	"github.com/turtacn/credence/pkg/errors"
	"github.com/turtacn/credence/pkg/logger"
)

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(limiter *ratelimit.MemoryRateLimiter) *gin.Engine {
		r := gin.New()
		r.POST("/signup", RateLimitMiddleware(limiter, constants.RateLimitScopeSignup, nil, logger.NewNoopLogger()), func(c *gin.Context) {
			c.Status(http.StatusCreated)
		})
		return r
	}
	post := func(r *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/signup", nil)
		req.RemoteAddr = remoteAddr
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("blocks after the limit", func(t *testing.T) {
		r := newRouter(ratelimit.NewMemoryRateLimiter(&ratelimit.RateLimiterConfig{Limit: 2, Window: time.Minute}))

		assert.Equal(t, http.StatusCreated, post(r, "10.0.0.1:1111").Code)
		w := post(r, "10.0.0.1:2222")
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

		w = post(r, "10.0.0.1:3333")
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.NotEmpty(t, w.Header().Get("Retry-After"))
		assert.Contains(t, w.Body.String(), string(errors.CodeRateLimitExceeded))
	})

	t.Run("clients are counted separately", func(t *testing.T) {
		r := newRouter(ratelimit.NewMemoryRateLimiter(&ratelimit.RateLimiterConfig{Limit: 1, Window: time.Minute}))

		assert.Equal(t, http.StatusCreated, post(r, "10.0.0.1:1111").Code)
		assert.Equal(t, http.StatusTooManyRequests, post(r, "10.0.0.1:1111").Code)
		assert.Equal(t, http.StatusCreated, post(r, "10.0.0.2:1111").Code)
	})

	t.Run("nil limiter passes through", func(t *testing.T) {
		r := gin.New()
		r.POST("/signup", RateLimitMiddleware(nil, constants.RateLimitScopeSignup, nil, logger.NewNoopLogger()), func(c *gin.Context) {
			c.Status(http.StatusCreated)
		})
		for i := 0; i < 3; i++ {
			assert.Equal(t, http.StatusCreated, post(r, "10.0.0.1:1111").Code)
		}
	})

	t.Run("limiter failure fails open", func(t *testing.T) {
		limiter := new(mocks.MockRateLimitService)
		limiter.On("Allow", mock.Anything, constants.RateLimitScopeSignup, "10.0.0.1").
			Return(false, 0, time.Time{}, errors.New("redis down"))

		r := gin.New()
		r.POST("/signup", RateLimitMiddleware(limiter, constants.RateLimitScopeSignup, nil, logger.NewNoopLogger()), func(c *gin.Context) {
			c.Status(http.StatusCreated)
		})
		assert.Equal(t, http.StatusCreated, post(r, "10.0.0.1:1111").Code)
		limiter.AssertExpectations(t)
	})
}

func TestObservabilityMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(t.Context()) })
	tracer := monitoring.NewTracingManagerWithProvider(provider, logger.NewNoopLogger())
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())

	r := gin.New()
	r.Use(ObservabilityMiddleware(tracer, metrics, logger.NewNoopLogger()))
	r.GET("/api/v1/projects/:project_id", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/boom", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})

	for _, path := range []string{"/api/v1/projects/a", "/api/v1/projects/b", "/boom", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues(http.MethodGet, "/api/v1/projects/:project_id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues(http.MethodGet, "/boom", "500")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues(http.MethodGet, "not_found", "404")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.HTTPInFlight))

	spans := recorder.Ended()
	require.Len(t, spans, 4)
	assert.Equal(t, "GET /api/v1/projects/:project_id", spans[0].Name())
	assert.Equal(t, "GET /boom", spans[2].Name())
	assert.Equal(t, "Error", spans[2].Status().Code.String())}

func TestObservabilityMiddleware_PublishesTraceID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(t.Context()) })
	tracer := monitoring.NewTracingManagerWithProvider(provider, logger.NewNoopLogger())

	var traceID string
	r := gin.New()
	r.Use(ObservabilityMiddleware(tracer, monitoring.NewMetrics(prometheus.NewRegistry()), logger.NewNoopLogger()))
	r.GET("/whoami", func(c *gin.Context) {
		traceID = c.GetString(string(constants.ContextKeyTraceID))
		c.Status(http.StatusOK)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/whoami", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.NotEmpty(t, traceID)
	assert.Equal(t, spans[0].SpanContext().TraceID().String(), traceID)
}
