// Package http wires the gin engine and HTTP server of the Credence API.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/turtacn/credence/internal/application/dto"
	"github.com/turtacn/credence/internal/config"
	"github.com/turtacn/credence/internal/domain/service"
	"github.com/turtacn/credence/internal/interfaces/http/handlers"
	"github.com/turtacn/credence/internal/interfaces/http/middleware"
	"github.com/turtacn/credence/pkg/constants"
	cerrors "github.com/turtacn/credence/pkg/errors"
	"github.com/turtacn/credence/pkg/logger"
)

// Dependencies are the handlers and middleware collaborators of the router.
// Tracer, HTTPMetrics, MetricsHandler and SignupLimiter are optional.
type Dependencies struct {
	Authenticator  *middleware.RequestAuthenticator
	AuthHandler    *handlers.AuthHandler
	AccountHandler *handlers.AccountHandler
	ProjectHandler *handlers.ProjectHandler
	HealthHandler  *handlers.HealthHandler

	SignupLimiter  service.RateLimitService
	Metrics        service.Metrics
	Tracer         middleware.Tracer
	HTTPMetrics    middleware.HTTPMetrics
	MetricsHandler http.Handler
}

// Router owns the gin engine and the HTTP server.
type Router struct {
	engine *gin.Engine
	config *config.Config
	deps   Dependencies
	logger logger.Logger
	server *http.Server
}

// NewRouter creates the engine and registers every route.
func NewRouter(cfg *config.Config, deps Dependencies, log logger.Logger) *Router {
	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := &Router{
		engine: gin.New(),
		config: cfg,
		deps:   deps,
		logger: log.WithComponent("Router"),
	}
	r.setupRoutes()
	r.server = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           r.engine,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		MaxHeaderBytes:    1 << 20, // 1MB
	}
	return r
}

// Handler returns the engine, for tests and custom servers.
func (r *Router) Handler() http.Handler {
	return r.engine
}

func (r *Router) setupRoutes() {
	e := r.engine
	if !r.config.Server.TrustForwardedProto {
		// ClientIP is the socket peer unless a terminating proxy is trusted.
		_ = e.SetTrustedProxies(nil)
	}

	// Global middleware
	e.Use(gin.Recovery(), middleware.RequestID())
	if r.deps.Tracer != nil && r.deps.HTTPMetrics != nil {
		e.Use(middleware.ObservabilityMiddleware(r.deps.Tracer, r.deps.HTTPMetrics, r.logger))
	}
	if c, ok := corsConfig(r.config.Server.AllowedOrigins); ok {
		e.Use(cors.New(c))
	}

	e.GET("/", func(c *gin.Context) {
		dto.SendSuccess(c, http.StatusOK, dto.MessageResponse{Message: "CredenceAPI up at " + constants.APIRoot})
	})

	// Health routes (no authentication)
	e.GET("/health/live", r.deps.HealthHandler.LivenessCheck)
	e.GET("/health/ready", r.deps.HealthHandler.ReadinessCheck)

	metricsHandler := r.deps.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	e.GET("/metrics", gin.WrapH(metricsHandler))

	if !r.config.Server.IsProduction() {
		pprof.Register(e)
	}

	auth := r.deps.Authenticator
	v1 := e.Group(constants.APIRoot, auth.RequireSecure(), auth.LoadAccount())
	{
		v1.POST("/auth/authenticate", r.deps.AuthHandler.Authenticate)

		v1.POST("/accounts",
			middleware.RateLimitMiddleware(r.deps.SignupLimiter, constants.RateLimitScopeSignup, r.deps.Metrics, r.logger),
			r.deps.AccountHandler.Create)
		v1.GET("/accounts/:username", middleware.RequireAccount(), r.deps.AccountHandler.Get)

		projects := v1.Group("/projects", middleware.RequireAccount())
		{
			projects.GET("", r.deps.ProjectHandler.List)
			projects.POST("", r.deps.ProjectHandler.Create)
			projects.GET("/:project_id", r.deps.ProjectHandler.Get)
			projects.POST("/:project_id/collaborators", r.deps.ProjectHandler.AddCollaborator)
			projects.GET("/:project_id/documents", r.deps.ProjectHandler.ListDocuments)
			projects.POST("/:project_id/documents", r.deps.ProjectHandler.CreateDocument)
			projects.GET("/:project_id/documents/:document_id", r.deps.ProjectHandler.GetDocument)
		}
	}

	e.NoRoute(func(c *gin.Context) {
		dto.SendError(c, cerrors.ErrNotFound)
	})
}

func corsConfig(origins []string) (cors.Config, bool) {
	if len(origins) == 0 {
		return cors.Config{}, false
	}
	c := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", constants.HeaderAuthorization, constants.HeaderRequestID},
		ExposeHeaders: []string{constants.HeaderRequestID, "Location", "Retry-After", "X-RateLimit-Remaining"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c, true
		}
	}
	c.AllowOrigins = origins
	return c, true
}

// Start serves until Shutdown is called. It serves TLS when a certificate
// is configured.
func (r *Router) Start() error {
	srv := r.config.Server
	r.logger.Info(context.Background(), "Starting HTTP server",
		logger.String("address", srv.Addr()),
		logger.Bool("tls", srv.TLSCertFile != ""),
		logger.Bool("require_tls", srv.RequireTLS),
	)

	var err error
	if srv.TLSCertFile != "" {
		err = r.server.ListenAndServeTLS(srv.TLSCertFile, srv.TLSKeyFile)
	} else {
		err = r.server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (r *Router) Shutdown(ctx context.Context) error {
	r.logger.Info(ctx, "Shutting down HTTP server")
	return r.server.Shutdown(ctx)
}
