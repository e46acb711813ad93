// Package http exposes the membership workflow over a JSON API.
// Handlers translate requests into workflow actions and service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/temple-membership/internal/application/service"
	"github.com/garyjia/temple-membership/internal/application/workflow"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// HealthChecker reports whether the service's dependencies are usable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// MetricsExporter instruments requests and serves /metrics
type MetricsExporter interface {
	GinMiddleware() gin.HandlerFunc
	Handler() http.Handler
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    float64 // per client IP, 0 disables limiting
	RateBurst       int
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		RateLimitRPS:    20,
		RateBurst:       40,
	}
}

// Dependencies are the application services the API serves
type Dependencies struct {
	Engine       workflow.WorkflowEngine
	Applications service.ApplicationService
	Members      service.MemberService
	Health       HealthChecker
	Metrics      MetricsExporter
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	deps       Dependencies
	limiter    *RateLimiter
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, deps Dependencies, logger Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config: config,
		router: gin.New(),
		deps:   deps,
		logger: logger,
	}
	if config.RateLimitRPS > 0 {
		server.limiter = NewRateLimiter(config.RateLimitRPS, config.RateBurst)
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	if s.deps.Metrics != nil {
		s.router.Use(s.deps.Metrics.GinMiddleware())
	}
	s.router.Use(loggingMiddleware(s.logger))
	if s.limiter != nil {
		s.router.Use(s.limiter.Middleware())
	}
	s.router.Use(actorMiddleware())
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	h := NewHandlers(s.deps.Engine, s.deps.Applications, s.deps.Members, s.deps.Health, s.logger)

	s.router.GET("/health", h.HealthCheck)
	if s.deps.Metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))
	}

	api := s.router.Group("/api")
	{
		api.GET("/members/lookup", h.LookupMembers)

		api.POST("/applications", h.CreateApplication)
		api.GET("/applications", h.ListApplications)
		api.GET("/applications/summary", h.StatusSummary)
		api.GET("/applications/export", h.ExportRegister)
		api.GET("/applications/:id", h.GetApplication)
		api.GET("/applications/:id/history", h.GetHistory)
		api.GET("/applications/:id/actions", h.PermittedActions)

		api.PUT("/applications/:id/draft", h.UpdateDraft)
		api.POST("/applications/:id/submit", h.Submit)
		api.POST("/applications/:id/verification", h.StartVerification)
		api.POST("/applications/:id/referrals/:n/verify", h.VerifyReferral)
		api.POST("/applications/:id/forward", h.RequestApproval)
		api.POST("/applications/:id/interview", h.ScheduleInterview)
		api.POST("/applications/:id/interview/complete", h.CompleteInterview)
		api.POST("/applications/:id/approve", h.Approve)
		api.POST("/applications/:id/reject", h.Reject)
		api.POST("/applications/:id/refund", h.ProcessRefund)
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	var stopLimiter func()
	if s.limiter != nil {
		stopLimiter = s.limiter.StartCleanup(time.Minute)
		defer stopLimiter()
	}

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
