// Package http provides the chunkopt REST API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	v1 "github.com/fyrsmithlabs/chunkopt/pkg/api/v1"

	"github.com/fyrsmithlabs/chunkopt/internal/config"
	"github.com/fyrsmithlabs/chunkopt/internal/logging"
	"github.com/fyrsmithlabs/chunkopt/internal/optimizer"
	"github.com/fyrsmithlabs/chunkopt/internal/profile"
	"github.com/fyrsmithlabs/chunkopt/internal/telemetry"
)

// Engine is the analysis surface served over HTTP. *optimizer.Engine
// implements it.
type Engine interface {
	AnalyzeChunk(ctx context.Context, chunk optimizer.Chunk, domain string, opts *optimizer.Options) (*optimizer.ChunkResult, error)
	AnalyzeDocument(ctx context.Context, documentID string, chunks []optimizer.Chunk, domain string, opts *optimizer.Options) (*optimizer.DocumentResult, error)
	AnalyzeBatch(ctx context.Context, batchID string, items []optimizer.Chunk, domain string, opts *optimizer.Options) (*optimizer.BatchResult, error)
	Compare(ctx context.Context, a, b string) (float64, error)
	Profiles() []profile.Profile
}

// Server provides HTTP endpoints for chunkopt.
type Server struct {
	echo    *echo.Echo
	engine  Engine
	logger  *logging.Logger
	config  *Config
	tel     *telemetry.Telemetry
	tracer  trace.Tracer
	metrics *HTTPMetrics
}

// Config holds HTTP server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigins []string
	BodyLimit   string
	APIKey      config.Secret
	RateLimit   config.RateLimitConfig
	Version     string
}

// ConfigFrom builds server settings from the application configuration.
func ConfigFrom(c *config.Config, version string) *Config {
	return &Config{
		Host:        c.Server.Host,
		Port:        c.Server.Port,
		CORSOrigins: c.Server.CORSOrigins,
		BodyLimit:   c.Server.BodyLimit,
		APIKey:      c.Auth.APIKey,
		RateLimit:   c.RateLimit,
		Version:     version,
	}
}

// Option configures a Server.
type Option func(*Server)

// WithTelemetry sets the tracer and meter source. Without it the global
// providers are used.
func WithTelemetry(t *telemetry.Telemetry) Option {
	return func(s *Server) {
		s.tel = t
	}
}

// NewServer creates a new HTTP server.
func NewServer(engine Engine, logger *logging.Logger, cfg *Config, opts ...Option) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: config.DefaultPort,
		}
	}

	s := &Server{
		engine: engine,
		logger: logger.Named("http"),
		config: cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tracer = s.tel.Tracer(instrumentationName)
	s.metrics = NewHTTPMetrics(s.tel.Meter(instrumentationName), s.logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newRequestValidator()
	e.HTTPErrorHandler = s.handleError
	s.echo = e

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.metrics.MetricsMiddleware())
	e.Use(s.observe)
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, HeaderAPIKey},
	}))
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	var limiter *rateLimiter
	if cfg.RateLimit.Enabled {
		var err error
		limiter, err = newRateLimiter(cfg.RateLimit)
		if err != nil {
			return nil, fmt.Errorf("creating rate limiter: %w", err)
		}
	}

	s.registerRoutes(limiter)
	return s, nil
}

// registerRoutes sets up the HTTP endpoints. Probes and metrics stay outside
// authentication and rate limiting.
func (s *Server) registerRoutes(limiter *rateLimiter) {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/ready", s.handleReady)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.echo.Group("/api/v1")
	if s.config.APIKey.IsSet() {
		api.Use(keyAuth(s.config.APIKey))
	}
	if limiter != nil {
		api.Use(limiter.Middleware())
	}

	api.POST("/chunks/analyze", s.handleAnalyzeChunk)
	api.POST("/documents/analyze", s.handleAnalyzeDocument)
	api.POST("/batch/analyze", s.handleAnalyzeBatch)
	api.POST("/similarity", s.handleSimilarity)
	api.GET("/profiles", s.handleProfiles)
}

// observe starts a server span, attaches the request id to the context and
// logs the request once the response is committed.
func (s *Server) observe(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		req := c.Request()

		ctx := otel.GetTextMapPropagator().Extract(req.Context(), propagation.HeaderCarrier(req.Header))
		requestID := c.Response().Header().Get(echo.HeaderXRequestID)
		if logging.ValidID(requestID) {
			ctx = logging.WithRequestID(ctx, requestID)
		}

		ctx, span := s.tracer.Start(ctx, req.Method+" "+normalizePath(c.Path()),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", req.Method),
				attribute.String("http.route", c.Path()),
			),
		)
		defer span.End()
		c.SetRequest(req.WithContext(ctx))

		if err := next(c); err != nil {
			c.Error(err)
		}

		status := c.Response().Status
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}

		s.logger.Info(ctx, "http request",
			zap.String("method", req.Method),
			zap.String("uri", req.RequestURI),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
		)
		return nil
	}
}

// handleError writes every error as a v1.ErrorResponse.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	msg := http.StatusText(status)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(status)
		}
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error(c.Request().Context(), "request failed",
			zap.Int("status", status),
			zap.Error(err),
		)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, v1.ErrorResponse{Message: msg})
	}
	if err != nil {
		s.logger.Warn(c.Request().Context(), "failed to write error response", zap.Error(err))
	}
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}

// Start starts the HTTP server. It returns http.ErrServerClosed after
// Shutdown.
func (s *Server) Start() error {
	addr := s.Addr()
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
