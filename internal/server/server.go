// Package server provides the HTTP transport for the MCP tools.
//
// It wraps an Echo router with health and metrics endpoints, mounts
// the streamable MCP handler, and shuts down gracefully when the
// context is cancelled.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Config configures the HTTP server.
type Config struct {
	Port            int
	ShutdownTimeout time.Duration
}

// HealthResponse is the JSON response for the /health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Server is the HTTP server hosting the MCP endpoint.
type Server struct {
	cfg    Config
	echo   *echo.Echo
	logger *zap.Logger
}

// New creates an HTTP server with the MCP handler mounted at /mcp,
// a health check at /health and Prometheus metrics at /metrics.
func New(cfg Config, mcpHandler http.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	s := &Server{
		cfg:    cfg,
		echo:   e,
		logger: logger,
	}

	e.GET("/health", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.Any("/mcp", echo.WrapHandler(mcpHandler))
	e.Any("/mcp/*", echo.WrapHandler(mcpHandler))

	return s
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: "repo-read-mcp",
	})
}

// Echo returns the underlying Echo instance, for tests and for
// registering additional routes.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start starts the server and blocks until the context is cancelled or
// the listener fails. Returns http.ErrServerClosed after a graceful
// shutdown.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)

	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server start: %w", err)
		}
	}()

	s.logger.Info("http server listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return http.ErrServerClosed
	}
}
