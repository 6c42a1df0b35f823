package mcp

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/JuHwiSang/repo-read-mcp/internal/repository"
)

// StaleChecker reports whether the repository changed after the search
// index was built. Implemented by watcher.Watcher.
type StaleChecker interface {
	Stale() bool
}

// Server exposes read-only repository inspection tools over MCP.
type Server struct {
	mcp     *mcp.Server
	repo    *repository.Service
	metrics *Metrics
	stale   StaleChecker
	logger  *zap.Logger

	keepaliveInterval time.Duration
	keepaliveJitter   time.Duration
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name.
	Name string

	// Version is the server version.
	Version string

	// Logger for structured logging.
	Logger *zap.Logger

	// KeepaliveInterval is the base spacing of progress notifications
	// during long tool calls; KeepaliveJitter is the maximum random
	// offset applied per notification.
	KeepaliveInterval time.Duration
	KeepaliveJitter   time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:              "repo-read-mcp",
		Version:           "1.0.0",
		Logger:            zap.NewNop(),
		KeepaliveInterval: 30 * time.Second,
		KeepaliveJitter:   5 * time.Second,
	}
}

// NewServer creates an MCP server over the given repository service.
// stale is optional; when non-nil, search output reports whether the
// repository changed after indexing.
func NewServer(cfg *Config, repo *repository.Service, stale StaleChecker) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if repo == nil {
		return nil, fmt.Errorf("repository service is required")
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		},
		nil,
	)

	s := &Server{
		mcp:               mcpServer,
		repo:              repo,
		metrics:           NewMetrics(cfg.Logger),
		stale:             stale,
		logger:            cfg.Logger,
		keepaliveInterval: cfg.KeepaliveInterval,
		keepaliveJitter:   cfg.KeepaliveJitter,
	}

	s.registerTools()

	return s, nil
}

// Run starts the MCP server on the stdio transport.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio transport",
		zap.String("repo", s.repo.Root()))
	transport := &mcp.StdioTransport{}
	if err := s.mcp.Run(ctx, transport); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}

// HTTPHandler returns a streamable HTTP handler serving this server,
// for mounting under the http transport.
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcp
	}, nil)
}
