// Repo-read-mcp is an MCP server that gives agents read-only access to
// a repository: file and directory reads plus semantic search delegated
// to a SeaGOAT container.
//
// Usage:
//
//	# Serve a repository over stdio (default)
//	repo-read-mcp serve /path/to/repo
//
//	# Serve over HTTP
//	repo-read-mcp serve --transport http --port 3000 /path/to/repo
//
//	# Build the search engine image without serving
//	repo-read-mcp prepare /path/to/repo
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JuHwiSang/repo-read-mcp/internal/config"
	"github.com/JuHwiSang/repo-read-mcp/internal/gitinfo"
	"github.com/JuHwiSang/repo-read-mcp/internal/logging"
	mcpserver "github.com/JuHwiSang/repo-read-mcp/internal/mcp"
	"github.com/JuHwiSang/repo-read-mcp/internal/repository"
	"github.com/JuHwiSang/repo-read-mcp/internal/seagoat"
	"github.com/JuHwiSang/repo-read-mcp/internal/server"
	"github.com/JuHwiSang/repo-read-mcp/internal/telemetry"
	"github.com/JuHwiSang/repo-read-mcp/internal/watcher"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var (
	configPath string
	transport  string
	port       int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "repo-read-mcp",
	Short: "Read-only repository inspection tools over MCP",
	Long: `repo-read-mcp serves read-only repository inspection tools (file
reads, directory listings, tree walks, semantic search) over the Model
Context Protocol. Semantic search runs inside a SeaGOAT container
managed through the docker CLI.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: ~/.config/repo-read-mcp/config.yaml)")

	serveCmd.Flags().StringVar(&transport, "transport", "", "MCP transport: stdio or http (default: stdio)")
	serveCmd.Flags().IntVar(&port, "port", 0, "HTTP listen port (http transport only)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(prepareCmd)
	rootCmd.AddCommand(versionCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve <repo-path>",
	Short: "Start the MCP server for a repository",
	Args:  cobra.ExactArgs(1),
	RunE:  runServe,
}

var prepareCmd = &cobra.Command{
	Use:   "prepare <repo-path>",
	Short: "Build the search engine image for a repository without serving",
	Args:  cobra.ExactArgs(1),
	RunE:  runPrepare,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("repo-read-mcp %s (commit %s, built %s)\n", version, gitCommit, buildDate)
	},
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if transport != "" {
		cfg.Server.Transport = transport
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	repoPath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolving repository path: %w", err)
	}

	// On stdio, stdout belongs to the protocol stream.
	logger, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Stderr: cfg.Server.Transport == config.TransportStdio,
	})
	if err != nil {
		return err
	}
	defer func() { _ = logging.Sync(logger) }()

	ctx, cancel := signalContext()
	defer cancel()

	tel, err := telemetry.New("repo-read-mcp", version, nil, logger)
	if err != nil {
		logger.Warn("metrics pipeline unavailable", zap.Error(err))
	} else {
		defer func() {
			if err := tel.Shutdown(context.Background()); err != nil {
				logger.Warn("metrics shutdown failed", zap.Error(err))
			}
		}()
	}

	if info, err := gitinfo.Detect(repoPath); err != nil {
		logger.Warn("reading git metadata failed", zap.Error(err))
	} else if info != nil {
		logger.Info("serving repository",
			zap.String("path", repoPath),
			zap.String("branch", info.Branch),
			zap.String("commit", info.Commit))
	} else {
		logger.Info("serving repository", zap.String("path", repoPath))
	}

	engine := seagoat.NewEngine(repoPath, engineConfig(cfg), logger)
	if err := engine.Start(ctx); err != nil {
		return fmt.Errorf("starting search engine: %w", err)
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Warn("stopping search engine failed", zap.Error(err))
		}
	}()

	repoSvc, err := repository.NewService(repoPath, engine, logger)
	if err != nil {
		return err
	}

	var stale mcpserver.StaleChecker
	if cfg.Watcher.Enabled {
		w, err := watcher.New(repoPath, logger)
		if err != nil {
			logger.Warn("staleness watcher unavailable", zap.Error(err))
		} else if err := w.Start(ctx); err != nil {
			logger.Warn("staleness watcher failed to start", zap.Error(err))
			w.Stop()
		} else {
			defer w.Stop()
			stale = w
		}
	}

	srv, err := mcpserver.NewServer(&mcpserver.Config{
		Name:              "repo-read-" + filepath.Base(repoPath),
		Version:           version,
		Logger:            logger,
		KeepaliveInterval: cfg.Server.KeepaliveInterval.Duration(),
		KeepaliveJitter:   cfg.Server.KeepaliveJitter.Duration(),
	}, repoSvc, stale)
	if err != nil {
		return err
	}

	switch cfg.Server.Transport {
	case config.TransportHTTP:
		httpSrv := server.New(server.Config{
			Port:            cfg.Server.Port,
			ShutdownTimeout: cfg.Server.ShutdownTimeout.Duration(),
		}, srv.HTTPHandler(), logger)
		if err := httpSrv.Start(ctx); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil

	default:
		return srv.Run(ctx)
	}
}

func runPrepare(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	repoPath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolving repository path: %w", err)
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return err
	}
	defer func() { _ = logging.Sync(logger) }()

	ctx, cancel := signalContext()
	defer cancel()

	engine := seagoat.NewEngine(repoPath, engineConfig(cfg), logger)
	if err := engine.Prepare(ctx); err != nil {
		return err
	}

	fmt.Printf("Image ready: %s\n", engine.Tag())
	return nil
}

func engineConfig(cfg *config.Config) seagoat.Config {
	return seagoat.Config{
		ImagePrefix:     cfg.Engine.ImagePrefix,
		AnalysisTimeout: cfg.Engine.AnalysisTimeout.Duration(),
		LogPollInterval: cfg.Engine.LogPollInterval.Duration(),
		SearchTimeout:   cfg.Engine.SearchTimeout.Duration(),
		Memory:          cfg.Engine.Memory,
		CPUs:            cfg.Engine.CPUs,
	}
}
