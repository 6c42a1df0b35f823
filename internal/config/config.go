// Package config provides configuration loading for repo-read-mcp.
package config

import (
	"fmt"
	"time"
)

// Transport names accepted by ServerConfig.Transport.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config is the root configuration for the server.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Engine  EngineConfig  `koanf:"engine"`
	Log     LogConfig     `koanf:"log"`
	Watcher WatcherConfig `koanf:"watcher"`
}

// ServerConfig controls the MCP transport and HTTP listener.
type ServerConfig struct {
	// Transport selects the MCP transport: "stdio" or "http".
	Transport string `koanf:"transport"`

	// Port is the HTTP listen port (http transport only).
	Port int `koanf:"port"`

	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`

	// KeepaliveInterval is the base interval between progress
	// notifications sent while a tool call is running.
	KeepaliveInterval Duration `koanf:"keepalive_interval"`

	// KeepaliveJitter is the maximum +/- jitter applied per tick.
	KeepaliveJitter Duration `koanf:"keepalive_jitter"`
}

// EngineConfig controls the containerized search engine.
type EngineConfig struct {
	// ImagePrefix is the repository part of the image tag. The full tag
	// is "<prefix>:<context-hash>".
	ImagePrefix string `koanf:"image_prefix"`

	// AnalysisTimeout bounds how long startup waits for the engine to
	// finish analyzing the repository.
	AnalysisTimeout Duration `koanf:"analysis_timeout"`

	// LogPollInterval is the minimum spacing between container log polls
	// while waiting for analysis to complete.
	LogPollInterval Duration `koanf:"log_poll_interval"`

	// SearchTimeout bounds a single search exec in the container.
	SearchTimeout Duration `koanf:"search_timeout"`

	// Memory is the container memory limit passed to docker run.
	Memory string `koanf:"memory"`

	// CPUs is the container CPU limit passed to docker run.
	CPUs string `koanf:"cpus"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is "json" or "console".
	Format string `koanf:"format"`
}

// WatcherConfig controls the staleness watcher over the repository.
type WatcherConfig struct {
	Enabled bool `koanf:"enabled"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Transport:         TransportStdio,
			Port:              3000,
			ShutdownTimeout:   Duration(10 * time.Second),
			KeepaliveInterval: Duration(30 * time.Second),
			KeepaliveJitter:   Duration(5 * time.Second),
		},
		Engine: EngineConfig{
			ImagePrefix:     "repo-read-mcp/seagoat",
			AnalysisTimeout: Duration(5 * time.Minute),
			LogPollInterval: Duration(time.Second),
			SearchTimeout:   Duration(time.Minute),
			Memory:          "1g",
			CPUs:            "2.0",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Watcher: WatcherConfig{
			Enabled: true,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Server.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("server.transport must be %q or %q, got %q",
			TransportStdio, TransportHTTP, c.Server.Transport)
	}

	if c.Server.Transport == TransportHTTP {
		if c.Server.Port < 1 || c.Server.Port > 65535 {
			return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
		}
	}

	if c.Server.KeepaliveInterval.Duration() <= 0 {
		return fmt.Errorf("server.keepalive_interval must be > 0")
	}
	if c.Server.KeepaliveJitter.Duration() < 0 {
		return fmt.Errorf("server.keepalive_jitter must be >= 0")
	}

	if c.Engine.ImagePrefix == "" {
		return fmt.Errorf("engine.image_prefix cannot be empty")
	}
	if c.Engine.AnalysisTimeout.Duration() <= 0 {
		return fmt.Errorf("engine.analysis_timeout must be > 0")
	}
	if c.Engine.LogPollInterval.Duration() <= 0 {
		return fmt.Errorf("engine.log_poll_interval must be > 0")
	}
	if c.Engine.SearchTimeout.Duration() <= 0 {
		return fmt.Errorf("engine.search_timeout must be > 0")
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be 'json' or 'console', got %q", c.Log.Format)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level)
	}

	return nil
}
