package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024 // 1MB

// Load loads configuration from a YAML file, then overrides with
// environment variables.
//
// Precedence (highest to lowest):
//  1. Environment variables (SERVER_TRANSPORT, ENGINE_ANALYSIS_TIMEOUT, ...)
//  2. YAML config file
//  3. Built-in defaults
//
// If configPath is empty the default path is used
// (~/.config/repo-read-mcp/config.yaml); a missing file is not an error.
//
// Environment variables map to config keys by lowercasing and splitting
// on the first underscore:
//
//	SERVER_TRANSPORT        -> server.transport
//	ENGINE_ANALYSIS_TIMEOUT -> engine.analysis_timeout
//	LOG_LEVEL               -> log.level
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", "repo-read-mcp", "config.yaml")
	}

	if _, err := os.Stat(configPath); err == nil {
		// Open once and stat the descriptor to avoid a TOCTOU race
		// between the size check and the read.
		f, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
		if info.Size() > maxConfigFileSize {
			return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
		}

		content, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// envKeyTransform maps SECTION_FIELD_NAME to section.field_name.
// The split happens on the first underscore only, so compound field
// names keep their underscores.
func envKeyTransform(s string) string {
	lower := strings.ToLower(s)
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

// applyDefaults backfills zero values that koanf may have overwritten
// with explicit empty entries in the YAML file.
func applyDefaults(cfg *Config) {
	def := Default()

	if cfg.Server.Transport == "" {
		cfg.Server.Transport = def.Server.Transport
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = def.Server.ShutdownTimeout
	}
	if cfg.Server.KeepaliveInterval == 0 {
		cfg.Server.KeepaliveInterval = def.Server.KeepaliveInterval
	}

	if cfg.Engine.ImagePrefix == "" {
		cfg.Engine.ImagePrefix = def.Engine.ImagePrefix
	}
	if cfg.Engine.AnalysisTimeout == 0 {
		cfg.Engine.AnalysisTimeout = def.Engine.AnalysisTimeout
	}
	if cfg.Engine.LogPollInterval == 0 {
		cfg.Engine.LogPollInterval = def.Engine.LogPollInterval
	}
	if cfg.Engine.SearchTimeout == 0 {
		cfg.Engine.SearchTimeout = def.Engine.SearchTimeout
	}
	if cfg.Engine.Memory == "" {
		cfg.Engine.Memory = def.Engine.Memory
	}
	if cfg.Engine.CPUs == "" {
		cfg.Engine.CPUs = def.Engine.CPUs
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}
}
