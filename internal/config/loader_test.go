package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, TransportStdio, cfg.Server.Transport)
	assert.Equal(t, "repo-read-mcp/seagoat", cfg.Engine.ImagePrefix)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  transport: http
  port: 8080
engine:
  analysis_timeout: 2m
  memory: 512m
log:
  level: debug
  format: console
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, TransportHTTP, cfg.Server.Transport)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 2*time.Minute, cfg.Engine.AnalysisTimeout.Duration())
	assert.Equal(t, "512m", cfg.Engine.Memory)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)

	// Untouched sections keep defaults.
	assert.Equal(t, 30*time.Second, cfg.Server.KeepaliveInterval.Duration())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
log:
  level: debug
`)
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("ENGINE_IMAGE_PREFIX", "custom/seagoat")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "custom/seagoat", cfg.Engine.ImagePrefix)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "server: [not: valid")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfigFile(t, `
log:
  format: xml
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.format")
}

func TestLoad_FileTooLarge(t *testing.T) {
	big := make([]byte, maxConfigFileSize+1)
	for i := range big {
		big[i] = '#'
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, big, 0600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestEnvKeyTransform(t *testing.T) {
	assert.Equal(t, "server.transport", envKeyTransform("SERVER_TRANSPORT"))
	assert.Equal(t, "engine.analysis_timeout", envKeyTransform("ENGINE_ANALYSIS_TIMEOUT"))
	assert.Equal(t, "path", envKeyTransform("PATH"))
}
