// Package seagoat manages the containerized SeaGOAT search engine that
// semantic search is delegated to.
//
// The engine never talks to the Docker API directly; it shells out to
// the docker CLI for image builds, container lifecycle and query
// execution. The image is content-addressed: a tag derived from the
// build context hash lets identical repository snapshots reuse a
// previously built image.
package seagoat

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/JuHwiSang/repo-read-mcp/internal/repository"
)

// analysisCompleteMessage is printed by the engine once every chunk of
// the repository has been embedded and the server is ready for queries.
const analysisCompleteMessage = "Analyzed all chunks!"

const containerNamePrefix = "repo-read-seagoat-"

// Config controls engine timeouts and container limits.
type Config struct {
	// ImagePrefix is the repository part of the image tag.
	ImagePrefix string

	// AnalysisTimeout bounds how long Start waits for the engine to
	// finish analyzing the repository.
	AnalysisTimeout time.Duration

	// LogPollInterval is the minimum spacing between log polls while
	// waiting for analysis.
	LogPollInterval time.Duration

	// SearchTimeout bounds a single search exec.
	SearchTimeout time.Duration

	// Memory and CPUs are container limits passed to docker run.
	Memory string
	CPUs   string
}

// commandRunner abstracts docker CLI invocations so tests can fake
// them. The production implementation execs the real binary.
type commandRunner interface {
	Run(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	return cmd.CombinedOutput()
}

// Engine wraps one SeaGOAT container serving one repository.
type Engine struct {
	repoPath string
	cfg      Config
	runner   commandRunner
	logger   *zap.Logger

	mu            sync.Mutex
	tag           string
	containerName string
	running       bool
}

// NewEngine creates an engine for the repository at repoPath. Nothing
// is built or started until Prepare or Start is called.
func NewEngine(repoPath string, cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		repoPath: repoPath,
		cfg:      cfg,
		runner:   execRunner{},
		logger:   logger,
	}
}

// Tag returns the image tag, once Prepare has computed it.
func (e *Engine) Tag() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tag
}

// Prepare builds the engine image for the repository, reusing a cached
// image when one exists for the same build context.
func (e *Engine) Prepare(ctx context.Context) error {
	if err := e.checkDocker(ctx); err != nil {
		return err
	}

	buildCtx, err := buildContext(e.repoPath)
	if err != nil {
		return fmt.Errorf("creating build context: %w", err)
	}

	tag := imageTag(e.cfg.ImagePrefix, buildCtx.Bytes())
	e.mu.Lock()
	e.tag = tag
	e.mu.Unlock()

	if _, err := e.runner.Run(ctx, nil, "docker", "image", "inspect", tag); err == nil {
		e.logger.Info("reusing cached engine image", zap.String("tag", tag))
		return nil
	}

	e.logger.Info("building engine image",
		zap.String("tag", tag),
		zap.Int("context_bytes", buildCtx.Len()))

	out, err := e.runner.Run(ctx, buildCtx, "docker", "build", "-t", tag, "-")
	if err != nil {
		return fmt.Errorf("docker build failed: %w: %s", err, truncate(string(out), 2000))
	}

	e.logger.Info("engine image built", zap.String("tag", tag))
	return nil
}

// Start builds the image if necessary, runs the analysis container and
// blocks until the engine reports the repository fully analyzed.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.Prepare(ctx); err != nil {
		return err
	}

	name := containerNamePrefix + uuid.New().String()

	args := []string{
		"run", "-d",
		"--name", name,
	}
	if e.cfg.Memory != "" {
		args = append(args, "--memory", e.cfg.Memory)
	}
	if e.cfg.CPUs != "" {
		args = append(args, "--cpus", e.cfg.CPUs)
	}
	args = append(args, e.Tag())

	out, err := e.runner.Run(ctx, nil, "docker", args...)
	if err != nil {
		return fmt.Errorf("docker run failed: %w: %s", err, truncate(string(out), 2000))
	}

	e.mu.Lock()
	e.containerName = name
	e.running = true
	e.mu.Unlock()

	e.logger.Info("engine container started", zap.String("container", name))

	if err := e.waitForAnalysis(ctx); err != nil {
		_ = e.Close()
		return err
	}

	e.logger.Info("repository analysis complete", zap.String("container", name))
	return nil
}

// waitForAnalysis polls container logs until the analysis-complete
// marker appears, the container dies, or the timeout lapses. Poll
// frequency is capped by a rate limiter so a busy container does not
// get hammered with docker invocations.
func (e *Engine) waitForAnalysis(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.AnalysisTimeout)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(e.cfg.LogPollInterval), 1)
	name := e.containerName

	var seen int
	for {
		if err := limiter.Wait(ctx); err != nil {
			if ctx.Err() == context.DeadlineExceeded {
				return fmt.Errorf("timed out after %s waiting for repository analysis", e.cfg.AnalysisTimeout)
			}
			return ctx.Err()
		}

		logs, err := e.runner.Run(ctx, nil, "docker", "logs", name)
		if err != nil {
			return fmt.Errorf("reading container logs: %w", err)
		}

		if len(logs) > seen {
			e.logger.Debug("engine output", zap.ByteString("logs", logs[seen:]))
			seen = len(logs)
		}

		if bytes.Contains(logs, []byte(analysisCompleteMessage)) {
			return nil
		}

		state, err := e.runner.Run(ctx, nil, "docker", "inspect", "-f", "{{.State.Running}}", name)
		if err != nil {
			return fmt.Errorf("inspecting container: %w", err)
		}
		if strings.TrimSpace(string(state)) != "true" {
			return fmt.Errorf("engine container exited during analysis: %s", truncate(string(logs), 2000))
		}
	}
}

// Search runs a query inside the engine container and parses the
// results into contiguous-line chunks.
func (e *Engine) Search(ctx context.Context, query string) ([]repository.SearchResult, error) {
	e.mu.Lock()
	name := e.containerName
	running := e.running
	e.mu.Unlock()

	if !running {
		return nil, fmt.Errorf("engine container is not running; call Start first")
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.SearchTimeout)
	defer cancel()

	out, err := e.runner.Run(ctx, nil, "docker", "exec", name, "seagoat", query)
	if err != nil {
		return nil, fmt.Errorf("search exec failed: %w: %s", err, truncate(string(out), 2000))
	}

	return parseSearchOutput(string(out)), nil
}

// Close stops the container. The image is deliberately left in place so
// later runs over the same content reuse it.
func (e *Engine) Close() error {
	e.mu.Lock()
	name := e.containerName
	running := e.running
	e.running = false
	e.mu.Unlock()

	if !running || name == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	e.logger.Info("stopping engine container", zap.String("container", name))
	if out, err := e.runner.Run(ctx, nil, "docker", "stop", name); err != nil {
		return fmt.Errorf("docker stop failed: %w: %s", err, truncate(string(out), 500))
	}
	return nil
}

func (e *Engine) checkDocker(ctx context.Context) error {
	if _, err := e.runner.Run(ctx, nil, "docker", "version"); err != nil {
		return fmt.Errorf("docker is not available or not running: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
