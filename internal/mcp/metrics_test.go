package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"traversal", errors.New("path traversal attempt"), "validation_error"},
		{"not found", errors.New("File not found: x.go"), "not_found"},
		{"timeout", errors.New("timed out after 5m0s waiting for repository analysis"), "timeout"},
		{"docker", errors.New("docker build failed"), "engine_error"},
		{"container", errors.New("engine container exited during analysis"), "engine_error"},
		{"other", errors.New("something broke"), "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, categorizeError(tt.err))
		})
	}
}

func TestMetricsRecordingDoesNotPanic(t *testing.T) {
	m := NewMetrics(zap.NewNop())
	ctx := context.Background()

	m.IncrementActive(ctx, "read_files")
	m.RecordInvocation(ctx, "read_files", 10*time.Millisecond, nil)
	m.RecordInvocation(ctx, "search", time.Second, errors.New("docker exec failed"))
	m.DecrementActive(ctx, "read_files")
}
