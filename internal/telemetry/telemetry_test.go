package telemetry

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestMetricsReachPrometheusRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()

	tel, err := New("repo-read-mcp", "test", reg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tel.Shutdown(context.Background()) })

	meter := tel.Meter("telemetry_test")
	counter, err := meter.Int64Counter("telemetry_test_events_total")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	families, err := reg.Gather()
	require.NoError(t, err)

	found := false
	for _, mf := range families {
		if strings.HasPrefix(mf.GetName(), "telemetry_test_events") {
			found = true
		}
	}
	assert.True(t, found, "counter did not reach the prometheus registry")
}

func TestGlobalProviderInstalled(t *testing.T) {
	reg := prometheus.NewRegistry()

	tel, err := New("repo-read-mcp", "test", reg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tel.Shutdown(context.Background()) })

	// Instruments created through the otel global must hit the same
	// pipeline; this is what internal/mcp's Metrics relies on.
	m := otel.Meter("global_check")
	c, err := m.Int64Counter("global_check_hits_total")
	require.NoError(t, err)
	c.Add(context.Background(), 1)

	families, err := reg.Gather()
	require.NoError(t, err)

	found := false
	for _, mf := range families {
		if strings.HasPrefix(mf.GetName(), "global_check_hits") {
			found = true
		}
	}
	assert.True(t, found, "global meter did not record into the installed provider")
}
