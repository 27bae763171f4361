package observability

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
)

func TestMeterName(t *testing.T) {
	require.Equal(t, "xpal/app/default", meterName("app", "  "))
	require.Equal(t, "xpal/registry/sockets", meterName("registry", "sockets"))
}

func TestConsoleMetricsExporter_AppStats(t *testing.T) {
	buf := &bytes.Buffer{}
	shutdown, err := NewConsoleMetricsExporter(time.Hour, time.Second,
		stdoutmetric.WithWriter(buf),
		stdoutmetric.WithoutTimestamps(),
	)
	require.NoError(t, err)
	require.NotNil(t, providerShutdown.Load())

	ctx, cancel := context.WithCancel(context.Background())
	InitAppStats(ctx, "test")
	// Only the first call registers.
	InitAppStats(ctx, "test")

	counter := lo.Must(RegistryMeter("test").Int64Counter("registry.handles.issued"))
	counter.Add(ctx, 3)

	// The final collection is exported on shutdown.
	require.NoError(t, shutdown(context.Background()))
	cancel()

	out := buf.String()
	require.Contains(t, out, "app.core.goroutines")
	require.Contains(t, out, "app.core.processes")
	require.Contains(t, out, "registry.handles.issued")
	require.Contains(t, out, "xpal/registry/test")
}

func TestPrometheusMetricsExporter(t *testing.T) {
	registry := prometheus.NewRegistry()
	shutdown, err := NewPrometheusMetricsExporter(
		// Avoid the default registerer of the process.
		otelprom.WithRegisterer(registry),
	)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, shutdown(context.Background()))
	}()

	counter := lo.Must(RegistryMeter("prom").Int64Counter("registry.handles.released"))
	counter.Add(context.Background(), 2)

	families, err := registry.Gather()
	require.NoError(t, err)
	names := lo.Map(families, func(f *dto.MetricFamily, _ int) string {
		return f.GetName()
	})
	require.Contains(t, names, "registry_handles_released_total")
}
