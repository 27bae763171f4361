package observability

// https://opentelemetry.io/docs/languages/go/exporters/

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/sdk/metric"
)

type ShutdownFunc func(ctx context.Context) error

// The shutdown of the latest installed meter provider, InitAppStats
// runs it once the app context is done.
var providerShutdown atomic.Pointer[ShutdownFunc]

func install(mp *metric.MeterProvider) ShutdownFunc {
	var callback ShutdownFunc = mp.Shutdown
	otel.SetMeterProvider(mp)
	providerShutdown.Store(&callback)
	return callback
}

// NewConsoleMetricsExporter serves for test/dev environment.
func NewConsoleMetricsExporter(interval, timeout time.Duration, opts ...stdoutmetric.Option) (ShutdownFunc, error) {
	exporter, err := stdoutmetric.New(opts...)
	if err != nil {
		return nil, err
	}
	mp := metric.NewMeterProvider(metric.WithReader(metric.NewPeriodicReader(
		exporter,
		metric.WithInterval(interval),
		metric.WithTimeout(timeout),
	)))
	return install(mp), nil
}

// NewPrometheusMetricsExporter serves for the product environment, the
// stats are fetched from the default prometheus registry by HTTP.
func NewPrometheusMetricsExporter(opts ...prometheus.Option) (ShutdownFunc, error) {
	exporter, err := prometheus.New(opts...)
	if err != nil {
		return nil, err
	}
	return install(metric.NewMeterProvider(metric.WithReader(exporter))), nil
}
