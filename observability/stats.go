package observability

import (
	"context"
	"runtime"
	"strings"
	"sync"

	"github.com/samber/lo"
	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterPrefix = "xpal"

var (
	once sync.Once
)

type appStats struct {
	ctx        context.Context
	goroutines metric.Int64ObservableUpDownCounter
	processes  metric.Int64ObservableUpDownCounter
}

func (stats *appStats) waitForShutdown() {
	if stats == nil || stats.ctx == nil {
		return
	}
	go func() {
		<-stats.ctx.Done()
		if callback := providerShutdown.Load(); callback != nil {
			_ = (*callback)(context.Background())
		}
	}()
}

func meterName(kind, name string) string {
	builder := &strings.Builder{}
	builder.WriteString(meterPrefix)
	builder.WriteString("/")
	builder.WriteString(kind)
	builder.WriteString("/")
	if name = strings.TrimSpace(name); len(name) > 0 {
		builder.WriteString(name)
	} else {
		builder.WriteString("default")
	}
	return builder.String()
}

// InitAppStats registers the process gauges and the otel runtime metrics
// on the global meter provider. Only the first call takes effect.
func InitAppStats(ctx context.Context, name string) {
	once.Do(func() {
		meter := otel.Meter(
			meterName("app", name),
			metric.WithInstrumentationVersion(otelruntime.Version()),
		)
		stats := &appStats{
			ctx: ctx,
			goroutines: lo.Must(meter.Int64ObservableUpDownCounter(
				"app.core.goroutines",
				metric.WithDescription(`The application goroutines' info.`),
				metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
					ob.Observe(int64(runtime.NumGoroutine()))
					return nil
				}),
			)),
			processes: lo.Must(meter.Int64ObservableUpDownCounter(
				"app.core.processes",
				metric.WithDescription(`The application processes' info.`),
				metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
					ob.Observe(int64(runtime.GOMAXPROCS(0)))
					return nil
				}),
			)),
		}
		_ = otelruntime.Start()
		stats.waitForShutdown()
	})
}

// RegistryMeter is the meter of the registry instruments if
// no meter is given to the registry.
func RegistryMeter(name string) metric.Meter {
	return otel.Meter(meterName("registry", name))
}
