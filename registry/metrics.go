package registry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type registryMetrics struct {
	attrs        metric.MeasurementOption
	issued       metric.Int64Counter
	released     metric.Int64Counter
	exhausted    metric.Int64Counter
	live         metric.Int64ObservableGauge
	registration metric.Registration
}

func newRegistryMetrics(meter metric.Meter, name string, liveFn func() int64) (*registryMetrics, error) {
	m := &registryMetrics{
		attrs: metric.WithAttributes(attribute.String("registry", name)),
	}
	var err error
	if m.issued, err = meter.Int64Counter(
		"registry.handles.issued",
		metric.WithDescription("The handles issued by the registry."),
	); err != nil {
		return nil, err
	}
	if m.released, err = meter.Int64Counter(
		"registry.handles.released",
		metric.WithDescription("The handles released by unregister or close."),
	); err != nil {
		return nil, err
	}
	if m.exhausted, err = meter.Int64Counter(
		"registry.handles.exhausted",
		metric.WithDescription("The registrations rejected because no handle was available."),
	); err != nil {
		return nil, err
	}
	if m.live, err = meter.Int64ObservableGauge(
		"registry.handles.live",
		metric.WithDescription("The handles currently in use."),
	); err != nil {
		return nil, err
	}
	if m.registration, err = meter.RegisterCallback(func(ctx context.Context, ob metric.Observer) error {
		ob.ObserveInt64(m.live, liveFn(), m.attrs)
		return nil
	}, m.live); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *registryMetrics) issue(ctx context.Context) {
	m.issued.Add(ctx, 1, m.attrs)
}

func (m *registryMetrics) release(ctx context.Context, n int64) {
	if n > 0 {
		m.released.Add(ctx, n, m.attrs)
	}
}

func (m *registryMetrics) exhaust(ctx context.Context) {
	m.exhausted.Add(ctx, 1, m.attrs)
}

// stop detaches the live gauge callback.
func (m *registryMetrics) stop() error {
	return m.registration.Unregister()
}
