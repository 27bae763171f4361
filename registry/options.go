package registry

import (
	"errors"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/metric"

	"github.com/benz9527/xpal/lib/infra"
	"github.com/benz9527/xpal/xlog"
)

var (
	ErrRegistryInvalidOption = errors.New("[registry] invalid option")
	ErrRegistryFull          = errors.New("[registry] no handle available")
	ErrRegistryClosed        = errors.New("[registry] closed")
	ErrRegistryNotFound      = errors.New("[registry] handle not found")
)

const (
	defaultRegistryName       = "default"
	defaultReleaseConcurrency = 8
)

// Releaser frees the resource denoted by the handle. It runs outside
// the registry lock.
type Releaser[R any] func(h Handle, res R) error

type RegistryOption[R any] func(*Registry[R]) error

var defaultLogger = sync.OnceValue(func() xlog.XLogger {
	return xlog.NewXLogger()
})

func invalidOption(msg string) error {
	return infra.WrapErrorStackWithMessage(ErrRegistryInvalidOption, msg)
}

func WithRegistryName[R any](name string) RegistryOption[R] {
	return func(r *Registry[R]) error {
		if name = strings.TrimSpace(name); len(name) == 0 {
			return invalidOption("empty registry name")
		}
		r.name = name
		return nil
	}
}

// WithRegistryMaxHandle limits the handles to [0, maxHandle].
// Without it the whole positive int32 range is used.
func WithRegistryMaxHandle[R any](maxHandle int32) RegistryOption[R] {
	return func(r *Registry[R]) error {
		if maxHandle < 0 {
			return invalidOption("negative max handle")
		}
		r.maxHandle = maxHandle
		return nil
	}
}

// WithRegistryNodePool preallocates the tree nodes. The registry is
// full once the pool is exhausted, even if handles are left.
func WithRegistryNodePool[R any](capacity int) RegistryOption[R] {
	return func(r *Registry[R]) error {
		if capacity <= 0 {
			return invalidOption("non-positive node pool capacity")
		}
		r.poolCap = capacity
		return nil
	}
}

func WithRegistryLogger[R any](logger xlog.XLogger) RegistryOption[R] {
	return func(r *Registry[R]) error {
		if logger == nil {
			return invalidOption("nil logger")
		}
		r.logger = logger
		return nil
	}
}

func WithRegistryMeter[R any](meter metric.Meter) RegistryOption[R] {
	return func(r *Registry[R]) error {
		if meter == nil {
			return invalidOption("nil meter")
		}
		r.meter = meter
		return nil
	}
}

func WithRegistryReleaser[R any](releaser Releaser[R]) RegistryOption[R] {
	return func(r *Registry[R]) error {
		if releaser == nil {
			return invalidOption("nil releaser")
		}
		r.releaser = releaser
		return nil
	}
}

// WithRegistryReleaseConcurrency is the worker count of the pool
// releasing the remaining resources on Close.
func WithRegistryReleaseConcurrency[R any](n int) RegistryOption[R] {
	return func(r *Registry[R]) error {
		if n <= 0 {
			return invalidOption("non-positive release concurrency")
		}
		r.releaseConcurrency = n
		return nil
	}
}
