package registry

import (
	"go.uber.org/fx"

	"github.com/benz9527/xpal/xlog"
)

type fxParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Logger    xlog.XLogger `optional:"true"`
}

// FxModule provides a *Registry[R] to the app. The registry uses the
// app logger if one is provided, and it is closed on app stop.
func FxModule[R any](opts ...RegistryOption[R]) fx.Option {
	return fx.Module("registry",
		fx.Provide(func(p fxParams) (*Registry[R], error) {
			_opts := make([]RegistryOption[R], 0, len(opts)+1)
			if p.Logger != nil {
				_opts = append(_opts, WithRegistryLogger[R](p.Logger))
			}
			_opts = append(_opts, opts...)
			r, err := NewRegistry[R](_opts...)
			if err != nil {
				return nil, err
			}
			p.Lifecycle.Append(fx.Hook{
				OnStop: r.Close,
			})
			return r, nil
		}),
	)
}
