package tracing

import (
	"context"
	"io"

	"tv_relay/internal/modules/config"
	"tv_relay/pkg/tracing"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module включает jaeger только при tracing.enabled; иначе спаны уходят в noop.
func Module() fx.Option {
	return fx.Module("tracing",
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) error {
			if !cfg.Tracing.Enabled {
				return nil
			}
			tracing.SetServiceName("tv_relay")
			_, closer, err := tracing.InitTracer(tracing.Config{
				Host: cfg.Tracing.Host,
				Port: cfg.Tracing.Port,
			})
			if err != nil {
				return err
			}
			log.Info("jaeger tracer initialized",
				zap.String("agent", cfg.Tracing.Host), zap.Int("port", cfg.Tracing.Port))

			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					return closeTracer(closer)
				},
			})
			return nil
		}),
	)
}

func closeTracer(c io.Closer) error {
	if c == nil {
		return nil
	}
	return c.Close()
}
