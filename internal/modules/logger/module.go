package logger

import (
	"tv_relay/internal/modules/config"
	"tv_relay/pkg/logger"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Module отдаёт общий *zap.Logger и заворачивает в него логи самого fx.
func Module() fx.Option {
	return fx.Options(
		fx.Module("logger",
			fx.Provide(
				func(cfg *config.Config) (*zap.Logger, error) {
					logger.SetServiceName("tv_relay")
					return logger.New(cfg.Log.Level)
				},
			),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
	)
}
