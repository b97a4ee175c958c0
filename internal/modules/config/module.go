package config

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module отдаёт *Config и пишет в лог эффективные значения (без секретов).
func Module() fx.Option {
	return fx.Module("config",
		fx.Provide(
			NewConfig,
		),
		fx.Invoke(func(cfg *Config, log *zap.Logger) {
			log.Info("config loaded", zap.String("effective", cfg.Redacted()))
			for _, w := range cfg.Warnings() {
				log.Warn("config", zap.String("warning", w))
			}
		}),
	)
}
