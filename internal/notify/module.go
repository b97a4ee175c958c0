package notify

import (
	"tv_relay/internal/modules/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module: если TELEGRAM_* нет или бот не поднялся — пишем в лог.
func Module() fx.Option {
	return fx.Module("notify",
		fx.Provide(
			func(cfg *config.Config, log *zap.Logger) Notifier {
				l := log.Named("notify")
				if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
					tg, err := NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, l)
					if err == nil {
						return tg
					}
					l.Warn("telegram disabled", zap.Error(err))
				}
				return NewLog(l)
			},
		),
	)
}
