package webhook

import (
	"tv_relay/internal/modules/config"
	"tv_relay/internal/modules/webhook/service"
	"tv_relay/internal/runner"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Module("webhook",
		fx.Provide(
			service.NewParseOptions,
			func(r *runner.Runner) service.SignalHandler { return r },
			service.NewHandler,
		),
		fx.Invoke(func(g *gin.Engine, h *service.Handler, cfg *config.Config, log *zap.Logger) {
			g.POST(cfg.Webhook.Path, h.Webhook)
			if cfg.Webhook.Passphrase == "" {
				log.Warn("webhook.passphrase is empty, alerts are accepted without auth")
			}
			log.Info("webhook route registered", zap.String("path", cfg.Webhook.Path))
		}),
	)
}
