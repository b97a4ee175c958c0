package okx_client

import (
	"context"

	"tv_relay/internal/modules/config"
	health "tv_relay/internal/modules/health/service"
	"tv_relay/internal/modules/okx_client/service"
	"tv_relay/internal/runner"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module поднимает REST-клиент OKX и на старте проверяет ключи.
func Module() fx.Option {
	return fx.Module("okx_client",
		fx.Provide(
			service.NewClient,
			func(c *service.Client) runner.Exchange {
				return c
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, c *service.Client, cfg *config.Config, state *health.State, log *zap.Logger) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					return CheckAccount(ctx, c, cfg, state, log)
				},
			})
		}),
	)
}

// CheckAccount — запрос с подписью: битые ключи валят старт, а не первый сигнал.
func CheckAccount(ctx context.Context, c *service.Client, cfg *config.Config, state *health.State, log *zap.Logger) error {
	acc, err := c.AccountConfig(ctx)
	if err != nil {
		return errors.Wrap(err, "okx credentials check")
	}
	if cfg.OKX.AccountUID != "" && acc.UID != cfg.OKX.AccountUID {
		log.Warn("okx account uid does not match okx.account_uid",
			zap.String("expected", cfg.OKX.AccountUID), zap.String("actual", acc.UID))
	}
	if acc.PosMode != "" && acc.PosMode != cfg.OKX.PosMode {
		log.Warn("okx position mode differs from okx.pos_mode",
			zap.String("account", acc.PosMode), zap.String("config", cfg.OKX.PosMode))
	}
	log.Info("okx client initialized", zap.String("uid", acc.UID), zap.Bool("demo", cfg.OKX.Demo))

	if state != nil {
		state.SetExchangeOK(true)
		state.SetReady(true)
	}
	return nil
}
