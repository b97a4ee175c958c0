package runner

import (
	"tv_relay/internal/notify"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			New, // *Runner
			// адаптер: notify.Notifier -> runner.Notifier
			func(n notify.Notifier) Notifier {
				return n
			},
		),
	)
}
