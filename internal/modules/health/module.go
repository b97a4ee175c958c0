package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"tv_relay/internal/modules/health/service"
)

func RegisterRoutes(r *gin.Engine, state *service.State) {
	r.GET("/livez", func(c *gin.Context) {
		// liveness: процесс жив
		c.String(http.StatusOK, "ok")
	})

	r.GET("/readyz", func(c *gin.Context) {
		// readiness: ключи биржи проверены
		if !state.Ready() {
			c.String(http.StatusServiceUnavailable, "not ready")
			return
		}
		c.String(http.StatusOK, "ready")
	})

	r.GET("/healthz", func(c *gin.Context) {
		// полезный JSON для отладки
		c.JSON(http.StatusOK, gin.H{
			"ready":      state.Ready(),
			"exchangeOk": state.ExchangeOK(),
			"uptimeSec":  int64(state.Uptime().Seconds()),
			"signals":    state.Signals(),
			"failures":   state.Failures(),
			"lastSignalUnix": func() int64 {
				t := state.LastSignal()
				if t.IsZero() {
					return 0
				}
				return t.Unix()
			}(),
		})
	})
}

func Module() fx.Option {
	return fx.Module("health",
		fx.Provide(
			service.NewState,
		),
		fx.Invoke(RegisterRoutes),
	)
}
