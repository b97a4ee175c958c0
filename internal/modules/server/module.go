package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"tv_relay/internal/metrics"
	"tv_relay/internal/modules/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewEngine — gin с логированием запросов, recovery и /metrics.
// Маршруты вешают остальные модули через fx.Invoke.
func NewEngine(log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	g := gin.New()

	g.Use(RequestLogger(log))
	g.Use(gin.Recovery())

	g.GET("/metrics", gin.WrapH(metrics.Handler()))
	return g
}

// RequestLogger пишет одну строку на запрос.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(cn *gin.Context) {
		start := time.Now()
		cn.Next()
		log.Info("http_request",
			zap.String("method", cn.Request.Method),
			zap.String("path", cn.Request.URL.Path),
			zap.Int("status", cn.Writer.Status()),
			zap.String("ip", cn.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func RunHTTP(lc fx.Lifecycle, cfg *config.Config, g *gin.Engine, log *zap.Logger) {
	addr := fmt.Sprintf("%s:%d", cfg.Service.Host, cfg.Service.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           g,
		ReadHeaderTimeout: cfg.Service.ReadHeaderTimeout,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			log.Info("http listening", zap.String("addr", addr))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http serve", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("server",
		fx.Provide(
			NewEngine,
		),
		fx.Invoke(RunHTTP),
	)
}
