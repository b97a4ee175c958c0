package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "relay_alerts_total", Help: "Webhook alerts by action and outcome"},
		[]string{"action", "status"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "relay_orders_total", Help: "Orders sent to the exchange"},
		[]string{"inst_id", "side", "kind"},
	)
	ExchangeErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "relay_exchange_errors_total", Help: "Failed exchange calls by operation"},
		[]string{"op"},
	)
	HandleSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relay_handle_seconds",
			Help:    "Time from alert accepted to response",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(AlertsTotal, OrdersTotal, ExchangeErrorsTotal, HandleSeconds)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
