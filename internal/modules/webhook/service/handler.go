package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"tv_relay/internal/metrics"
	"tv_relay/internal/models"
	health "tv_relay/internal/modules/health/service"
	"tv_relay/internal/runner"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxBodyBytes = 64 << 10

// SignalHandler — то, что делает runner.Runner.
type SignalHandler interface {
	HandleSignal(ctx context.Context, alert models.Alert) (runner.Result, error)
	NotifyFailure(ctx context.Context, alert models.Alert, err error)
}

type Handler struct {
	signals SignalHandler
	opts    ParseOptions
	state   *health.State
	log     *zap.Logger
}

func NewHandler(signals SignalHandler, opts ParseOptions, state *health.State, log *zap.Logger) *Handler {
	return &Handler{
		signals: signals,
		opts:    opts,
		state:   state,
		log:     log.Named("webhook"),
	}
}

type closedView struct {
	PositionID string          `json:"position_id"`
	Side       string          `json:"side"`
	Size       decimal.Decimal `json:"size"`
}

type orderView struct {
	OrderID       string          `json:"order_id"`
	ClientOrderID string          `json:"client_order_id"`
	Side          string          `json:"side"`
	Size          decimal.Decimal `json:"size"`
}

type successResponse struct {
	Status    string       `json:"status"`
	Action    string       `json:"action"`
	Coin      string       `json:"coin"`
	InstID    string       `json:"inst_id"`
	Mode      string       `json:"mode"`
	Leverage  float64      `json:"leverage"`
	RiskPct   float64      `json:"risk_pct"`
	Equity    float64      `json:"equity"`
	MarkPrice float64      `json:"mark_price"`
	Closed    *closedView  `json:"closed"`
	ClosedAll []closedView `json:"closed_legs,omitempty"`
	Order     *orderView   `json:"order"`
	Skipped   bool         `json:"skipped"`
	Reason    string       `json:"reason,omitempty"`
}

type errorResponse struct {
	Status    string       `json:"status"`
	Code      string       `json:"code"`
	Message   string       `json:"message"`
	Closed    *closedView  `json:"closed,omitempty"`
	ClosedAll []closedView `json:"closed_legs,omitempty"`
}

// Webhook — POST от TradingView. Один запрос — один цикл close/open.
func (h *Handler) Webhook(c *gin.Context) {
	start := time.Now()
	defer func() { metrics.HandleSeconds.Observe(time.Since(start).Seconds()) }()

	log := h.log.With(zap.String("requestId", uuid.NewString()))

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		h.reject(c, log, models.Alert{}, models.NewValidationError("", "read body: %v", err), nil)
		return
	}

	alert, err := ParseAlert(body, h.opts)
	if err != nil {
		h.reject(c, log, alert, err, nil)
		return
	}
	log.Info("alert received",
		zap.String("action", string(alert.Action)),
		zap.String("coin", alert.Coin),
		zap.String("instId", alert.InstID),
		zap.Float64("leverage", alert.Leverage),
		zap.Bool("leverageDefaulted", alert.LeverageDefaulted),
		zap.Float64("riskPct", alert.RiskPct),
		zap.Bool("riskDefaulted", alert.RiskDefaulted),
	)

	res, err := h.signals.HandleSignal(c.Request.Context(), alert)
	h.state.TouchSignal(time.Now(), err != nil)
	if err != nil {
		h.signals.NotifyFailure(c.Request.Context(), alert, err)
		h.reject(c, log, alert, err, closedLegs(res))
		return
	}

	status := "success"
	if res.Skipped {
		status = "skipped"
	}
	metrics.AlertsTotal.WithLabelValues(string(alert.Action), status).Inc()

	legs := closedLegs(res)
	resp := successResponse{
		Status:    "success",
		Action:    string(res.Action),
		Coin:      res.Coin,
		InstID:    res.InstID,
		Mode:      res.Mode,
		Leverage:  res.Leverage,
		RiskPct:   res.RiskPct,
		Equity:    res.Equity,
		MarkPrice: res.MarkPrice,
		Closed:    first(legs),
		ClosedAll: legs,
		Skipped:   res.Skipped,
		Reason:    res.Reason,
	}
	if res.Order != nil {
		resp.Order = &orderView{
			OrderID:       res.Order.OrderID,
			ClientOrderID: res.Order.ClientOrderID,
			Side:          res.Order.Side,
			Size:          res.Order.Size,
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) reject(c *gin.Context, log *zap.Logger, alert models.Alert, err error, closed []closedView) {
	status, code := classify(err)

	action := string(alert.Action)
	if action == "" {
		action = "unknown"
	}
	metrics.AlertsTotal.WithLabelValues(action, code).Inc()

	fields := []zap.Field{zap.Int("status", status), zap.String("code", code), zap.Error(err)}
	if alert.InstID != "" {
		fields = append(fields, zap.String("instId", alert.InstID))
	}
	if status >= http.StatusInternalServerError {
		log.Error("alert failed", fields...)
	} else {
		log.Warn("alert rejected", fields...)
	}

	c.JSON(status, errorResponse{
		Status:    "error",
		Code:      code,
		Message:   err.Error(),
		Closed:    first(closed),
		ClosedAll: closed,
	})
}

// classify: тип ошибки -> HTTP статус и код в ответе.
func classify(err error) (int, string) {
	var (
		vErr  *models.ValidationError
		szErr *models.SizingError
		exErr *models.ExchangeError
	)
	switch {
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.As(err, &vErr):
		return http.StatusBadRequest, "validation_error"
	case errors.As(err, &szErr):
		return http.StatusUnprocessableEntity, "sizing_error"
	case errors.As(err, &exErr):
		return http.StatusBadGateway, "exchange_error"
	default:
		return http.StatusBadGateway, "exchange_error"
	}
}

// closedLegs — закрытые ноги в порядке закрытия. В net-режиме их не больше одной.
func closedLegs(res runner.Result) []closedView {
	if len(res.Closed) == 0 {
		return nil
	}
	out := make([]closedView, 0, len(res.Closed))
	for _, c := range res.Closed {
		out = append(out, closedView{
			PositionID: c.PositionID,
			Side:       c.Side,
			Size:       c.Size,
		})
	}
	return out
}

func first(legs []closedView) *closedView {
	if len(legs) == 0 {
		return nil
	}
	return &legs[0]
}
