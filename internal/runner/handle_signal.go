package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tv_relay/internal/metrics"
	"tv_relay/internal/models"
	"tv_relay/internal/modules/config"
	"tv_relay/pkg/tracing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Result — что сделали по сигналу; отдаётся в ответ вебхука.
type Result struct {
	Action    models.Action
	Coin      string
	InstID    string
	Mode      string
	Leverage  float64
	RiskPct   float64
	Equity    float64
	MarkPrice float64

	Closed []models.OrderResult // по одному на закрытую ногу; пусто — закрывать было нечего
	Order  *models.OrderResult  // nil — не открывали

	Skipped bool
	Reason  string
}

// HandleSignal: состояние счёта -> размер -> close (все ноги, если нужно) -> open.
// Open уходит только после того, как все close завершились. Ретраев и отката нет:
// если close прошёл, а open упал, счёт остаётся пустым, а Result.Closed заполнен.
func (r *Runner) HandleSignal(ctx context.Context, alert models.Alert) (res Result, err error) {
	span, ctx := tracing.StartSpan(ctx, "runner.handle_signal")
	span.SetTag("instId", alert.InstID)
	span.SetTag("action", string(alert.Action))
	defer func() { tracing.Finish(span, err) }()

	res = Result{
		Action:   alert.Action,
		Coin:     alert.Coin,
		InstID:   alert.InstID,
		Mode:     alert.Mode,
		Leverage: alert.Leverage,
		RiskPct:  alert.RiskPct,
	}
	log := r.log.With(
		zap.String("action", string(alert.Action)),
		zap.String("instId", alert.InstID),
	)

	acc, err := r.accountState(ctx, alert.InstID)
	if err != nil {
		return res, r.exchangeFailed(log, err)
	}
	equity := acc.Equity
	res.Equity = equity

	inst, err := r.ex.Instrument(ctx, alert.InstID)
	if err != nil {
		return res, r.exchangeFailed(log, err)
	}
	res.MarkPrice = inst.MarkPx
	r.exchangeOK(true)

	if len(acc.Positions) == 0 {
		log.Info("current position: flat")
	}
	for _, p := range acc.Positions {
		log.Info("current position",
			zap.String("side", string(p.Side)),
			zap.String("size", p.Size.String()),
			zap.String("posId", p.ID),
		)
	}

	// close_any закрывает всё; close_opposite — только встречные ноги,
	// а при уже открытой попутной новую позицию не открывает
	var (
		toClose []models.Position
		same    *models.Position
	)
	for i, p := range acc.Positions {
		if r.policy == config.ReverseCloseOpposite && p.Is(alert.Action) {
			same = &acc.Positions[i]
			continue
		}
		toClose = append(toClose, p)
	}

	var size decimal.Decimal
	if same == nil {
		size, err = CalcSizeByRiskWithMeta(SizeInput{
			Equity:   equity,
			RiskPct:  alert.RiskPct,
			Leverage: alert.Leverage,
			Price:    inst.MarkPx,
			LotSz:    inst.LotSz,
			MinSz:    inst.MinSz,
			CtVal:    inst.CtVal,
			MaxMktSz: inst.MaxMktSz,

			CtValInQuote: inst.CtValInQuote(),
		})
		if err != nil {
			log.Warn("sizing failed", zap.Error(err), zap.Float64("equity", equity), zap.Float64("markPx", inst.MarkPx))
			return res, err
		}
	}

	for _, p := range toClose {
		closed, err := r.ex.ClosePosition(ctx, alert.InstID, p)
		if err != nil {
			return res, r.exchangeFailed(log, err)
		}
		res.Closed = append(res.Closed, closed)
		metrics.OrdersTotal.WithLabelValues(alert.InstID, closed.Side, "close").Inc()
		log.Info("closed position before reverse",
			zap.String("side", string(p.Side)),
			zap.String("size", p.Size.String()),
			zap.String("posId", p.ID),
		)
	}

	if same != nil {
		res.Skipped = true
		res.Reason = fmt.Sprintf("already %s %s", same.Side, same.Size.String())
		log.Info("already in position, no new trade executed", zap.String("size", same.Size.String()))
		return res, nil
	}

	order, err := r.ex.OpenPosition(ctx, models.OrderRequest{
		InstID:        alert.InstID,
		Side:          alert.Action.OrderSide(),
		Size:          size,
		Leverage:      alert.Leverage,
		ClientOrderID: r.newID(),
	})
	if err != nil {
		if len(res.Closed) > 0 {
			log.Error("open failed after close, account left flat", zap.Error(err))
		}
		return res, r.exchangeFailed(log, err)
	}
	res.Order = &order
	metrics.OrdersTotal.WithLabelValues(alert.InstID, order.Side, "open").Inc()

	log.Info("opened position",
		zap.String("side", order.Side),
		zap.String("size", order.Size.String()),
		zap.String("ordId", order.OrderID),
		zap.Float64("equity", equity),
	)
	r.notify(ctx, res)
	return res, nil
}

// accountState — equity и позиция по инструменту, каждый раз с биржи.
func (r *Runner) accountState(ctx context.Context, instID string) (models.AccountState, error) {
	equity, err := r.ex.Equity(ctx)
	if err != nil {
		return models.AccountState{}, err
	}
	legs, err := r.ex.Positions(ctx, instID)
	if err != nil {
		return models.AccountState{}, err
	}
	return models.AccountState{Equity: equity, Positions: legs}, nil
}

func (r *Runner) exchangeFailed(log *zap.Logger, err error) error {
	r.exchangeOK(false)

	var exErr *models.ExchangeError
	if errors.As(err, &exErr) {
		metrics.ExchangeErrorsTotal.WithLabelValues(exErr.Op).Inc()
	} else {
		metrics.ExchangeErrorsTotal.WithLabelValues("unknown").Inc()
		err = &models.ExchangeError{Op: "unknown", Err: err}
	}
	log.Error("exchange call failed", zap.Error(err))
	return err
}

func (r *Runner) notify(ctx context.Context, res Result) {
	if r.n == nil || res.Order == nil {
		return
	}
	closed := "—"
	if len(res.Closed) > 0 {
		parts := make([]string, 0, len(res.Closed))
		for _, c := range res.Closed {
			parts = append(parts, fmt.Sprintf("%s %s", c.Side, c.Size.String()))
		}
		closed = strings.Join(parts, ", ")
	}
	r.n.SendF(ctx, "%s %s\nsize: %s @ ~%.4f\nleverage: %gx, risk: %.2f%%\nclosed: %s\nequity: %.2f",
		res.Action, res.InstID,
		res.Order.Size.String(), res.MarkPrice,
		res.Leverage, res.RiskPct*100,
		closed,
		res.Equity,
	)
}

// NotifyFailure — сообщение об ошибке обработки сигнала.
func (r *Runner) NotifyFailure(ctx context.Context, alert models.Alert, err error) {
	if r.n == nil {
		return
	}
	r.n.SendF(ctx, "⚠️ %s %s failed: %v", alert.Action, alert.InstID, err)
}
