package service

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"tv_relay/internal/models"
	"tv_relay/internal/modules/config"

	"go.uber.org/zap"
)

// ClosePosition закрывает позицию целиком по рынку (/trade/close-position).
func (c *Client) ClosePosition(ctx context.Context, instID string, pos models.Position) (models.OrderResult, error) {
	const op = "close_position"

	mgnMode := pos.MarginMode
	if mgnMode == "" {
		mgnMode = c.tdMode
	}

	body := map[string]any{
		"instId":  instID,
		"mgnMode": mgnMode,
		"autoCxl": true,
	}
	if c.posMode == config.PosModeLongShort {
		body["posSide"] = string(pos.Side)
	}

	acks, err := call[closeAck](ctx, c, op, http.MethodPost, "/api/v5/trade/close-position", nil, body, true)
	if err != nil {
		return models.OrderResult{}, err
	}

	// закрываем long продажей, short — покупкой
	side := "sell"
	if pos.Side == models.PositionShort {
		side = "buy"
	}
	res := models.OrderResult{
		InstID:     instID,
		Side:       side,
		Size:       pos.Size,
		PositionID: pos.ID,
	}
	if len(acks) > 0 {
		res.ClientOrderID = acks[0].ClOrdId
	}

	c.log.Info("position closed",
		zap.String("instId", instID),
		zap.String("side", string(pos.Side)),
		zap.String("size", pos.Size.String()),
		zap.String("posId", pos.ID),
	)
	return res, nil
}

// SetLeverage выставляет плечо по инструменту в режиме маржи tdMode.
func (c *Client) SetLeverage(ctx context.Context, instID string, leverage float64, posSide string) error {
	const op = "set_leverage"

	if leverage <= 0 {
		return &models.ExchangeError{Op: op, Err: fmt.Errorf("leverage <= 0")}
	}
	body := map[string]any{
		"instId":  instID,
		"lever":   strconv.FormatFloat(leverage, 'f', -1, 64),
		"mgnMode": c.tdMode,
	}
	// для isolated в long/short-режиме плечо ставится на сторону
	if c.tdMode == "isolated" && c.posMode == config.PosModeLongShort {
		body["posSide"] = posSide
	}

	_, err := call[leverageAck](ctx, c, op, http.MethodPost, "/api/v5/account/set-leverage", nil, body, true)
	return err
}

// OpenPosition ставит плечо и отправляет рыночный ордер в сторону сигнала.
func (c *Client) OpenPosition(ctx context.Context, req models.OrderRequest) (models.OrderResult, error) {
	const op = "order"

	if !req.Size.IsPositive() {
		return models.OrderResult{}, &models.ExchangeError{Op: op, Err: fmt.Errorf("size <= 0")}
	}

	posSide := "long"
	if req.Side == "sell" {
		posSide = "short"
	}

	if err := c.SetLeverage(ctx, req.InstID, req.Leverage, posSide); err != nil {
		return models.OrderResult{}, err
	}

	body := map[string]any{
		"instId":  req.InstID,
		"tdMode":  c.tdMode,
		"side":    req.Side,
		"ordType": "market",
		"sz":      req.Size.String(),
	}
	if req.ClientOrderID != "" {
		body["clOrdId"] = req.ClientOrderID
	}
	if c.posMode == config.PosModeLongShort {
		body["posSide"] = posSide
	}

	acks, err := call[orderAck](ctx, c, op, http.MethodPost, "/api/v5/trade/order", nil, body, true)
	// детальный статус ордера важнее общего code=1
	if len(acks) > 0 && acks[0].SCode != "" && acks[0].SCode != "0" {
		return models.OrderResult{}, &models.ExchangeError{Op: op, Code: acks[0].SCode, Msg: acks[0].SMsg}
	}
	if err != nil {
		return models.OrderResult{}, err
	}
	if len(acks) == 0 {
		return models.OrderResult{}, &models.ExchangeError{Op: op, Code: "0", Msg: "empty data"}
	}

	c.log.Info("order placed",
		zap.String("instId", req.InstID),
		zap.String("side", req.Side),
		zap.String("sz", req.Size.String()),
		zap.String("ordId", acks[0].OrdId),
	)
	return models.OrderResult{
		OrderID:       acks[0].OrdId,
		ClientOrderID: firstNonEmpty(acks[0].ClOrdId, req.ClientOrderID),
		InstID:        req.InstID,
		Side:          req.Side,
		Size:          req.Size,
	}, nil
}
