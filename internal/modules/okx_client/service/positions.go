package service

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"tv_relay/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Positions — все ненулевые ноги по инструменту. В net-режиме нога одна,
// в long_short может быть и long, и short одновременно. Пусто — позиции нет.
func (c *Client) Positions(ctx context.Context, instID string) ([]models.Position, error) {
	q := url.Values{}
	q.Set("instType", "SWAP")
	q.Set("instId", instID)

	data, err := call[positionData](ctx, c, "positions", http.MethodGet, "/api/v5/account/positions", q, nil, true)
	if err != nil {
		return nil, err
	}

	var out []models.Position
	for _, d := range data {
		if d.InstId != instID {
			continue
		}
		// размер позиции (контракты); в net-режиме знак = сторона
		sz, err := decimal.NewFromString(d.Pos)
		if err != nil {
			c.log.Warn("skip position with bad size", zap.String("instId", d.InstId), zap.String("pos", d.Pos))
			continue
		}
		if sz.IsZero() {
			continue
		}

		side := models.PositionLong
		switch d.PosSide {
		case "short":
			side = models.PositionShort
		case "long":
		default:
			if sz.IsNegative() {
				side = models.PositionShort
			}
		}

		avgPx, _ := strconv.ParseFloat(d.AvgPx, 64)
		markPx, _ := strconv.ParseFloat(d.MarkPx, 64)
		lev, _ := strconv.ParseFloat(d.Lever, 64)

		out = append(out, models.Position{
			ID:         d.PosId,
			InstID:     d.InstId,
			Side:       side,
			PosSide:    d.PosSide,
			Size:       sz.Abs(),
			EntryPrice: avgPx,
			MarkPrice:  markPx,
			Leverage:   lev,
			MarginMode: d.MgnMode,
		})
	}
	return out, nil
}
