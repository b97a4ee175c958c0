package service

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"tv_relay/internal/models"
)

// Equity — equity счёта в equity_ccy (по умолчанию USDT), иначе totalEq в USD.
func (c *Client) Equity(ctx context.Context) (float64, error) {
	q := url.Values{}
	if c.equityCcy != "" {
		q.Set("ccy", c.equityCcy)
	}
	data, err := call[balanceData](ctx, c, "balance", http.MethodGet, "/api/v5/account/balance", q, nil, true)
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, &models.ExchangeError{Op: "balance", Code: "0", Msg: "empty data"}
	}

	raw := data[0].TotalEq
	for _, d := range data[0].Details {
		if strings.EqualFold(d.Ccy, c.equityCcy) && d.Eq != "" {
			raw = d.Eq
			break
		}
	}
	eq, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &models.ExchangeError{Op: "balance", Code: "0", Msg: "bad equity value " + strconv.Quote(raw)}
	}
	return eq, nil
}

// AccountConfig — uid и режим позиций аккаунта.
func (c *Client) AccountConfig(ctx context.Context) (AccountConfig, error) {
	data, err := call[accountConfigData](ctx, c, "account_config", http.MethodGet, "/api/v5/account/config", nil, nil, true)
	if err != nil {
		return AccountConfig{}, err
	}
	if len(data) == 0 {
		return AccountConfig{}, &models.ExchangeError{Op: "account_config", Code: "0", Msg: "empty data"}
	}
	mode := strings.TrimSuffix(data[0].PosMode, "_mode")
	return AccountConfig{UID: data[0].Uid, PosMode: mode}, nil
}
