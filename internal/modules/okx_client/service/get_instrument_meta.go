package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"tv_relay/internal/models"

	"github.com/shopspring/decimal"
)

// Instrument — сетка размеров инструмента плюс текущая mark-цена.
func (c *Client) Instrument(ctx context.Context, instID string) (models.Instrument, error) {
	const op = "instruments"

	q := url.Values{}
	q.Set("instType", "SWAP")
	q.Set("instId", instID)

	data, err := call[instrumentData](ctx, c, op, http.MethodGet, "/api/v5/public/instruments", q, nil, false)
	if err != nil {
		return models.Instrument{}, err
	}
	if len(data) == 0 {
		return models.Instrument{}, &models.ExchangeError{Op: op, Code: "0", Msg: fmt.Sprintf("instrument %s not found", instID)}
	}

	inst := data[0]
	if inst.State != "" && inst.State != "live" {
		return models.Instrument{}, &models.ExchangeError{Op: op, Code: "0", Msg: fmt.Sprintf("instrument %s not live: state=%s", instID, inst.State)}
	}

	parsePos := func(name, s string) (decimal.Decimal, error) {
		if s == "" {
			return decimal.Zero, fmt.Errorf("%s empty", name)
		}
		v, err := decimal.NewFromString(s)
		if err != nil || !v.IsPositive() {
			return decimal.Zero, fmt.Errorf("%s parse: %v (%q)", name, err, s)
		}
		return v, nil
	}

	lotSz, err := parsePos("lotSz", inst.LotSz)
	if err != nil {
		return models.Instrument{}, &models.ExchangeError{Op: op, Err: err}
	}
	minSz, err := parsePos("minSz", inst.MinSz)
	if err != nil {
		return models.Instrument{}, &models.ExchangeError{Op: op, Err: err}
	}
	ctVal, err := parsePos("ctVal", inst.CtVal)
	if err != nil {
		return models.Instrument{}, &models.ExchangeError{Op: op, Err: err}
	}
	if inst.CtMult != "" {
		if m, e := decimal.NewFromString(inst.CtMult); e == nil && m.IsPositive() {
			ctVal = ctVal.Mul(m)
		}
	}

	maxMktSz := decimal.Zero
	if inst.MaxMktSz != "" {
		if v, e := decimal.NewFromString(inst.MaxMktSz); e == nil && v.IsPositive() {
			maxMktSz = v
		}
	}

	markPx, err := c.markPrice(ctx, instID)
	if err != nil {
		return models.Instrument{}, err
	}

	kind := models.ContractLinear
	switch strings.ToLower(strings.TrimSpace(inst.CtType)) {
	case "", "linear":
	case "inverse":
		kind = models.ContractInverse
	default:
		return models.Instrument{}, &models.ExchangeError{Op: op, Code: "0", Msg: fmt.Sprintf("instrument %s: unsupported ctType %q", instID, inst.CtType)}
	}

	return models.Instrument{
		InstID:    inst.InstID,
		Kind:      kind,
		CtValCcy:  inst.CtValCcy,
		SettleCcy: inst.SettleCcy,
		LotSz:     lotSz,
		MinSz:     minSz,
		CtVal:     ctVal,
		MaxMktSz:  maxMktSz,
		MarkPx:    markPx,
	}, nil
}

func (c *Client) markPrice(ctx context.Context, instID string) (float64, error) {
	const op = "mark_price"

	q := url.Values{}
	q.Set("instType", "SWAP")
	q.Set("instId", instID)

	data, err := call[markPriceData](ctx, c, op, http.MethodGet, "/api/v5/public/mark-price", q, nil, false)
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, &models.ExchangeError{Op: op, Code: "0", Msg: "empty data"}
	}
	px, err := strconv.ParseFloat(data[0].MarkPx, 64)
	if err != nil || px <= 0 {
		return 0, &models.ExchangeError{Op: op, Code: "0", Msg: fmt.Sprintf("bad markPx %q", data[0].MarkPx)}
	}
	return px, nil
}
