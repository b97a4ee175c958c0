package runner

import (
	"math"

	"tv_relay/internal/models"

	"github.com/shopspring/decimal"
)

// SizeInput — всё, что нужно сайзеру; побочных эффектов нет.
type SizeInput struct {
	Equity   float64 // USDT
	RiskPct  float64 // доля equity, 0 < r <= 1
	Leverage float64
	Price    float64 // mark-цена

	LotSz    decimal.Decimal // шаг sz
	MinSz    decimal.Decimal // минимальный sz
	CtVal    decimal.Decimal // номинал контракта в базовой монете
	MaxMktSz decimal.Decimal // 0 — без ограничения

	// ctVal в котируемой валюте (inverse, BTC-USD-SWAP): sz = notional / ctVal
	CtValInQuote bool
}

// CalcSizeByRiskWithMeta считает размер позиции в КОНТРАКТАХ (sz):
//
//	riskUSDT = equity * riskPct
//	notional = riskUSDT * leverage
//	qty      = notional / price      (в базовой монете)
//	sz       = qty / ctVal, вниз до lotSz
//
// Для контрактов с номиналом в котируемой валюте (inverse) цена не участвует:
//
//	sz       = notional / ctVal, вниз до lotSz
//
// Если после округления sz == 0 или меньше minSz — SizingError, ордер не отправляем.
func CalcSizeByRiskWithMeta(in SizeInput) (decimal.Decimal, error) {
	for name, v := range map[string]float64{
		"equity":   in.Equity,
		"leverage": in.Leverage,
		"price":    in.Price,
	} {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero, models.NewSizingError("%s must be > 0, got %v", name, v)
		}
	}
	if in.RiskPct <= 0 || in.RiskPct > 1 || math.IsNaN(in.RiskPct) {
		return decimal.Zero, models.NewSizingError("risk fraction must be in (0, 1], got %v", in.RiskPct)
	}

	lotSz := in.LotSz
	if !lotSz.IsPositive() {
		lotSz = decimal.NewFromInt(1)
	}
	minSz := in.MinSz
	if !minSz.IsPositive() {
		minSz = lotSz
	}
	ctVal := in.CtVal
	if !ctVal.IsPositive() {
		ctVal = decimal.NewFromInt(1)
	}

	riskUSDT := decimal.NewFromFloat(in.Equity).Mul(decimal.NewFromFloat(in.RiskPct))
	notional := riskUSDT.Mul(decimal.NewFromFloat(in.Leverage))
	price := decimal.NewFromFloat(in.Price)

	// одно деление, чтобы не копить ошибку округления перед Floor
	perContract := price.Mul(ctVal)
	if in.CtValInQuote {
		perContract = ctVal
	}
	steps := notional.Div(perContract.Mul(lotSz)).Floor()
	sz := steps.Mul(lotSz)

	if in.MaxMktSz.IsPositive() && sz.GreaterThan(in.MaxMktSz) {
		sz = in.MaxMktSz.Div(lotSz).Floor().Mul(lotSz)
	}

	if !sz.IsPositive() {
		return decimal.Zero, models.NewSizingError(
			"size rounds to zero: notional=%s price=%s ctVal=%s lotSz=%s",
			notional.StringFixed(4), price.String(), ctVal.String(), lotSz.String())
	}
	if sz.LessThan(minSz) {
		return decimal.Zero, models.NewSizingError("size %s below minimum %s", sz.String(), minSz.String())
	}
	return sz, nil
}
