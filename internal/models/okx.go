package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

type ContractKind string

const (
	ContractLinear  ContractKind = "linear"  // ctVal в базовой монете: 0.01 BTC
	ContractInverse ContractKind = "inverse" // ctVal в котируемой валюте: 100 USD
)

// Instrument — сетка размеров SWAP-инструмента и текущая mark-цена.
type Instrument struct {
	InstID    string
	Kind      ContractKind
	CtValCcy  string
	SettleCcy string

	LotSz    decimal.Decimal // шаг sz
	MinSz    decimal.Decimal
	CtVal    decimal.Decimal // ctVal * ctMult
	MaxMktSz decimal.Decimal // 0 — без ограничения
	MarkPx   float64
}

// CtValInQuote — номинал контракта задан в котируемой валюте (BTC-USD-SWAP: 100 USD),
// а не в базовой монете. Тогда число контрактов = notional / ctVal, без деления на цену.
func (i Instrument) CtValInQuote() bool {
	if i.Kind == ContractInverse {
		return true
	}
	if i.CtValCcy == "" {
		return false
	}
	parts := strings.Split(i.InstID, "-")
	return len(parts) >= 2 && strings.EqualFold(i.CtValCcy, parts[1])
}

// AccountState — снимок счёта на момент запроса, не кэшируется.
type AccountState struct {
	Equity float64
	// все ненулевые ноги по инструменту; в long_short их может быть две
	Positions []Position
}
