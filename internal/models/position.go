package models

import "github.com/shopspring/decimal"

type PositionSide string

const (
	PositionLong  PositionSide = "long"
	PositionShort PositionSide = "short"
)

// Position — открытая позиция по инструменту.
type Position struct {
	ID         string
	InstID     string
	Side       PositionSide
	PosSide    string          // net / long / short, как вернула биржа
	Size       decimal.Decimal // в контрактах, всегда > 0
	EntryPrice float64
	MarkPrice  float64
	Leverage   float64
	MarginMode string // cross / isolated
}

// Is — позиция открыта в ту же сторону, что и сигнал.
func (p Position) Is(action Action) bool {
	switch action {
	case ActionBuy:
		return p.Side == PositionLong
	case ActionSell:
		return p.Side == PositionShort
	}
	return false
}
