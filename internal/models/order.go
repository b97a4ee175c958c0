package models

import "github.com/shopspring/decimal"

// OrderRequest — производное значение, нигде не хранится.
type OrderRequest struct {
	InstID        string
	Side          string // buy / sell
	Size          decimal.Decimal
	Leverage      float64
	ClientOrderID string
}

type OrderResult struct {
	OrderID       string
	ClientOrderID string
	InstID        string
	Side          string
	Size          decimal.Decimal
	PositionID    string
}
