package models

type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// ParseAction принимает только BUY / SELL.
func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case ActionBuy, ActionSell:
		return Action(s), true
	}
	return "", false
}

// OrderSide — сторона ордера на открытие.
func (a Action) OrderSide() string {
	if a == ActionSell {
		return "sell"
	}
	return "buy"
}

const ModeReverse = "reverse"

// Alert — провалидированный сигнал TradingView, живёт один запрос.
type Alert struct {
	Action   Action
	Coin     string
	InstID   string
	Leverage float64
	RiskPct  float64 // доля, 0 < r <= 1
	Mode     string

	LeverageDefaulted bool
	RiskDefaulted     bool
}
