package service

import (
	"crypto/subtle"
	"math"
	"strconv"
	"strings"

	"tv_relay/internal/models"
	"tv_relay/internal/modules/config"

	"github.com/bytedance/sonic"
)

// ParseOptions — дефолты и ограничения из конфига.
type ParseOptions struct {
	DefaultLeverage float64
	DefaultRiskPct  float64
	MaxLeverage     float64
	AllowedCoins    []string
	InstSuffix      string
	Passphrase      string
}

func NewParseOptions(cfg *config.Config) ParseOptions {
	return ParseOptions{
		DefaultLeverage: cfg.Trading.DefaultLeverage,
		DefaultRiskPct:  cfg.Trading.DefaultRiskPct,
		MaxLeverage:     cfg.Trading.MaxLeverage,
		AllowedCoins:    cfg.Trading.AllowedCoins,
		InstSuffix:      cfg.OKX.InstSuffix,
		Passphrase:      cfg.Webhook.Passphrase,
	}
}

// alertRequest — сырой JSON от TradingView. Числа в шаблонах алертов часто в кавычках.
type alertRequest struct {
	Action     string     `json:"action"`
	Signal     string     `json:"signal"`
	Coin       string     `json:"coin"`
	Symbol     string     `json:"symbol"`
	Ticker     string     `json:"ticker"`
	Leverage   flexNumber `json:"leverage"`
	RiskPct    flexNumber `json:"risk_pct"`
	Mode       string     `json:"mode"`
	Passphrase string     `json:"passphrase"`
}

// flexNumber принимает 10, "10" и null; ошибку формата откладывает до валидации.
type flexNumber struct {
	set   bool
	bad   bool
	raw   string
	value float64
}

func (f *flexNumber) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		uq, err := strconv.Unquote(s)
		if err != nil {
			f.set, f.bad, f.raw = true, true, s
			return nil
		}
		s = strings.TrimSpace(uq)
		if s == "" {
			return nil
		}
	}
	f.set, f.raw = true, s
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		f.bad = true
		return nil
	}
	f.value = v
	return nil
}

// ParseAlert разбирает и валидирует тело вебхука.
// Никаких обращений к бирже: ошибка здесь значит, что биржу не трогали.
func ParseAlert(body []byte, opts ParseOptions) (models.Alert, error) {
	var req alertRequest
	if err := sonic.Unmarshal(body, &req); err != nil {
		return models.Alert{}, models.NewValidationError("", "malformed JSON: %v", err)
	}

	if opts.Passphrase != "" &&
		subtle.ConstantTimeCompare([]byte(req.Passphrase), []byte(opts.Passphrase)) != 1 {
		return models.Alert{}, models.ErrUnauthorized
	}

	rawAction := firstNonEmpty(req.Action, req.Signal)
	if rawAction == "" {
		return models.Alert{}, models.NewValidationError("action", "no action specified in alert")
	}
	action, ok := models.ParseAction(strings.ToUpper(strings.TrimSpace(rawAction)))
	if !ok {
		return models.Alert{}, models.NewValidationError("action", "unsupported value %q (want BUY or SELL)", rawAction)
	}
	alert := models.Alert{Action: action}

	coin := strings.ToUpper(strings.TrimSpace(firstNonEmpty(req.Coin, req.Symbol, req.Ticker)))
	if coin == "" {
		return alert, models.NewValidationError("coin", "empty symbol")
	}
	if len(opts.AllowedCoins) > 0 && !contains(opts.AllowedCoins, coin) {
		return alert, models.NewValidationError("coin", "%s is not in the allowed list", coin)
	}
	alert.Coin = coin
	alert.InstID = InstID(coin, opts.InstSuffix)

	switch {
	case !req.Leverage.set:
		alert.Leverage = opts.DefaultLeverage
		alert.LeverageDefaulted = true
	case req.Leverage.bad:
		return alert, models.NewValidationError("leverage", "not a number: %s", req.Leverage.raw)
	case req.Leverage.value <= 0:
		return alert, models.NewValidationError("leverage", "must be > 0, got %v", req.Leverage.value)
	case opts.MaxLeverage > 0 && req.Leverage.value > opts.MaxLeverage:
		return alert, models.NewValidationError("leverage", "%v exceeds max %v", req.Leverage.value, opts.MaxLeverage)
	default:
		alert.Leverage = req.Leverage.value
	}

	switch {
	case !req.RiskPct.set:
		alert.RiskPct = opts.DefaultRiskPct
		alert.RiskDefaulted = true
	case req.RiskPct.bad:
		return alert, models.NewValidationError("risk_pct", "not a number: %s", req.RiskPct.raw)
	case req.RiskPct.value <= 0 || req.RiskPct.value > 1:
		return alert, models.NewValidationError("risk_pct", "must be a fraction in (0, 1], got %v", req.RiskPct.value)
	default:
		alert.RiskPct = req.RiskPct.value
	}

	alert.Mode = strings.ToLower(strings.TrimSpace(req.Mode))
	if alert.Mode == "" {
		alert.Mode = models.ModeReverse
	}
	return alert, nil
}

// InstID: "BTC" -> "BTC-USDT-SWAP"; готовый instId ("ETH-USD-SWAP") не трогаем.
func InstID(coin, suffix string) string {
	if strings.Contains(coin, "-") || suffix == "" {
		return coin
	}
	return coin + strings.ToUpper(suffix)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
