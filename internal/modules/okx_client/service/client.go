package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	"tv_relay/internal/models"
	"tv_relay/internal/modules/config"
	"tv_relay/pkg/tracing"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Client — REST-клиент OKX V5 для перпетуалов (SWAP).
// Реализует runner.Exchange; ретраев нет.
type Client struct {
	http *resty.Client
	log  *zap.Logger

	apiKey    string
	apiSecret string
	passph    string

	tdMode    string // cross / isolated
	posMode   string // net / long_short
	equityCcy string

	now func() time.Time
}

func NewClient(cfg *config.Config, log *zap.Logger) (*Client, error) {
	if err := cfg.RequireCredentials(); err != nil {
		return nil, err
	}
	return New(cfg.OKX, log), nil
}

// New — без проверки ключей (нужен CLI и тестам).
func New(cfg config.OKX, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://www.okx.com"
	}

	r := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetHeader("Content-Type", "application/json")
	if cfg.Demo {
		r.SetHeader("x-simulated-trading", "1")
	}

	tdMode := cfg.TdMode
	if tdMode == "" {
		tdMode = "cross"
	}
	posMode := cfg.PosMode
	if posMode == "" {
		posMode = config.PosModeNet
	}

	return &Client{
		http:      r,
		log:       log.Named("okx"),
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		passph:    cfg.Passphrase,
		tdMode:    tdMode,
		posMode:   posMode,
		equityCcy: cfg.EquityCcy,
		now:       time.Now,
	}
}

func (c *Client) sign(ts, method, requestPath, body string) string {
	h := hmac.New(sha256.New, []byte(c.apiSecret))
	h.Write([]byte(ts + strings.ToUpper(method) + requestPath + body))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

type envelope[T any] struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []T    `json:"data"`
}

// call выполняет запрос и разбирает обёртку {code,msg,data}.
// При code != "0" data тоже возвращается: в ней sCode/sMsg конкретного ордера.
func call[T any](
	ctx context.Context,
	c *Client,
	op string,
	method string,
	path string,
	query url.Values,
	body any,
	private bool,
) (data []T, err error) {
	span, ctx := tracing.StartSpan(ctx, "okx."+op)
	defer func() { tracing.Finish(span, err) }()

	requestPath := path
	if len(query) > 0 {
		requestPath += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		payload, err = sonic.Marshal(body)
		if err != nil {
			return nil, &models.ExchangeError{Op: op, Err: fmt.Errorf("marshal: %w", err)}
		}
	}

	req := c.http.R().SetContext(ctx)
	if payload != nil {
		req.SetBody(payload)
	}
	if private {
		ts := c.now().UTC().Format("2006-01-02T15:04:05.000Z")
		req.SetHeader("OK-ACCESS-KEY", c.apiKey)
		req.SetHeader("OK-ACCESS-SIGN", c.sign(ts, method, requestPath, string(payload)))
		req.SetHeader("OK-ACCESS-TIMESTAMP", ts)
		req.SetHeader("OK-ACCESS-PASSPHRASE", c.passph)
	}

	started := c.now()
	resp, err := req.Execute(method, requestPath)
	if err != nil {
		c.log.Error("request failed", zap.String("op", op), zap.Error(err))
		return nil, &models.ExchangeError{Op: op, Err: err}
	}
	c.log.Debug("request",
		zap.String("op", op),
		zap.String("path", requestPath),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("latency", c.now().Sub(started)),
	)

	var wrap envelope[T]
	decodeErr := sonic.Unmarshal(resp.Body(), &wrap)

	if resp.StatusCode()/100 != 2 {
		return wrap.Data, &models.ExchangeError{
			Op:         op,
			HTTPStatus: resp.StatusCode(),
			Code:       wrap.Code,
			Msg:        firstNonEmpty(wrap.Msg, truncate(string(resp.Body()), 256)),
		}
	}
	if decodeErr != nil {
		return nil, &models.ExchangeError{Op: op, HTTPStatus: resp.StatusCode(), Err: fmt.Errorf("decode: %w", decodeErr)}
	}
	if wrap.Code != "0" {
		return wrap.Data, &models.ExchangeError{Op: op, HTTPStatus: resp.StatusCode(), Code: wrap.Code, Msg: wrap.Msg}
	}
	return wrap.Data, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
