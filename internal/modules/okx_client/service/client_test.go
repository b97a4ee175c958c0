package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"tv_relay/internal/models"
	"tv_relay/internal/modules/config"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	uri    string
	header http.Header
	body   map[string]any
}

// okxStub — httptest-сервер с ответами по пути.
type okxStub struct {
	mu     sync.Mutex
	reqs   []recorded
	routes map[string]string
	status map[string]int
}

func newStub(t *testing.T) (*okxStub, *Client) {
	t.Helper()
	s := &okxStub{routes: map[string]string{}, status: map[string]int{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		if len(raw) > 0 {
			_ = sonic.Unmarshal(raw, &body)
		}
		s.mu.Lock()
		s.reqs = append(s.reqs, recorded{method: r.Method, uri: r.URL.RequestURI(), header: r.Header.Clone(), body: body})
		resp, ok := s.routes[r.URL.Path]
		code := s.status[r.URL.Path]
		s.mu.Unlock()

		if !ok {
			http.NotFound(w, r)
			return
		}
		if code == 0 {
			code = http.StatusOK
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = w.Write([]byte(resp))
	}))
	t.Cleanup(srv.Close)

	c := New(config.OKX{
		BaseURL:    srv.URL,
		APIKey:     "key",
		APISecret:  "secret",
		Passphrase: "pass",
		Demo:       true,
		TdMode:     "cross",
		PosMode:    config.PosModeNet,
		EquityCcy:  "USDT",
		Timeout:    2 * time.Second,
	}, nil)
	c.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return s, c
}

func (s *okxStub) on(path, resp string) { s.routes[path] = resp }

func (s *okxStub) requests() []recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]recorded(nil), s.reqs...)
}

func TestEquitySignsRequest(t *testing.T) {
	stub, c := newStub(t)
	stub.on("/api/v5/account/balance", `{"code":"0","msg":"","data":[{"totalEq":"1500.5","details":[{"ccy":"USDT","eq":"1000.25"}]}]}`)

	eq, err := c.Equity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1000.25, eq)

	reqs := stub.requests()
	require.Len(t, reqs, 1)
	h := reqs[0].header
	assert.Equal(t, "/api/v5/account/balance?ccy=USDT", reqs[0].uri)
	assert.Equal(t, "key", h.Get("OK-ACCESS-KEY"))
	assert.Equal(t, "pass", h.Get("OK-ACCESS-PASSPHRASE"))
	assert.Equal(t, "2024-05-01T12:00:00.000Z", h.Get("OK-ACCESS-TIMESTAMP"))
	assert.Equal(t, "1", h.Get("x-simulated-trading"))

	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte("2024-05-01T12:00:00.000ZGET/api/v5/account/balance?ccy=USDT"))
	assert.Equal(t, base64.StdEncoding.EncodeToString(mac.Sum(nil)), h.Get("OK-ACCESS-SIGN"))
}

func TestEquityFallsBackToTotal(t *testing.T) {
	stub, c := newStub(t)
	stub.on("/api/v5/account/balance", `{"code":"0","data":[{"totalEq":"42.5","details":[]}]}`)

	eq, err := c.Equity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42.5, eq)
}

func TestEquityAuthFailure(t *testing.T) {
	stub, c := newStub(t)
	stub.on("/api/v5/account/balance", `{"code":"50111","msg":"Invalid OK-ACCESS-KEY","data":[]}`)
	stub.status["/api/v5/account/balance"] = http.StatusUnauthorized

	_, err := c.Equity(context.Background())

	var exErr *models.ExchangeError
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, http.StatusUnauthorized, exErr.HTTPStatus)
	assert.Equal(t, "50111", exErr.Code)
	assert.Equal(t, "balance", exErr.Op)
}

func TestNetworkError(t *testing.T) {
	c := New(config.OKX{BaseURL: "http://127.0.0.1:1", APIKey: "k", APISecret: "s", Passphrase: "p", Timeout: time.Second}, nil)

	_, err := c.Equity(context.Background())

	var exErr *models.ExchangeError
	require.ErrorAs(t, err, &exErr)
	assert.Error(t, exErr.Err)
}

func TestPositionNetShort(t *testing.T) {
	stub, c := newStub(t)
	stub.on("/api/v5/account/positions", `{"code":"0","data":[
		{"instId":"ETH-USDT-SWAP","posId":"9","posSide":"net","pos":"3","avgPx":"3000"},
		{"instId":"BTC-USDT-SWAP","posId":"7","posSide":"net","pos":"-2.5","avgPx":"61000.1","markPx":"60000","lever":"5","mgnMode":"cross"}
	]}`)

	legs, err := c.Positions(context.Background(), "BTC-USDT-SWAP")
	require.NoError(t, err)
	require.Len(t, legs, 1)
	pos := legs[0]
	assert.Equal(t, "7", pos.ID)
	assert.Equal(t, models.PositionShort, pos.Side)
	assert.Equal(t, "2.5", pos.Size.String())
	assert.Equal(t, 61000.1, pos.EntryPrice)
	assert.Equal(t, 5.0, pos.Leverage)
	assert.Equal(t, "cross", pos.MarginMode)
}

func TestPositionFlat(t *testing.T) {
	stub, c := newStub(t)
	stub.on("/api/v5/account/positions", `{"code":"0","data":[{"instId":"BTC-USDT-SWAP","posSide":"net","pos":"0"}]}`)

	legs, err := c.Positions(context.Background(), "BTC-USDT-SWAP")
	require.NoError(t, err)
	assert.Empty(t, legs)
}

func TestPositionsHedgeModeReturnsBothLegs(t *testing.T) {
	stub, c := newStub(t)
	stub.on("/api/v5/account/positions", `{"code":"0","data":[
		{"instId":"BTC-USDT-SWAP","posId":"L","posSide":"long","pos":"3","mgnMode":"cross"},
		{"instId":"BTC-USDT-SWAP","posId":"S","posSide":"short","pos":"2","mgnMode":"cross"}
	]}`)

	legs, err := c.Positions(context.Background(), "BTC-USDT-SWAP")
	require.NoError(t, err)
	require.Len(t, legs, 2)
	assert.Equal(t, "L", legs[0].ID)
	assert.Equal(t, models.PositionLong, legs[0].Side)
	assert.Equal(t, "S", legs[1].ID)
	assert.Equal(t, models.PositionShort, legs[1].Side)
	assert.Equal(t, "2", legs[1].Size.String())
}

func TestInstrumentWithMarkPrice(t *testing.T) {
	stub, c := newStub(t)
	stub.on("/api/v5/public/instruments", `{"code":"0","data":[{"instId":"BTC-USDT-SWAP","lotSz":"0.01","minSz":"0.01","ctVal":"0.01","ctMult":"1","maxMktSz":"10000","state":"live"}]}`)
	stub.on("/api/v5/public/mark-price", `{"code":"0","data":[{"instId":"BTC-USDT-SWAP","markPx":"50000.5"}]}`)

	inst, err := c.Instrument(context.Background(), "BTC-USDT-SWAP")
	require.NoError(t, err)
	assert.Equal(t, "0.01", inst.LotSz.String())
	assert.Equal(t, "0.01", inst.CtVal.String())
	assert.Equal(t, "10000", inst.MaxMktSz.String())
	assert.Equal(t, 50000.5, inst.MarkPx)
	assert.Equal(t, models.ContractLinear, inst.Kind)
	assert.False(t, inst.CtValInQuote())

	// публичные запросы без подписи
	for _, r := range stub.requests() {
		assert.Empty(t, r.header.Get("OK-ACCESS-SIGN"))
	}
}

func TestInstrumentInverse(t *testing.T) {
	stub, c := newStub(t)
	stub.on("/api/v5/public/instruments", `{"code":"0","data":[{"instId":"BTC-USD-SWAP","lotSz":"1","minSz":"1","ctVal":"100","ctMult":"1","ctType":"inverse","ctValCcy":"USD","settleCcy":"BTC","state":"live"}]}`)
	stub.on("/api/v5/public/mark-price", `{"code":"0","data":[{"instId":"BTC-USD-SWAP","markPx":"50000"}]}`)

	inst, err := c.Instrument(context.Background(), "BTC-USD-SWAP")
	require.NoError(t, err)
	assert.Equal(t, models.ContractInverse, inst.Kind)
	assert.Equal(t, "USD", inst.CtValCcy)
	assert.Equal(t, "BTC", inst.SettleCcy)
	assert.True(t, inst.CtValInQuote())
}

func TestInstrumentUnknownContractType(t *testing.T) {
	stub, c := newStub(t)
	stub.on("/api/v5/public/instruments", `{"code":"0","data":[{"instId":"X-USDT-SWAP","lotSz":"1","minSz":"1","ctVal":"1","ctType":"quanto","state":"live"}]}`)
	stub.on("/api/v5/public/mark-price", `{"code":"0","data":[{"markPx":"1"}]}`)

	_, err := c.Instrument(context.Background(), "X-USDT-SWAP")

	var exErr *models.ExchangeError
	require.ErrorAs(t, err, &exErr)
	assert.Contains(t, exErr.Msg, "ctType")
}

func TestInstrumentNotFound(t *testing.T) {
	stub, c := newStub(t)
	stub.on("/api/v5/public/instruments", `{"code":"0","data":[]}`)

	_, err := c.Instrument(context.Background(), "NOPE-USDT-SWAP")

	var exErr *models.ExchangeError
	require.ErrorAs(t, err, &exErr)
	assert.Contains(t, exErr.Msg, "not found")
}

func TestClosePositionLongShortMode(t *testing.T) {
	stub, c := newStub(t)
	c.posMode = config.PosModeLongShort
	stub.on("/api/v5/trade/close-position", `{"code":"0","data":[{"instId":"BTC-USDT-SWAP","posSide":"long","clOrdId":""}]}`)

	res, err := c.ClosePosition(context.Background(), "BTC-USDT-SWAP", models.Position{
		ID: "7", Side: models.PositionLong, Size: decimal.RequireFromString("0.5"), MarginMode: "isolated",
	})
	require.NoError(t, err)
	assert.Equal(t, "sell", res.Side)
	assert.Equal(t, "0.5", res.Size.String())
	assert.Equal(t, "7", res.PositionID)

	reqs := stub.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].method)
	assert.Equal(t, "BTC-USDT-SWAP", reqs[0].body["instId"])
	assert.Equal(t, "isolated", reqs[0].body["mgnMode"])
	assert.Equal(t, "long", reqs[0].body["posSide"])
}

func TestOpenPositionSetsLeverageThenOrders(t *testing.T) {
	stub, c := newStub(t)
	stub.on("/api/v5/account/set-leverage", `{"code":"0","data":[{"lever":"10","mgnMode":"cross","instId":"BTC-USDT-SWAP"}]}`)
	stub.on("/api/v5/trade/order", `{"code":"0","data":[{"ordId":"123","clOrdId":"abc","sCode":"0","sMsg":""}]}`)

	res, err := c.OpenPosition(context.Background(), models.OrderRequest{
		InstID: "BTC-USDT-SWAP", Side: "sell", Size: decimal.RequireFromString("0.8"), Leverage: 10, ClientOrderID: "abc",
	})
	require.NoError(t, err)
	assert.Equal(t, "123", res.OrderID)
	assert.Equal(t, "abc", res.ClientOrderID)
	assert.Equal(t, "sell", res.Side)

	reqs := stub.requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "/api/v5/account/set-leverage", reqs[0].uri)
	assert.Equal(t, "10", reqs[0].body["lever"])
	assert.Equal(t, "/api/v5/trade/order", reqs[1].uri)
	assert.Equal(t, "market", reqs[1].body["ordType"])
	assert.Equal(t, "0.8", reqs[1].body["sz"])
	assert.Equal(t, "cross", reqs[1].body["tdMode"])
	assert.NotContains(t, reqs[1].body, "posSide")
}

func TestOpenPositionRejected(t *testing.T) {
	stub, c := newStub(t)
	stub.on("/api/v5/account/set-leverage", `{"code":"0","data":[{}]}`)
	stub.on("/api/v5/trade/order", `{"code":"1","msg":"All operations failed","data":[{"ordId":"","sCode":"51008","sMsg":"Order failed. Insufficient margin"}]}`)

	_, err := c.OpenPosition(context.Background(), models.OrderRequest{
		InstID: "BTC-USDT-SWAP", Side: "buy", Size: decimal.NewFromInt(1), Leverage: 3,
	})

	var exErr *models.ExchangeError
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, "51008", exErr.Code)
	assert.Contains(t, exErr.Msg, "Insufficient margin")
}

func TestOpenPositionLeverageFailureSkipsOrder(t *testing.T) {
	stub, c := newStub(t)
	stub.on("/api/v5/account/set-leverage", `{"code":"59102","msg":"Leverage exceeds the maximum","data":[]}`)

	_, err := c.OpenPosition(context.Background(), models.OrderRequest{
		InstID: "BTC-USDT-SWAP", Side: "buy", Size: decimal.NewFromInt(1), Leverage: 500,
	})

	var exErr *models.ExchangeError
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, "set_leverage", exErr.Op)
	assert.Len(t, stub.requests(), 1)
}

func TestAccountConfig(t *testing.T) {
	stub, c := newStub(t)
	stub.on("/api/v5/account/config", `{"code":"0","data":[{"uid":"44705892343619584","posMode":"long_short_mode"}]}`)

	acc, err := c.AccountConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "44705892343619584", acc.UID)
	assert.Equal(t, config.PosModeLongShort, acc.PosMode)
}
