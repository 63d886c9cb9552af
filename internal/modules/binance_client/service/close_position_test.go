package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sniper_bot/internal/models"
	"sniper_bot/internal/modules/config"
)

func newTestClient(baseURL string) *Client {
	cfg := &config.Config{}
	cfg.Binance.APIKey = "key"
	cfg.Binance.APISecret = "secret"
	cfg.Binance.RestURL = baseURL
	return NewClient(cfg)
}

type restCall struct {
	method string
	path   string
	query  map[string]string
}

func recordCall(r *http.Request) restCall {
	q := map[string]string{}
	for k, v := range r.URL.Query() {
		q[k] = v[0]
	}
	return restCall{method: r.Method, path: r.URL.Path, query: q}
}

// Брекеты снимаются до закрытия, количество берётся с биржи.
// Локальный учёт мог разойтись с биржей после добивки до minNotional.
func TestClosePositionMarketUsesExchangeAmt(t *testing.T) {
	var calls []restCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, recordCall(r))
		switch r.URL.Path {
		case "/fapi/v1/allOpenOrders":
			w.Write([]byte(`{"code":200}`))
		case "/fapi/v2/positionRisk":
			w.Write([]byte(`[{"symbol":"ETHUSDT","positionAmt":"0.011"}]`))
		case "/fapi/v1/order":
			w.Write([]byte(`{"orderId":1,"symbol":"ETHUSDT","status":"FILLED"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	// в учёте 0.01, на бирже 0.011 — закрыть надо биржевые
	err := c.ClosePositionMarket(context.Background(), "ETHUSDT", models.SideLong, 0.01)
	require.NoError(t, err)

	require.Len(t, calls, 3)
	assert.Equal(t, "DELETE", calls[0].method)
	assert.Equal(t, "/fapi/v1/allOpenOrders", calls[0].path)
	assert.Equal(t, "/fapi/v2/positionRisk", calls[1].path)

	order := calls[2]
	assert.Equal(t, "/fapi/v1/order", order.path)
	assert.Equal(t, "SELL", order.query["side"])
	assert.Equal(t, "0.011", order.query["quantity"])
	assert.Equal(t, "true", order.query["reduceOnly"])
}

// Сторона выхода идёт от знака positionAmt, а не от переданной стороны.
func TestClosePositionMarketShortSideFromSign(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fapi/v1/allOpenOrders":
			w.Write([]byte(`{"code":200}`))
		case "/fapi/v2/positionRisk":
			w.Write([]byte(`[{"symbol":"SOLUSDT","positionAmt":"-2"}]`))
		case "/fapi/v1/order":
			assert.Equal(t, "BUY", r.URL.Query().Get("side"))
			assert.Equal(t, "2", r.URL.Query().Get("quantity"))
			w.Write([]byte(`{"orderId":2,"symbol":"SOLUSDT","status":"FILLED"}`))
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	err := c.ClosePositionMarket(context.Background(), "SOLUSDT", models.SideShort, 2)
	require.NoError(t, err)
}

// Позиции на бирже уже нет — рыночный ордер не шлём.
func TestClosePositionMarketAlreadyFlat(t *testing.T) {
	orders := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fapi/v1/allOpenOrders":
			w.Write([]byte(`{"code":200}`))
		case "/fapi/v2/positionRisk":
			w.Write([]byte(`[{"symbol":"ETHUSDT","positionAmt":"0"}]`))
		case "/fapi/v1/order":
			orders++
			w.Write([]byte(`{}`))
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	err := c.ClosePositionMarket(context.Background(), "ETHUSDT", models.SideLong, 0.5)
	require.NoError(t, err)
	assert.Zero(t, orders)
}

func TestGetBalanceTotalAndAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fapi/v2/balance", r.URL.Path)
		w.Write([]byte(`[
			{"asset":"BNB","balance":"1","availableBalance":"1"},
			{"asset":"USDT","balance":"1250.50","availableBalance":"1100.25"}
		]`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	total, available, err := c.GetBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1250.50, total)
	assert.Equal(t, 1100.25, available)
}
