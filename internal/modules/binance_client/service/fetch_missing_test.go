package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Бэкфилл отдаёт и свечи, и суточное изменение — без тикера фильтр
// по 24h видел бы нули до первого батча miniTicker.
func TestFetchMissingData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fapi/v1/klines":
			assert.Equal(t, "ETHUSDT", r.URL.Query().Get("symbol"))
			assert.Equal(t, "1m", r.URL.Query().Get("interval"))
			w.Write([]byte(`[
				[1700000000000,"1999.1","2001","1998","2000.5","10",1700000059999],
				[1700000060000,"2000.5","2003","2000","2002.0","12",1700000119999]
			]`))
		case "/fapi/v1/ticker/24hr":
			w.Write([]byte(`{"symbol":"ETHUSDT","priceChangePercent":"-2.340"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	hist, change24h, err := c.FetchMissingData(context.Background(), "ETHUSDT", 60)
	require.NoError(t, err)

	require.Len(t, hist, 2)
	assert.Equal(t, 2000.5, hist[0].Close)
	assert.Equal(t, int64(1_700_000_000), hist[0].Ts)
	assert.Equal(t, 2002.0, hist[1].Close)
	assert.Equal(t, -2.34, change24h)
}
