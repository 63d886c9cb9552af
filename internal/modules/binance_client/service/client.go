package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"sniper_bot/internal/models"
	"sniper_bot/internal/modules/config"
)

// Client — REST к Binance USDT-M futures. Фильтры инструментов кэшируются
// после Connect, без них реальные ордера не отправляем.
type Client struct {
	cfg  *config.Config
	http *http.Client

	apiKey    string
	apiSecret string
	baseURL   string

	mu      sync.RWMutex
	filters map[string]models.SymbolFilters
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg:       cfg,
		http:      &http.Client{Timeout: 10 * time.Second},
		apiKey:    cfg.Binance.APIKey,
		apiSecret: cfg.Binance.APISecret,
		baseURL:   cfg.Binance.RestURL,
		filters:   make(map[string]models.SymbolFilters),
	}
}

func (c *Client) Filters(symbol string) (models.SymbolFilters, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.filters[symbol]
	return f, ok
}

func (c *Client) sign(query string) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

// public — запрос без подписи (exchangeInfo, klines).
func (c *Client) public(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	return c.do(req)
}

// signed — запрос с timestamp и HMAC-подписью.
func (c *Client) signed(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	params.Set("recvWindow", "5000")
	query := params.Encode()
	query += "&signature=" + c.sign(query)

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+query, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-MBX-APIKEY", c.apiKey)
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
