package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/bytedance/sonic"

	"sniper_bot/internal/models"
)

// FetchMissingData тянет последние минутки и суточное изменение по REST —
// бэкфилл буфера, когда стрим по символу ещё не тёк или протух. Без тикера
// сигнальный фильтр по 24h видел бы нули до первого батча miniTicker.
func (c *Client) FetchMissingData(ctx context.Context, symbol string, limit int) ([]models.HistCandle, float64, error) {
	if limit <= 0 || limit > 1000 {
		limit = 60
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", "1m")
	params.Set("limit", strconv.Itoa(limit))

	body, err := c.public(ctx, "/fapi/v1/klines", params)
	if err != nil {
		return nil, 0, fmt.Errorf("klines %s: %w", symbol, err)
	}

	// формат строки: [openTime, "o", "h", "l", "c", "v", closeTime, ...]
	var rows [][]any
	if err = sonic.Unmarshal(body, &rows); err != nil {
		return nil, 0, fmt.Errorf("decode klines %s: %w", symbol, err)
	}

	out := make([]models.HistCandle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 5 {
			continue
		}
		openMs, ok := row[0].(float64)
		if !ok {
			continue
		}
		closeStr, ok := row[4].(string)
		if !ok {
			continue
		}
		closePx, err := strconv.ParseFloat(closeStr, 64)
		if err != nil || closePx <= 0 {
			continue
		}
		out = append(out, models.HistCandle{
			Close: closePx,
			Ts:    int64(openMs) / 1000,
		})
	}

	change24h, err := c.change24h(ctx, symbol)
	if err != nil {
		return nil, 0, err
	}
	return out, change24h, nil
}

// change24h — priceChangePercent из суточного тикера.
func (c *Client) change24h(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	body, err := c.public(ctx, "/fapi/v1/ticker/24hr", params)
	if err != nil {
		return 0, fmt.Errorf("ticker 24hr %s: %w", symbol, err)
	}

	var t struct {
		PriceChangePercent string `json:"priceChangePercent"`
	}
	if err = sonic.Unmarshal(body, &t); err != nil {
		return 0, fmt.Errorf("decode ticker 24hr %s: %w", symbol, err)
	}

	pct, err := strconv.ParseFloat(t.PriceChangePercent, 64)
	if err != nil {
		return 0, fmt.Errorf("parse priceChangePercent %q: %w", t.PriceChangePercent, err)
	}
	return pct, nil
}
