package service

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"

	"github.com/bytedance/sonic"

	"sniper_bot/internal/helper"
	"sniper_bot/internal/models"
	"sniper_bot/pkg/logger"
)

// ClosePositionMarket сводит позицию в ноль рыночным reduce-only ордером.
// Сначала снимаем висящие TP/SL: иначе брекет может исполниться между
// запросом позиции и закрытием. Количество берём с биржи (positionAmt),
// а не из локального учёта — после подгонки под minNotional они расходятся.
func (c *Client) ClosePositionMarket(ctx context.Context, symbol string, side models.Side, qty float64) error {
	if c.apiKey == "" || c.apiSecret == "" {
		return fmt.Errorf("api keys are empty")
	}

	cancel := url.Values{}
	cancel.Set("symbol", symbol)
	if _, err := c.signed(ctx, "DELETE", "/fapi/v1/allOpenOrders", cancel); err != nil {
		logger.Error("[REST] cancel open orders %s: %v", symbol, err)
	}

	exitSide := "SELL"
	if side == models.SideShort {
		exitSide = "BUY"
	}

	if amt, err := c.positionAmt(ctx, symbol); err != nil {
		logger.Error("[REST] position risk %s: %v", symbol, err)
	} else if amt == 0 {
		logger.Info("[REST] %s уже закрыт на бирже", symbol)
		return nil
	} else {
		qty = math.Abs(amt)
		if amt > 0 {
			exitSide = "SELL"
		} else {
			exitSide = "BUY"
		}
	}

	if f, ok := c.Filters(symbol); ok {
		qty = helper.RoundStep(qty, f.StepSize)
	}
	if qty <= 0 {
		return fmt.Errorf("qty <= 0")
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", exitSide)
	params.Set("type", "MARKET")
	params.Set("quantity", formatQty(qty))
	params.Set("reduceOnly", "true")

	if _, err := c.signed(ctx, "POST", "/fapi/v1/order", params); err != nil {
		return fmt.Errorf("close market %s: %w", symbol, err)
	}

	logger.Info("[REST] %s закрыт рыночным, qty=%s", symbol, formatQty(qty))
	return nil
}

// positionAmt — фактический размер позиции на бирже: >0 лонг, <0 шорт.
func (c *Client) positionAmt(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	body, err := c.signed(ctx, "GET", "/fapi/v2/positionRisk", params)
	if err != nil {
		return 0, err
	}

	var rows []positionRiskEntry
	if err = sonic.Unmarshal(body, &rows); err != nil {
		return 0, fmt.Errorf("decode position risk: %w", err)
	}

	for _, r := range rows {
		if r.Symbol != symbol {
			continue
		}
		amt, err := strconv.ParseFloat(r.PositionAmt, 64)
		if err != nil {
			return 0, fmt.Errorf("parse positionAmt %q: %w", r.PositionAmt, err)
		}
		return amt, nil
	}
	return 0, fmt.Errorf("%s not found in position risk response", symbol)
}
