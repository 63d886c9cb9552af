package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"sniper_bot/internal/helper"
	"sniper_bot/internal/models"
	"sniper_bot/pkg/logger"
)

// ExecuteTrade открывает рыночную позицию и вешает TP/SL.
// Возвращаемый результат говорит раннеру, как жить дальше:
// Rejected — сделки нет вообще; TpSlFailed — позиция есть, брекетов нет.
func (c *Client) ExecuteTrade(ctx context.Context, p models.TradeParams) (models.OrderResult, error) {
	if c.apiKey == "" || c.apiSecret == "" {
		return models.OrderNotConnected, fmt.Errorf("api keys are empty")
	}

	f, ok := c.Filters(p.Symbol)
	if !ok {
		var err error
		if f, err = c.Connect(ctx, p.Symbol); err != nil {
			return models.OrderNotConnected, fmt.Errorf("filters %s: %w", p.Symbol, err)
		}
	}

	qty := orderQty(p.MarginUSD, p.Leverage, p.Price, f)
	if qty <= 0 {
		return models.OrderRejected, fmt.Errorf("qty quantized to zero: margin=%.2f price=%.6f", p.MarginUSD, p.Price)
	}

	// плечо выставляем перед ордером; ошибка не фатальна,
	// на символе может уже стоять нужное
	if err := c.setLeverage(ctx, p.Symbol, p.Leverage); err != nil {
		logger.Error("[REST] set leverage %s: %v", p.Symbol, err)
	}

	entrySide := "BUY"
	exitSide := "SELL"
	if p.Side == models.SideShort {
		entrySide, exitSide = "SELL", "BUY"
	}

	params := url.Values{}
	params.Set("symbol", p.Symbol)
	params.Set("side", entrySide)
	params.Set("type", "MARKET")
	params.Set("quantity", formatQty(qty))

	if _, err := c.signed(ctx, "POST", "/fapi/v1/order", params); err != nil {
		return models.OrderRejected, fmt.Errorf("market order %s: %w", p.Symbol, err)
	}
	logger.Info("[REST] %s %s qty=%s открыт", p.Symbol, p.Side, formatQty(qty))

	var tp, sl float64
	if p.Side == models.SideLong {
		tp = stopPrice(p.Price*(1+p.TPPct/100), f.TickSize)
		sl = stopPrice(p.Price*(1-p.SLPct/100), f.TickSize)
	} else {
		tp = stopPrice(p.Price*(1-p.TPPct/100), f.TickSize)
		sl = stopPrice(p.Price*(1+p.SLPct/100), f.TickSize)
	}

	if err := c.placeStop(ctx, p.Symbol, exitSide, "TAKE_PROFIT_MARKET", tp); err != nil {
		return models.OrderTpSlFailed, fmt.Errorf("take profit %s: %w", p.Symbol, err)
	}
	if err := c.placeStop(ctx, p.Symbol, exitSide, "STOP_MARKET", sl); err != nil {
		return models.OrderTpSlFailed, fmt.Errorf("stop loss %s: %w", p.Symbol, err)
	}

	return models.OrderOpened, nil
}

// stopPrice квантует триггер-цену под тик и не даёт ей уйти в ноль:
// SL в 100%+ или грубый тик иначе дали бы stopPrice <= 0, который биржа
// отбивает вместе со вторым брекетом.
func stopPrice(px, tick float64) float64 {
	px = helper.RoundPrice(px, tick)
	if px < tick {
		px = tick
	}
	return px
}

// placeStop — закрывающий ордер на всю позицию по триггер-цене.
func (c *Client) placeStop(ctx context.Context, symbol, side, typ string, stopPrice float64) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", side)
	params.Set("type", typ)
	params.Set("stopPrice", strconv.FormatFloat(stopPrice, 'f', -1, 64))
	params.Set("closePosition", "true")
	params.Set("workingType", "MARK_PRICE")

	_, err := c.signed(ctx, "POST", "/fapi/v1/order", params)
	return err
}

func (c *Client) setLeverage(ctx context.Context, symbol string, lev float64) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("leverage", strconv.Itoa(int(lev)))
	_, err := c.signed(ctx, "POST", "/fapi/v1/leverage", params)
	return err
}

// orderQty квантует количество под фильтры инструмента.
// Если после округления вниз не добираем минимум — добиваем вверх
// до minNotional с запасом 1% на проскальзывание.
func orderQty(marginUSD, leverage, price float64, f models.SymbolFilters) float64 {
	if price <= 0 || marginUSD <= 0 {
		return 0
	}
	if leverage <= 0 {
		leverage = 1
	}

	qty := helper.RoundStep(marginUSD*leverage/price, f.StepSize)
	if qty < f.MinQty || qty*price < f.MinNotional {
		qty = helper.CeilStep(f.MinNotional/price*1.01, f.StepSize)
		if qty < f.MinQty {
			qty = helper.CeilStep(f.MinQty, f.StepSize)
		}
	}
	return qty
}

func formatQty(qty float64) string {
	return strconv.FormatFloat(qty, 'f', -1, 64)
}
