package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/bytedance/sonic"

	"sniper_bot/internal/models"
	"sniper_bot/pkg/logger"
)

// Connect тянет фильтры инструмента (шаг лота, тик цены, минимумы)
// и кладёт их в кэш. Без фильтров количество не квантуется и
// реальный ордер не уйдёт.
func (c *Client) Connect(ctx context.Context, symbol string) (models.SymbolFilters, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	body, err := c.public(ctx, "/fapi/v1/exchangeInfo", params)
	if err != nil {
		return models.SymbolFilters{}, fmt.Errorf("exchangeInfo: %w", err)
	}

	var info exchangeInfoResponse
	if err = sonic.Unmarshal(body, &info); err != nil {
		return models.SymbolFilters{}, fmt.Errorf("decode exchangeInfo: %w", err)
	}

	for _, s := range info.Symbols {
		if s.Symbol != symbol {
			continue
		}
		if s.Status != "" && s.Status != "TRADING" {
			return models.SymbolFilters{}, fmt.Errorf("symbol %s not trading: %s", symbol, s.Status)
		}

		var f models.SymbolFilters
		for _, flt := range s.Filters {
			switch flt.FilterType {
			case "LOT_SIZE":
				f.StepSize, _ = strconv.ParseFloat(flt.StepSize, 64)
				f.MinQty, _ = strconv.ParseFloat(flt.MinQty, 64)
			case "PRICE_FILTER":
				f.TickSize, _ = strconv.ParseFloat(flt.TickSize, 64)
			case "MIN_NOTIONAL":
				f.MinNotional, _ = strconv.ParseFloat(flt.Notional, 64)
			}
		}
		if f.StepSize <= 0 || f.TickSize <= 0 {
			return models.SymbolFilters{}, fmt.Errorf("symbol %s: пустые фильтры", symbol)
		}

		c.mu.Lock()
		c.filters[symbol] = f
		c.mu.Unlock()

		logger.Info("[REST] %s filters: step=%v tick=%v minQty=%v minNotional=%v",
			symbol, f.StepSize, f.TickSize, f.MinQty, f.MinNotional)
		return f, nil
	}

	return models.SymbolFilters{}, fmt.Errorf("symbol %s not found", symbol)
}
