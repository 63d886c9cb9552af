package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bytedance/sonic"
)

// GetBalance — USDT на фьючерсном кошельке: весь баланс и свободный
// (без маржи под открытыми позициями).
func (c *Client) GetBalance(ctx context.Context) (total, available float64, err error) {
	if c.apiKey == "" || c.apiSecret == "" {
		return 0, 0, fmt.Errorf("api keys are empty")
	}

	body, err := c.signed(ctx, "GET", "/fapi/v2/balance", nil)
	if err != nil {
		return 0, 0, fmt.Errorf("balance: %w", err)
	}

	var entries []balanceEntry
	if err = sonic.Unmarshal(body, &entries); err != nil {
		return 0, 0, fmt.Errorf("decode balance: %w", err)
	}

	for _, e := range entries {
		if e.Asset != "USDT" {
			continue
		}
		total, err = strconv.ParseFloat(e.Balance, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("parse balance %q: %w", e.Balance, err)
		}
		available, err = strconv.ParseFloat(e.AvailableBalance, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("parse availableBalance %q: %w", e.AvailableBalance, err)
		}
		return total, available, nil
	}
	return 0, 0, fmt.Errorf("USDT not found in balance response")
}
