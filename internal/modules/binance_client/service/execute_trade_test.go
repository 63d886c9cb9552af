package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sniper_bot/internal/models"
)

func TestOrderQty(t *testing.T) {
	f := models.SymbolFilters{
		StepSize:    0.001,
		TickSize:    0.01,
		MinQty:      0.001,
		MinNotional: 20,
	}

	// 100 USDT x10 по 2000: 0.5 — кратно шагу, нотионал достаточный
	assert.Equal(t, 0.5, orderQty(100, 10, 2000, f))

	// хвост срезается вниз до шага
	assert.Equal(t, 0.037, orderQty(25, 3, 2000.77, f))

	// нотионал ниже минимума: добивка вверх с запасом 1%
	// 1*2/2000 = 0.001 -> 0.001*2000 = 2 < 20 -> ceil(20/2000*1.01) = 0.011
	assert.Equal(t, 0.011, orderQty(1, 2, 2000, f))

	// мусорные входы
	assert.Zero(t, orderQty(100, 10, 0, f))
	assert.Zero(t, orderQty(0, 10, 2000, f))
}

func TestOrderQtyMinQtyFloor(t *testing.T) {
	f := models.SymbolFilters{
		StepSize:    1,
		TickSize:    0.0001,
		MinQty:      1,
		MinNotional: 5,
	}
	// 10 USDT x1 по 0.5: qty=20, нотионал 10 >= 5 — без добивки
	assert.Equal(t, 20.0, orderQty(10, 1, 0.5, f))

	// 0.4*1/0.5 = 0.8 -> floor по шагу 1 = 0 -> добивка: ceil(5/0.5*1.01)=11
	assert.Equal(t, 11.0, orderQty(0.4, 1, 0.5, f))
}

// Триггер-цена не опускается ниже тика: SL в 100%+ дал бы ноль,
// который биржа отбивает.
func TestStopPriceClamp(t *testing.T) {
	// SLPct=100 для лонга: 2000 * (1 - 100/100) = 0
	assert.Equal(t, 0.01, stopPrice(2000*(1-100.0/100), 0.01))
	// SLPct=150: отрицательная цена тоже прижимается к тику
	assert.Equal(t, 0.01, stopPrice(2000*(1-150.0/100), 0.01))
	// нормальный стоп квантуется к ближайшему тику
	assert.Equal(t, 1980.35, stopPrice(1980.349, 0.01))
}

// Квантованное количество всегда проходит свои же фильтры.
func TestOrderQtyRoundTrip(t *testing.T) {
	f := models.SymbolFilters{StepSize: 0.01, TickSize: 0.01, MinQty: 0.01, MinNotional: 10}
	for _, margin := range []float64{5, 17.3, 100, 999.99} {
		for _, price := range []float64{0.57, 12.34, 2000} {
			qty := orderQty(margin, 5, price, f)
			assert.GreaterOrEqual(t, qty, f.MinQty, "margin=%v price=%v", margin, price)
			assert.GreaterOrEqual(t, qty*price, f.MinNotional, "margin=%v price=%v", margin, price)
		}
	}
}
