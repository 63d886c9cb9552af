package helper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormSymbol(t *testing.T) {
	cases := map[string]string{
		"eth":       "ETHUSDT",
		"ETH/USDT":  "ETHUSDT",
		" btcusdt ": "BTCUSDT",
		"SOL-USDT":  "SOLUSDT",
		"":          "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormSymbol(in), "in=%q", in)
	}
}

func TestRoundStep(t *testing.T) {
	assert.Equal(t, 0.07, RoundStep(0.0751, 0.01))
	assert.Equal(t, 0.075, RoundStep(0.0751, 0.001))
	assert.Equal(t, 12.0, RoundStep(12.9, 1))
	// граничный случай двоичного представления: 0.29/0.01 = 28.999...
	assert.Equal(t, 0.29, RoundStep(0.29, 0.01))
	assert.Equal(t, 5.0, RoundStep(5, 0))
}

func TestCeilStep(t *testing.T) {
	assert.Equal(t, 0.08, CeilStep(0.0751, 0.01))
	assert.Equal(t, 0.29, CeilStep(0.29, 0.01))
	assert.Equal(t, 13.0, CeilStep(12.1, 1))
}

func TestRoundPrice(t *testing.T) {
	// к ближайшему тику, не вниз: иначе у шорта TP и SL съезжают в одну сторону
	assert.Equal(t, 2034.57, RoundPrice(2034.5678, 0.01))
	assert.Equal(t, 2034.56, RoundPrice(2034.5612, 0.01))
	assert.Equal(t, 2034.6, RoundPrice(2034.5678, 0.1))
	assert.Equal(t, 2034.5, RoundPrice(2034.54, 0.1))
	assert.Equal(t, 2034.5678, RoundPrice(2034.5678, 0))
}

// Округление идемпотентно: повторное применение ничего не меняет.
func TestRoundStepIdempotent(t *testing.T) {
	steps := []float64{0.001, 0.01, 0.1, 1}
	for _, step := range steps {
		for _, q := range []float64{0.0777, 1.2345, 99.999} {
			once := RoundStep(q, step)
			assert.Equal(t, once, RoundStep(once, step), "step=%v q=%v", step, q)
		}
	}
}
