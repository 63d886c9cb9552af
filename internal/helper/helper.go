package helper

import (
	"math"
	"strings"
)

// NormSymbol приводит вход из команд и решений к биржевому виду:
// "eth", "ETH/USDT", "ethusdt" -> "ETHUSDT".
func NormSymbol(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "/", "")
	s = strings.ReplaceAll(s, "-", "")
	if s == "" {
		return s
	}
	if !strings.HasSuffix(s, "USDT") {
		s += "USDT"
	}
	return s
}

// RoundStep округляет количество вниз до шага лота.
func RoundStep(qty, step float64) float64 {
	if step <= 0 {
		return qty
	}
	steps := math.Floor(qty/step + 1e-9)
	return snap(steps*step, step)
}

// CeilStep округляет количество вверх до шага лота —
// для добивки до минимального нотионала.
func CeilStep(qty, step float64) float64 {
	if step <= 0 {
		return qty
	}
	steps := math.Ceil(qty/step - 1e-9)
	return snap(steps*step, step)
}

// RoundPrice округляет цену до ближайшего тика инструмента.
func RoundPrice(px, tick float64) float64 {
	if tick <= 0 {
		return px
	}
	steps := math.Round(px / tick)
	return snap(steps*tick, tick)
}

// snap убирает двоичный мусор после умножения на шаг:
// 0.07000000000000001 -> 0.07 при step 0.001.
func snap(v, step float64) float64 {
	prec := stepPrecision(step)
	pow := math.Pow(10, float64(prec))
	return math.Round(v*pow) / pow
}

func stepPrecision(step float64) int {
	if step >= 1 {
		return 0
	}
	prec := 0
	for step < 1 && prec < 12 {
		step *= 10
		prec++
	}
	return prec
}
