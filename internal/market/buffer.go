package market

import (
	"sync"
	"time"
)

// Capacity — сколько минутных закрытий держим на символ.
const Capacity = 60

type candle struct {
	bucket int64 // unix_ts / 60
	close  float64
}

// Buffer — скользящее окно минутных закрытий по одному инструменту.
// Пишет его только стрим-роутер, читают свипер и раннер.
type Buffer struct {
	mu        sync.RWMutex
	candles   []candle
	current   float64
	change24h float64 // приходит из батч-тикера, не считается по окну
}

func NewBuffer() *Buffer {
	return &Buffer{candles: make([]candle, 0, Capacity)}
}

// UpdateCandle обновляет текущую цену; закрытая свеча попадает в окно
// не чаще одного раза на минутный бакет (стрим шлёт дубли закрытий).
func (b *Buffer) UpdateCandle(price float64, ts int64, closed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.current = price
	if !closed {
		return
	}

	bucket := ts / 60
	if n := len(b.candles); n > 0 && b.candles[n-1].bucket == bucket {
		return
	}
	b.candles = append(b.candles, candle{bucket: bucket, close: price})
	if len(b.candles) > Capacity {
		b.candles = b.candles[len(b.candles)-Capacity:]
	}
}

func (b *Buffer) SetChange24h(pct float64) {
	b.mu.Lock()
	b.change24h = pct
	b.mu.Unlock()
}

func (b *Buffer) CurrentPrice() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current
}

func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.candles)
}

// Change — процент изменения за minutes минут назад. Если истории меньше,
// берём самую старую свечу; пустое окно или нулевые цены дают 0.
func (b *Buffer) Change(minutes int) float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.changeLocked(minutes)
}

func (b *Buffer) changeLocked(minutes int) float64 {
	if len(b.candles) == 0 || b.current == 0 || minutes <= 0 {
		return 0
	}
	k := minutes
	if k > len(b.candles) {
		k = len(b.candles)
	}
	old := b.candles[len(b.candles)-k].close
	if old == 0 {
		return 0
	}
	return (b.current - old) / old * 100
}

// Changes — сводка моментума по стандартным периодам.
type Changes struct {
	M1  float64
	M10 float64
	H1  float64
	H24 float64
}

func (b *Buffer) AllChanges() Changes {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Changes{
		M1:  b.changeLocked(1),
		M10: b.changeLocked(10),
		H1:  b.changeLocked(60),
		H24: b.change24h,
	}
}

// RSI по Уайлдеру на последних period+1 закрытиях.
// Мало истории или нет нисходящих движений — нейтральные 50.
func (b *Buffer) RSI(period int) float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if period <= 0 {
		period = 14
	}
	if len(b.candles) < period+1 {
		return 50
	}

	var up, down float64
	for i := len(b.candles) - period; i < len(b.candles); i++ {
		d := b.candles[i].close - b.candles[i-1].close
		if d > 0 {
			up += d
		} else {
			down -= d
		}
	}
	up /= float64(period)
	down /= float64(period)
	if down == 0 {
		return 50
	}
	return 100 - 100/(1+up/down)
}

// Stale — нет данных совсем или последний бакет старше maxAge.
// Такой буфер надо бэкфиллить до того, как на него смотрит решение.
func (b *Buffer) Stale(maxAge time.Duration, now time.Time) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.current == 0 || len(b.candles) == 0 {
		return true
	}
	last := time.Unix(b.candles[len(b.candles)-1].bucket*60, 0)
	return now.Sub(last) > maxAge
}
