package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sniper_bot/internal/models"
)

func TestBufferEmptyChange(t *testing.T) {
	b := NewBuffer()
	assert.Zero(t, b.Change(10))
	assert.Zero(t, b.CurrentPrice())
	assert.Equal(t, 50.0, b.RSI(14))
}

func TestBufferDuplicateClosedBucket(t *testing.T) {
	b := NewBuffer()
	ts := int64(1_700_000_040)
	b.UpdateCandle(100, ts, true)
	b.UpdateCandle(101, ts+10, true) // тот же минутный бакет
	require.Equal(t, 1, b.Len())
	assert.Equal(t, 101.0, b.CurrentPrice())
}

func TestBufferEviction(t *testing.T) {
	b := NewBuffer()
	base := int64(1_700_000_000)
	for i := 0; i < Capacity+15; i++ {
		b.UpdateCandle(float64(100+i), base+int64(i)*60, true)
	}
	assert.Equal(t, Capacity, b.Len())
	// самая старая доступная свеча — та, что пережила вытеснение
	assert.InDelta(t, (b.CurrentPrice()-float64(100+15))/float64(100+15)*100, b.Change(999), 1e-9)
}

func TestBufferChangeShortHistory(t *testing.T) {
	b := NewBuffer()
	base := int64(1_700_000_000)
	b.UpdateCandle(200, base, true)
	b.UpdateCandle(210, base+60, true)
	// истории на час нет — падение на самую старую свечу
	assert.InDelta(t, 5.0, b.Change(60), 1e-9)
	assert.InDelta(t, 0.0, b.Change(1), 1e-9) // последняя свеча и есть текущая цена
}

func TestBufferAllChanges(t *testing.T) {
	b := NewBuffer()
	base := int64(1_700_000_000)
	for i := 0; i < 61; i++ {
		b.UpdateCandle(100, base+int64(i)*60, true)
	}
	b.UpdateCandle(102, base+61*60, false)
	b.SetChange24h(7.5)

	ch := b.AllChanges()
	assert.InDelta(t, 2.0, ch.M1, 1e-9)
	assert.InDelta(t, 2.0, ch.H1, 1e-9)
	assert.Equal(t, 7.5, ch.H24)
}

func TestRSINeutralFallback(t *testing.T) {
	b := NewBuffer()
	base := int64(1_700_000_000)
	// только рост: down == 0 -> 50, а не 100
	for i := 0; i < 20; i++ {
		b.UpdateCandle(float64(100+i), base+int64(i)*60, true)
	}
	assert.Equal(t, 50.0, b.RSI(14))
}

func TestRSIMixedMoves(t *testing.T) {
	b := NewBuffer()
	base := int64(1_700_000_000)
	prices := []float64{100, 102, 101, 103, 102, 104, 103, 105, 104, 106, 105, 107, 106, 108, 107, 109}
	for i, p := range prices {
		b.UpdateCandle(p, base+int64(i)*60, true)
	}
	rsi := b.RSI(14)
	assert.Greater(t, rsi, 50.0)
	assert.Less(t, rsi, 100.0)
}

func TestBufferStale(t *testing.T) {
	b := NewBuffer()
	now := time.Unix(1_700_000_000, 0)
	assert.True(t, b.Stale(3*time.Minute, now))

	b.UpdateCandle(100, now.Unix(), true)
	assert.False(t, b.Stale(3*time.Minute, now.Add(time.Minute)))
	assert.True(t, b.Stale(3*time.Minute, now.Add(10*time.Minute)))
}

func TestRegistryBackfill(t *testing.T) {
	r := NewRegistry()
	hist := []models.HistCandle{
		{Close: 100, Ts: 1_700_000_000},
		{Close: 101, Ts: 1_700_000_060},
		{Close: 102, Ts: 1_700_000_120},
	}
	r.Backfill("ETHUSDT", hist, -4.2)

	b, ok := r.Peek("ETHUSDT")
	require.True(t, ok)
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, 102.0, b.CurrentPrice())
	assert.Equal(t, -4.2, b.AllChanges().H24)

	_, ok = r.Peek("BTCUSDT")
	assert.False(t, ok)
	assert.Len(t, r.Symbols(), 1)
}
