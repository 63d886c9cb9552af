package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sniper_bot/internal/market"
	"sniper_bot/internal/models"
)

type fakeBook struct {
	open   []string
	ticked map[string]float64
	emit   map[string]models.PositionEvent
}

func (f *fakeBook) OpenSymbols() []string { return f.open }

func (f *fakeBook) Tick(symbol string, price float64) (models.PositionEvent, bool) {
	if f.ticked == nil {
		f.ticked = make(map[string]float64)
	}
	f.ticked[symbol] = price
	ev, ok := f.emit[symbol]
	return ev, ok
}

func TestSweepSkipsEmptyAndZeroPrice(t *testing.T) {
	r := market.NewRegistry()
	r.Get("ETHUSDT").UpdateCandle(2000, 1_700_000_000, false)
	r.Get("ZEROUSDT") // буфер есть, цены нет

	book := &fakeBook{open: []string{"ETHUSDT", "ZEROUSDT", "GHOSTUSDT"}}
	s := New(0, book, r)
	require.Equal(t, DefaultInterval, s.interval)

	out := make(chan models.PositionEvent, 4)
	s.Sweep(context.Background(), out)

	assert.Equal(t, map[string]float64{"ETHUSDT": 2000}, book.ticked)
	assert.Empty(t, out)
}

func TestSweepForwardsEvents(t *testing.T) {
	r := market.NewRegistry()
	r.Get("ETHUSDT").UpdateCandle(2000, 1_700_000_000, false)

	ev := models.PositionEvent{ClosedSymbol: "ETHUSDT", Reason: models.ReasonTimeLimit}
	book := &fakeBook{
		open: []string{"ETHUSDT"},
		emit: map[string]models.PositionEvent{"ETHUSDT": ev},
	}

	out := make(chan models.PositionEvent, 1)
	New(time.Second, book, r).Sweep(context.Background(), out)

	require.Len(t, out, 1)
	got := <-out
	assert.Equal(t, models.ReasonTimeLimit, got.Reason)
}
