package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sniper_bot/internal/ledger"
	"sniper_bot/internal/market"
	"sniper_bot/internal/models"
	"sniper_bot/internal/modules/config"
	healthsrv "sniper_bot/internal/modules/health/service"
)

type fakeStream struct {
	subs, unsubs []string
}

func (f *fakeStream) Subscribe(s string)   { f.subs = append(f.subs, s) }
func (f *fakeStream) Unsubscribe(s string) { f.unsubs = append(f.unsubs, s) }

type fakeExchange struct {
	result    models.OrderResult
	execCalls int
	closed    []string
	hist      []models.HistCandle
	change24h float64
	histErr   error
	balance   float64
	available float64
}

func (f *fakeExchange) Connect(context.Context, string) (models.SymbolFilters, error) {
	return models.SymbolFilters{}, nil
}

func (f *fakeExchange) ExecuteTrade(_ context.Context, p models.TradeParams) (models.OrderResult, error) {
	f.execCalls++
	if f.result != models.OrderOpened {
		return f.result, errors.New("exchange says no")
	}
	return f.result, nil
}

func (f *fakeExchange) ClosePositionMarket(_ context.Context, symbol string, _ models.Side, _ float64) error {
	f.closed = append(f.closed, symbol)
	return nil
}

func (f *fakeExchange) FetchMissingData(context.Context, string, int) ([]models.HistCandle, float64, error) {
	return f.hist, f.change24h, f.histErr
}

func (f *fakeExchange) GetBalance(context.Context) (float64, float64, error) {
	return f.balance, f.available, nil
}

type fakeStore struct {
	recs []models.TradeRecord
}

func (f *fakeStore) Insert(_ context.Context, rec models.TradeRecord) error {
	f.recs = append(f.recs, rec)
	return nil
}

func (f *fakeStore) Recent(context.Context, int) ([]models.TradeRecord, error) {
	return f.recs, nil
}

type fakeNotifier struct {
	msgs []string
}

func (f *fakeNotifier) Send(msg string)                 { f.msgs = append(f.msgs, msg) }
func (f *fakeNotifier) Sendf(format string, args ...any) {
	f.msgs = append(f.msgs, format)
}
func (f *fakeNotifier) Confirm(context.Context, string, time.Duration) bool { return true }

type fixture struct {
	r      *Runner
	led    *ledger.Ledger
	reg    *market.Registry
	stream *fakeStream
	exch   *fakeExchange
	store  *fakeStore
	notes  *fakeNotifier
}

func newFixture(real bool) *fixture {
	cfg := &config.Config{
		DefaultMarginUSD: 100,
		DefaultLeverage:  10,
		DefaultTPPct:     2,
		DefaultSLPct:     1,
		DefaultValidity:  60,
		StaleAfter:       3 * time.Minute,
	}
	cfg.Binance.Real = real

	f := &fixture{
		led:    ledger.New(ledger.Config{StartBalance: 10_000}),
		reg:    market.NewRegistry(),
		stream: &fakeStream{},
		exch:   &fakeExchange{result: models.OrderOpened},
		store:  &fakeStore{},
		notes:  &fakeNotifier{},
	}
	f.r = New(cfg, f.led, f.reg, f.stream, f.exch, f.store, f.notes, healthsrv.NewState())
	return f
}

func (f *fixture) feedPrice(symbol string, price float64) {
	f.reg.Get(symbol).UpdateCandle(price, time.Now().Unix(), true)
}

func decision(symbol string) models.Decision {
	return models.Decision{ID: "d1", Symbol: symbol, Action: models.SideLong, Source: "TEST"}
}

func TestDecisionOpensAndSubscribes(t *testing.T) {
	f := newFixture(false)
	f.feedPrice("ETHUSDT", 2000)

	f.r.handleDecision(context.Background(), decision("eth"))

	p, ok := f.led.Position("ETHUSDT")
	require.True(t, ok)
	assert.Equal(t, 2000.0, p.Entry)
	assert.Equal(t, []string{"ETHUSDT"}, f.stream.subs)
	assert.Zero(t, f.exch.execCalls, "бумажный режим не трогает биржу")
}

func TestDecisionBackfillsStaleBuffer(t *testing.T) {
	f := newFixture(false)
	f.exch.hist = []models.HistCandle{
		{Close: 1990, Ts: time.Now().Add(-time.Minute).Unix()},
		{Close: 2001, Ts: time.Now().Unix()},
	}
	f.exch.change24h = 3.7

	f.r.handleDecision(context.Background(), decision("ETHUSDT"))

	p, ok := f.led.Position("ETHUSDT")
	require.True(t, ok)
	assert.Equal(t, 2001.0, p.Entry)

	buf, ok := f.reg.Peek("ETHUSDT")
	require.True(t, ok)
	assert.Equal(t, 3.7, buf.AllChanges().H24)
}

func TestDecisionBackfillFailureSkips(t *testing.T) {
	f := newFixture(false)
	f.exch.histErr = errors.New("offline")

	f.r.handleDecision(context.Background(), decision("ETHUSDT"))

	assert.Zero(t, f.led.OpenCount())
	assert.Empty(t, f.stream.subs)
}

func TestRealRejectionAborts(t *testing.T) {
	f := newFixture(true)
	f.feedPrice("ETHUSDT", 2000)
	f.exch.result = models.OrderRejected

	f.r.handleDecision(context.Background(), decision("ETHUSDT"))

	assert.Equal(t, 1, f.exch.execCalls)
	assert.Zero(t, f.led.OpenCount())
	assert.Empty(t, f.stream.subs)
}

func TestRealTpSlFailureStillMirrors(t *testing.T) {
	f := newFixture(true)
	f.feedPrice("ETHUSDT", 2000)
	f.exch.result = models.OrderTpSlFailed

	f.r.handleDecision(context.Background(), decision("ETHUSDT"))

	assert.Equal(t, 1, f.led.OpenCount())
	assert.Equal(t, []string{"ETHUSDT"}, f.stream.subs)
}

func TestDuplicateSymbolSkipped(t *testing.T) {
	f := newFixture(false)
	f.feedPrice("ETHUSDT", 2000)

	f.r.handleDecision(context.Background(), decision("ETHUSDT"))
	f.r.handleDecision(context.Background(), decision("ETHUSDT"))

	assert.Equal(t, 1, f.led.OpenCount())
	assert.Len(t, f.stream.subs, 1)
}

func TestWatchlistGuard(t *testing.T) {
	f := newFixture(false)
	f.r.cfg.Watchlist = []string{"BTCUSDT"}
	f.feedPrice("ETHUSDT", 2000)

	f.r.handleDecision(context.Background(), decision("ETHUSDT"))

	assert.Zero(t, f.led.OpenCount())
}

func TestCloseEventUnsubscribesAndStores(t *testing.T) {
	f := newFixture(false)
	f.feedPrice("ETHUSDT", 2000)
	f.r.handleDecision(context.Background(), decision("ETHUSDT"))

	ev, emit := f.led.Tick("ETHUSDT", 2040) // TP
	require.True(t, emit)
	f.r.handleEvent(context.Background(), ev)

	assert.Equal(t, []string{"ETHUSDT"}, f.stream.unsubs)
	require.Len(t, f.store.recs, 1)
	assert.Equal(t, models.ReasonTakeProfit, f.store.recs[0].Reason)
}

func TestCloseManual(t *testing.T) {
	f := newFixture(false)
	f.feedPrice("ETHUSDT", 2000)
	f.r.handleDecision(context.Background(), decision("ETHUSDT"))

	msg, ok := f.r.CloseManual(context.Background(), "eth")
	require.True(t, ok)
	assert.Contains(t, msg, "MANUAL")
	assert.Zero(t, f.led.OpenCount())
	assert.Equal(t, []string{"ETHUSDT"}, f.stream.unsubs)

	_, ok = f.r.CloseManual(context.Background(), "ETHUSDT")
	assert.False(t, ok)
}

func TestStatus(t *testing.T) {
	f := newFixture(false)
	assert.Contains(t, f.r.Status(), "10000.00")

	f.feedPrice("ETHUSDT", 2000)
	f.r.handleDecision(context.Background(), decision("ETHUSDT"))
	st := f.r.Status()
	assert.Contains(t, st, "ETHUSDT")
	assert.Contains(t, st, "RSI")
}
