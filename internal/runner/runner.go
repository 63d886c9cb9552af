package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"

	"sniper_bot/internal/helper"
	"sniper_bot/internal/ledger"
	"sniper_bot/internal/market"
	"sniper_bot/internal/models"
	"sniper_bot/internal/modules/config"
	healthsrv "sniper_bot/internal/modules/health/service"
	"sniper_bot/pkg/logger"
	"sniper_bot/pkg/retry"
)

// Stream — управление kline-подписками сокета.
type Stream interface {
	Subscribe(symbol string)
	Unsubscribe(symbol string)
}

// ExchangeSync — реальная биржа; в бумажном режиме не дёргается.
type ExchangeSync interface {
	Connect(ctx context.Context, symbol string) (models.SymbolFilters, error)
	ExecuteTrade(ctx context.Context, p models.TradeParams) (models.OrderResult, error)
	ClosePositionMarket(ctx context.Context, symbol string, side models.Side, qty float64) error
	FetchMissingData(ctx context.Context, symbol string, limit int) ([]models.HistCandle, float64, error)
	GetBalance(ctx context.Context) (total, available float64, err error)
}

// TradeStore — история сделок; ошибки записи не валят торговлю.
type TradeStore interface {
	Insert(ctx context.Context, rec models.TradeRecord) error
	Recent(ctx context.Context, n int) ([]models.TradeRecord, error)
}

type Notifier interface {
	Send(msg string)
	Sendf(format string, args ...any)
	Confirm(ctx context.Context, prompt string, timeout time.Duration) bool
}

// Runner связывает всё: принимает решения, ведёт их через биржу и учёт,
// разруливает события закрытий.
type Runner struct {
	cfg      *config.Config
	led      *ledger.Ledger
	reg      *market.Registry
	stream   Stream
	exch     ExchangeSync
	store    TradeStore
	notifier Notifier
	health   *healthsrv.State

	decisions chan models.Decision
}

func New(
	cfg *config.Config,
	led *ledger.Ledger,
	reg *market.Registry,
	stream Stream,
	exch ExchangeSync,
	store TradeStore,
	notifier Notifier,
	health *healthsrv.State,
) *Runner {
	return &Runner{
		cfg:       cfg,
		led:       led,
		reg:       reg,
		stream:    stream,
		exch:      exch,
		store:     store,
		notifier:  notifier,
		health:    health,
		decisions: make(chan models.Decision, 64),
	}
}

// Submit ставит решение в очередь. Переполнение — решение дропается:
// лучше пропустить сигнал, чем заблокировать источник.
func (r *Runner) Submit(dec models.Decision) bool {
	select {
	case r.decisions <- dec:
		return true
	default:
		logger.Error("[SIGNAL] очередь решений забита, %s %s потеряно", dec.Symbol, dec.Action)
		return false
	}
}

func (r *Runner) RunDecisions(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case dec := <-r.decisions:
			r.handleDecision(ctx, dec)
		}
	}
}

func (r *Runner) handleDecision(ctx context.Context, dec models.Decision) {
	span := opentracing.StartSpan("handle_decision")
	defer span.Finish()

	sym := helper.NormSymbol(dec.Symbol)
	span.SetTag("symbol", sym)
	span.SetTag("action", string(dec.Action))
	span.SetTag("decision_id", dec.ID)

	logger.Info("[SIGNAL] решение %s: %s %s (источник %s)", dec.ID, dec.Action, sym, dec.Source)

	if !r.cfg.InWatchlist(sym) {
		r.notifier.Sendf("⚠️ [%s] вне списка инструментов, сигнал пропущен", sym)
		return
	}
	if _, busy := r.led.Position(sym); busy {
		r.notifier.Sendf("⚠️ [%s] позиция уже открыта, сигнал пропущен", sym)
		return
	}

	r.applyDefaults(&dec)

	// буфер должен быть живым до того, как смотрим цену
	buf := r.reg.Get(sym)
	if buf.Stale(r.cfg.StaleAfter, time.Now()) {
		if err := r.backfill(ctx, sym); err != nil {
			r.notifier.Sendf("❌ [%s] нет свежих данных и бэкфилл не удался: %v", sym, err)
			return
		}
	}
	price := buf.CurrentPrice()
	if price <= 0 {
		r.notifier.Sendf("❌ [%s] цена неизвестна, сигнал пропущен", sym)
		return
	}

	if r.cfg.Binance.Real {
		res, err := r.exch.ExecuteTrade(ctx, models.TradeParams{
			Symbol:    sym,
			Side:      dec.Action,
			Price:     price,
			MarginUSD: dec.MarginUSD,
			Leverage:  float64(dec.Leverage),
			TPPct:     dec.TPPct,
			SLPct:     dec.SLPct,
		})
		span.SetTag("order_result", res.String())
		switch res {
		case models.OrderOpened:
			// биржевой ордер встал, дальше зеркалим в учёте
		case models.OrderRejected:
			r.notifier.Sendf("❌ [%s] биржа отклонила ордер: %v", sym, err)
			return
		case models.OrderTpSlFailed:
			r.notifier.Sendf("⚠️ [%s] ордер открыт, но TP/SL не встали — ведём выходы сами: %v", sym, err)
		case models.OrderNotConnected:
			r.notifier.Sendf("⚠️ [%s] биржа недоступна, сделка только в бумажном учёте: %v", sym, err)
		}
	}

	msg, _, ok := r.led.Open(ledger.OpenRequest{
		Symbol:          sym,
		Side:            dec.Action,
		Price:           price,
		MarginUSD:       dec.MarginUSD,
		Leverage:        float64(dec.Leverage),
		TPPct:           dec.TPPct,
		SLPct:           dec.SLPct,
		ValidityMinutes: dec.ValidityMinutes,
		DecisionID:      dec.ID,
	})
	r.notifier.Send(msg)
	if !ok {
		return
	}

	r.stream.Subscribe(sym)
}

func (r *Runner) applyDefaults(dec *models.Decision) {
	if dec.MarginUSD <= 0 {
		dec.MarginUSD = r.cfg.DefaultMarginUSD
	}
	if dec.Leverage <= 0 {
		dec.Leverage = int(r.cfg.DefaultLeverage)
	}
	if dec.TPPct <= 0 {
		dec.TPPct = r.cfg.DefaultTPPct
	}
	if dec.SLPct <= 0 {
		dec.SLPct = r.cfg.DefaultSLPct
	}
	if dec.ValidityMinutes <= 0 {
		dec.ValidityMinutes = r.cfg.DefaultValidity
	}
}

type backfillData struct {
	hist      []models.HistCandle
	change24h float64
}

func (r *Runner) backfill(ctx context.Context, symbol string) error {
	data, err := retry.DoWithResult(ctx, func() (backfillData, error) {
		hist, change24h, err := r.exch.FetchMissingData(ctx, symbol, market.Capacity)
		return backfillData{hist: hist, change24h: change24h}, err
	}, retry.Config{
		MaxRetries: 3,
		Delay:      time.Second,
		OnRetry: func(attempt int, err error) {
			logger.Error("[SIGNAL] бэкфилл %s, попытка %d: %v", symbol, attempt, err)
		},
	})
	if err != nil {
		return err
	}
	r.reg.Backfill(symbol, data.hist, data.change24h)
	logger.Info("[SIGNAL] бэкфилл %s: %d свечей, 24h %+.2f%%", symbol, len(data.hist), data.change24h)
	return nil
}

// RunEvents разбирает события учёта: трейлинг-алерты и закрытия.
func (r *Runner) RunEvents(ctx context.Context, events <-chan models.PositionEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			r.handleEvent(ctx, ev)
		}
	}
}

func (r *Runner) handleEvent(ctx context.Context, ev models.PositionEvent) {
	r.notifier.Send(ev.Message)
	if ev.ClosedSymbol == "" {
		return
	}

	r.stream.Unsubscribe(ev.ClosedSymbol)

	if r.cfg.Binance.Real && ev.Record != nil {
		rec := *ev.Record
		// закрытие на бирже не должно тормозить обработку следующих событий
		go func() {
			cctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := r.exch.ClosePositionMarket(cctx, rec.Symbol, rec.Side, rec.Qty); err != nil {
				logger.Error("[CLOSE] биржевое закрытие %s: %v", rec.Symbol, err)
				r.notifier.Sendf("❌ [%s] не удалось закрыть на бирже: %v", rec.Symbol, err)
				return
			}
			// после реального закрытия учёт сверяем со свободным балансом биржи:
			// полный включает маржу ещё открытых позиций
			if _, avail, err := r.exch.GetBalance(cctx); err == nil {
				r.led.SetBalance(avail)
			}
		}()
	}

	if r.store != nil && ev.Record != nil {
		if err := r.store.Insert(ctx, *ev.Record); err != nil {
			logger.Error("[CLOSE] запись истории %s: %v", ev.ClosedSymbol, err)
		}
	}
}

// CloseManual — закрытие по команде, той же дорогой, что TP/SL/истечение.
func (r *Runner) CloseManual(ctx context.Context, symbol string) (string, bool) {
	sym := helper.NormSymbol(symbol)
	ev, ok := r.led.Close(sym, models.ReasonManual)
	if !ok {
		return fmt.Sprintf("⚠️ [%s] открытой позиции нет", sym), false
	}
	r.handleEvent(ctx, ev)
	return ev.Message, true
}

// Status — сводка для /status: счёт и открытые позиции с моментумом.
func (r *Runner) Status() string {
	var b strings.Builder
	fmt.Fprintf(&b, "💼 Баланс: %.2f USDT | PnL: %+.2f USDT\n", r.led.Balance(), r.led.TotalPnL())

	open := r.led.Snapshot()
	if len(open) == 0 {
		b.WriteString("📭 Открытых позиций нет")
		return b.String()
	}

	fmt.Fprintf(&b, "📊 Открытые позиции (%d):\n", len(open))
	for _, p := range open {
		left := time.Until(p.ExpiryAt).Round(time.Second)
		fmt.Fprintf(&b, "- %s %s x%.0f | вход %.4f -> %.4f | PnL %+.2f | SL %.4f | осталось %s\n",
			p.Symbol, p.Side, p.Leverage, p.Entry, p.Current, p.PnL, p.SL, left)

		if buf, ok := r.reg.Peek(p.Symbol); ok {
			ch := buf.AllChanges()
			fmt.Fprintf(&b, "  1m %+.2f%% | 10m %+.2f%% | 1h %+.2f%% | 24h %+.2f%% | RSI %.1f\n",
				ch.M1, ch.M10, ch.H1, ch.H24, buf.RSI(14))
		}
	}
	return b.String()
}

// RunSummary пишет периодическую сводку в лог и держит readiness.
func (r *Runner) RunSummary(ctx context.Context) {
	r.health.SetReady(true)
	defer r.health.SetReady(false)

	t := time.NewTicker(30 * time.Second)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			logger.Info("[TICK] баланс=%.2f pnl=%+.2f открыто=%d ws=%v",
				r.led.Balance(), r.led.TotalPnL(), r.led.OpenCount(), r.health.WSConnected())
		}
	}
}
