package ledger

import (
	"fmt"
	"sync"
	"time"

	"sniper_bot/internal/models"
	"sniper_bot/pkg/logger"
)

// Config — стартовый баланс и уровни трейлинга (проценты от цены входа).
type Config struct {
	StartBalance float64

	BETriggerPct   float64 // ROI, после которого стоп уходит в безубыток
	BEOffsetPct    float64 // запас над входом при переводе в безубыток
	LockTriggerPct float64 // ROI, после которого фиксируем часть профита
	LockOffsetPct  float64 // сколько профита запираем стопом
}

func DefaultConfig() Config {
	return Config{
		StartBalance:   10_000,
		BETriggerPct:   0.8,
		BEOffsetPct:    0.15,
		LockTriggerPct: 1.5,
		LockOffsetPct:  1.0,
	}
}

// Ledger — бумажный учёт позиций: одна позиция на символ,
// маржа списывается при открытии и возвращается с PnL при закрытии.
// Все методы безопасны для вызова из стрима, свипера и команд.
type Ledger struct {
	mu        sync.Mutex
	cfg       Config
	balance   float64
	totalPnL  float64
	positions map[string]*models.Position
	history   []models.TradeRecord

	nowFn func() time.Time
}

func New(cfg Config) *Ledger {
	if cfg.StartBalance <= 0 {
		cfg.StartBalance = DefaultConfig().StartBalance
	}
	if cfg.BETriggerPct <= 0 {
		cfg.BETriggerPct = DefaultConfig().BETriggerPct
	}
	if cfg.BEOffsetPct <= 0 {
		cfg.BEOffsetPct = DefaultConfig().BEOffsetPct
	}
	if cfg.LockTriggerPct <= 0 {
		cfg.LockTriggerPct = DefaultConfig().LockTriggerPct
	}
	if cfg.LockOffsetPct <= 0 {
		cfg.LockOffsetPct = DefaultConfig().LockOffsetPct
	}
	return &Ledger{
		cfg:       cfg,
		balance:   cfg.StartBalance,
		positions: make(map[string]*models.Position),
		nowFn:     time.Now,
	}
}

// OpenRequest — параметры новой позиции; цена берётся из буфера рынка.
type OpenRequest struct {
	Symbol          string
	Side            models.Side
	Price           float64
	MarginUSD       float64
	Leverage        float64
	TPPct           float64
	SLPct           float64
	ValidityMinutes int
	DecisionID      string
}

// Open открывает позицию. Отказ — уже открытая позиция по символу,
// нехватка баланса или нулевая цена.
func (l *Ledger) Open(req OpenRequest) (string, models.Severity, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if req.Price <= 0 {
		return fmt.Sprintf("❌ [%s] нет цены, сделка отклонена", req.Symbol), models.SeverityError, false
	}
	if _, busy := l.positions[req.Symbol]; busy {
		return fmt.Sprintf("⚠️ [%s] позиция уже открыта, пропускаем сигнал", req.Symbol), models.SeverityWarning, false
	}
	if req.MarginUSD > l.balance {
		return fmt.Sprintf("❌ [%s] не хватает баланса: нужно %.2f, есть %.2f",
			req.Symbol, req.MarginUSD, l.balance), models.SeverityError, false
	}
	if req.Leverage <= 0 {
		req.Leverage = 1
	}

	qty := req.MarginUSD * req.Leverage / req.Price

	var tp, sl float64
	if req.Side == models.SideLong {
		tp = req.Price * (1 + req.TPPct/100)
		sl = req.Price * (1 - req.SLPct/100)
	} else {
		tp = req.Price * (1 - req.TPPct/100)
		sl = req.Price * (1 + req.SLPct/100)
	}

	now := l.nowFn()
	p := &models.Position{
		Symbol:     req.Symbol,
		Side:       req.Side,
		Entry:      req.Price,
		Current:    req.Price,
		TP:         tp,
		SL:         sl,
		Qty:        qty,
		Margin:     req.MarginUSD,
		Leverage:   req.Leverage,
		HighestPx:  req.Price,
		LowestPx:   req.Price,
		OpenedAt:   now,
		ExpiryAt:   now.Add(time.Duration(req.ValidityMinutes) * time.Minute),
		DecisionID: req.DecisionID,
	}

	l.balance -= req.MarginUSD
	l.positions[req.Symbol] = p

	logger.Info("[LEDGER] открыта %s %s entry=%.6f qty=%.6f tp=%.6f sl=%.6f",
		p.Symbol, p.Side, p.Entry, p.Qty, p.TP, p.SL)

	return fmt.Sprintf("🔵 [%s] %s x%.0f | вход %.4f | TP %.4f | SL %.4f | маржа %.2f USDT",
		p.Symbol, p.Side, p.Leverage, p.Entry, p.TP, p.SL, p.Margin), models.SeverityInfo, true
}

// Tick прокатывает новую цену через позицию: экстремумы, трейлинг, выходы.
// Возвращает событие для нотификаций; emit=false — ничего интересного.
// Порядок проверок: сначала срок жизни, потом TP и SL.
func (l *Ledger) Tick(symbol string, price float64) (models.PositionEvent, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.positions[symbol]
	if !ok || price <= 0 {
		return models.PositionEvent{}, false
	}

	p.Current = price
	if price > p.HighestPx {
		p.HighestPx = price
	}
	if price < p.LowestPx {
		p.LowestPx = price
	}
	p.PnL = unrealized(p)

	if !l.nowFn().Before(p.ExpiryAt) {
		return l.closeLocked(p, models.ReasonTimeLimit), true
	}

	if p.Side == models.SideLong {
		if price >= p.TP {
			return l.closeLocked(p, models.ReasonTakeProfit), true
		}
		if price <= p.SL {
			return l.closeLocked(p, models.ReasonStopLoss), true
		}
	} else {
		if price <= p.TP {
			return l.closeLocked(p, models.ReasonTakeProfit), true
		}
		if price >= p.SL {
			return l.closeLocked(p, models.ReasonStopLoss), true
		}
	}

	if ev, moved := l.trailLocked(p); moved {
		return ev, true
	}
	return models.PositionEvent{}, false
}

// trailLocked подтягивает стоп по мере роста ROI. Стоп двигается только
// в сторону улучшения: раз переведён в безубыток — обратно не откатывается.
func (l *Ledger) trailLocked(p *models.Position) (models.PositionEvent, bool) {
	roi := priceROI(p)

	var candidate float64
	var stage string
	switch {
	case roi > l.cfg.LockTriggerPct && !p.LockedProfit:
		stage = "фиксация профита"
		if p.Side == models.SideLong {
			candidate = p.Entry * (1 + l.cfg.LockOffsetPct/100)
		} else {
			candidate = p.Entry * (1 - l.cfg.LockOffsetPct/100)
		}
	case roi > l.cfg.BETriggerPct && !p.MovedToBE:
		stage = "безубыток"
		if p.Side == models.SideLong {
			candidate = p.Entry * (1 + l.cfg.BEOffsetPct/100)
		} else {
			candidate = p.Entry * (1 - l.cfg.BEOffsetPct/100)
		}
	default:
		return models.PositionEvent{}, false
	}

	if !improves(p, candidate) {
		return models.PositionEvent{}, false
	}

	p.SL = candidate
	if stage == "безубыток" {
		p.MovedToBE = true
	} else {
		p.MovedToBE = true
		p.LockedProfit = true
	}

	peak := p.HighestPx
	if p.Side == models.SideShort {
		peak = p.LowestPx
	}

	logger.Info("[LEDGER] %s %s: SL -> %.6f (%s, roi=%.2f%%)",
		p.Symbol, p.Side, p.SL, stage, roi)

	return models.PositionEvent{
		Message: fmt.Sprintf("🛡 [%s] SL обновлён (%s) -> %.4f | %s",
			p.Symbol, p.Side, p.SL, stage),
		Severity:   models.SeverityInfo,
		PeakPrice:  peak,
		DecisionID: p.DecisionID,
	}, true
}

func improves(p *models.Position, candidate float64) bool {
	if p.Side == models.SideLong {
		return candidate > p.SL
	}
	return candidate < p.SL
}

// Close закрывает позицию по текущей цене (ручная команда).
func (l *Ledger) Close(symbol string, reason models.CloseReason) (models.PositionEvent, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.positions[symbol]
	if !ok {
		return models.PositionEvent{}, false
	}
	p.PnL = unrealized(p)
	return l.closeLocked(p, reason), true
}

func (l *Ledger) closeLocked(p *models.Position, reason models.CloseReason) models.PositionEvent {
	pnl := p.PnL
	l.balance += p.Margin + pnl
	l.totalPnL += pnl
	delete(l.positions, p.Symbol)

	rec := models.TradeRecord{
		Time:   l.nowFn(),
		Symbol: p.Symbol,
		Side:   p.Side,
		Entry:  p.Entry,
		Exit:   p.Current,
		Qty:    p.Qty,
		PnL:    pnl,
		Reason: reason,
	}
	l.history = append(l.history, rec)

	sev := models.SeverityError
	emoji := "❌"
	if pnl > 0 {
		sev = models.SeveritySuccess
		emoji = "🏁"
	}

	peak := p.HighestPx
	if p.Side == models.SideShort {
		peak = p.LowestPx
	}

	logger.Info("[LEDGER] закрыта %s %s по %.6f reason=%s pnl=%.2f баланс=%.2f",
		p.Symbol, p.Side, p.Current, reason, pnl, l.balance)

	return models.PositionEvent{
		Message: fmt.Sprintf("%s [%s] %s закрыта: %s | вход %.4f -> выход %.4f | PnL %+.2f USDT | баланс %.2f",
			emoji, p.Symbol, p.Side, reason, p.Entry, p.Current, pnl, l.balance),
		Severity:     sev,
		ClosedSymbol: p.Symbol,
		Reason:       reason,
		Record:       &rec,
		PnL:          pnl,
		PeakPrice:    peak,
		DecisionID:   p.DecisionID,
	}
}

// ROI позиции как процент хода цены от входа, без учёта плеча.
func priceROI(p *models.Position) float64 {
	if p.Entry == 0 {
		return 0
	}
	if p.Side == models.SideLong {
		return (p.Current - p.Entry) / p.Entry * 100
	}
	return (p.Entry - p.Current) / p.Entry * 100
}

func unrealized(p *models.Position) float64 {
	if p.Side == models.SideLong {
		return (p.Current - p.Entry) * p.Qty
	}
	return (p.Entry - p.Current) * p.Qty
}

func (l *Ledger) Balance() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

// SetBalance — сверка с реальной биржей после закрытия ордера.
func (l *Ledger) SetBalance(v float64) {
	l.mu.Lock()
	l.balance = v
	l.mu.Unlock()
}

func (l *Ledger) TotalPnL() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalPnL
}

func (l *Ledger) OpenCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.positions)
}

func (l *Ledger) OpenSymbols() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.positions))
	for s := range l.positions {
		out = append(out, s)
	}
	return out
}

// Position — копия позиции для статусов; второй результат false, если её нет.
func (l *Ledger) Position(symbol string) (models.Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.positions[symbol]
	if !ok {
		return models.Position{}, false
	}
	return *p, true
}

// Snapshot — копии всех открытых позиций.
func (l *Ledger) Snapshot() []models.Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, *p)
	}
	return out
}

// History — последние n закрытых сделок, свежие в конце.
func (l *Ledger) History(n int) []models.TradeRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n <= 0 || n > len(l.history) {
		n = len(l.history)
	}
	out := make([]models.TradeRecord, n)
	copy(out, l.history[len(l.history)-n:])
	return out
}
