package sweeper

import (
	"context"
	"time"

	"sniper_bot/internal/market"
	"sniper_bot/internal/models"
	"sniper_bot/pkg/logger"
)

const DefaultInterval = 2 * time.Second

// Book — открытые позиции и прокат цены через них.
type Book interface {
	OpenSymbols() []string
	Tick(symbol string, price float64) (models.PositionEvent, bool)
}

// Sweeper периодически прокатывает открытые позиции по последней цене
// из буфера. Нужен для истечения срока жизни: по тихому символу тиков
// может не быть, а время идёт.
type Sweeper struct {
	interval time.Duration
	book     Book
	registry *market.Registry
}

func New(interval time.Duration, book Book, registry *market.Registry) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sweeper{interval: interval, book: book, registry: registry}
}

func (s *Sweeper) Run(ctx context.Context, out chan<- models.PositionEvent) {
	logger.Info("[SWEEP] старт, интервал %s", s.interval)
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Sweep(ctx, out)
		}
	}
}

// Sweep — один проход. Символы без буфера или с нулевой ценой пропускаем:
// прокатывать позицию по нулю нельзя.
func (s *Sweeper) Sweep(ctx context.Context, out chan<- models.PositionEvent) {
	for _, sym := range s.book.OpenSymbols() {
		buf, ok := s.registry.Peek(sym)
		if !ok {
			continue
		}
		px := buf.CurrentPrice()
		if px <= 0 {
			continue
		}

		ev, emit := s.book.Tick(sym, px)
		if !emit {
			continue
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return
		}
	}
}
