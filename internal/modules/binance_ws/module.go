package binance_ws

import (
	"context"

	"go.uber.org/fx"

	"sniper_bot/internal/ledger"
	"sniper_bot/internal/models"
	"sniper_bot/internal/modules/binance_ws/service"
)

// Module поднимает стример Binance futures: батч-тикер + kline по подписке.
func Module() fx.Option {
	return fx.Module("binance_ws",
		fx.Provide(
			func(l *ledger.Ledger) service.Book { return l },
			service.NewClient,
			func() chan models.PositionEvent {
				// общий буфер событий позиций (закрытия, трейлинг)
				return make(chan models.PositionEvent, 256)
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, c *service.Client, out chan models.PositionEvent) {
			ctx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go c.Start(ctx, out)
					return nil
				},
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})
		}),
	)
}
