package runner

import (
	"context"

	"go.uber.org/fx"

	binance "sniper_bot/internal/modules/binance_client/service"
	ws "sniper_bot/internal/modules/binance_ws/service"

	"sniper_bot/internal/models"
)

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			func(c *ws.Client) Stream { return c },
			func(c *binance.Client) ExchangeSync { return c },
			New,
		),
		fx.Invoke(func(lc fx.Lifecycle, r *Runner, events chan models.PositionEvent) {
			ctx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go r.RunDecisions(ctx)
					go r.RunEvents(ctx, events)
					go r.RunSummary(ctx)
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
