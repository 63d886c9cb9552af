package sweeper

import (
	"context"

	"go.uber.org/fx"

	"sniper_bot/internal/ledger"
	"sniper_bot/internal/market"
	"sniper_bot/internal/models"
	"sniper_bot/internal/modules/config"
)

// Module — периодический прокат открытых позиций (сработка срока жизни).
func Module() fx.Option {
	return fx.Module("sweeper",
		fx.Provide(
			func(cfg *config.Config, l *ledger.Ledger, r *market.Registry) *Sweeper {
				return New(cfg.SweepInterval, l, r)
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, s *Sweeper, out chan models.PositionEvent) {
			ctx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go s.Run(ctx, out)
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
