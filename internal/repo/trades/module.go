package trades

import (
	"context"

	"go.uber.org/fx"

	"sniper_bot/internal/runner"
)

// Module — персистентная история сделок поверх пула Postgres.
func Module() fx.Option {
	return fx.Module("trades",
		fx.Provide(
			New,
			func(r *Repo) runner.TradeStore { return r },
		),
		fx.Invoke(func(lc fx.Lifecycle, r *Repo) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					return r.Migrate(ctx)
				},
			})
		}),
	)
}
